package checkout

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

// DeepLink returns the bank app link for an SBP QR payload. Payloads that
// wrap the link in a "link" query parameter are unwrapped; anything else,
// including bank100000000111:// and https://qr.nspk.ru/ links, is already
// openable and comes back unchanged. A literal "+" in the link is kept.
func DeepLink(qrURL string) string {
	u, err := url.Parse(qrURL)
	if err != nil {
		return qrURL
	}

	link := u.Query().Get("link")
	if link == "" {
		return qrURL
	}
	if decoded, err := url.PathUnescape(link); err == nil {
		return decoded
	}
	return link
}

// RenderQR draws content as a QR code made of block characters for
// printing to a terminal.
func RenderQR(content string) (string, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode QR code: %w", err)
	}
	return q.ToSmallString(false), nil
}

// WriteQRPNG saves content as a size×size PNG QR code.
func WriteQRPNG(content, path string, size int) error {
	if err := qrcode.WriteFile(content, qrcode.Medium, size, path); err != nil {
		return fmt.Errorf("write QR code %s: %w", path, err)
	}
	return nil
}
