package upload

import (
	"encoding/base64"
	"errors"
	"strings"
)

// DefaultMimeType is assumed when a data URL does not name one.
const DefaultMimeType = "image/jpeg"

var ErrInvalidDataURL = errors.New("upload: invalid data URL")

// EncodeDataURL renders data as a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its mime type and payload.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	meta, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return "", nil, ErrInvalidDataURL
	}

	mimeType := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrInvalidDataURL
	}
	return mimeType, data, nil
}
