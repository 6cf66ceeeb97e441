package models

import "time"

// StagedPhoto is a source photo held on the device until it is submitted
type StagedPhoto struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	DataURL  string `json:"data_url"`
}

// ActiveOrder is the order a checkout session is currently paying for
type ActiveOrder struct {
	OrderID   int64     `json:"order_id"`
	QRCodeURL string    `json:"qr_code_url"`
	QRID      string    `json:"qr_id"`
	CreatedAt time.Time `json:"created_at"`
}
