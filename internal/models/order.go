package models

import (
	"bytes"
	"encoding/json"
)

// Order status values reported by the backend for an order's lifecycle
const (
	OrderStatusCreated    = "created"
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusPaid       = "paid"
	OrderStatusCompleted  = "completed"
	OrderStatusDone       = "done"
	OrderStatusFailed     = "failed"
	OrderStatusCancelled  = "cancelled"
)

// OrderStyle is the style snapshot stored on an order
type OrderStyle struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price Price  `json:"price"`
}

// Order is a server-side purchase record as returned to its owner
type Order struct {
	ID             int64                `json:"id"`
	TelegramUserID string               `json:"telegram_user_id"`
	Username       string               `json:"username,omitempty"`
	FirstName      string               `json:"first_name,omitempty"`
	TotalPrice     Price                `json:"total_price"`
	Status         string               `json:"status"`
	Photos         JSONList[string]     `json:"photos"`
	ResultPhotos   JSONList[string]     `json:"result_photos"`
	Styles         JSONList[OrderStyle] `json:"styles"`
	CreatedAt      string               `json:"created_at"`
}

// CreateOrderRequest is the checkout payload
type CreateOrderRequest struct {
	TelegramUserID string  `json:"telegramUserId"`
	Username       string  `json:"username,omitempty"`
	FirstName      string  `json:"firstName,omitempty"`
	Styles         []Style `json:"styles"`
	Price          Price   `json:"price"`
}

// CreateOrderResponse carries the new order id and the SBP payment payload
type CreateOrderResponse struct {
	ID        int64  `json:"id"`
	QRCodeURL string `json:"qrCodeUrl"`
	QRID      string `json:"qrId"`
}

// OrderStatusResponse is the body of the status endpoint
type OrderStatusResponse struct {
	PaymentStatus string `json:"paymentStatus"`
	Status        string `json:"status,omitempty"`
}

// Effective returns the payment status, falling back to the order status
// for backends that only report the latter.
func (r OrderStatusResponse) Effective() string {
	if r.PaymentStatus != "" {
		return r.PaymentStatus
	}
	return r.Status
}

// JSONList decodes a list that the backend sends either as a JSON array or
// as a string holding a JSON-encoded array. Null and unparseable strings
// decode to an empty list.
type JSONList[T any] []T

// UnmarshalJSON accepts both representations.
func (l *JSONList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = JSONList[T]{}
		return nil
	}

	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			*l = JSONList[T]{}
			return nil
		}
		data = []byte(encoded)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		*l = JSONList[T]{}
		return nil
	}
	if items == nil {
		items = []T{}
	}
	*l = items
	return nil
}
