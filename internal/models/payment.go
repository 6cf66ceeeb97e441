package models

import "strings"

// Payment status values seen on the status endpoint
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusCanceled = "canceled"
	PaymentStatusExpired  = "expired"
	PaymentStatusRejected = "rejected"
)

// PaymentOutcome classifies a status value
type PaymentOutcome int

const (
	PaymentOutcomeWaiting PaymentOutcome = iota
	PaymentOutcomePaid
	PaymentOutcomeFailed
)

func (o PaymentOutcome) String() string {
	switch o {
	case PaymentOutcomePaid:
		return "paid"
	case PaymentOutcomeFailed:
		return "failed"
	default:
		return "waiting"
	}
}

// ClassifyPayment maps a raw status to an outcome. Statuses past payment
// (completed, done) count as paid.
func ClassifyPayment(status string) PaymentOutcome {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case PaymentStatusPaid, OrderStatusCompleted, OrderStatusDone:
		return PaymentOutcomePaid
	case PaymentStatusFailed, OrderStatusCancelled, PaymentStatusCanceled,
		PaymentStatusExpired, PaymentStatusRejected:
		return PaymentOutcomeFailed
	default:
		return PaymentOutcomeWaiting
	}
}

// StatusRank orders statuses along the order lifecycle so callers can
// refuse to move backwards. Unknown statuses rank lowest.
func StatusRank(status string) int {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case OrderStatusCreated, PaymentStatusPending:
		return 1
	case OrderStatusProcessing:
		return 2
	case PaymentStatusPaid:
		return 3
	case OrderStatusCompleted, OrderStatusDone, PaymentStatusFailed, OrderStatusCancelled,
		PaymentStatusCanceled, PaymentStatusExpired, PaymentStatusRejected:
		return 4
	default:
		return 0
	}
}

// PhotoFile is one source photo ready for multipart submission
type PhotoFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// UploadPhotosResponse is the body returned after a photo upload
type UploadPhotosResponse struct {
	Success bool     `json:"success"`
	Photos  []string `json:"photos,omitempty"`
	Message string   `json:"message,omitempty"`
}
