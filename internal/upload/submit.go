package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/ashendes/neurophoto-storefront/internal/patterns"
	log "github.com/sirupsen/logrus"
)

var ErrNoOrder = errors.New("upload: no order to attach photos to")

// Uploader sends photos to the backend
type Uploader interface {
	UploadPhotos(ctx context.Context, orderID int64, photos []models.PhotoFile) (*models.UploadPhotosResponse, error)
}

// OrderSource knows the order the current session is paying for
type OrderSource interface {
	ActiveOrder() (*models.ActiveOrder, error)
}

// Submitter sends the staged set to the backend
type Submitter struct {
	stager   *Stager
	uploader Uploader
	orders   OrderSource
}

func NewSubmitter(stager *Stager, uploader Uploader, orders OrderSource) *Submitter {
	return &Submitter{stager: stager, uploader: uploader, orders: orders}
}

// Submit uploads the staged set for orderID and leaves it staged.
func (s *Submitter) Submit(ctx context.Context, orderID int64) (*models.UploadPhotosResponse, error) {
	files, err := s.stager.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoPhotos
	}

	ctx, cancel := patterns.WithTimeout(ctx, patterns.UploadTimeout)
	defer cancel()

	resp, err := s.uploader.UploadPhotos(ctx, orderID, files)
	if err != nil {
		return nil, fmt.Errorf("submit photos for order %d: %w", orderID, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("submit photos for order %d: backend refused: %s", orderID, resp.Message)
	}
	return resp, nil
}

// SubmitNow uploads the staged set right away against orderID, or against
// the session's active order when orderID is zero, then clears the set.
func (s *Submitter) SubmitNow(ctx context.Context, orderID int64) (*models.UploadPhotosResponse, error) {
	if orderID == 0 && s.orders != nil {
		active, err := s.orders.ActiveOrder()
		if err != nil {
			return nil, err
		}
		if active != nil {
			orderID = active.OrderID
		}
	}
	if orderID == 0 {
		return nil, ErrNoOrder
	}

	resp, err := s.Submit(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.stager.Clear(); err != nil {
		log.WithField("order_id", orderID).Error("Photos submitted but staged set not cleared: ", err)
		return resp, err
	}
	return resp, nil
}
