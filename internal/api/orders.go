package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/metrics"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// CreateOrder places an order for the cart snapshot in req and returns the
// SBP payment payload.
func (c *Client) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	var resp models.CreateOrderResponse
	err := c.call(ctx, http.MethodPost, "/orders", c.orderPath("/orders"), func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").SetBody(req)
	}, &resp)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id": resp.ID,
		"styles":   len(req.Styles),
		"total":    req.Price.String(),
	}).Info("Order created")
	return &resp, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := c.call(ctx, http.MethodGet, "/orders/:id", c.orderPath("/orders/%d", id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderStatus fetches the payment status of an order.
func (c *Client) GetOrderStatus(ctx context.Context, id int64) (*models.OrderStatusResponse, error) {
	var status models.OrderStatusResponse
	if err := c.call(ctx, http.MethodGet, "/orders/:id/status", c.orderPath("/orders/%d/status", id), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UploadPhotos submits source photos as repeated multipart "photos" fields.
func (c *Client) UploadPhotos(ctx context.Context, orderID int64, photos []models.PhotoFile) (*models.UploadPhotosResponse, error) {
	if len(photos) == 0 {
		return nil, fmt.Errorf("upload photos for order %d: no photos", orderID)
	}

	fields := make([]*resty.MultipartField, 0, len(photos))
	for _, p := range photos {
		fields = append(fields, &resty.MultipartField{
			Param:       "photos",
			FileName:    p.FileName,
			ContentType: p.ContentType,
			Reader:      bytes.NewReader(p.Data),
		})
	}

	var resp models.UploadPhotosResponse
	err := c.callWith(ctx, c.uploads, http.MethodPost, "/orders/:id/photos", c.orderPath("/orders/%d/photos", orderID), func(r *resty.Request) {
		r.SetMultipartFields(fields...)
	}, &resp)
	if err != nil {
		return nil, err
	}

	metrics.PhotosUploadedTotal.Add(float64(len(photos)))
	log.WithFields(log.Fields{
		"order_id": orderID,
		"photos":   len(photos),
	}).Info("Photos uploaded")
	return &resp, nil
}

// ListUserOrders returns every order placed by a Telegram user.
func (c *Client) ListUserOrders(ctx context.Context, telegramUserID string) ([]models.Order, error) {
	var orders []models.Order
	path := c.orderPath("/orders/user/%s", url.PathEscape(telegramUserID))
	if err := c.call(ctx, http.MethodGet, "/orders/user/:telegramUserId", path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Download saves the resource at rawURL to dest. A partial file is removed
// on failure.
func (c *Client) Download(ctx context.Context, rawURL, dest string) error {
	start := time.Now()
	status := 0

	err := c.bulkhead.Execute(ctx, func() error {
		resp, err := c.files.R().SetContext(ctx).SetOutput(dest).Get(rawURL)
		if err != nil {
			return fmt.Errorf("HTTP error: %w", err)
		}
		status = resp.StatusCode()
		if !resp.IsSuccess() {
			return &Error{Method: http.MethodGet, Path: rawURL, StatusCode: status}
		}
		return nil
	})

	metrics.ObserveClientRequest("download", status, time.Since(start))

	if err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	return nil
}
