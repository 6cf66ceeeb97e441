// Package history lists a customer's past orders with their status badges
// and fetches the processed photos of completed ones.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashendes/neurophoto-storefront/internal/models"
	log "github.com/sirupsen/logrus"
)

var ErrNotReady = errors.New("history: order has no results yet")

// Source is the backend side of the order history
type Source interface {
	ListUserOrders(ctx context.Context, telegramUserID string) ([]models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	Download(ctx context.Context, rawURL, dest string) error
}

// Tone is the colour family of a status badge
type Tone string

const (
	ToneWarning Tone = "warning"
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
	ToneNeutral Tone = "neutral"
)

// Badge is the status shown next to an order
type Badge struct {
	Label string
	Tone  Tone
}

// Entry is one order as the history view shows it
type Entry struct {
	Order      models.Order
	StyleNames []string
	Badge      Badge
	// Results are the processed photos, set only for completed orders.
	Results []string
}

// BadgeFor maps an order status to its badge.
func BadgeFor(status string) Badge {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.OrderStatusPending:
		return Badge{Label: "Pending", Tone: ToneWarning}
	case models.OrderStatusProcessing:
		return Badge{Label: "Processing", Tone: ToneInfo}
	case models.OrderStatusCompleted:
		return Badge{Label: "Ready", Tone: ToneSuccess}
	case models.OrderStatusCancelled:
		return Badge{Label: "Cancelled", Tone: ToneDanger}
	default:
		return Badge{Label: "Unknown", Tone: ToneNeutral}
	}
}

type Service struct {
	source Source
}

func New(source Source) *Service {
	return &Service{source: source}
}

// List returns the orders of a Telegram user in the order the backend
// sends them.
func (s *Service) List(ctx context.Context, telegramUserID string) ([]Entry, error) {
	if strings.TrimSpace(telegramUserID) == "" {
		return nil, errors.New("history: telegram user id is required")
	}

	orders, err := s.source.ListUserOrders(ctx, telegramUserID)
	if err != nil {
		return nil, fmt.Errorf("load orders of %s: %w", telegramUserID, err)
	}

	entries := make([]Entry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, entryFor(o))
	}
	return entries, nil
}

// Order loads a single order.
func (s *Service) Order(ctx context.Context, id int64) (*Entry, error) {
	o, err := s.source.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	e := entryFor(*o)
	return &e, nil
}

func entryFor(o models.Order) Entry {
	e := Entry{
		Order:      o,
		StyleNames: make([]string, 0, len(o.Styles)),
		Badge:      BadgeFor(o.Status),
	}
	for _, st := range o.Styles {
		e.StyleNames = append(e.StyleNames, st.Name)
	}
	if strings.EqualFold(o.Status, models.OrderStatusCompleted) {
		e.Results = append([]string{}, o.ResultPhotos...)
	}
	return e
}

// ResultFileName is the name a downloaded result is saved under; n
// counts from zero.
func ResultFileName(n int) string {
	return fmt.Sprintf("neuro_photo_result_%d.jpg", n+1)
}

// DownloadResults saves every result photo of e into dir and returns the
// written paths. It stops at the first failed download.
func (s *Service) DownloadResults(ctx context.Context, e Entry, dir string) ([]string, error) {
	if len(e.Results) == 0 {
		return nil, ErrNotReady
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	paths := make([]string, 0, len(e.Results))
	for i, url := range e.Results {
		dest := filepath.Join(dir, ResultFileName(i))
		if err := s.source.Download(ctx, url, dest); err != nil {
			log.WithFields(log.Fields{
				"order_id": e.Order.ID,
				"photo":    i + 1,
			}).Error("Failed to download result: ", err)
			return paths, err
		}
		paths = append(paths, dest)
	}

	log.WithFields(log.Fields{
		"order_id": e.Order.ID,
		"photos":   len(paths),
		"dir":      dir,
	}).Info("Downloaded order results")
	return paths, nil
}
