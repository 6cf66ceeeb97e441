package store

import (
	"errors"
	"fmt"

	"github.com/ashendes/neurophoto-storefront/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActiveOrder returns the session's active order, or nil if there is none.
func (s *Store) ActiveOrder() (*models.ActiveOrder, error) {
	var rec SessionOrderRecord
	err := s.db.Where("session_id = ?", s.sessionID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active order: %w", err)
	}

	return &models.ActiveOrder{
		OrderID:   rec.OrderID,
		QRCodeURL: rec.QRCodeURL,
		QRID:      rec.QRID,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// SaveActiveOrder records order as the session's active order.
func (s *Store) SaveActiveOrder(order models.ActiveOrder) error {
	rec := SessionOrderRecord{
		SessionID: s.sessionID,
		OrderID:   order.OrderID,
		QRCodeURL: order.QRCodeURL,
		QRID:      order.QRID,
	}
	err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save active order: %w", err)
	}
	return nil
}

// ClearActiveOrder forgets the session's active order.
func (s *Store) ClearActiveOrder() error {
	err := s.db.Where("session_id = ?", s.sessionID).Delete(&SessionOrderRecord{}).Error
	if err != nil {
		return fmt.Errorf("clear active order: %w", err)
	}
	return nil
}
