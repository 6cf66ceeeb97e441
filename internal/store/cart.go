package store

import (
	"fmt"
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/models"
	"gorm.io/gorm"
)

// LoadCart returns the persisted cart in insertion order.
func (s *Store) LoadCart() ([]models.Style, error) {
	var records []CartEntryRecord
	if err := s.db.Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	styles := make([]models.Style, 0, len(records))
	for _, r := range records {
		if r.Snapshot.ID == r.StyleID && r.StyleID != 0 {
			styles = append(styles, r.Snapshot)
			continue
		}
		styles = append(styles, models.Style{
			ID:           r.StyleID,
			Name:         r.Name,
			Description:  r.Description,
			CategoryID:   r.CategoryID,
			Price:        models.ParsePrice(r.Price),
			PreviewImage: r.PreviewImage,
		})
	}
	return styles, nil
}

// SaveCart replaces the persisted cart with styles.
func (s *Store) SaveCart(styles []models.Style) error {
	now := time.Now()
	records := make([]CartEntryRecord, 0, len(styles))
	for i, st := range styles {
		records = append(records, CartEntryRecord{
			StyleID:      st.ID,
			Position:     i,
			Name:         st.Name,
			Description:  st.Description,
			CategoryID:   st.CategoryID,
			Price:        st.Price.String(),
			PreviewImage: st.PreviewImage,
			Snapshot:     st,
			AddedAt:      now,
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&CartEntryRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
