package store

import (
	"errors"
	"fmt"

	"github.com/ashendes/neurophoto-storefront/internal/models"
	"gorm.io/gorm"
)

// MaxPendingPhotos is the size limit of the pending upload set.
const MaxPendingPhotos = 3

var ErrTooManyPending = errors.New("store: pending upload set is limited to 3 photos")

// LoadPending returns the staged photos in the order they were added.
func (s *Store) LoadPending() ([]models.StagedPhoto, error) {
	var records []PendingPhotoRecord
	if err := s.db.Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load pending photos: %w", err)
	}

	photos := make([]models.StagedPhoto, 0, len(records))
	for _, r := range records {
		photos = append(photos, models.StagedPhoto{
			FileName: r.FileName,
			MimeType: r.MimeType,
			DataURL:  r.DataURL,
		})
	}
	return photos, nil
}

// SavePending replaces the pending upload set.
func (s *Store) SavePending(photos []models.StagedPhoto) error {
	if len(photos) > MaxPendingPhotos {
		return ErrTooManyPending
	}

	records := make([]PendingPhotoRecord, 0, len(photos))
	for i, p := range photos {
		records = append(records, PendingPhotoRecord{
			Position: i,
			FileName: p.FileName,
			MimeType: p.MimeType,
			DataURL:  p.DataURL,
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&PendingPhotoRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("save pending photos: %w", err)
	}
	return nil
}

// ClearPending empties the pending upload set.
func (s *Store) ClearPending() error {
	return s.SavePending(nil)
}
