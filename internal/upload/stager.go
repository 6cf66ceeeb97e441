// Package upload stages the source photos a customer picks and submits them
// to the backend as multipart form fields.
package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
)

// MaxPhotos is the most source photos one order takes.
const MaxPhotos = 3

var (
	ErrTooManyPhotos   = errors.New("upload: at most 3 photos can be staged")
	ErrUnsupportedType = errors.New("upload: only JPEG and PNG photos are accepted")
	ErrNoPhotos        = errors.New("upload: no photos staged")
)

// accepted mirrors the picker filter: image/jpeg, image/png.
var accepted = []string{"image/jpeg", "image/png"}

// Persister keeps the staged set between runs
type Persister interface {
	LoadPending() ([]models.StagedPhoto, error)
	SavePending([]models.StagedPhoto) error
}

// Stager holds the pending upload set
type Stager struct {
	mu        sync.RWMutex
	photos    []models.StagedPhoto
	persister Persister
}

func NewStager(p Persister) (*Stager, error) {
	saved, err := p.LoadPending()
	if err != nil {
		return nil, fmt.Errorf("load pending photos: %w", err)
	}
	if len(saved) > MaxPhotos {
		saved = saved[:MaxPhotos]
	}
	return &Stager{photos: saved, persister: p}, nil
}

// AddFiles stages the images at paths. Either every file is staged or none.
func (s *Stager) AddFiles(paths ...string) error {
	photos := make([]models.StagedPhoto, 0, len(paths))
	for _, path := range paths {
		photo, err := readPhoto(path)
		if err != nil {
			return err
		}
		photos = append(photos, photo)
	}
	return s.Add(photos...)
}

func readPhoto(path string) (models.StagedPhoto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.StagedPhoto{}, fmt.Errorf("read %s: %w", path, err)
	}

	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), accepted...) {
		return models.StagedPhoto{}, fmt.Errorf("%s is %s: %w", filepath.Base(path), mime.String(), ErrUnsupportedType)
	}

	return models.StagedPhoto{
		FileName: filepath.Base(path),
		MimeType: mime.String(),
		DataURL:  EncodeDataURL(mime.String(), data),
	}, nil
}

// Add stages already encoded photos, all or nothing.
func (s *Stager) Add(photos ...models.StagedPhoto) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.photos)+len(photos) > MaxPhotos {
		return ErrTooManyPhotos
	}

	next := make([]models.StagedPhoto, 0, len(s.photos)+len(photos))
	next = append(next, s.photos...)
	next = append(next, photos...)
	if err := s.commit(next); err != nil {
		return err
	}

	log.WithField("staged", len(next)).Debug("Staged photos")
	return nil
}

// Remove drops the photo at index. It reports false for an index outside
// the set.
func (s *Stager) Remove(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.photos) {
		return false, nil
	}

	next := make([]models.StagedPhoto, 0, len(s.photos)-1)
	next = append(next, s.photos[:index]...)
	next = append(next, s.photos[index+1:]...)
	if err := s.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Stager) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(nil)
}

// Photos returns a copy of the staged set.
func (s *Stager) Photos() []models.StagedPhoto {
	s.mu.RLock()
	defer s.mu.RUnlock()

	photos := make([]models.StagedPhoto, len(s.photos))
	copy(photos, s.photos)
	return photos
}

func (s *Stager) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}

// Files decodes the staged set into multipart files named photo-1.jpg,
// photo-2.png and so on.
func (s *Stager) Files() ([]models.PhotoFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]models.PhotoFile, 0, len(s.photos))
	for i, p := range s.photos {
		mimeType, data, err := DecodeDataURL(p.DataURL)
		if err != nil {
			return nil, fmt.Errorf("photo %d: %w", i+1, err)
		}
		files = append(files, models.PhotoFile{
			FileName:    fmt.Sprintf("photo-%d%s", i+1, extension(mimeType)),
			ContentType: mimeType,
			Data:        data,
		})
	}
	return files, nil
}

func extension(mimeType string) string {
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".jpg"
}

func (s *Stager) commit(next []models.StagedPhoto) error {
	if err := s.persister.SavePending(next); err != nil {
		return fmt.Errorf("persist pending photos: %w", err)
	}
	s.photos = next
	return nil
}
