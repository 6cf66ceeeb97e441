package cart

import (
	"fmt"
	"sync"

	"github.com/ashendes/neurophoto-storefront/internal/metrics"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	log "github.com/sirupsen/logrus"
)

// Persister keeps the full cart between runs
type Persister interface {
	LoadCart() ([]models.Style, error)
	SaveCart([]models.Style) error
}

// Store holds the styles the user picked, one unit per style
type Store struct {
	mu        sync.RWMutex
	entries   []models.Style
	persister Persister
	onClear   []func() error
}

// New loads the persisted cart. Duplicate ids in persisted data keep the
// first occurrence.
func New(p Persister) (*Store, error) {
	saved, err := p.LoadCart()
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	s := &Store{persister: p}
	seen := make(map[int64]bool, len(saved))
	for _, st := range saved {
		if seen[st.ID] {
			continue
		}
		seen[st.ID] = true
		s.entries = append(s.entries, st)
	}
	metrics.CartEntries.Set(float64(len(s.entries)))
	return s, nil
}

// Add puts style in the cart. It reports false, without touching storage,
// when a style with the same id is already there.
func (s *Store) Add(style models.Style) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(style.ID) >= 0 {
		return false, nil
	}

	next := make([]models.Style, len(s.entries), len(s.entries)+1)
	copy(next, s.entries)
	next = append(next, style)
	if err := s.commit(next); err != nil {
		return false, err
	}

	log.WithFields(log.Fields{
		"style_id": style.ID,
		"price":    style.Price.String(),
	}).Debug("Added style to cart")
	return true, nil
}

// Remove drops the style with id. It reports false when it was not there.
func (s *Store) Remove(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	next := make([]models.Style, 0, len(s.entries)-1)
	next = append(next, s.entries[:i]...)
	next = append(next, s.entries[i+1:]...)
	if err := s.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

// OnClear registers fn to run after every successful Clear. The pending
// upload set hangs off the cart this way.
func (s *Store) OnClear(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

// Clear empties the cart.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(nil); err != nil {
		return err
	}
	for _, fn := range s.onClear {
		if err := fn(); err != nil {
			return fmt.Errorf("cart cleared: %w", err)
		}
	}
	return nil
}

// Items returns a copy of the cart in insertion order.
func (s *Store) Items() []models.Style {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.Style, len(s.entries))
	copy(items, s.entries)
	return items
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// Total is the sum of the current entries' prices.
func (s *Store) Total() models.Price {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make([]models.Price, 0, len(s.entries))
	for _, st := range s.entries {
		prices = append(prices, st.Price)
	}
	return models.SumPrices(prices...)
}

// commit persists next and only then makes it the current cart.
func (s *Store) commit(next []models.Style) error {
	if err := s.persister.SaveCart(next); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	s.entries = next
	metrics.CartEntries.Set(float64(len(next)))
	return nil
}

func (s *Store) indexOf(id int64) int {
	for i, st := range s.entries {
		if st.ID == id {
			return i
		}
	}
	return -1
}
