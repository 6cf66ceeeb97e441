// Package catalog reads styles and categories for the storefront views.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/ashendes/neurophoto-storefront/internal/models"
)

// Source is the backend side of the catalog
type Source interface {
	ListStyles(ctx context.Context, categoryID int64) ([]models.Style, error)
	GetStyle(ctx context.Context, id int64) (*models.Style, error)
	SearchStyles(ctx context.Context, query string) ([]models.Style, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListActiveCategories(ctx context.Context) ([]models.Category, error)
}

// CartView tells whether a style is already in the cart
type CartView interface {
	Contains(id int64) bool
}

// Filter narrows the style list. Zero values match everything.
type Filter struct {
	CategoryID int64
	// Query matches name or description, case-insensitively.
	Query string
}

// Detail is a style as shown on its own page
type Detail struct {
	Style      models.Style
	PreviewURL string
	InCart     bool
}

type Service struct {
	source Source
	cart   CartView
}

func New(source Source, cart CartView) *Service {
	return &Service{source: source, cart: cart}
}

// Categories returns categories ordered for display.
func (s *Service) Categories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	var (
		categories []models.Category
		err        error
	)
	if activeOnly {
		categories, err = s.source.ListActiveCategories(ctx)
	} else {
		categories, err = s.source.ListCategories(ctx)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].Order != categories[j].Order {
			return categories[i].Order < categories[j].Order
		}
		return categories[i].ID < categories[j].ID
	})
	return categories, nil
}

// Styles lists the catalog, filtered on the backend by category and
// locally by query.
func (s *Service) Styles(ctx context.Context, f Filter) ([]models.Style, error) {
	styles, err := s.source.ListStyles(ctx, f.CategoryID)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return styles, nil
	}

	matched := make([]models.Style, 0, len(styles))
	for _, st := range styles {
		if strings.Contains(strings.ToLower(st.Name), q) ||
			strings.Contains(strings.ToLower(st.Description), q) {
			matched = append(matched, st)
		}
	}
	return matched, nil
}

// Search runs the backend search. A blank query returns the full list.
func (s *Service) Search(ctx context.Context, query string) ([]models.Style, error) {
	if strings.TrimSpace(query) == "" {
		return s.source.ListStyles(ctx, 0)
	}
	return s.source.SearchStyles(ctx, strings.TrimSpace(query))
}

// Style loads one style for its detail page.
func (s *Service) Style(ctx context.Context, id int64) (*Detail, error) {
	st, err := s.source.GetStyle(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Style:      *st,
		PreviewURL: st.PreviewURL(),
		InCart:     s.InCart(st.ID),
	}, nil
}

func (s *Service) InCart(id int64) bool {
	return s.cart != nil && s.cart.Contains(id)
}
