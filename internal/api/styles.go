package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/go-resty/resty/v2"
)

// ListStyles returns the catalog, restricted to one category when
// categoryID is non-zero.
func (c *Client) ListStyles(ctx context.Context, categoryID int64) ([]models.Style, error) {
	var styles []models.Style
	err := c.call(ctx, http.MethodGet, "/styles", "/styles", func(r *resty.Request) {
		if categoryID != 0 {
			r.SetQueryParam("category_id", strconv.FormatInt(categoryID, 10))
		}
	}, &styles)
	if err != nil {
		return nil, err
	}
	return styles, nil
}

// GetStyle returns one style with its images.
func (c *Client) GetStyle(ctx context.Context, id int64) (*models.Style, error) {
	var style models.Style
	if err := c.call(ctx, http.MethodGet, "/styles/:id", fmt.Sprintf("/styles/%d", id), nil, &style); err != nil {
		return nil, err
	}
	return &style, nil
}

// SearchStyles runs the backend's full-text style search.
func (c *Client) SearchStyles(ctx context.Context, query string) ([]models.Style, error) {
	var styles []models.Style
	err := c.call(ctx, http.MethodGet, "/styles/search", "/styles/search", func(r *resty.Request) {
		r.SetQueryParam("q", query)
	}, &styles)
	if err != nil {
		return nil, err
	}
	return styles, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	return c.categories(ctx, "/categories")
}

func (c *Client) ListActiveCategories(ctx context.Context) ([]models.Category, error) {
	return c.categories(ctx, "/categories/active")
}

func (c *Client) categories(ctx context.Context, path string) ([]models.Category, error) {
	var categories []models.Category
	if err := c.call(ctx, http.MethodGet, path, path, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
