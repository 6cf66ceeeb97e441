package catalog_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/ashendes/neurophoto-storefront/internal/api"
	"github.com/ashendes/neurophoto-storefront/internal/catalog"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/ashendes/neurophoto-storefront/internal/sandbox"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCart map[int64]bool

func (f fakeCart) Contains(id int64) bool { return f[id] }

func newService(t *testing.T, opts sandbox.Options, cart catalog.CartView) *catalog.Service {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts := httptest.NewServer(sandbox.New(opts).Router())
	t.Cleanup(ts.Close)
	return catalog.New(api.New(api.Options{BaseURL: ts.URL, OrdersPrefix: "/api"}), cart)
}

func TestCategories_SortedByOrderThenID(t *testing.T) {
	svc := newService(t, sandbox.Options{
		Styles: []models.Style{{ID: 1, Name: "x", IsActive: true}},
		Categories: []models.Category{
			{ID: 9, Name: "Late", Order: 2, IsActive: true},
			{ID: 4, Name: "Tied B", Order: 1, IsActive: true},
			{ID: 2, Name: "Tied A", Order: 1, IsActive: true},
			{ID: 7, Name: "Hidden", Order: 0, IsActive: false},
		},
	}, nil)

	active, err := svc.Categories(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, []int64{2, 4, 9}, []int64{active[0].ID, active[1].ID, active[2].ID})

	all, err := svc.Categories(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), all[0].ID)
}

func TestStyles_LocalQueryFilter(t *testing.T) {
	svc := newService(t, sandbox.Options{}, nil)

	styles, err := svc.Styles(context.Background(), catalog.Filter{Query: "PORTRAIT"})
	require.NoError(t, err)
	require.Len(t, styles, 2)
	assert.Equal(t, "Studio Noir", styles[0].Name)
	assert.Equal(t, "Elven Forest", styles[1].Name)

	styles, err = svc.Styles(context.Background(), catalog.Filter{CategoryID: 2, Query: "neon"})
	require.NoError(t, err)
	require.Len(t, styles, 1)
	assert.Equal(t, int64(4), styles[0].ID)
}

func TestSearch_BlankListsAll(t *testing.T) {
	svc := newService(t, sandbox.Options{}, nil)

	all, err := svc.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	found, err := svc.Search(context.Background(), "headshot")
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestStyle_Detail(t *testing.T) {
	svc := newService(t, sandbox.Options{}, fakeCart{2: true})

	detail, err := svc.Style(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, detail.InCart)
	assert.Equal(t, "https://cdn.example.com/styles/headshot-1.jpg", detail.PreviewURL)

	_, err = svc.Style(context.Background(), 77)
	assert.True(t, api.IsNotFound(err))
}
