package history_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashendes/neurophoto-storefront/internal/api"
	"github.com/ashendes/neurophoto-storefront/internal/history"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/ashendes/neurophoto-storefront/internal/sandbox"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) (*httptest.Server, *api.Client, *history.Service) {
	t.Helper()
	ts := httptest.NewServer(sandbox.New(sandbox.Options{OrdersPrefix: "/api"}).Router())
	t.Cleanup(ts.Close)
	client := api.New(api.Options{BaseURL: ts.URL, OrdersPrefix: "/api", MaxConcurrent: 2})
	return ts, client, history.New(client)
}

func placeOrder(t *testing.T, client *api.Client, user string, styles ...models.Style) int64 {
	t.Helper()
	prices := make([]models.Price, 0, len(styles))
	for _, st := range styles {
		prices = append(prices, st.Price)
	}
	resp, err := client.CreateOrder(context.Background(), models.CreateOrderRequest{
		TelegramUserID: user,
		Styles:         styles,
		Price:          models.SumPrices(prices...),
	})
	require.NoError(t, err)
	return resp.ID
}

func complete(t *testing.T, ts *httptest.Server, id int64) {
	t.Helper()
	resp, err := http.Post(fmt.Sprintf("%s/sandbox/orders/%d/complete", ts.URL, id), "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBadgeFor(t *testing.T) {
	cases := map[string]history.Badge{
		"pending":    {Label: "Pending", Tone: history.ToneWarning},
		"processing": {Label: "Processing", Tone: history.ToneInfo},
		"completed":  {Label: "Ready", Tone: history.ToneSuccess},
		"cancelled":  {Label: "Cancelled", Tone: history.ToneDanger},
		"mystery":    {Label: "Unknown", Tone: history.ToneNeutral},
		"":           {Label: "Unknown", Tone: history.ToneNeutral},
	}
	for status, want := range cases {
		assert.Equal(t, want, history.BadgeFor(status), status)
	}
}

func TestList_NewestFirstWithStyleNames(t *testing.T) {
	ts, client, svc := setup(t)

	first := placeOrder(t, client, "42", models.Style{ID: 1, Price: models.NewPrice(299)})
	second := placeOrder(t, client, "42",
		models.Style{ID: 3, Price: models.NewPrice(449)},
		models.Style{ID: 4, Price: models.NewPrice(499)},
	)
	placeOrder(t, client, "77", models.Style{ID: 2, Price: models.NewPrice(349)})
	complete(t, ts, first)

	entries, err := svc.List(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, second, entries[0].Order.ID)
	assert.Equal(t, []string{"Elven Forest", "Cyberpunk City"}, entries[0].StyleNames)
	assert.Equal(t, "Pending", entries[0].Badge.Label)
	assert.Empty(t, entries[0].Results)

	assert.Equal(t, first, entries[1].Order.ID)
	assert.Equal(t, "Ready", entries[1].Badge.Label)
	assert.Len(t, entries[1].Results, sandbox.ResultsPerStyle)
}

func TestList_RequiresUser(t *testing.T) {
	_, _, svc := setup(t)
	_, err := svc.List(context.Background(), " ")
	assert.Error(t, err)
}

func TestOrder_NotFound(t *testing.T) {
	_, _, svc := setup(t)
	_, err := svc.Order(context.Background(), 404)
	assert.True(t, api.IsNotFound(err))
}

func TestDownloadResults(t *testing.T) {
	ts, client, svc := setup(t)
	id := placeOrder(t, client, "42", models.Style{ID: 1, Price: models.NewPrice(299)})

	entry, err := svc.Order(context.Background(), id)
	require.NoError(t, err)
	_, err = svc.DownloadResults(context.Background(), *entry, t.TempDir())
	assert.ErrorIs(t, err, history.ErrNotReady)

	complete(t, ts, id)
	entry, err = svc.Order(context.Background(), id)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "results")
	paths, err := svc.DownloadResults(context.Background(), *entry, dir)
	require.NoError(t, err)
	require.Len(t, paths, sandbox.ResultsPerStyle)
	assert.Equal(t, filepath.Join(dir, "neuro_photo_result_1.jpg"), paths[0])

	info, err := os.Stat(paths[len(paths)-1])
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

// Orders decoded from a backend that sends styles and results as JSON
// encoded strings look the same as array-shaped ones.
func TestEntry_StringEncodedLists(t *testing.T) {
	var orders []models.Order
	require.NoError(t, json.Unmarshal([]byte(`[{
		"id": 5,
		"status": "completed",
		"styles": "[{\"id\":1,\"name\":\"Studio Noir\",\"price\":299}]",
		"result_photos": "[\"https://cdn/r1.jpg\"]"
	}]`), &orders))

	src := &staticSource{orders: orders}
	entries, err := history.New(src).List(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"Studio Noir"}, entries[0].StyleNames)
	assert.Equal(t, []string{"https://cdn/r1.jpg"}, entries[0].Results)
}

type staticSource struct {
	orders []models.Order
}

func (s *staticSource) ListUserOrders(context.Context, string) ([]models.Order, error) {
	return s.orders, nil
}

func (s *staticSource) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	for _, o := range s.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, &api.Error{StatusCode: http.StatusNotFound}
}

func (s *staticSource) Download(context.Context, string, string) error {
	return nil
}
