package cart_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ashendes/neurophoto-storefront/internal/cart"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/ashendes/neurophoto-storefront/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCart(t *testing.T) (*cart.Store, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cart.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	c, err := cart.New(s)
	require.NoError(t, err)
	return c, s
}

var (
	noir  = models.Style{ID: 1, Name: "Noir", Price: models.NewPrice(300)}
	anime = models.Style{ID: 2, Name: "Anime", Price: models.NewPrice(450)}
)

func TestAdd_DuplicateIsNoop(t *testing.T) {
	c, _ := newCart(t)

	added, err := c.Add(noir)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = c.Add(models.Style{ID: 1, Name: "Noir again", Price: models.NewPrice(999)})
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "Noir", c.Items()[0].Name)
}

func TestRemove_MissingIsNoop(t *testing.T) {
	c, _ := newCart(t)
	_, err := c.Add(noir)
	require.NoError(t, err)

	removed, err := c.Remove(99)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, c.Len())
}

func TestTotal_TracksMutations(t *testing.T) {
	c, _ := newCart(t)
	assert.Equal(t, "0", c.Total().String())

	_, err := c.Add(noir)
	require.NoError(t, err)
	_, err = c.Add(anime)
	require.NoError(t, err)
	assert.Equal(t, "750", c.Total().String())

	_, err = c.Remove(noir.ID)
	require.NoError(t, err)
	assert.Equal(t, "450", c.Total().String())
	assert.False(t, c.Contains(noir.ID))
	assert.True(t, c.Contains(anime.ID))
}

func TestClear_EmptiesPersistedCart(t *testing.T) {
	c, s := newCart(t)
	_, err := c.Add(noir)
	require.NoError(t, err)
	_, err = c.Add(anime)
	require.NoError(t, err)

	persisted, err := s.LoadCart()
	require.NoError(t, err)
	assert.Len(t, persisted, 2)

	require.NoError(t, c.Clear())
	persisted, err = s.LoadCart()
	require.NoError(t, err)
	assert.Empty(t, persisted)
	assert.Equal(t, 0, c.Len())
}

func TestNew_RestoresPersistedCart(t *testing.T) {
	c, s := newCart(t)
	_, err := c.Add(anime)
	require.NoError(t, err)

	reloaded, err := cart.New(s)
	require.NoError(t, err)
	assert.True(t, reloaded.Contains(anime.ID))
	assert.Equal(t, "450", reloaded.Total().String())
}

type failingPersister struct{ saved []models.Style }

func (f *failingPersister) LoadCart() ([]models.Style, error) { return f.saved, nil }
func (f *failingPersister) SaveCart([]models.Style) error    { return errors.New("disk full") }

func TestAdd_PersistFailureLeavesCartUnchanged(t *testing.T) {
	c, err := cart.New(&failingPersister{})
	require.NoError(t, err)

	added, err := c.Add(noir)
	assert.Error(t, err)
	assert.False(t, added)
	assert.Equal(t, 0, c.Len())
}

func TestClear_RunsHooks(t *testing.T) {
	c, _ := newCart(t)
	calls := 0
	c.OnClear(func() error {
		calls++
		return nil
	})

	require.NoError(t, c.Clear())
	assert.Equal(t, 1, calls)
}
