package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
	"github.com/EvanJ0hnson/Carty/pkg/kvstore"
)

func TestHTTPSourceFlatList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"1","name":"Salad","price":130}]`))
	}))
	defer srv.Close()

	items, err := (&HTTPSource{URL: srv.URL}).Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.CatalogItem{ID: "1", Name: "Salad", Price: 130}, items[0])
}

func TestHTTPSourceEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"id":"1","name":"Salad","price":130},{"id":"2","name":"Soup","price":95.5}]}`))
	}))
	defer srv.Close()

	items, err := (&HTTPSource{URL: srv.URL}).Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestHTTPSourceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := (&HTTPSource{URL: srv.URL}).Fetch(context.Background())

	assert.Error(t, err)
}

func TestLoadCachesUnderCoreData(t *testing.T) {
	store := kvstore.NewMemory()
	src := StaticSource{{ID: "1", Name: "Salad", Price: 130}}

	items, err := Load(context.Background(), src, store)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, ok, err := store.Get(context.Background(), CacheKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadShortCircuitsOnCacheHit(t *testing.T) {
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), CacheKey, `[{"id":"9","name":"Cached","price":1}]`))

	// The source is never consulted when a cache entry exists; an unreachable
	// URL proves it.
	src := &HTTPSource{URL: "http://127.0.0.1:0"}
	items, err := Load(context.Background(), src, store)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ItemID("9"), items[0].ID)
}

func TestLoadFallsThroughCorruptCache(t *testing.T) {
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), CacheKey, "{broken"))
	src := StaticSource{{ID: "1", Name: "Salad", Price: 130}}

	items, err := Load(context.Background(), src, store)

	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := Normalize([]byte(`"just a string"`))
	assert.Error(t, err)
}
