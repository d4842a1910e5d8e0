// Package catalog loads the reference item list: one network fetch at
// startup, short-circuited by a key-value cache on later loads.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
	"github.com/EvanJ0hnson/Carty/pkg/kvstore"
)

// CacheKey is the fixed store key for the cached catalog. No versioning or
// invalidation: the cache is stale-forever unless absent.
const CacheKey = "coreData"

// Source is a one-shot provider of the catalog item list.
type Source interface {
	Fetch(ctx context.Context) ([]domain.CatalogItem, error)
}

// HTTPSource fetches the catalog as JSON over HTTP. The body may be either a
// flat item array or an {"items": [...]} envelope; both normalize to a flat
// list.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]domain.CatalogItem, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog fetch: status %d", resp.StatusCode)
	}
	dec := json.NewDecoder(resp.Body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("catalog decode: %w", err)
	}
	return Normalize(raw)
}

// Normalize accepts either a flat CatalogItem array or the envelope form.
func Normalize(raw []byte) ([]domain.CatalogItem, error) {
	var flat []domain.CatalogItem
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	var envelope struct {
		Items []domain.CatalogItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("catalog decode: %w", err)
	}
	return envelope.Items, nil
}

// StaticSource serves a fixed item list, for the terminal widget's built-in
// demo data and for tests.
type StaticSource []domain.CatalogItem

func (s StaticSource) Fetch(ctx context.Context) ([]domain.CatalogItem, error) {
	return s, nil
}

// Load returns the catalog, preferring the cached copy under CacheKey and
// falling back to the source, caching the result on the way out. A cache
// write failure does not fail the load; the items are still returned.
func Load(ctx context.Context, src Source, store kvstore.Store) ([]domain.CatalogItem, error) {
	if cached, ok, err := store.Get(ctx, CacheKey); err == nil && ok {
		items, derr := Normalize([]byte(cached))
		if derr == nil {
			return items, nil
		}
		// Corrupt cache entry: fall through to the source.
	}

	items, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(items); err == nil {
		_ = store.Set(ctx, CacheKey, string(data))
	}
	return items, nil
}
