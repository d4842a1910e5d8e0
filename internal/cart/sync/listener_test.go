package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
	"github.com/EvanJ0hnson/Carty/internal/cart/engine"
	"github.com/EvanJ0hnson/Carty/internal/cart/view"
)

// recordingStore notes every Set in sequence with the shared event log.
type recordingStore struct {
	log    *[]string
	values map[string]string
	fail   bool
}

func newRecordingStore(log *[]string) *recordingStore {
	return &recordingStore{log: log, values: map[string]string{}}
}

func (s *recordingStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *recordingStore) Set(_ context.Context, key, value string) error {
	if s.fail {
		return errors.New("quota exceeded")
	}
	*s.log = append(*s.log, "persist")
	s.values[key] = value
	return nil
}

type recordingPort struct {
	log    *[]string
	open   bool
	markup string
	opens  int
}

func (p *recordingPort) Open(markup string)   { p.opens++; p.open = true; p.markup = markup }
func (p *recordingPort) Update(markup string) { *p.log = append(*p.log, "render"); p.markup = markup }
func (p *recordingPort) Close()               { p.open = false }
func (p *recordingPort) IsOpen() bool         { return p.open }

type fakeBadge struct {
	log   *[]string
	count int
}

func (b *fakeBadge) SetCount(n int) { *b.log = append(*b.log, "badge"); b.count = n }

type failingRenderer struct {
	view.Renderer
	fail bool
}

func (r *failingRenderer) RenderCart(st view.State) (string, error) {
	if r.fail {
		return "", errors.New("template exploded")
	}
	return r.Renderer.RenderCart(st)
}

func setup(log *[]string) (*engine.Engine, *recordingStore, *recordingPort, *fakeBadge, *Listener) {
	eng := engine.New("w1")
	eng.LoadCatalog([]domain.CatalogItem{{ID: "A", Name: "Salad", Price: 130}})
	store := newRecordingStore(log)
	port := &recordingPort{log: log}
	badge := &fakeBadge{log: log}
	l := NewListener(eng, store, view.NewTextRenderer(), port, badge)
	eng.Subscribe(l.OnChange)
	return eng, store, port, badge, l
}

func TestPersistBeforeRender(t *testing.T) {
	var log []string
	eng, _, port, _, _ := setup(&log)
	port.open = true

	require.NoError(t, eng.AddToCart("A"))

	assert.Equal(t, []string{"persist", "badge", "render"}, log)
}

func TestBadgeRefreshedWhenPortClosed(t *testing.T) {
	var log []string
	eng, _, _, badge, _ := setup(&log)

	require.NoError(t, eng.AddToCart("A"))
	require.NoError(t, eng.AddToCart("A"))

	assert.Equal(t, []string{"persist", "badge", "persist", "badge"}, log)
	// Distinct lines, not total quantity.
	assert.Equal(t, 1, badge.count)
}

func TestListenerNeverOpensThePort(t *testing.T) {
	var log []string
	eng, _, port, _, _ := setup(&log)
	port.open = true

	require.NoError(t, eng.AddToCart("A"))
	require.NoError(t, eng.AddToCart("A"))

	assert.Zero(t, port.opens)
	assert.Contains(t, port.markup, "Salad")
}

func TestPersistedStateRoundTrips(t *testing.T) {
	var log []string
	eng, store, _, _, _ := setup(&log)

	require.NoError(t, eng.AddToCart("A"))
	require.NoError(t, eng.AddToCart("A"))

	// Reload simulation: a fresh engine restored from the store deep-equals
	// the persisted order.
	raw, ok, err := store.Get(context.Background(), "w1")
	require.NoError(t, err)
	require.True(t, ok)
	restored, err := domain.UnmarshalOrder(raw)
	require.NoError(t, err)
	assert.Equal(t, eng.Snapshot(), restored)
}

func TestStorageFailureIsNonFatal(t *testing.T) {
	var log []string
	eng, store, port, badge, _ := setup(&log)
	store.fail = true
	port.open = true

	require.NoError(t, eng.AddToCart("A"))

	// Persistence lost, but the session keeps working: badge and view still
	// refresh from the in-memory order.
	assert.Equal(t, []string{"badge", "render"}, log)
	assert.Equal(t, 1, badge.count)
	assert.Equal(t, 1, eng.ItemsCount())
}

func TestRenderFailureKeepsPreviousView(t *testing.T) {
	var log []string
	eng := engine.New("w1")
	eng.LoadCatalog([]domain.CatalogItem{{ID: "A", Name: "Salad", Price: 130}})
	store := newRecordingStore(&log)
	port := &recordingPort{log: &log, open: true}
	renderer := &failingRenderer{Renderer: view.NewTextRenderer()}
	l := NewListener(eng, store, renderer, port, &fakeBadge{log: &log})
	eng.Subscribe(l.OnChange)

	require.NoError(t, eng.AddToCart("A"))
	previous := port.markup

	renderer.fail = true
	require.NoError(t, eng.AddToCart("A"))

	// The pass still persisted; only the render was dropped.
	assert.Equal(t, previous, port.markup)
	raw, ok, _ := store.Get(context.Background(), "w1")
	require.True(t, ok)
	restored, err := domain.UnmarshalOrder(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, restored[0].Count)
}
