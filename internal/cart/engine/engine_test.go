package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
)

func testCatalog() []domain.CatalogItem {
	return []domain.CatalogItem{
		{ID: "A", Name: "Salad", Price: 130},
		{ID: "B", Name: "Soup", Price: 95.5},
	}
}

func newLoaded(t *testing.T) (*Engine, *int) {
	t.Helper()
	e := New("w1")
	e.LoadCatalog(testCatalog())
	signals := 0
	e.Subscribe(func() { signals++ })
	return e, &signals
}

func TestAddToCartNewLine(t *testing.T) {
	e, signals := newLoaded(t)

	require.NoError(t, e.AddToCart("A"))

	require.Equal(t, domain.Order{{ID: "A", Name: "Salad", Price: 130, Count: 1}}, e.Items())
	assert.Equal(t, 1, *signals)
}

func TestAddToCartMergesExistingLine(t *testing.T) {
	e, signals := newLoaded(t)

	require.NoError(t, e.AddToCart("A"))
	require.NoError(t, e.AddToCart("A"))

	require.Equal(t, 1, e.ItemsCount())
	assert.Equal(t, 2, e.Items()[0].Count)
	// Emit-on-change: the idempotent increment still changed state.
	assert.Equal(t, 2, *signals)
}

func TestAddToCartUniquenessInvariant(t *testing.T) {
	e, _ := newLoaded(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, e.AddToCart("A"))
		require.NoError(t, e.AddToCart("B"))
	}

	seen := map[domain.ItemID]bool{}
	for _, line := range e.Items() {
		assert.False(t, seen[line.ID], "duplicate line for %s", line.ID)
		seen[line.ID] = true
	}
	assert.Equal(t, 2, e.ItemsCount())
}

func TestAddToCartBeforeCatalogLoads(t *testing.T) {
	e := New("w1")
	signals := 0
	e.Subscribe(func() { signals++ })

	err := e.AddToCart("A")

	require.ErrorIs(t, err, ErrCatalogUnresolved)
	assert.Empty(t, e.Items())
	assert.Zero(t, signals)
}

func TestAddToCartUnknownItem(t *testing.T) {
	e, signals := newLoaded(t)

	err := e.AddToCart("nope")

	require.ErrorIs(t, err, ErrUnknownItem)
	assert.Empty(t, e.Items())
	assert.Zero(t, *signals)
}

func TestAddItemInline(t *testing.T) {
	e := New("w1")

	require.NoError(t, e.AddItem(domain.CatalogItem{ID: "Z", Name: "Inline", Price: 10}))

	require.Equal(t, 1, e.ItemsCount())
	assert.Equal(t, "Inline", e.Items()[0].Name)
}

func TestAddItemInvalid(t *testing.T) {
	e := New("w1")

	assert.ErrorIs(t, e.AddItem(domain.CatalogItem{ID: "", Price: 1}), ErrInvalidItem)
	assert.ErrorIs(t, e.AddItem(domain.CatalogItem{ID: "X", Price: -1}), ErrInvalidItem)
	assert.Empty(t, e.Items())
}

func TestRemoveFromCartInversePair(t *testing.T) {
	e, _ := newLoaded(t)
	require.NoError(t, e.AddToCart("A"))
	before := e.Snapshot()

	require.NoError(t, e.AddToCart("B"))
	assert.True(t, e.RemoveFromCart("B"))

	assert.Equal(t, before, e.Snapshot())
}

func TestRemoveFromCartAbsentIsNoop(t *testing.T) {
	e, signals := newLoaded(t)
	require.NoError(t, e.AddToCart("A"))
	before := e.Items()
	*signals = 0

	assert.False(t, e.RemoveFromCart("missing"))

	assert.Equal(t, before, e.Items())
	assert.Zero(t, *signals)
}

func TestIncreaseItemAmount(t *testing.T) {
	e, signals := newLoaded(t)
	require.NoError(t, e.AddToCart("A"))
	*signals = 0

	assert.True(t, e.IncreaseItemAmount("A"))
	assert.Equal(t, 2, e.Items()[0].Count)
	assert.Equal(t, 1, *signals)

	assert.False(t, e.IncreaseItemAmount("missing"))
	assert.Equal(t, 1, *signals)
}

func TestDecreaseItemAmount(t *testing.T) {
	e, signals := newLoaded(t)
	require.NoError(t, e.AddToCart("A"))
	require.NoError(t, e.AddToCart("A"))
	*signals = 0

	assert.True(t, e.DecreaseItemAmount("A"))
	require.Equal(t, 1, e.ItemsCount())
	assert.Equal(t, 1, e.Items()[0].Count)

	// Count 1: the line is removed entirely, never left at zero.
	assert.True(t, e.DecreaseItemAmount("A"))
	assert.Zero(t, e.ItemsCount())
	assert.Equal(t, 2, *signals)

	assert.False(t, e.DecreaseItemAmount("A"))
	assert.Equal(t, 2, *signals)
}

func TestRestoreReplacesOrderWithoutSignal(t *testing.T) {
	e, signals := newLoaded(t)

	persisted := domain.Order{{ID: "A", Name: "Salad", Price: 130, Count: 3}}
	e.Restore(persisted)

	assert.Equal(t, persisted, e.Items())
	assert.Zero(t, *signals)

	// Restore keeps its own copy.
	persisted[0].Count = 99
	assert.Equal(t, 3, e.Items()[0].Count)
}

func TestListenersRunInSubscriptionOrder(t *testing.T) {
	e := New("w1")
	e.LoadCatalog(testCatalog())
	var order []string
	e.Subscribe(func() { order = append(order, "first") })
	e.Subscribe(func() { order = append(order, "second") })

	require.NoError(t, e.AddToCart("A"))

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestInsertionOrderPreserved(t *testing.T) {
	e, _ := newLoaded(t)
	require.NoError(t, e.AddToCart("B"))
	require.NoError(t, e.AddToCart("A"))
	require.NoError(t, e.AddToCart("B"))

	items := e.Items()
	require.Len(t, items, 2)
	assert.Equal(t, domain.ItemID("B"), items[0].ID)
	assert.Equal(t, domain.ItemID("A"), items[1].ID)
}
