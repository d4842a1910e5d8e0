// Package engine owns the mutable order of one cart widget and notifies
// subscribers after every successful mutation.
package engine

import (
	"errors"
	"sync"

	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
)

var (
	// ErrCatalogUnresolved rejects adds issued before the catalog has loaded.
	ErrCatalogUnresolved = errors.New("catalog not loaded")
	// ErrUnknownItem rejects adds for ids the catalog does not carry.
	ErrUnknownItem = errors.New("unknown catalog item")
	// ErrInvalidItem rejects inline items with no id or a negative price.
	ErrInvalidItem = errors.New("invalid catalog item")
)

// Listener receives the synchronization signal. Listeners run synchronously,
// in subscription order, after the mutation has fully completed.
type Listener func()

// Engine maintains a single Order for one widget instance. All mutations go
// through the four operations below; no-ops never emit the signal.
type Engine struct {
	mu       sync.RWMutex
	widgetID string

	order domain.Order

	catalog   []domain.CatalogItem
	catalogIx map[domain.ItemID]domain.CatalogItem
	loaded    bool

	subs []Listener
}

func New(widgetID string) *Engine {
	return &Engine{
		widgetID: widgetID,
		order:    domain.Order{},
	}
}

func (e *Engine) WidgetID() string { return e.widgetID }

// Subscribe registers a synchronization listener. Not safe to call
// concurrently with mutations; wire listeners during initialization.
func (e *Engine) Subscribe(fn Listener) {
	e.subs = append(e.subs, fn)
}

func (e *Engine) notify() {
	for _, fn := range e.subs {
		fn()
	}
}

// Restore replaces the order with previously persisted state. No signal is
// emitted; callers run their own initial sync pass.
func (e *Engine) Restore(order domain.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.order = order.Clone()
	if e.order == nil {
		e.order = domain.Order{}
	}
}

// LoadCatalog installs the reference item list. Until this has run, AddToCart
// rejects with ErrCatalogUnresolved.
func (e *Engine) LoadCatalog(items []domain.CatalogItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catalog = append([]domain.CatalogItem(nil), items...)
	e.catalogIx = make(map[domain.ItemID]domain.CatalogItem, len(items))
	for _, it := range items {
		e.catalogIx[it.ID] = it
	}
	e.loaded = true
}

func (e *Engine) CatalogLoaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded
}

// Catalog returns the reference item list in source order.
func (e *Engine) Catalog() []domain.CatalogItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]domain.CatalogItem(nil), e.catalog...)
}

// AddToCart resolves id against the loaded catalog and merges it into the
// order: an existing line gets count+1, a new line is appended with count 1.
// Name and price are snapshotted at add time.
func (e *Engine) AddToCart(id domain.ItemID) error {
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return ErrCatalogUnresolved
	}
	item, ok := e.catalogIx[id]
	if !ok {
		e.mu.Unlock()
		return ErrUnknownItem
	}
	e.merge(item)
	e.mu.Unlock()

	e.notify()
	return nil
}

// AddItem is the inline variant of AddToCart: the caller supplies the full
// item record, so no catalog lookup is involved.
func (e *Engine) AddItem(item domain.CatalogItem) error {
	if item.ID == "" || item.Price < 0 {
		return ErrInvalidItem
	}
	e.mu.Lock()
	e.merge(item)
	e.mu.Unlock()

	e.notify()
	return nil
}

// merge enforces the one-line-per-id invariant. Caller holds the write lock.
func (e *Engine) merge(item domain.CatalogItem) {
	if i := e.order.Find(item.ID); i >= 0 {
		e.order[i].Count++
		return
	}
	e.order = append(e.order, domain.OrderLine{
		ID:    item.ID,
		Name:  item.Name,
		Price: item.Price,
		Count: 1,
	})
}

// RemoveFromCart drops the line with the given id. Removing an absent id is
// a no-op and emits no signal. Reports whether the order changed.
func (e *Engine) RemoveFromCart(id domain.ItemID) bool {
	e.mu.Lock()
	i := e.order.Find(id)
	if i < 0 {
		e.mu.Unlock()
		return false
	}
	e.order = append(e.order[:i], e.order[i+1:]...)
	e.mu.Unlock()

	e.notify()
	return true
}

// IncreaseItemAmount bumps the count of an existing line. No-op if absent.
func (e *Engine) IncreaseItemAmount(id domain.ItemID) bool {
	e.mu.Lock()
	i := e.order.Find(id)
	if i < 0 {
		e.mu.Unlock()
		return false
	}
	e.order[i].Count++
	e.mu.Unlock()

	e.notify()
	return true
}

// DecreaseItemAmount lowers the count of an existing line; at count 1 the
// line is removed entirely. No-op if absent.
func (e *Engine) DecreaseItemAmount(id domain.ItemID) bool {
	e.mu.Lock()
	i := e.order.Find(id)
	if i < 0 {
		e.mu.Unlock()
		return false
	}
	if e.order[i].Count == 1 {
		e.order = append(e.order[:i], e.order[i+1:]...)
	} else {
		e.order[i].Count--
	}
	e.mu.Unlock()

	e.notify()
	return true
}

// Items returns the current order. The slice is the engine's live backing
// store; callers must treat it as read-only.
func (e *Engine) Items() domain.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.order
}

// Snapshot returns a copy safe to hand to persistence or rendering.
func (e *Engine) Snapshot() domain.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.order.Clone()
}

// ItemsCount returns the number of distinct lines, not total quantity.
func (e *Engine) ItemsCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.order)
}
