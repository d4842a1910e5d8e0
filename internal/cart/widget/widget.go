// Package widget wires one cart instance: engine, synchronization listener,
// persistence, catalog and view port. Instances are independent; N widgets
// against N stores never cross-talk.
package widget

import (
	"context"
	"errors"
	"fmt"

	"github.com/EvanJ0hnson/Carty/internal/cart/catalog"
	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
	"github.com/EvanJ0hnson/Carty/internal/cart/engine"
	"github.com/EvanJ0hnson/Carty/internal/cart/sync"
	"github.com/EvanJ0hnson/Carty/internal/cart/view"
	"github.com/EvanJ0hnson/Carty/pkg/kvstore"
	"github.com/EvanJ0hnson/Carty/pkg/logging"
	"github.com/EvanJ0hnson/Carty/pkg/metrics"
)

// Action is the control kind read from a delegated click. The values match
// the data-cart-action attribute emitted by the renderer.
type Action string

const (
	ActionAdd      Action = view.ActionAdd
	ActionRemove   Action = view.ActionRemove
	ActionIncrease Action = view.ActionIncrease
	ActionDecrease Action = view.ActionDecrease
)

var ErrUnknownAction = errors.New("unknown cart action")

type Config struct {
	ID       string
	Store    kvstore.Store
	Renderer view.Renderer

	Source    catalog.Source  // optional; adds are rejected until a catalog loads
	Port      sync.ViewPort   // optional
	Badge     sync.Badge      // optional
	Metrics   *metrics.WidgetMetrics
	Publisher *sync.Publisher
}

type Widget struct {
	id       string
	eng      *engine.Engine
	listener *sync.Listener
	renderer view.Renderer
	port     sync.ViewPort

	source    catalog.Source
	store     kvstore.Store
	metrics   *metrics.WidgetMetrics
	publisher *sync.Publisher
}

func New(cfg Config) (*Widget, error) {
	if cfg.ID == "" {
		return nil, errors.New("widget: id is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("widget: store is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("widget: renderer is required")
	}

	eng := engine.New(cfg.ID)
	listener := sync.NewListener(eng, cfg.Store, cfg.Renderer, cfg.Port, cfg.Badge)
	if cfg.Metrics != nil {
		listener.WithMetrics(cfg.Metrics)
	}
	if cfg.Publisher != nil {
		listener.WithPublisher(cfg.Publisher)
	}

	return &Widget{
		id:        cfg.ID,
		eng:       eng,
		listener:  listener,
		renderer:  cfg.Renderer,
		port:      cfg.Port,
		source:    cfg.Source,
		store:     cfg.Store,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
	}, nil
}

func (w *Widget) ID() string             { return w.id }
func (w *Widget) Engine() *engine.Engine { return w.eng }

// Init restores persisted state, loads the catalog, subscribes the
// synchronization listener and runs one initial sync pass so the badge and
// any open port reflect the restored order immediately.
func (w *Widget) Init(ctx context.Context) error {
	if raw, ok, err := w.store.Get(ctx, w.id); err != nil {
		logging.Log(logging.Fields{Component: "widget", WidgetID: w.id, Status: "restore_failed", Message: err.Error()})
	} else if ok {
		order, derr := domain.UnmarshalOrder(raw)
		if derr != nil {
			// Corrupt entry: start empty rather than refuse to boot.
			logging.Log(logging.Fields{Component: "widget", WidgetID: w.id, Status: "restore_corrupt", Message: derr.Error()})
		} else {
			w.eng.Restore(order)
		}
	}

	if w.source != nil {
		items, err := catalog.Load(ctx, w.source, w.store)
		if err != nil {
			// Adds stay rejected until a catalog loads; the rest of the
			// widget keeps working.
			logging.Log(logging.Fields{Component: "widget", WidgetID: w.id, Status: "catalog_failed", Message: err.Error()})
		} else {
			w.eng.LoadCatalog(items)
		}
	}

	w.eng.Subscribe(w.listener.OnChange)
	w.listener.OnChange()
	return nil
}

// Dispatch is the single delegated entry point for all interactive controls.
// It reads the action kind and target item id and invokes the matching
// engine operation. Absent-id no-ops return nil and have no side effects.
func (w *Widget) Dispatch(action Action, id domain.ItemID) error {
	var (
		changed bool
		err     error
	)
	switch action {
	case ActionAdd:
		err = w.eng.AddToCart(id)
		changed = err == nil
	case ActionRemove:
		changed = w.eng.RemoveFromCart(id)
	case ActionIncrease:
		changed = w.eng.IncreaseItemAmount(id)
	case ActionDecrease:
		changed = w.eng.DecreaseItemAmount(id)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if err != nil {
		return err
	}
	if changed {
		if w.metrics != nil {
			w.metrics.Mutations.WithLabelValues(string(action)).Inc()
		}
		if w.publisher != nil {
			w.publisher.Mutation(eventType(action), w.id, id)
		}
	}
	return nil
}

// ShowWindow opens the view port with the current cart markup, or refreshes
// it in place when it is already open.
func (w *Widget) ShowWindow() error {
	if w.port == nil {
		return errors.New("widget: no view port configured")
	}
	markup, err := w.renderer.RenderCart(view.Derive(w.eng.Snapshot()))
	if err != nil {
		return fmt.Errorf("widget: %w", err)
	}
	if w.port.IsOpen() {
		w.port.Update(markup)
	} else {
		w.port.Open(markup)
	}
	return nil
}

func (w *Widget) CloseWindow() {
	if w.port != nil && w.port.IsOpen() {
		w.port.Close()
	}
}

// ViewState returns the current derived projection.
func (w *Widget) ViewState() view.State {
	return view.Derive(w.eng.Snapshot())
}
