// Package sync reacts to the engine's change signal: persist first, then
// refresh the badge and the view port. The persist-before-render order is a
// correctness invariant, not a style choice.
package sync

import (
	"context"
	"time"

	"github.com/EvanJ0hnson/Carty/internal/cart/engine"
	"github.com/EvanJ0hnson/Carty/internal/cart/view"
	"github.com/EvanJ0hnson/Carty/pkg/kvstore"
	"github.com/EvanJ0hnson/Carty/pkg/logging"
	"github.com/EvanJ0hnson/Carty/pkg/metrics"
)

// ViewPort is the overlay panel that displays rendered cart markup.
// Open injects markup and locks page scroll; Update replaces content only.
// Callers use Update when the panel is already open so a second panel
// instance is never created.
type ViewPort interface {
	Open(markup string)
	Update(markup string)
	Close()
	IsOpen() bool
}

// Badge shows the distinct-line count next to the widget. Refreshed on every
// sync pass regardless of whether the view port is open.
type Badge interface {
	SetCount(n int)
}

type Listener struct {
	eng      *engine.Engine
	store    kvstore.Store
	renderer view.Renderer
	port     ViewPort
	badge    Badge

	metrics   *metrics.WidgetMetrics // optional
	publisher *Publisher             // optional
}

func NewListener(eng *engine.Engine, store kvstore.Store, renderer view.Renderer, port ViewPort, badge Badge) *Listener {
	return &Listener{eng: eng, store: store, renderer: renderer, port: port, badge: badge}
}

func (l *Listener) WithMetrics(m *metrics.WidgetMetrics) *Listener {
	l.metrics = m
	return l
}

func (l *Listener) WithPublisher(p *Publisher) *Listener {
	l.publisher = p
	return l
}

// OnChange is the synchronization listener. Effects run in fixed order:
// persist the order, refresh the badge, re-render the open view port.
// A failed persist degrades to in-memory operation; a failed render keeps
// the previous view. Neither aborts the pass.
func (l *Listener) OnChange() {
	widgetID := l.eng.WidgetID()
	order := l.eng.Snapshot()

	serialized, err := order.Marshal()
	if err == nil {
		err = l.store.Set(context.Background(), widgetID, serialized)
	}
	if err != nil {
		if l.metrics != nil {
			l.metrics.PersistErrors.WithLabelValues("state").Inc()
		}
		logging.Log(logging.Fields{
			Component: "sync",
			WidgetID:  widgetID,
			Status:    "persist_failed",
			Message:   err.Error(),
		})
	}

	if l.badge != nil {
		l.badge.SetCount(len(order))
	}

	if l.port != nil && l.port.IsOpen() {
		start := time.Now()
		markup, err := l.renderer.RenderCart(view.Derive(order))
		if err != nil {
			logging.Log(logging.Fields{
				Component: "sync",
				WidgetID:  widgetID,
				Status:    "render_failed",
				Message:   err.Error(),
			})
		} else {
			l.port.Update(markup)
			if l.metrics != nil {
				l.metrics.RenderMS.WithLabelValues("cart").Observe(float64(time.Since(start).Milliseconds()))
			}
		}
	}

	if l.publisher != nil {
		l.publisher.StateSynced(widgetID, len(order))
	}
}
