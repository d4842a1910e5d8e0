package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WidgetMetrics struct {
	Mutations     *prometheus.CounterVec
	RenderMS      *prometheus.HistogramVec
	PersistErrors *prometheus.CounterVec
}

func NewWidgetMetrics(component string) *WidgetMetrics {
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carty",
		Subsystem: component,
		Name:      "cart_mutations_total",
		Help:      "Total number of cart mutations by action.",
	}, []string{"action"})
	renderMS := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "carty",
		Subsystem: component,
		Name:      "cart_render_duration_ms",
		Help:      "Cart render latency in milliseconds.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
	}, []string{"renderer"})
	persistErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carty",
		Subsystem: component,
		Name:      "cart_persist_errors_total",
		Help:      "Total number of failed state persistence attempts.",
	}, []string{"store"})

	prometheus.MustRegister(mutations, renderMS, persistErrors)
	return &WidgetMetrics{Mutations: mutations, RenderMS: renderMS, PersistErrors: persistErrors}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
