package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EvanJ0hnson/Carty/internal/cart/catalog"
	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
	"github.com/EvanJ0hnson/Carty/internal/cart/engine"
	cartsync "github.com/EvanJ0hnson/Carty/internal/cart/sync"
	"github.com/EvanJ0hnson/Carty/internal/cart/view"
	"github.com/EvanJ0hnson/Carty/internal/cart/widget"
	"github.com/EvanJ0hnson/Carty/pkg/kafka"
	"github.com/EvanJ0hnson/Carty/pkg/kvstore"
	"github.com/EvanJ0hnson/Carty/pkg/metrics"
)

type cfg struct {
	Port         string
	StoreBackend string // memory | file | redis | postgres
	StateFile    string
	RedisAddr    string
	DatabaseURL  string
	CatalogURL   string
	KafkaBrokers string
	KafkaTopic   string
}

func readCfg() (cfg, error) {
	backend := strings.ToLower(getenv("STORE_BACKEND", "memory"))
	switch backend {
	case "memory", "file", "redis", "postgres":
	default:
		return cfg{}, errors.New("STORE_BACKEND must be one of memory|file|redis|postgres")
	}
	c := cfg{
		Port:         getenv("PORT", "8080"),
		StoreBackend: backend,
		StateFile:    getenv("STATE_FILE", "carty-state.json"),
		RedisAddr:    getenv("REDIS_ADDR", ""),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		CatalogURL:   getenv("CATALOG_URL", ""),
		KafkaBrokers: getenv("KAFKA_BROKERS", ""),
		KafkaTopic:   getenv("KAFKA_TOPIC", kafka.DefaultTopic),
	}
	if backend == "redis" && c.RedisAddr == "" {
		return cfg{}, errors.New("REDIS_ADDR is required for the redis backend")
	}
	if backend == "postgres" && c.DatabaseURL == "" {
		return cfg{}, errors.New("DATABASE_URL is required for the postgres backend")
	}
	return c, nil
}

type mutateRequest struct {
	WidgetID string `json:"widget_id"`
	Action   string `json:"action"`
	ItemID   string `json:"item_id"`
}

type cartResponse struct {
	WidgetID string     `json:"widget_id"`
	Lines    []lineJSON `json:"lines"`
	Total    float64    `json:"total"`
}

type lineJSON struct {
	Number int     `json:"number"`
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
}

// registry hands out one widget instance per widget id. Widgets are headless
// here (no view port, no badge); clients pull rendered markup on demand.
type registry struct {
	mu      sync.Mutex
	widgets map[string]*widget.Widget

	store     kvstore.Store
	renderer  view.Renderer
	items     []domain.CatalogItem
	metrics   *metrics.WidgetMetrics
	publisher *cartsync.Publisher
}

func (r *registry) get(ctx context.Context, id string) (*widget.Widget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.widgets[id]; ok {
		return w, nil
	}
	w, err := widget.New(widget.Config{
		ID:        id,
		Store:     r.store,
		Renderer:  r.renderer,
		Source:    catalog.StaticSource(r.items),
		Metrics:   r.metrics,
		Publisher: r.publisher,
	})
	if err != nil {
		return nil, err
	}
	if err := w.Init(ctx); err != nil {
		return nil, err
	}
	r.widgets[id] = w
	return w, nil
}

func main() {
	cfg, err := readCfg()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}

	items, err := loadCatalog(ctx, cfg, store)
	if err != nil {
		log.Fatalf("catalog error: %v", err)
	}
	log.Printf("catalog loaded: %d items", len(items))

	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	publisher := cartsync.NewPublisher(kafkaClient, cfg.KafkaTopic)
	if publisher != nil {
		defer publisher.Close()
		log.Printf("publishing cart events to %s", cfg.KafkaTopic)
	}

	reg := &registry{
		widgets:   make(map[string]*widget.Widget),
		store:     store,
		renderer:  view.NewHTMLRenderer(),
		items:     items,
		metrics:   metrics.NewWidgetMetrics("cart_service"),
		publisher: publisher,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/catalog", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "html" {
			markup, err := reg.renderer.RenderCatalog(items)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(markup))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	})

	mux.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		id := strings.TrimSpace(r.URL.Query().Get("widget_id"))
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "widget_id is required"})
			return
		}
		wdg, err := reg.get(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, toResponse(id, wdg.ViewState()))
	})

	mux.HandleFunc("/cart/render", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.URL.Query().Get("widget_id"))
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "widget_id is required"})
			return
		}
		wdg, err := reg.get(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		markup, err := reg.renderer.RenderCart(wdg.ViewState())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(markup))
	})

	// Single delegated mutation endpoint: action kind + item id, same contract
	// as the widget's click dispatcher.
	mux.HandleFunc("/cart/mutate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		var req mutateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}
		if strings.TrimSpace(req.ItemID) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "item_id is required"})
			return
		}
		id := strings.TrimSpace(req.WidgetID)
		if id == "" {
			id = uuid.NewString()
		}
		wdg, err := reg.get(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		if err := wdg.Dispatch(widget.Action(req.Action), domain.ItemID(req.ItemID)); err != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, toResponse(id, wdg.ViewState()))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("cart-service listening on :%s (STORE_BACKEND=%s)", cfg.Port, cfg.StoreBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}
}

func openStore(ctx context.Context, cfg cfg) (kvstore.Store, error) {
	switch cfg.StoreBackend {
	case "file":
		return kvstore.OpenFile(cfg.StateFile)
	case "redis":
		return kvstore.NewRedis(ctx, cfg.RedisAddr)
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, err
		}
		return kvstore.NewPostgres(ctx, pool)
	default:
		return kvstore.NewMemory(), nil
	}
}

func loadCatalog(ctx context.Context, cfg cfg, store kvstore.Store) ([]domain.CatalogItem, error) {
	var src catalog.Source
	if cfg.CatalogURL != "" {
		src = &catalog.HTTPSource{URL: cfg.CatalogURL, Client: &http.Client{Timeout: 5 * time.Second}}
	} else {
		src = demoCatalog()
	}
	return catalog.Load(ctx, src, store)
}

func demoCatalog() catalog.StaticSource {
	return catalog.StaticSource{
		{ID: "1", Name: "Salad with crab", Price: 130},
		{ID: "2", Name: "Soup of the day", Price: 95.5},
		{ID: "3", Name: "Grilled salmon", Price: 340},
		{ID: "4", Name: "Lemonade", Price: 60},
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, widget.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrCatalogUnresolved):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrInvalidItem):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func toResponse(id string, st view.State) cartResponse {
	resp := cartResponse{WidgetID: id, Lines: make([]lineJSON, 0, len(st.Lines)), Total: st.Total}
	for _, l := range st.Lines {
		resp.Lines = append(resp.Lines, lineJSON{
			Number: l.Number,
			ID:     string(l.ID),
			Name:   l.Name,
			Price:  l.Price,
			Count:  l.Count,
			Sum:    l.Sum,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
