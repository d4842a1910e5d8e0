package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EvanJ0hnson/Carty/pkg/contracts"
	"github.com/EvanJ0hnson/Carty/pkg/kafka"
	"github.com/EvanJ0hnson/Carty/pkg/logging"
	"github.com/EvanJ0hnson/Carty/pkg/metrics"
)

// cart-events consumes the cart mutation stream and records it for
// analytics. The inbox table dedupes redelivered events by event id.

type cfg struct {
	Port         string
	DatabaseURL  string
	KafkaBrokers string
	Topic        string
	GroupID      string
}

func main() {
	cfg, err := readCfg()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer pool.Close()

	srvMetrics := metrics.NewWidgetMetrics("cart_events")

	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	if !kafkaClient.Enabled() {
		log.Fatal("KAFKA_BROKERS is required")
	}
	go consumeEvents(pool, kafkaClient, cfg, srvMetrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "db_error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Printf("cart-events listening on :%s (topic=%s)", cfg.Port, cfg.Topic)
	log.Fatal(srv.ListenAndServe())
}

func readCfg() (cfg, error) {
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if db == "" {
		return cfg{}, errors.New("DATABASE_URL is required")
	}
	return cfg{
		Port:         getenv("PORT", "8081"),
		DatabaseURL:  db,
		KafkaBrokers: getenv("KAFKA_BROKERS", ""),
		Topic:        getenv("KAFKA_TOPIC", kafka.DefaultTopic),
		GroupID:      getenv("KAFKA_GROUP_ID", "cart-events"),
	}, nil
}

func consumeEvents(pool *pgxpool.Pool, client *kafka.Client, cfg cfg, m *metrics.WidgetMetrics) {
	reader := client.NewReader(cfg.Topic, cfg.GroupID)
	defer reader.Close()
	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			log.Printf("kafka read error: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		var evt contracts.Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Printf("event decode error: %v", err)
			continue
		}
		if evt.EventID == "" {
			continue
		}
		if err := saveEvent(context.Background(), pool, evt); err != nil {
			m.PersistErrors.WithLabelValues("events").Inc()
			log.Printf("event save error: %v", err)
			continue
		}
		logging.Log(logging.Fields{
			Component: "cart-events",
			WidgetID:  evt.WidgetID,
			ItemID:    evt.ItemID,
			Action:    evt.Type,
			Status:    "recorded",
		})
	}
}

func saveEvent(ctx context.Context, pool *pgxpool.Pool, evt contracts.Event) error {
	_, err := pool.Exec(ctx, `INSERT INTO inbox(event_id, received_at)
		VALUES ($1, now()) ON CONFLICT (event_id) DO NOTHING`, evt.EventID)
	if err != nil {
		return err
	}

	data, _ := json.Marshal(evt.Payload)
	_, err = pool.Exec(ctx, `INSERT INTO cart_events(event_id, widget_id, item_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (event_id) DO NOTHING`,
		evt.EventID, evt.WidgetID, evt.ItemID, evt.Type, string(data), evt.CreatedAt)
	return err
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
