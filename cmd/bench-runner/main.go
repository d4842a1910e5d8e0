package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// bench-runner drives cart-service with concurrent widget sessions. Each
// session gets its own widget id and walks a full cart journey: add several
// items, bump one, decrease one, drop one, read the view back.

type benchResult struct {
	Timestamp       string         `json:"timestamp"`
	BaseURL         string         `json:"base_url"`
	Sessions        int            `json:"sessions"`
	Concurrency     int            `json:"concurrency"`
	OpsPerSession   int            `json:"operations_per_session"`
	TotalRequests   int            `json:"total_requests"`
	SuccessRequests int            `json:"successful_requests"`
	ErrorRequests   int            `json:"error_requests"`
	DurationSeconds float64        `json:"duration_seconds"`
	AvgLatencyMs    float64        `json:"avg_latency_ms"`
	P50LatencyMs    float64        `json:"p50_latency_ms"`
	P90LatencyMs    float64        `json:"p90_latency_ms"`
	P95LatencyMs    float64        `json:"p95_latency_ms"`
	P99LatencyMs    float64        `json:"p99_latency_ms"`
	ThroughputRPS   float64        `json:"throughput_rps"`
	StatusCounts    map[string]int `json:"status_counts"`
	FirstError      string         `json:"first_error"`
}

type stats struct {
	mu           sync.Mutex
	success      int
	errors       int
	latenciesMs  []float64
	statusCounts map[string]int
	firstError   string
}

func newStats() *stats {
	return &stats{statusCounts: make(map[string]int)}
}

func (s *stats) record(latency time.Duration, status int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status > 0 {
		s.statusCounts[fmt.Sprintf("%d", status)]++
	}
	if err != nil {
		s.errors++
		if s.firstError == "" {
			s.firstError = err.Error()
		}
		return
	}
	s.success++
	s.latenciesMs = append(s.latenciesMs, float64(latency.Microseconds())/1000)
}

type mutation struct {
	action string
	itemID string
}

// journey is one widget session worth of mutations. Item ids match the
// service's demo catalog.
var journey = []mutation{
	{action: "add", itemID: "1"},
	{action: "add", itemID: "2"},
	{action: "add", itemID: "1"},
	{action: "increase", itemID: "2"},
	{action: "decrease", itemID: "1"},
	{action: "remove", itemID: "2"},
}

func main() {
	baseURL := flag.String("base-url", getenv("CART_BASE_URL", "http://localhost:8080"), "cart-service base URL")
	sessions := flag.Int("sessions", 1000, "total number of widget sessions")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	output := flag.String("output", "", "optional output path for JSON result")
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "sessions and concurrency must be > 0")
		os.Exit(1)
	}

	tasks := make(chan struct{})
	var wg sync.WaitGroup
	st := newStats()
	client := &http.Client{Timeout: *timeout}

	start := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range tasks {
				runSession(client, *baseURL, st)
			}
		}()
	}

	for i := 0; i < *sessions; i++ {
		tasks <- struct{}{}
	}
	close(tasks)
	wg.Wait()

	duration := time.Since(start)
	result := summarize(st, *baseURL, *sessions, *concurrency, duration)

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))

	if *output != "" {
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write output:", err)
			os.Exit(1)
		}
	}
}

func runSession(client *http.Client, baseURL string, st *stats) {
	widgetID := uuid.NewString()
	for _, m := range journey {
		latency, status, err := mutate(client, baseURL, widgetID, m)
		st.record(latency, status, err)
	}
	latency, status, err := fetchCart(client, baseURL, widgetID)
	st.record(latency, status, err)
}

func mutate(client *http.Client, baseURL, widgetID string, m mutation) (time.Duration, int, error) {
	body, _ := json.Marshal(map[string]any{
		"widget_id": widgetID,
		"action":    m.action,
		"item_id":   m.itemID,
	})
	start := time.Now()
	resp, err := client.Post(strings.TrimRight(baseURL, "/")+"/cart/mutate", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	latency := time.Since(start)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return latency, resp.StatusCode, fmt.Errorf("mutate %s/%s: status %d", m.action, m.itemID, resp.StatusCode)
	}
	return latency, resp.StatusCode, nil
}

func fetchCart(client *http.Client, baseURL, widgetID string) (time.Duration, int, error) {
	start := time.Now()
	resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/cart?widget_id=" + widgetID)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	latency := time.Since(start)
	if resp.StatusCode != http.StatusOK {
		return latency, resp.StatusCode, fmt.Errorf("get cart: status %d", resp.StatusCode)
	}
	return latency, resp.StatusCode, nil
}

func summarize(st *stats, baseURL string, sessions, concurrency int, duration time.Duration) benchResult {
	st.mu.Lock()
	defer st.mu.Unlock()

	total := st.success + st.errors
	avg := 0.0
	for _, ms := range st.latenciesMs {
		avg += ms
	}
	if len(st.latenciesMs) > 0 {
		avg /= float64(len(st.latenciesMs))
	}
	sorted := append([]float64(nil), st.latenciesMs...)
	sort.Float64s(sorted)

	return benchResult{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		BaseURL:         baseURL,
		Sessions:        sessions,
		Concurrency:     concurrency,
		OpsPerSession:   len(journey) + 1,
		TotalRequests:   total,
		SuccessRequests: st.success,
		ErrorRequests:   st.errors,
		DurationSeconds: duration.Seconds(),
		AvgLatencyMs:    avg,
		P50LatencyMs:    percentile(sorted, 50),
		P90LatencyMs:    percentile(sorted, 90),
		P95LatencyMs:    percentile(sorted, 95),
		P99LatencyMs:    percentile(sorted, 99),
		ThroughputRPS:   float64(total) / duration.Seconds(),
		StatusCounts:    st.statusCounts,
		FirstError:      st.firstError,
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
