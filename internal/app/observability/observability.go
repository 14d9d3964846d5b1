package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type key struct {
	Method string
	Path   string
	Status int
}

type stat struct {
	Count     int64
	LatencyMS float64
}

type Collector struct {
	db     *sql.DB
	logger *slog.Logger

	mu           sync.RWMutex
	requestStats map[key]stat
	startedAt    time.Time
}

func NewCollector(db *sql.DB, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		db:           db,
		logger:       logger,
		requestStats: make(map[key]stat),
		startedAt:    time.Now(),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		latencyMS := float64(time.Since(start).Microseconds()) / 1000.0
		path := normalizedPath(r.URL.Path)

		c.mu.Lock()
		k := key{Method: r.Method, Path: path, Status: rec.status}
		s := c.requestStats[k]
		s.Count++
		s.LatencyMS += latencyMS
		c.requestStats[k] = s
		c.mu.Unlock()

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		c.logger.LogAttrs(r.Context(), level, "http request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("session_id", extractSessionID(r.URL.Path)),
			slog.String("method", r.Method),
			slog.String("path", path),
			slog.Int("status", rec.status),
			slog.Float64("latency_ms", latencyMS),
			slog.String("remote_ip", strings.TrimSpace(r.RemoteAddr)),
		)
	})
}

func (c *Collector) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	statsCopy := make(map[key]stat, len(c.requestStats))
	for k, v := range c.requestStats {
		statsCopy[k] = v
	}
	startedAt := c.startedAt
	c.mu.RUnlock()

	keys := make([]key, 0, len(statsCopy))
	for k := range statsCopy {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		return keys[i].Status < keys[j].Status
	})

	m := &metricWriter{}
	m.comment("scentquiz metrics")
	m.typed("uptime_seconds", "gauge")
	m.sample("uptime_seconds", "", fmt.Sprintf("%.0f", time.Since(startedAt).Seconds()))

	m.typed("http_requests_total", "counter")
	m.typed("http_request_latency_ms_sum", "counter")
	m.typed("http_request_latency_ms_avg", "gauge")
	for _, k := range keys {
		s := statsCopy[k]
		labels := fmt.Sprintf("method=%q,path=%q,status=\"%d\"", k.Method, k.Path, k.Status)
		avg := 0.0
		if s.Count > 0 {
			avg = s.LatencyMS / float64(s.Count)
		}
		m.sample("http_requests_total", labels, strconv.FormatInt(s.Count, 10))
		m.sample("http_request_latency_ms_sum", labels, fmt.Sprintf("%.3f", s.LatencyMS))
		m.sample("http_request_latency_ms_avg", labels, fmt.Sprintf("%.3f", avg))
	}

	if c.db != nil {
		dbs := c.db.Stats()
		m.gauge("db_open_connections", int64(dbs.OpenConnections))
		m.gauge("db_in_use_connections", int64(dbs.InUse))
		m.gauge("db_idle_connections", int64(dbs.Idle))
		m.typed("db_wait_count", "counter")
		m.sample("db_wait_count", "", strconv.FormatInt(dbs.WaitCount, 10))

		if err := c.writeQuizMetrics(r.Context(), m); err != nil {
			c.logger.Warn("quiz metrics unavailable", "error", err.Error())
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(m.String()))
}

// writeQuizMetrics reports stored results per winning product, fallback
// winners and sessions per status.
func (c *Collector) writeQuizMetrics(ctx context.Context, m *metricWriter) error {
	m.typed("quiz_results_total", "counter")
	if err := c.eachCount(ctx, `SELECT product_id, COUNT(*) FROM quiz_results GROUP BY product_id ORDER BY product_id`,
		func(label string, n int64) {
			m.sample("quiz_results_total", fmt.Sprintf("product_id=%q", label), strconv.FormatInt(n, 10))
		}); err != nil {
		return err
	}

	var fallbacks int64
	if err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quiz_results WHERE fallback = TRUE`).Scan(&fallbacks); err != nil {
		return fmt.Errorf("count fallbacks: %w", err)
	}
	m.typed("quiz_fallback_results_total", "counter")
	m.sample("quiz_fallback_results_total", "", strconv.FormatInt(fallbacks, 10))

	m.typed("quiz_sessions", "gauge")
	return c.eachCount(ctx, `SELECT status, COUNT(*) FROM quiz_sessions GROUP BY status ORDER BY status`,
		func(label string, n int64) {
			m.sample("quiz_sessions", fmt.Sprintf("status=%q", label), strconv.FormatInt(n, 10))
		})
}

func (c *Collector) eachCount(ctx context.Context, query string, fn func(label string, n int64)) error {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("quiz metrics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return fmt.Errorf("scan quiz metric: %w", err)
		}
		fn(label, n)
	}
	return rows.Err()
}

type metricWriter struct {
	sb strings.Builder
}

func (m *metricWriter) comment(text string) {
	m.sb.WriteString("# " + text + "\n")
}

func (m *metricWriter) typed(name, kind string) {
	fmt.Fprintf(&m.sb, "# TYPE scentquiz_%s %s\n", name, kind)
}

func (m *metricWriter) sample(name, labels, value string) {
	if labels != "" {
		fmt.Fprintf(&m.sb, "scentquiz_%s{%s} %s\n", name, labels, value)
		return
	}
	fmt.Fprintf(&m.sb, "scentquiz_%s %s\n", name, value)
}

func (m *metricWriter) gauge(name string, v int64) {
	m.typed(name, "gauge")
	m.sample(name, "", strconv.FormatInt(v, 10))
}

func (m *metricWriter) String() string {
	return m.sb.String()
}

// normalizedPath folds numeric and uuid segments so metric labels stay
// bounded.
func normalizedPath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = "{id}"
			continue
		}
		if _, err := uuid.Parse(p); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func extractSessionID(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "sessions" {
			if id, err := uuid.Parse(parts[i+1]); err == nil {
				return id.String()
			}
		}
	}
	return ""
}
