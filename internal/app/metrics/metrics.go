package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vendops",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vendops",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vendops",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	salesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vendops",
			Subsystem: "sales",
			Name:      "recorded_total",
			Help:      "Total number of sales recorded.",
		},
		[]string{"method"},
	)

	salesRevenue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vendops",
			Subsystem: "sales",
			Name:      "revenue_total",
			Help:      "Total revenue recorded.",
		},
		[]string{"method"},
	)

	reconciliationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vendops",
			Subsystem: "reconciliation",
			Name:      "runs_total",
			Help:      "Total number of reconciliation runs.",
		},
		[]string{"success"},
	)

	reconciliationDiscrepancies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vendops",
			Subsystem: "reconciliation",
			Name:      "discrepancies_total",
			Help:      "Total number of reconciliation discrepancies found.",
		},
	)

	botUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vendops",
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Total number of Telegram updates handled.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		salesRecorded,
		salesRevenue,
		reconciliationRuns,
		reconciliationDiscrepancies,
		botUpdates,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordSale records metrics for one booked sale.
func RecordSale(method string, amount float64) {
	if method == "" {
		method = "unknown"
	}
	salesRecorded.WithLabelValues(method).Inc()
	salesRevenue.WithLabelValues(method).Add(amount)
}

// RecordReconciliation records metrics for one reconciliation run.
func RecordReconciliation(discrepancies int, success bool) {
	result := "false"
	if success {
		result = "true"
	}
	reconciliationRuns.WithLabelValues(result).Inc()
	if discrepancies > 0 {
		reconciliationDiscrepancies.Add(float64(discrepancies))
	}
}

// RecordBotUpdate records one handled Telegram update.
func RecordBotUpdate(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	botUpdates.WithLabelValues(kind).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack keeps websocket upgrades working through the instrumentation.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// canonicalPath collapses resource ids so label cardinality stays low.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" || len(parts) < 3 {
		return "/" + parts[0]
	}
	// /api/v1/<resource>[/:id[/<action>]]
	out := "/" + strings.Join(parts[:3], "/")
	if len(parts) >= 4 {
		out += "/:id"
	}
	if len(parts) >= 5 {
		out += "/" + parts[4]
	}
	return out
}
