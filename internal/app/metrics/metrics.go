package metrics

import (
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
			Namespace: "workforce",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "workforce",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "workforce",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	workEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "workforce",
			Subsystem: "payroll",
			Name:      "entries_total",
			Help:      "Total number of submitted work entries.",
		},
		[]string{"task"},
	)

	payrollAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "workforce",
			Subsystem: "payroll",
			Name:      "amount_total",
			Help:      "Accumulated payroll amount per task.",
		},
		[]string{"task"},
	)

	paymentIntents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "workforce",
			Subsystem: "payments",
			Name:      "intents_total",
			Help:      "Total number of payment intent requests.",
		},
		[]string{"status"},
	)

	paymentsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "workforce",
			Subsystem: "payments",
			Name:      "records_total",
			Help:      "Total number of recorded payments.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		workEntries,
		payrollAmount,
		paymentIntents,
		paymentsRecorded,
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

// RecordWorkEntry records metrics for a submitted work entry.
func RecordWorkEntry(task string, amount float64) {
	if task == "" {
		task = "unknown"
	}
	workEntries.WithLabelValues(task).Inc()
	if amount > 0 {
		payrollAmount.WithLabelValues(task).Add(amount)
	}
}

// RecordPaymentIntent records the outcome of a payment intent request.
func RecordPaymentIntent(status string) {
	if status == "" {
		status = "unknown"
	}
	paymentIntents.WithLabelValues(status).Inc()
}

// RecordPayment counts a stored payment record.
func RecordPayment() {
	paymentsRecorded.Inc()
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

// canonicalPath collapses identifiers so metric label cardinality stays
// bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "users":
		if len(parts) == 1 {
			return "/users"
		}
		switch parts[1] {
		case "admin":
			return "/users/admin/:email"
		case "hr":
			return "/users/hr/:email"
		}
		if len(parts) == 3 && parts[2] == "verify" {
			return "/users/:id/verify"
		}
		return "/users/:id"
	case "payments":
		if len(parts) > 1 {
			return "/payments/:email"
		}
		return "/payments"
	default:
		return "/" + parts[0]
	}
}
