// Package metrics exposes Prometheus instrumentation for the form pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solace_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	formSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_form_submissions_total",
			Help: "Accepted form submissions by form type",
		},
		[]string{"form"},
	)

	fanoutDispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_fanout_dispatches_total",
			Help: "Fan-out side effects by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	newsletterEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_newsletter_events_total",
			Help: "Newsletter lifecycle events (subscribed, duplicate, unsubscribed)",
		},
		[]string{"event"},
	)
)

// RecordFormSubmission increments the accepted-submission counter.
func RecordFormSubmission(form string) {
	formSubmissionsTotal.WithLabelValues(form).Inc()
}

// RecordFanout records the outcome of one fan-out channel dispatch.
func RecordFanout(channel, outcome string) {
	fanoutDispatchesTotal.WithLabelValues(channel, outcome).Inc()
}

// RecordRateLimitRejection increments the rejection counter for a limiter scope.
func RecordRateLimitRejection(scope string) {
	rateLimitRejections.WithLabelValues(scope).Inc()
}

// RecordNewsletterEvent increments the counter for a newsletter lifecycle event.
func RecordNewsletterEvent(event string) {
	newsletterEventsTotal.WithLabelValues(event).Inc()
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments every request with count and latency metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
