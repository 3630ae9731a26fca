package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contacts_service"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	authEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Audited auth events by action",
		},
		[]string{"action"}, // user_registered, user_logged_in, email_verified, ...
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	mailSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_mail_sent_total",
			Help:      "Verification mails handed to the transport",
		},
		[]string{"transport"},
	)

	mailFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_mail_failed_total",
			Help:      "Verification mails the transport rejected",
		},
		[]string{"transport"},
	)

	mailSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verification_mail_duration_seconds",
			Help:      "Verification mail hand-off duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"transport"},
	)
)

func RecordHTTPRequest(method, path, status string, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func InFlightInc() { httpRequestsInFlight.Inc() }
func InFlightDec() { httpRequestsInFlight.Dec() }

func RecordAuthEvent(action string) {
	authEventsTotal.WithLabelValues(action).Inc()
}

func RecordRateLimited(route string) {
	rateLimitedTotal.WithLabelValues(route).Inc()
}

// RecordMail records one verification mail hand-off.
func RecordMail(transport string, d time.Duration, err error) {
	if err != nil {
		mailFailedTotal.WithLabelValues(transport).Inc()
		return
	}
	mailSentTotal.WithLabelValues(transport).Inc()
	mailSendDuration.WithLabelValues(transport).Observe(d.Seconds())
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
