package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/contacts-service/internal/metrics"
)

// Metrics records HTTP RED metrics keyed by the chi route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.InFlightInc()
		defer metrics.InFlightDec()

		ww := wrap(w, r)
		next.ServeHTTP(ww, r)

		// unmatched paths share one label to keep cardinality bounded
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(statusOf(ww)), time.Since(start))
	})
}
