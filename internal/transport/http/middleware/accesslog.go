package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/contacts-service/internal/logger"
)

// AccessLog writes one http_request line per request; 4xx log at warn and
// 5xx at error.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := wrap(w, r)
		next.ServeHTTP(ww, r)

		status := statusOf(ww)
		level := zerolog.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zerolog.WarnLevel
		}

		logger.WithCtx(r.Context()).WithLevel(level).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", time.Since(start)).
			Str("ip", clientIP(r)).
			Msg("http_request")
	})
}
