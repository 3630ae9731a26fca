package middleware

import (
	"net/http"

	"github.com/google/uuid"

	appCtx "github.com/baechuer/contacts-service/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

const maxRequestIDLen = 128

// RequestID trusts an incoming X-Request-Id only when it is short printable
// ASCII; anything else is replaced with a fresh uuid.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderXRequestID)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderXRequestID, id)
		next.ServeHTTP(w, r.WithContext(appCtx.WithRequestID(r.Context(), id)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
