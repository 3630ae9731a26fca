package response

import (
	"errors"
	"net/http"

	"github.com/baechuer/contacts-service/internal/domain"
	"github.com/baechuer/contacts-service/internal/logger"
	appCtx "github.com/baechuer/contacts-service/internal/pkg/context"
)

type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

var kindStatus = map[domain.ErrKind]int{
	domain.KindValidation:     http.StatusBadRequest,
	domain.KindAuth:           http.StatusUnauthorized,
	domain.KindForbidden:      http.StatusForbidden,
	domain.KindNotFound:       http.StatusNotFound,
	domain.KindConflict:       http.StatusConflict,
	domain.KindTooLarge:       http.StatusRequestEntityTooLarge,
	domain.KindRateLimited:    http.StatusTooManyRequests,
	domain.KindInfrastructure: http.StatusServiceUnavailable,
}

func statusFromKind(kind domain.ErrKind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteError renders err as {"error":{...}}. Only domain errors reach the
// client verbatim; anything else becomes a bare 500 internal_error and the
// cause goes to the log.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	p := ErrorPayload{Code: "internal_error", Message: "internal error", RequestID: RequestIDFromContext(r)}

	var de *domain.Error
	if errors.As(err, &de) {
		status = statusFromKind(de.Kind)
		p.Code, p.Message, p.Meta = de.Code, de.Message, de.Meta
	}

	if status >= http.StatusInternalServerError {
		logger.WithCtx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Str("code", p.Code).
			Msg("request_failed")
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	WriteJSON(w, status, ErrorBody{Error: p})
}

func RequestIDFromContext(r *http.Request) string {
	return appCtx.GetRequestID(r.Context())
}
