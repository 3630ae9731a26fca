package http_handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz_AlwaysOK(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"store": pingFunc(func(context.Context) error { return errors.New("down") }),
	})

	rr := httptest.NewRecorder()
	h.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestReadyz(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	cases := []struct {
		name   string
		deps   map[string]Pinger
		status int
		body   string
	}{
		{"all up", map[string]Pinger{"store": ok, "redis": ok}, http.StatusOK,
			`{"status":"ready","checks":{"store":"ok","redis":"ok"}}`},
		{"one down", map[string]Pinger{"store": ok, "redis": down}, http.StatusServiceUnavailable,
			`{"status":"unavailable","checks":{"store":"ok","redis":"unavailable"}}`},
		{"nil skipped", map[string]Pinger{"store": ok, "redis": nil}, http.StatusOK,
			`{"status":"ready","checks":{"store":"ok"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewHealthHandler(tc.deps).Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tc.status, rr.Code)
			assert.JSONEq(t, tc.body, rr.Body.String())
			assert.NotContains(t, rr.Body.String(), "connection refused")
		})
	}
}
