package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/config"
	"github.com/baechuer/contacts-service/internal/logger"
	"github.com/baechuer/contacts-service/internal/transport/http/router"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Env:                "dev",
		HTTPAddr:           ":0",
		JWTSecret:          "test-secret",
		JWTIssuer:          "contacts-service",
		AccessTokenTTL:     time.Hour,
		VerifyEmailBaseURL: "http://localhost/api/users/verify/",
		DBDriver:           "memory",
		MailTransport:      "log",
		AvatarStorage:      "local",
		AvatarDir:          filepath.Join(dir, "public"),
		AvatarTmpDir:       filepath.Join(dir, "tmp"),
		AvatarBaseURL:      "/avatars",
		AvatarMaxBytes:     1 << 20,
		AvatarSize:         250,
		RateLimitWindow:    time.Minute,
		CORSAllowedOrigins: []string{"*"},
	}
}

func testDeps(cfg *config.Config) Deps {
	d := defaultDeps()
	d.LoadConfig = func() (*config.Config, error) { return cfg, nil }
	return d
}

func TestNewServer_ConfigLoadFails(t *testing.T) {
	d := defaultDeps()
	d.LoadConfig = func() (*config.Config, error) { return nil, errors.New("missing required env var: JWT_SECRET") }

	srv, cleanup, err := NewServerWithDeps(d)
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Nil(t, cleanup)
}

func TestNewServer_MemoryStore_ServesRequests(t *testing.T) {
	cfg := memoryConfig(t)
	srv, cleanup, err := NewServerWithDeps(testDeps(cfg))
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, ":0", srv.Addr)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"store":"ok"`)

	req := httptest.NewRequest(http.MethodPost, "/api/users/signup", strings.NewReader(`{"email":"ann@example.com","password":"secret123"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestNewServer_RedisUnavailable_StartsWithoutLimiter(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.RedisAddr = "127.0.0.1:1"

	srv, cleanup, err := NewServerWithDeps(testDeps(cfg))
	require.NoError(t, err)
	defer cleanup()

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "redis")
}

func TestNewServer_RedisAvailable_ReportedInReadiness(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig(t)
	cfg.RedisAddr = mr.Addr()
	cfg.LoginLimit = 1

	srv, cleanup, err := NewServerWithDeps(testDeps(cfg))
	require.NoError(t, err)
	defer cleanup()

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Contains(t, rr.Body.String(), `"redis":"ok"`)

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(`{"email":"a@example.com","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusUnauthorized, login())
	assert.Equal(t, http.StatusTooManyRequests, login())
}

func TestNewServer_RabbitUnavailable(t *testing.T) {
	newPub := func(string, string) (auth.EventPublisher, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	t.Run("dev falls back to log publisher", func(t *testing.T) {
		cfg := memoryConfig(t)
		cfg.MailTransport = "rabbitmq"
		d := testDeps(cfg)
		d.NewPublisher = newPub

		_, cleanup, err := NewServerWithDeps(d)
		require.NoError(t, err)
		cleanup()
	})

	t.Run("prod fails", func(t *testing.T) {
		cfg := memoryConfig(t)
		cfg.Env = "prod"
		cfg.MailTransport = "rabbitmq"
		d := testDeps(cfg)
		d.NewPublisher = newPub

		_, _, err := NewServerWithDeps(d)
		require.Error(t, err)
	})
}

func TestNewServer_RouterErrorIsReturned(t *testing.T) {
	cfg := memoryConfig(t)

	var called bool
	d := testDeps(cfg)
	d.NewRouter = func(router.Deps) (http.Handler, error) {
		called = true
		return nil, errors.New("bad routes")
	}

	srv, _, err := NewServerWithDeps(d)
	require.EqualError(t, err, "bad routes")
	assert.Nil(t, srv)
	assert.True(t, called)
}

func TestAudit_WritesStructuredLine(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logger.InitWithWriter(&buf)
	defer logger.InitWithWriter(&bytes.Buffer{})

	audit("user_registered", map[string]string{"user_id": "u1"})
	audit("verify_email_dispatch_failed", map[string]string{"user_id": "u1", "error": "smtp down"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"audit":true`)
	assert.Contains(t, lines[0], `"action":"user_registered"`)
	assert.Contains(t, lines[0], `"level":"info"`)
	assert.Contains(t, lines[1], `"level":"warn"`)
	assert.Contains(t, lines[1], `"error":"smtp down"`)
	assert.Equal(t, 1, strings.Count(lines[1], `"level"`))
}

type countingPublisher struct {
	calls int
	err   error
}

func (p *countingPublisher) PublishVerifyEmail(_ context.Context, _ auth.VerifyEmailEvent) error {
	p.calls++
	return p.err
}

func TestInstrumented_PassesThrough(t *testing.T) {
	next := &countingPublisher{err: errors.New("boom")}
	p := instrumented{next: next, transport: "smtp"}

	err := p.PublishVerifyEmail(context.Background(), auth.VerifyEmailEvent{Email: "a@example.com"})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, next.calls)
}
