package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/contacts-service/internal/bootstrap"
	"github.com/baechuer/contacts-service/internal/logger"
)

// grace period for in-flight requests after a stop signal
const drainTimeout = 15 * time.Second

// server is the subset of *http.Server that serve drives.
type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
}

type buildFunc func() (srv server, addr string, cleanup func(), err error)

// serve runs the API until ctx is cancelled or the listener fails and
// returns the process exit code.
func serve(ctx context.Context, build buildFunc, lg zerolog.Logger) int {
	srv, addr, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	failed := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", addr).Msg("listening")
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		failed <- err
	}()

	select {
	case err := <-failed:
		lg.Error().Err(err).Msg("listener stopped")
		return 1
	case <-ctx.Done():
		lg.Info().Msg("draining connections")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		lg.Warn().Err(err).Msg("drain incomplete, closing")
		_ = srv.Close()
	}
	lg.Info().Msg("stopped")
	return 0
}

func buildAPI() (server, string, func(), error) {
	srv, cleanup, err := bootstrap.NewServer()
	if err != nil {
		return nil, "", nil, err
	}
	return srv, srv.Addr, cleanup, nil
}

func main() {
	logger.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := serve(ctx, buildAPI, logger.Logger)
	stop()
	os.Exit(code)
}
