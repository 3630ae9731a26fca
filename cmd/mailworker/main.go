// Command mailworker consumes verification requests from RabbitMQ and
// delivers them over SMTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/contacts-service/internal/config"
	"github.com/baechuer/contacts-service/internal/infrastructure/email"
	"github.com/baechuer/contacts-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/contacts-service/internal/logger"
	"github.com/baechuer/contacts-service/internal/metrics"
	"github.com/baechuer/contacts-service/internal/tracing"
)

type consumer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// meteredSender records delivery outcomes for the SMTP transport.
type meteredSender struct {
	next rabbitmq.MailSender
}

func (s meteredSender) SendVerification(ctx context.Context, to, url string) error {
	start := time.Now()
	err := s.next.SendVerification(ctx, to, url)
	metrics.RecordMail("smtp", time.Since(start), err)
	return err
}

func newMux() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}

// run starts the consumer and blocks until ctx is done.
func run(ctx context.Context, c consumer, srv *http.Server) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error().Err(err).Msg("mailworker http server failed")
		}
	}()

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(stopCtx)
	return c.Stop(stopCtx)
}

func main() {
	if os.Getenv("SERVICE_NAME") == "" {
		_ = os.Setenv("SERVICE_NAME", "contacts-mailworker")
	}
	logger.Init()
	lg := logger.Logger

	cfg, err := config.LoadMailWorker()
	if err != nil {
		lg.Fatal().Err(err).Msg("load config")
	}

	tp, err := tracing.Init(context.Background(), tracing.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		lg.Fatal().Err(err).Msg("tracing")
	}
	flush := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}

	sender, err := email.NewSMTPSender(email.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		From:      cfg.SMTPFrom,
		FromName:  cfg.SMTPFromName,
		TLSPolicy: cfg.SMTPTLSPolicy,
	})
	if err != nil {
		lg.Fatal().Err(err).Msg("smtp sender")
	}

	c := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		RabbitURL: cfg.RabbitURL,
		Exchange:  cfg.RabbitExchange,
		Tag:       "contacts-mailworker",
	}, meteredSender{next: sender}, lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: newMux(), ReadHeaderTimeout: 5 * time.Second}

	lg.Info().Str("addr", cfg.HTTPAddr).Str("exchange", cfg.RabbitExchange).Msg("mailworker starting")
	err = run(ctx, c, srv)
	flush()
	if err != nil {
		lg.Error().Err(err).Msg("mailworker stopped with error")
		os.Exit(1)
	}
	lg.Info().Msg("mailworker stopped")
}
