package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/application/contacts"
	"github.com/baechuer/contacts-service/internal/config"
	"github.com/baechuer/contacts-service/internal/infrastructure/avatar"
	mongostore "github.com/baechuer/contacts-service/internal/infrastructure/db/mongo"
	"github.com/baechuer/contacts-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/contacts-service/internal/infrastructure/email"
	"github.com/baechuer/contacts-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/contacts-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/contacts-service/internal/infrastructure/redis"
	"github.com/baechuer/contacts-service/internal/infrastructure/security"
	"github.com/baechuer/contacts-service/internal/logger"
	"github.com/baechuer/contacts-service/internal/metrics"
	"github.com/baechuer/contacts-service/internal/tracing"
	http_handlers "github.com/baechuer/contacts-service/internal/transport/http/handlers"
	"github.com/baechuer/contacts-service/internal/transport/http/middleware"
	"github.com/baechuer/contacts-service/internal/transport/http/response"
	"github.com/baechuer/contacts-service/internal/transport/http/router"
	"github.com/baechuer/contacts-service/internal/transport/http/validate"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(rabbitURL, exchange string) (auth.EventPublisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

// store is the selected persistence backend.
type store struct {
	users    auth.UserRepo
	contacts contacts.ContactRepo
	ping     http_handlers.Pinger
	close    func()
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) tracing
	tp, err := tracing.Init(context.Background(), tracing.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return nil, nil, err
	}
	if tp.Enabled() {
		logger.Logger.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("trace export enabled")
		cleanupFns = append(cleanupFns, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		})
	}

	// 2) store
	st, err := openStore(cfg)
	if err != nil {
		return fail(err)
	}
	cleanupFns = append(cleanupFns, st.close)

	// 3) redis (best-effort; rate limits fail open without it)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; rate limiting disabled")
			_ = c.Close()
		} else {
			logger.Logger.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	// 4) mail
	pub, closePub, err := newMailPublisher(cfg, deps)
	if err != nil {
		return fail(err)
	}
	if closePub != nil {
		cleanupFns = append(cleanupFns, closePub)
	}

	// 5) avatars
	avatars, avatarDir, err := newAvatarStorage(cfg)
	if err != nil {
		return fail(err)
	}

	// 6) security
	logger.Logger.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt signer")
	hasher := security.NewBcryptHasher(security.DefaultCost)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer)

	// 7) services
	authSvc := auth.NewService(
		st.users,
		hasher,
		signer,
		instrumented{next: pub, transport: cfg.MailTransport},
		avatar.NewProcessor(),
		avatars,
		auth.Config{
			AccessTTL:          cfg.AccessTokenTTL,
			VerifyEmailBaseURL: cfg.VerifyEmailBaseURL,
			AvatarSize:         cfg.AvatarSize,
		},
	).WithAudit(audit)

	contactsSvc := contacts.New(st.contacts, nil)

	// 8) handlers + middleware
	v := validate.New()
	checks := map[string]http_handlers.Pinger{"store": st.ping}
	if redisCli != nil {
		checks["redis"] = redisCli
	}

	var limiter middleware.RateLimiter
	if redisCli != nil {
		limiter = redis.NewFixedWindowLimiter(redisCli)
	}

	// 9) router
	mux, err := deps.NewRouter(router.Deps{
		Health:   http_handlers.NewHealthHandler(checks),
		Auth:     http_handlers.NewAuthHandler(authSvc, v, cfg.AvatarMaxBytes),
		Contacts: http_handlers.NewContactsHandler(contactsSvc, v),
		AuthMW:   middleware.Auth(signer, st.users, response.WriteError),
		RateLimits: router.RateLimits{
			Limiter: limiter,
			Window:  cfg.RateLimitWindow,
			Signup:  cfg.SignupLimit,
			Login:   cfg.LoginLimit,
			Resend:  cfg.ResendLimit,
			Global:  cfg.GlobalRateLimit,
		},
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AvatarDir:      avatarDir,
		ServiceName:    cfg.ServiceName,
	})
	if err != nil {
		return fail(err)
	}

	// 10) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

func openStore(cfg *config.Config) (store, error) {
	switch cfg.DBDriver {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return store{}, fmt.Errorf("mongo connect: %w", err)
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(context.Background())
			return store{}, err
		}
		logger.Logger.Info().Str("database", cfg.MongoDatabase).Msg("mongo connected")
		return store{
			users:    s.Users(),
			contacts: s.Contacts(),
			ping:     s,
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = s.Close(ctx)
			},
		}, nil

	case "postgres":
		db, err := config.NewPostgres(cfg.DBAddr)
		if err != nil {
			return store{}, fmt.Errorf("postgres connect: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return store{}, err
		}
		logger.Logger.Info().Msg("postgres connected")
		users := postgres.NewUserRepo(db)
		return store{
			users:    users,
			contacts: postgres.NewContactRepo(db),
			ping:     users,
			close:    func() { _ = db.Close() },
		}, nil

	default:
		logger.Logger.Warn().Msg("using in-memory store; data is lost on restart")
		users := memory.NewUserRepo()
		return store{
			users:    users,
			contacts: memory.NewContactRepo(),
			ping:     users,
			close:    func() {},
		}, nil
	}
}

func newMailPublisher(cfg *config.Config, deps Deps) (auth.EventPublisher, func(), error) {
	switch cfg.MailTransport {
	case "smtp":
		s, err := email.NewSMTPSender(email.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			From:      cfg.SMTPFrom,
			FromName:  cfg.SMTPFromName,
			TLSPolicy: cfg.SMTPTLSPolicy,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	case "rabbitmq":
		if deps.NewPublisher == nil {
			return nil, nil, fmt.Errorf("bootstrap: no rabbitmq publisher factory")
		}
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if cfg.Env == "dev" {
				logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; logging verification links")
				return memory.NewLogPublisher(), nil, nil
			}
			return nil, nil, err
		}
		if c, ok := pub.(interface{ Close() error }); ok {
			return pub, func() { _ = c.Close() }, nil
		}
		return pub, nil, nil

	default:
		return memory.NewLogPublisher(), nil, nil
	}
}

// newAvatarStorage returns the storage and, for local storage, the directory to serve.
func newAvatarStorage(cfg *config.Config) (auth.AvatarStorage, string, error) {
	if cfg.AvatarStorage == "s3" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := avatar.NewS3Storage(ctx, avatar.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicBaseURL:   cfg.CDNBaseURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("s3 storage: %w", err)
		}
		return s, "", nil
	}

	s, err := avatar.NewLocalStorage(cfg.AvatarTmpDir, cfg.AvatarDir, cfg.AvatarBaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("local avatar storage: %w", err)
	}
	return s, s.PublicDir(), nil
}

// instrumented records dispatch latency and failures per transport.
type instrumented struct {
	next      auth.EventPublisher
	transport string
}

func (p instrumented) PublishVerifyEmail(ctx context.Context, evt auth.VerifyEmailEvent) error {
	ctx, span := tracing.Start(ctx, "mail.publish_verify_email",
		trace.WithAttributes(attribute.String("mail.transport", p.transport)))
	start := time.Now()
	err := p.next.PublishVerifyEmail(ctx, evt)
	metrics.RecordMail(p.transport, time.Since(start), err)
	tracing.End(span, err)
	return err
}

func audit(action string, fields map[string]string) {
	metrics.RecordAuthEvent(action)

	lvl := zerolog.InfoLevel
	if _, failed := fields["error"]; failed {
		lvl = zerolog.WarnLevel
	}
	evt := logger.Logger.WithLevel(lvl).Bool("audit", true).Str("action", action)
	for k, v := range fields {
		evt = evt.Str(k, v)
	}
	evt.Msg("audit")
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewRedis:   redis.New,
		NewPublisher: func(url, exchange string) (auth.EventPublisher, error) {
			return rabbitmq_pub.NewPublisher(url, exchange)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
