package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	appCtx "github.com/baechuer/contacts-service/internal/pkg/context"
	"github.com/baechuer/contacts-service/internal/tracing"
)

const serviceName = "contacts-service"

// Logger is the process-wide logger. Init must run before first use.
var Logger zerolog.Logger

type options struct {
	level   zerolog.Level
	json    bool
	color   bool
	caller  bool
	service string
}

func optionsFromEnv() options {
	o := options{level: zerolog.InfoLevel, color: true, service: serviceName}

	if lvl, err := zerolog.ParseLevel(env("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		o.level = lvl
	}
	o.json = strings.EqualFold(env("LOG_FORMAT"), "json")
	o.color = env("LOG_COLOR") != "0"
	o.caller = env("LOG_CALLER") == "1"
	if s := env("SERVICE_NAME"); s != "" {
		o.service = s
	}
	return o
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func Init() { InitWithWriter(os.Stdout) }

// InitWithWriter configures Logger from LOG_LEVEL, LOG_FORMAT (json|console),
// LOG_COLOR and LOG_CALLER, writing to w.
func InitWithWriter(w io.Writer) {
	o := optionsFromEnv()

	if !o.json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !o.color}
	}

	ctx := zerolog.New(w).Level(o.level).With().Timestamp().Str("service", o.service)
	if o.caller {
		ctx = ctx.Caller()
	}

	Logger = ctx.Logger()
	zlog.Logger = Logger
}

// WithCtx returns a child logger tagged with the request id, the
// authenticated user and the trace id, when the context carries them.
func WithCtx(ctx context.Context) *zerolog.Logger {
	rid, uid, tid := appCtx.GetRequestID(ctx), appCtx.GetUserID(ctx), tracing.TraceID(ctx)
	if rid == "" && uid == "" && tid == "" {
		l := Logger
		return &l
	}

	lc := Logger.With()
	if rid != "" {
		lc = lc.Str("request_id", rid)
	}
	if uid != "" {
		lc = lc.Str("user_id", uid)
	}
	if tid != "" {
		lc = lc.Str("trace_id", tid)
	}
	l := lc.Logger()
	return &l
}
