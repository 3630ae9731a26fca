package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/baechuer/contacts-service/internal/domain"
	"github.com/baechuer/contacts-service/internal/metrics"
	"github.com/baechuer/contacts-service/internal/transport/http/middleware"
	"github.com/baechuer/contacts-service/internal/transport/http/response"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Signup(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Current(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	UpdateSubscription(w http.ResponseWriter, r *http.Request)
	UpdateAvatar(w http.ResponseWriter, r *http.Request)

	// Email verification
	VerifyEmail(w http.ResponseWriter, r *http.Request)
	ResendVerification(w http.ResponseWriter, r *http.Request)
}

type ContactsHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	UpdateFavorite(w http.ResponseWriter, r *http.Request)
}

type RateLimits struct {
	Limiter middleware.RateLimiter // nil disables per-route limits
	Window  time.Duration
	Signup  int
	Login   int
	Resend  int
	// per-IP in-process limit on every route; 0 disables
	Global int
}

type Deps struct {
	Health   HealthHandler
	Auth     AuthHandler
	Contacts ContactsHandler

	AuthMW func(http.Handler) http.Handler

	RateLimits     RateLimits
	AllowedOrigins []string

	// AvatarDir is served at /avatars when avatars are stored locally.
	AvatarDir string

	// ServiceName enables request spans when set.
	ServiceName string
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Contacts == nil {
		return nil, fmt.Errorf("nil Contacts handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}

	r := chi.NewRouter()

	if deps.ServiceName != "" {
		r.Use(middleware.Tracing(deps.ServiceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.HeaderXRequestID},
		ExposedHeaders: []string{middleware.HeaderXRequestID, "Retry-After"},
		MaxAge:         300,
	}))

	rl := deps.RateLimits
	if rl.Global > 0 {
		r.Use(httprate.Limit(rl.Global, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				metrics.RecordRateLimited("global")
				response.WriteError(w, r, domain.ErrRateLimited("global"))
			}),
		))
	}

	limit := func(key string, n int) func(http.Handler) http.Handler {
		return middleware.RateLimitFixedWindow(rl.Limiter, middleware.FixedWindowConfig{
			RouteKey: key,
			Limit:    n,
			Window:   rl.Window,
		}, response.WriteError)
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	if deps.AvatarDir != "" {
		fs := http.StripPrefix("/avatars/", http.FileServer(http.Dir(deps.AvatarDir)))
		r.Get("/avatars/*", func(w http.ResponseWriter, r *http.Request) {
			// avatars are embedded by browser clients on other origins
			w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
			fs.ServeHTTP(w, r)
		})
	}

	r.Route("/api/users", func(r chi.Router) {
		r.With(limit("signup", rl.Signup)).Post("/signup", deps.Auth.Signup)
		r.With(limit("login", rl.Login)).Post("/login", deps.Auth.Login)

		r.Get("/verify/{verificationToken}", deps.Auth.VerifyEmail)
		r.With(limit("verify_resend", rl.Resend)).Post("/verify", deps.Auth.ResendVerification)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMW)
			r.Get("/current", deps.Auth.Current)
			r.Get("/logout", deps.Auth.Logout)
			r.Patch("/", deps.Auth.UpdateSubscription)
			r.Patch("/avatars", deps.Auth.UpdateAvatar)
		})
	})

	r.Route("/api/contacts", func(r chi.Router) {
		r.Use(deps.AuthMW)
		r.Get("/", deps.Contacts.List)
		r.Post("/", deps.Contacts.Create)
		r.Get("/{contactId}", deps.Contacts.Get)
		r.Put("/{contactId}", deps.Contacts.Update)
		r.Delete("/{contactId}", deps.Contacts.Delete)
		r.Patch("/{contactId}/favorite", deps.Contacts.UpdateFavorite)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, r, domain.New(domain.KindNotFound, "route_not_found", "not found"))
	})

	return r, nil
}
