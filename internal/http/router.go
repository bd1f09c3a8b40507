// Package http is an in-memory stand-in for the storefront backend's
// guest-session resources, used for local development and end-to-end tests.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/foodstand/guestkit/internal/auth"
	"github.com/foodstand/guestkit/internal/http/handlers"
	"github.com/foodstand/guestkit/internal/middleware"
	"github.com/foodstand/guestkit/internal/repo"
)

// Config configures the dev API
type Config struct {
	JWTSecret      string
	AllowedOrigins []string
	// RegisterLimit caps guest registrations per client address per minute;
	// zero disables the limit
	RegisterLimit int
	Logger        zerolog.Logger
}

// DevAPI is the dev backend: its router plus the state tests reach into
type DevAPI struct {
	Sessions repo.GuestSessionRepo
	Tokens   *auth.TokenService

	router *chi.Mux
	faults *middleware.Faults
}

// NewDevAPI builds the dev backend. ctx bounds its background sweepers.
func NewDevAPI(ctx context.Context, cfg Config) *DevAPI {
	api := &DevAPI{
		Sessions: repo.NewGuestSessionRepo(),
		Tokens:   auth.NewTokenService(cfg.JWTSecret),
		faults:   &middleware.Faults{},
	}
	api.router = NewRouter(ctx, cfg, api.Sessions, api.Tokens, api.faults)
	return api
}

// ServeHTTP implements http.Handler
func (a *DevAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// FailNext makes the next n write requests answer 503
func (a *DevAPI) FailNext(n int) {
	a.faults.FailNext(n)
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(ctx context.Context, cfg Config, sessions repo.GuestSessionRepo, tokens *auth.TokenService, faults *middleware.Faults) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	sessionHandler := handlers.NewGuestSessionHandler(sessions, cfg.Logger)
	tokenHandler := handlers.NewTokenHandler(tokens)

	r.Group(func(r chi.Router) {
		r.Use(faults.Inject)
		r.Use(middleware.OptionalAuth(tokens))

		r.Route("/guest-sessions", func(r chi.Router) {
			register := http.HandlerFunc(sessionHandler.HandleRegister)
			if cfg.RegisterLimit > 0 {
				limiter := middleware.NewRateLimiter(ctx, time.Minute, cfg.RegisterLimit)
				r.With(middleware.RateLimit(limiter, middleware.IPKey)).Post("/", register)
			} else {
				r.Post("/", register)
			}
			r.Get("/", sessionHandler.HandleList)
			r.Get("/{guestID}", sessionHandler.HandleGet)
			r.Put("/{guestID}", sessionHandler.HandleTrackVisits)
		})

		r.Post("/dev/tokens", tokenHandler.HandleIssue)
	})

	return r
}
