// Package server is the composition root: it opens the store, builds the
// collaborators, wires services to handlers and runs the HTTP server.
//
// ROUTES:
//
//	GET  /healthz                        store ping
//	GET  /metrics                        Prometheus exposition
//	GET  /api/user/plan                  optional auth, always 200
//	GET  /api/user/usage                 auth
//	POST /api/user/sync                  auth
//	GET  /api/me                         auth
//	POST /api/solve                      auth
//	GET  /api/solutions                  auth
//	GET  /api/solutions/{problemNumber}  auth
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/stepwise/internal/config"
	"github.com/sakif/stepwise/internal/explainer"
	"github.com/sakif/stepwise/internal/explainer/gemini"
	"github.com/sakif/stepwise/internal/handler"
	"github.com/sakif/stepwise/internal/identity"
	"github.com/sakif/stepwise/internal/metrics"
	"github.com/sakif/stepwise/internal/middleware"
	"github.com/sakif/stepwise/internal/quota"
	"github.com/sakif/stepwise/internal/repository"
	"github.com/sakif/stepwise/internal/repository/gormdb"
	sqliteRepo "github.com/sakif/stepwise/internal/repository/sqlite"
	"github.com/sakif/stepwise/internal/service"
)

// Deps is everything the router needs. Production fills it from config in
// New; tests fill it with fakes.
type Deps struct {
	Store     repository.Store
	Verifier  *identity.TokenVerifier
	Profiles  service.ProfileSource
	Billing   quota.BillingDirectory
	Explainer explainer.Explainer
	Metrics   *metrics.Metrics // nil disables /metrics and HTTP instrumentation
	Logger    *slog.Logger
}

// NewRouter wires services and handlers onto a chi router.
func NewRouter(d Deps) http.Handler {
	m := d.Metrics
	if m == nil {
		// Services always record; an unexposed registry keeps them simple.
		m = metrics.New()
	}

	resolver := quota.NewResolver(quota.NewProviderOracle(d.Billing), d.Store, d.Store, d.Logger)
	directory := service.NewDirectoryService(d.Store, d.Profiles, m, d.Logger)
	solver := service.NewSolveService(resolver, d.Store, d.Store, d.Explainer, m, d.Logger)
	archive := service.NewArchiveService(d.Store, d.Logger)

	health := handler.NewHealthHandler(d.Store, d.Logger)
	users := handler.NewUserHandler(resolver, directory, d.Logger)
	solve := handler.NewSolveHandler(solver, d.Logger)
	solutions := handler.NewSolutionsHandler(archive, d.Logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimiddleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", health.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.With(identity.OptionalAuth(d.Verifier)).Get("/user/plan", users.HandlePlan)

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireAuth(d.Verifier, d.Logger))

			r.Get("/user/usage", users.HandleUsage)
			r.Post("/user/sync", users.HandleSync)
			r.Get("/me", users.HandleMe)

			r.Post("/solve", solve.HandleSolve)
			r.Get("/solutions", solutions.HandleList)
			r.Get("/solutions/{problemNumber}", solutions.HandleGet)
		})
	})

	return r
}

// Server owns the store and the HTTP listener.
type Server struct {
	handler http.Handler
	store   repository.Store
	config  config.Config
	logger  *slog.Logger
}

// New opens the configured store, builds the identity and Gemini clients
// and wires the router. cfg must already be validated.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	verifier, err := identity.NewTokenVerifier(cfg.Auth.SessionSecret, cfg.Auth.Issuer)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("server: session verifier: %w", err)
	}

	idp := identity.NewClient(cfg.Identity.APIURL, cfg.Identity.SecretKey, cfg.Identity.Timeout, logger)

	ai, err := gemini.New(ctx, gemini.Config{
		APIKey:        cfg.Gemini.APIKey,
		Model:         cfg.Gemini.Model,
		Timeout:       cfg.Gemini.Timeout,
		MaxConcurrent: cfg.Gemini.MaxConcurrent,
		BaseURL:       cfg.Gemini.BaseURL,
	}, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("server: gemini client: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	return &Server{
		handler: NewRouter(Deps{
			Store:     store,
			Verifier:  verifier,
			Profiles:  idp,
			Billing:   idp,
			Explainer: ai,
			Metrics:   m,
			Logger:    logger,
		}),
		store:  store,
		config: cfg,
		logger: logger,
	}, nil
}

// OpenStore opens the backend named by cfg.Driver.
func OpenStore(cfg config.DatabaseConfig, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("server: creating database directory %s: %w", dir, err)
			}
		}
		db, err := sqliteRepo.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite: %w", err)
		}
		return db, nil
	case config.DriverPostgres:
		db, err := gormdb.Open(cfg.DSN, gormdb.Options{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("server: opening postgres: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("server: unknown database driver %q", cfg.Driver)
	}
}

// Handler exposes the wired router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("database", s.config.Database.Driver),
			slog.String("model", s.config.Gemini.Model),
			slog.Bool("metrics", s.config.Metrics.Enabled),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.config.Server.ShutdownTimeout > 0 {
		return s.config.Server.ShutdownTimeout
	}
	return 30 * time.Second
}
