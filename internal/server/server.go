// Package server is the composition root: it builds the services and
// handlers from their dependencies, mounts every route and runs the HTTP
// server with graceful shutdown.
//
//	main.go → config, logger, sqlite.DB, cache, file host, GitHub client
//	server.New → services → handlers → chi routes
//
// Handlers never touch the database; services never touch HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/linkify/internal/auth"
	"github.com/sakif/linkify/internal/cache"
	"github.com/sakif/linkify/internal/config"
	"github.com/sakif/linkify/internal/handler"
	"github.com/sakif/linkify/internal/metrics"
	"github.com/sakif/linkify/internal/middleware"
	sqliteRepo "github.com/sakif/linkify/internal/repository/sqlite"
	"github.com/sakif/linkify/internal/service"
	"github.com/sakif/linkify/internal/upload"
)

// Deps are the resources created by main. The Server owns DB and closes it
// on shutdown.
type Deps struct {
	DB       *sqliteRepo.DB
	Profiles cache.ProfileCache   // nil disables caching
	Host     upload.FileHost      // where uploads go
	GitHub   handler.GitHubClient // nil disables the login routes
	Metrics  *metrics.Metrics     // nil creates a fresh registry
}

// Server is the HTTP server and everything it owns.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
}

// New wires services and handlers and mounts the routes.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.DB == nil {
		return nil, errors.New("server: database is required")
	}
	if deps.Host == nil {
		return nil, errors.New("server: file host is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     deps.DB,
	}
	if cfg.RateLimit.ClickRPS > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit.ClickRPS, cfg.RateLimit.ClickBurst, time.Minute)
	}

	s.setupRoutes(deps, tokens)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts:
//
//	GET    /healthz                   → DB ping
//	GET    /metrics                   → Prometheus
//	GET    /uploads/*                 → stored files (local backend only)
//	GET    /auth/github/login         → start OAuth
//	GET    /auth/github/callback      → finish OAuth, set session cookie
//	POST   /auth/logout               → clear session cookie
//	GET    /api/themes                → theme set
//	GET    /api/platforms             → platform rules
//	GET    /api/pages/{pseudo}?q=     → public page
//	POST   /api/links/{id}/click      → count a click (rate limited)
//	GET    /api/me                    → caller's user       [auth]
//	GET    /api/me/profile            → caller's profile    [auth]
//	GET    /api/me/page               → caller's full page  [auth]
//	PUT    /api/me/theme              → set theme           [auth]
//	POST   /api/links                 → add link            [auth]
//	PATCH  /api/links/{id}            → update link         [auth]
//	POST   /api/links/{id}/toggle     → toggle visibility   [auth]
//	DELETE /api/links/{id}            → remove link         [auth]
//	POST   /api/links/{id}/upload     → upload and attach   [auth]
//
// Middleware order: RequestID, RealIP, Recoverer, then our metrics and
// logging. RealIP is only mounted with TrustProxy set: it believes whatever
// X-Forwarded-For says, and the click limiter keys on RemoteAddr, so a
// client talking to us directly could otherwise pick a new bucket per
// request.
func (s *Server) setupRoutes(deps Deps, tokens *auth.TokenService) {
	m := deps.Metrics

	s.router.Use(chimiddleware.RequestID)
	if s.config.Server.TrustProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Metrics(m))
	s.router.Use(middleware.Logger(s.logger))

	accounts := service.NewAccountService(deps.DB.Users(), deps.Profiles, s.logger)
	links := service.NewLinkService(deps.DB.Users(), deps.DB.Links(), deps.Host, m, s.logger)
	pages := service.NewPageService(deps.DB.Users(), deps.DB.Links(), deps.Profiles, m, s.logger)
	authSvc := service.NewAuthService(accounts, tokens, s.logger)

	accountHandler := handler.NewAccountHandler(accounts, pages, s.logger)
	linkHandler := handler.NewLinkHandler(links, s.logger)
	pageHandler := handler.NewPageHandler(pages, s.logger)
	metaHandler := handler.NewMetaHandler(deps.DB, s.logger)

	s.router.Get("/healthz", metaHandler.HandleHealth)
	s.router.Handle("/metrics", m.Handler())

	if local, ok := deps.Host.(*upload.Local); ok {
		files := http.FileServer(http.Dir(local.Dir()))
		s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", files))
	}

	if deps.GitHub != nil {
		authHandler := handler.NewAuthHandler(deps.GitHub, authSvc, tokens, s.config.Server.CookieSecure, "/", s.logger)
		s.router.Route("/auth", func(r chi.Router) {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
			r.Post("/logout", authHandler.HandleLogout)
		})
	} else {
		s.logger.Warn("GitHub OAuth not configured; login routes are disabled")
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/themes", metaHandler.HandleThemes)
		r.Get("/platforms", metaHandler.HandlePlatforms)
		r.Get("/pages/{pseudo}", pageHandler.HandlePublicPage)

		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.Limit)
			}
			r.Post("/links/{id}/click", linkHandler.HandleClick)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", accountHandler.HandleMe)
			r.Get("/me/profile", accountHandler.HandleProfile)
			r.Get("/me/page", accountHandler.HandleMyPage)
			r.Put("/me/theme", accountHandler.HandleUpdateTheme)
			r.Post("/links", linkHandler.HandleCreate)
			r.Patch("/links/{id}", linkHandler.HandleUpdate)
			r.Post("/links/{id}/toggle", linkHandler.HandleToggle)
			r.Delete("/links/{id}", linkHandler.HandleDelete)
			r.Post("/links/{id}/upload", linkHandler.HandleUpload)
		})
	})
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests and
// closes the database.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.router,
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
			slog.String("addr", srv.Addr),
			slog.String("url", s.config.Server.BaseURL()),
			slog.String("database", s.config.Database.Path),
			slog.String("uploads", s.config.Upload.Backend),
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

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close database", slog.String("error", err.Error()))
	}
}
