// Package server sets up the HTTP server, router and route definitions.
//
// This is the wiring layer: it decides which URL maps to which handler and
// which middleware runs where. Services are built by the caller (cmd/server)
// and handed in, so tests can build a Server around an in-memory database.
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

	"github.com/sakif/linkstash/internal/auth"
	"github.com/sakif/linkstash/internal/database"
	"github.com/sakif/linkstash/internal/handler"
	"github.com/sakif/linkstash/internal/middleware"
	"github.com/sakif/linkstash/internal/service"
)

// Config holds server settings.
type Config struct {
	Port          int
	SecureCookies bool
}

// Background is a worker the server starts with itself and stops before the
// database closes. *enrich.Pool implements it.
type Background interface {
	Start()
	Stop()
}

// Deps are the services the routes call.
type Deps struct {
	Database *database.Module
	Links    *service.LinkService
	Tags     *service.TagService
	Accounts *service.AccountService
	Sessions *service.SessionService
	Workers  Background // may be nil
}

// Server is the HTTP server plus everything it owns.
type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
}

// New builds the router. It does not start listening.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
//	GET    /                               card list page
//	GET    /healthz                        database ping
//	POST   /auth/login, /auth/logout
//	GET    /auth/github/login, /callback   (session required)
//	       /api/...                        (session required)
//
// Middleware order: RequestID before Logger so log lines carry the ID;
// Recoverer turns panics into 500s.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	pages, err := handler.NewPageHandler(s.deps.Links, s.deps.Sessions, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	links := handler.NewLinkHandler(s.deps.Links, s.logger)
	tags := handler.NewTagHandler(s.deps.Tags, s.logger)
	accounts := handler.NewAccountHandler(s.deps.Accounts, s.logger)
	authHandler := handler.NewAuthHandler(s.deps.Sessions, s.config.SecureCookies, s.logger)

	requireAuth := auth.RequireAuth(s.deps.Sessions.Tokens())

	s.router.Get("/", pages.HandleIndex)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/links", links.HandleList)
		r.Post("/links", links.HandleCreate)
		r.Get("/links/{id}", links.HandleGet)
		r.Put("/links/{id}", links.HandleUpdate)
		r.Delete("/links/{id}", links.HandleDelete)
		r.Post("/links/{id}/favorite", links.HandleToggleFavorite)
		r.Post("/links/{id}/archive", links.HandleToggleArchive)
		r.Post("/links/{id}/status", links.HandleToggleStatus)
		r.Post("/links/{id}/tags", links.HandleAddTag)
		r.Delete("/links/{id}/tags/{tagID}", links.HandleRemoveTag)

		r.Get("/tags", tags.HandleList)
		r.Post("/tags", tags.HandleCreate)
		// chi matches the static segment before {id}.
		r.Delete("/tags/orphans", tags.HandlePrune)
		r.Patch("/tags/{id}", tags.HandleRename)
		r.Delete("/tags/{id}", tags.HandleDelete)

		r.Get("/accounts", accounts.HandleList)
		r.Put("/accounts/hackernews", accounts.HandleLinkHackerNews)
		r.Delete("/accounts/{provider}", accounts.HandleUnlink)

		r.Get("/profiles", accounts.HandleProfiles)
		r.Get("/profiles/github/{login}", accounts.HandleGitHubProfile)
		r.Get("/profiles/hackernews/{username}", accounts.HandleHackerNewsProfile)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	db, err := s.deps.Database.Database()
	if err == nil {
		err = db.Ping(r.Context())
	}
	if err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}

// Start runs the server until SIGINT/SIGTERM, then shuts down in order:
//  1. stop accepting connections and drain in-flight requests (30s)
//  2. stop background workers, finishing queued jobs
//  3. close the database
func (s *Server) Start() error {
	defer s.closeDatabase()

	if s.deps.Workers != nil {
		s.deps.Workers.Start()
		defer s.deps.Workers.Stop()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("auth", s.deps.Sessions.Enabled()),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

func (s *Server) closeDatabase() {
	if err := s.deps.Database.Close(); err != nil {
		s.logger.Error("closing database failed", slog.String("error", err.Error()))
	}
}
