// Package app assembles LinkStash from its configuration.
//
// Both entry points (the HTTP server and the CLI) need the same object
// graph:
//
//	config → database.Module → repositories
//	       → profile clients → AccountService → SessionService
//	       → enrich.Pool     → LinkService, TagService
//
// Build wires it once so the two never drift apart.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/linkstash/internal/auth"
	"github.com/sakif/linkstash/internal/config"
	"github.com/sakif/linkstash/internal/database"
	"github.com/sakif/linkstash/internal/enrich"
	"github.com/sakif/linkstash/internal/metadata"
	"github.com/sakif/linkstash/internal/profile"
	"github.com/sakif/linkstash/internal/repository/sqlite"
	"github.com/sakif/linkstash/internal/service"
)

// App holds the wired services. Close releases the database.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Database *database.Module
	Enricher *enrich.Pool // nil when enrichment is disabled

	Links    *service.LinkService
	Tags     *service.TagService
	Accounts *service.AccountService
	Sessions *service.SessionService
}

// NewLogger builds the process logger from the log section of the config.
func NewLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Option adjusts how Build wires the application.
type Option func(*options)

type options struct {
	foreground bool
}

// WithoutBackgroundEnrichment keeps the enrichment pool for synchronous
// Process calls but stops LinkService from queueing jobs on it. For
// processes that never start the pool: their unenriched links are picked up
// by the next server start instead of being queued and lost.
func WithoutBackgroundEnrichment() Option {
	return func(o *options) { o.foreground = true }
}

// Build opens the database and wires every service. The enrichment pool is
// created but not started; the server starts it, the CLI never does.
func Build(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dbPath := cfg.DatabasePath()
	if dbPath != sqlite.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	module := database.NewModule(dbPath, logger)
	if _, err := module.Database(); err != nil {
		return nil, err
	}

	// Errors below can only repeat the one Database() already returned.
	linksRepo, _ := module.Links()
	tagsRepo, _ := module.Tags()
	accountsRepo, _ := module.Accounts()

	profiles := profile.NewService(
		profile.NewGitHubClient(cfg.GitHub.APIURL, cfg.GitHub.Token),
		profile.NewHackerNewsClient(cfg.HackerNews.APIURL),
		logger,
	)
	accounts := service.NewAccountService(accountsRepo, profiles, logger)

	sessions, err := buildSessions(cfg, accounts, logger)
	if err != nil {
		module.Close()
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Database: module,
		Tags:     service.NewTagService(tagsRepo, logger),
		Accounts: accounts,
		Sessions: sessions,
	}

	var enricher service.Enqueuer
	if cfg.Enrich.Enabled {
		a.Enricher = enrich.NewPool(linksRepo, metadata.NewHTTPFetcher(cfg.Metadata.Timeout), enrich.Config{
			Workers:   cfg.Enrich.Workers,
			QueueSize: cfg.Enrich.QueueSize,
		}, logger)
		if !o.foreground {
			enricher = a.Enricher
		}
	}
	a.Links = service.NewLinkService(linksRepo, enricher, logger)

	return a, nil
}

func buildSessions(cfg *config.Config, accounts *service.AccountService, logger *slog.Logger) (*service.SessionService, error) {
	if !cfg.Auth.Enabled() {
		return service.NewSessionService(nil, nil, "", nil, accounts, logger), nil
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	var github *auth.GitHubProvider
	if cfg.Auth.GitHubOAuthEnabled() {
		github = auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.Auth.GitHubCallbackURL)
	}

	return service.NewSessionService(tokens, auth.NewPassphraseHasher(), cfg.Auth.PassphraseHash, github, accounts, logger), nil
}

// Close stops nothing but the database; the caller stops the enricher first
// when it started it.
func (a *App) Close() error {
	return a.Database.Close()
}
