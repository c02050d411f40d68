// Package main is the entry point for the linkstash HTTP server.
//
// The main package stays small: load configuration, build the application
// and start serving. Everything else lives under internal/.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/linkstash/internal/app"
	"github.com/sakif/linkstash/internal/config"
	"github.com/sakif/linkstash/internal/server"
)

func main() {
	cfgFile := flag.String("config", "", "config file (default ./configs/config.yaml or ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "linkstash: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "linkstash: %v\n", err)
		os.Exit(1)
	}

	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if !cfg.Auth.Enabled() {
		logger.Warn("auth.jwt_secret not set, authentication is disabled")
	}

	deps := server.Deps{
		Database: a.Database,
		Links:    a.Links,
		Tags:     a.Tags,
		Accounts: a.Accounts,
		Sessions: a.Sessions,
	}
	// Assigned only when set: a nil *enrich.Pool in the interface would not be nil.
	if a.Enricher != nil {
		deps.Workers = a.Enricher
	}

	srv, err := server.New(server.Config{
		Port:          cfg.Server.Port,
		SecureCookies: cfg.Server.SecureCookies,
	}, deps, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		a.Close()
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and closes the database on the way out.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
