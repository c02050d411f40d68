// Package database is the composition root for persistence.
//
// A Module owns the process-wide SQLite database. It opens the file the first
// time anything asks for it and hands the same *sqlite.DB to every caller
// after that, so the CLI, the HTTP server and the enrichment workers all share
// one connection pool.
package database

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/sakif/linkstash/internal/repository"
	"github.com/sakif/linkstash/internal/repository/sqlite"
)

// Module builds the database at most once.
//
// sync.Once guarantees open runs exactly one time even when several goroutines
// call Database() concurrently; the others block until it finishes and then
// see the same result. A failed open is remembered too: callers keep getting
// the original error instead of retrying against a broken path.
type Module struct {
	path   string
	logger *slog.Logger

	once sync.Once
	db   *sqlite.DB
	err  error

	mu     sync.Mutex
	closed bool
}

// NewModule returns a Module for the database file at path. Nothing is opened
// yet. Use sqlite.Path(dataDir) for the on-disk file or sqlite.MemoryPath in
// tests.
func NewModule(path string, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{path: path, logger: logger}
}

// Database returns the shared database, opening it on first use.
func (m *Module) Database() (*sqlite.DB, error) {
	m.once.Do(func() {
		m.db, m.err = sqlite.New(m.path)
		if m.err != nil {
			m.err = fmt.Errorf("opening database %s: %w", m.path, m.err)
			m.logger.Error("database open failed", slog.String("path", m.path), slog.String("error", m.err.Error()))
			return
		}
		m.logger.Info("database opened", slog.String("path", m.path))
	})
	return m.db, m.err
}

// MustOpen opens the database and exits the process on failure. Meant for
// main, where there is nothing sensible to do without storage.
func (m *Module) MustOpen() *sqlite.DB {
	db, err := m.Database()
	if err != nil {
		m.logger.Error("cannot start without a database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	return db
}

// Links returns the link DAO backed by the shared database.
func (m *Module) Links() (repository.LinkRepository, error) {
	db, err := m.Database()
	if err != nil {
		return nil, err
	}
	return db.Links(), nil
}

// Tags returns the tag DAO backed by the shared database.
func (m *Module) Tags() (repository.TagRepository, error) {
	db, err := m.Database()
	if err != nil {
		return nil, err
	}
	return db.Tags(), nil
}

// Accounts returns the linked-account DAO backed by the shared database.
func (m *Module) Accounts() (repository.AccountRepository, error) {
	db, err := m.Database()
	if err != nil {
		return nil, err
	}
	return db.Accounts(), nil
}

// Close closes the database if it was ever opened. Calling it more than once
// is harmless.
func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	// Make sure a Database() call racing with Close can't open it afterwards.
	m.once.Do(func() {
		m.err = fmt.Errorf("opening database %s: module closed", m.path)
	})
	if m.db == nil {
		return nil
	}
	m.logger.Info("closing database", slog.String("path", m.path))
	return m.db.Close()
}
