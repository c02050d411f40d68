// Package sqlite implements the repository interfaces on top of SQLite.
//
// The whole library lives in one file, <data dir>/linkstash.db. There is no
// server to run, and tests use ":memory:" to get a fresh database each time.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C compiler is
// needed and the binary cross-compiles like any other Go program.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB:   a connection pool (NOT a single connection!)
//   - sql.Tx:   a transaction; every statement in it must go through the Tx
//   - sql.Rows: multiple result rows (must be closed!)
//
// One *DB hands out three data-access objects (Links, Tags, Accounts), all
// sharing the same pool.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sakif/linkstash/internal/apperror"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DatabaseName is the fixed file name of the LinkStash database inside the
// configured data directory.
const DatabaseName = "linkstash.db"

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

// Path returns the database file path inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, DatabaseName)
}

// DB wraps a sql.DB connection pool. It owns the schema and hands out the
// link, tag and account stores.
type DB struct {
	conn *sql.DB
	path string

	links    *LinkStore
	tags     *TagStore
	accounts *AccountStore
}

// querier is satisfied by both *sql.DB and *sql.Tx, so helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/linkstash.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests, lost on close)
//
// IN-MEMORY DATABASES AND THE POOL:
// Every new connection to ":memory:" sees its own empty database. The pool is
// therefore pinned to a single connection for in-memory paths, and no code in
// this package issues a query while another *sql.Rows is still open.
func New(dbPath string) (*DB, error) {
	inMemory := isMemoryPath(dbPath)

	dsn := dbPath
	if !inMemory {
		// _pragma parameters are applied by the driver to every pooled
		// connection, unlike a one-off Exec.
		dsn = dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if inMemory {
		conn.SetMaxOpenConns(1)
	}

	// sql.Open does not connect; Ping surfaces a bad path or permissions now.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The join table relies on
	// ON DELETE CASCADE, so they must be on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: dbPath}
	db.links = &LinkStore{db: db}
	db.tags = &TagStore{db: db}
	db.accounts = &AccountStore{db: db}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func isMemoryPath(p string) bool {
	return p == MemoryPath || strings.HasPrefix(p, "file::memory:")
}

// Path returns the path the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// Links returns the link DAO.
func (db *DB) Links() *LinkStore {
	return db.links
}

// Tags returns the tag DAO.
func (db *DB) Tags() *TagStore {
	return db.tags
}

// Accounts returns the linked-account store.
func (db *DB) Accounts() *AccountStore {
	return db.accounts
}

// Ping checks that the database is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return apperror.Storage("pinging database", err)
	}
	return nil
}

// Close closes the database connection pool.
//
// Wherever you call New(), defer Close() right after:
//
//	db, err := sqlite.New(sqlite.Path("data"))
//	if err != nil { ... }
//	defer db.Close()
func (db *DB) Close() error {
	return db.conn.Close()
}

// withTx runs fn inside a transaction. fn's error (already typed) is
// returned as-is after a rollback; begin/commit failures are storage errors.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Storage("beginning transaction", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.Storage("committing transaction", err)
	}
	return nil
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// every start.
//
// SCHEMA:
//
//	links ──< link_tags >── tags        accounts (one row per provider)
//
// link_tags is the explicit many-to-many join table; deleting either side
// cascades to it.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS links (
			id                TEXT PRIMARY KEY,
			url               TEXT NOT NULL UNIQUE,
			title             TEXT NOT NULL DEFAULT '',
			description       TEXT NOT NULL DEFAULT '',
			type              TEXT NOT NULL DEFAULT 'ARTICLE',
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at      DATETIME,
			is_favorite       INTEGER NOT NULL DEFAULT 0,
			is_archived       INTEGER NOT NULL DEFAULT 0,
			is_completed      INTEGER NOT NULL DEFAULT 0,
			CHECK ((is_completed = 1) = (completed_at IS NOT NULL))
		);
		CREATE INDEX IF NOT EXISTS idx_links_created_at ON links(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating links table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tags (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE COLLATE NOCASE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS link_tags (
			link_id TEXT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
			tag_id  TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (link_id, tag_id)
		);
		CREATE INDEX IF NOT EXISTS idx_link_tags_tag ON link_tags(tag_id);
	`)
	if err != nil {
		return fmt.Errorf("creating tags tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			provider     TEXT PRIMARY KEY,
			username     TEXT NOT NULL,
			access_token TEXT NOT NULL DEFAULT '',
			linked_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	// Added after the first release; older databases lack the column.
	if err := db.addColumnIfNotExists("links", "preview_image_url",
		"TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding preview_image_url to links: %w", err)
	}

	// NULL until the enrichment worker has looked at the link.
	if err := db.addColumnIfNotExists("links", "enriched_at", "DATETIME"); err != nil {
		return fmt.Errorf("adding enriched_at to links: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Keeps ALTER TABLE migrations safe to run more than once.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
