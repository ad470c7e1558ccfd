// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. Queries are built with squirrel and scanned with sqlx; both
// sit on top of database/sql.
//
// dbPath examples:
//   - "data/users.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database, lives as long as its single connection
//
// Parent directories of a file path are created on open.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

func init() {
	// sqlx only knows "sqlite3" out of the box; teach it the modernc driver
	// name so Rebind/BindNamed behave if anyone reaches for them.
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// DB owns the connection pool.
type DB struct {
	conn   *sqlx.DB
	logger *slog.Logger
}

type options struct {
	maxOpenConns int
	logger       *slog.Logger
}

// Option configures New.
type Option func(*options)

// WithMaxOpenConns caps the pool. SQLite allows one writer at a time, and an
// in-memory database exists per connection, so the default is 1.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// WithLogger sets the logger used for storage-level events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New opens the database with per-connection pragmas and creates the schema.
func New(dbPath string, opts ...Option) (*DB, error) {
	o := options{maxOpenConns: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if dbPath == ":memory:" {
		o.maxOpenConns = 1
	} else if !strings.HasPrefix(dbPath, "file:") {
		// Create the parent directory like `mkdir -p`; SQLite creates only the file.
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating database directory: %w", err)
		}
	}

	conn, err := sqlx.Open(driverName, dataSourceName(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(o.maxOpenConns)
	conn.SetMaxIdleConns(o.maxOpenConns)
	// Idle connections must never be recycled: for ":memory:" that would
	// drop the whole database.
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, logger: o.logger}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// connParams are applied by the driver to every pooled connection, not just
// the first. BEGIN IMMEDIATE takes the write lock up front so two read-then-write
// transactions queue on busy_timeout instead of failing to upgrade.
var connParams = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_pragma=foreign_keys(1)",
	"_txlock=immediate",
}

// dataSourceName appends connParams to dbPath, keeping any query the caller
// already supplied.
func dataSourceName(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(connParams, "&")
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Users returns the user repository backed by the connection pool.
func (db *DB) Users() *UserDB {
	return &UserDB{q: db.conn, db: db}
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
//
// recommendations holds a JSON array; the column default keeps rows written
// outside this service decodable.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id         INTEGER PRIMARY KEY,
			user_name       TEXT NOT NULL,
			user_email      TEXT NOT NULL UNIQUE,
			age             INTEGER,
			recommendations TEXT NOT NULL DEFAULT '[]',
			zip             TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}
	return nil
}
