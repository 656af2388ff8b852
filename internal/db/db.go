// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/quickcourt/quickcourt/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB bundles the connection pool with the query layer. WithTx rebinds the
// queries to an open transaction.
type DB struct {
	*sql.DB
	Queries *Queries
}

// New opens a SQLite database, applies embedded migrations, and returns a
// ready DB. Foreign keys and a busy timeout are forced through the DSN;
// concurrent confirm attempts serialize on the write lock instead of
// failing immediately.
func New(dataSourceName string) (*DB, error) {
	pool, err := sql.Open("sqlite3", applyDSNDefaults(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := migrateUp(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &DB{DB: pool, Queries: NewQueries(pool)}, nil
}

// NewFromConfig opens the configured database, creating its directory if
// needed.
func NewFromConfig(cfg *config.Config) (*DB, error) {
	if cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Filename), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	return New(cfg.Database.Filename)
}

func applyDSNDefaults(dsn string) string {
	base, query, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		params = url.Values{}
	}
	if params.Get("_fk") == "" {
		params.Set("_fk", "1")
	}
	if params.Get("_busy_timeout") == "" {
		params.Set("_busy_timeout", "5000")
	}
	return base + "?" + params.Encode()
}

func migrateUp(pool *sql.DB) error {
	driver, err := sqlite3.WithInstance(pool, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// WithTx returns a DB whose queries run inside tx.
func (db *DB) WithTx(tx *sql.Tx) *DB {
	return &DB{DB: db.DB, Queries: NewQueries(tx)}
}

// RunInTx runs fn inside a transaction, committing on nil and rolling
// back on error or panic.
func (db *DB) RunInTx(ctx context.Context, fn func(*DB) error) error {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(db.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
