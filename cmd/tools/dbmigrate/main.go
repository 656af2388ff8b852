// Standalone migration runner for operators; the server applies embedded
// migrations on startup by itself.
//
// Usage: dbmigrate -db data/quickcourt.db up|down|version
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

func main() {
	dbPath := flag.String("db", "", "path to the SQLite database file")
	migrationsPath := flag.String("migrations", "internal/db/migrations", "path to the migrations directory")
	flag.Parse()

	command := flag.Arg(0)
	if *dbPath == "" || command == "" {
		fmt.Fprintln(os.Stderr, "usage: dbmigrate -db <path> [-migrations <dir>] up|down|version")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(*dbPath, *migrationsPath, command); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("Migration failed")
	}
}

func run(dbPath, migrationsPath, command string) error {
	absDB, err := filepath.Abs(dbPath)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	absMigrations, err := filepath.Abs(migrationsPath)
	if err != nil {
		return fmt.Errorf("resolve migrations path: %w", err)
	}
	if _, err := os.Stat(absMigrations); err != nil {
		return fmt.Errorf("migrations directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absDB), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}

	m, err := migrate.New("file://"+absMigrations, "sqlite3://"+absDB)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Info().Msg("Migrations applied")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Info().Msg("Migrations rolled back")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Migration version")
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
