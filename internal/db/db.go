package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the collector's SQLite store. At debug level every
// statement is logged through the tracing connector.
func Open(cfg config.Collector, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogLevel <= slog.LevelDebug && cfg.Driver == "sqlite3" {
		db = sql.OpenDB(NewLoggingConnector(dsn, logger))
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	// Pooling (SQLite is typically best with low concurrency; tune if needed)
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Validate connectivity early
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// sqliteParams:
// - foreign_keys=on: events reference their batch
// - busy_timeout: the subscriber writes while HTTP handlers read
// - journal_mode=WAL: readers do not block the writer
var sqliteParams = []string{
	"_foreign_keys=on",
	"_busy_timeout=5000",
	"_journal_mode=WAL",
}

func buildDSN(cfg config.Collector) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	path := cfg.Path
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(sqliteParams, "&"), nil
	}

	// Ensure directory exists for file-backed sqlite db
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(sqliteParams, "&")), nil
}
