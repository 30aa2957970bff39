package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jonny/serviceops-ai/internal/adapter/outbound/persistence/sqlite/migration"
)

// validJournalModes defines accepted SQLite journal modes.
var validJournalModes = map[string]bool{
	"wal": true, "delete": true, "truncate": true,
	"persist": true, "memory": true, "off": true,
}

// Config holds SQLite connection configuration.
type Config struct {
	Path              string
	MaxOpenConns      int
	PragmaJournalMode string
	PragmaBusyTimeout int
}

// Store wraps a *sql.DB holding the recommendation archive and the polling
// cycle log.
type Store struct {
	DB *sql.DB
}

// NewStore opens the SQLite database at cfg.Path, applies pragmas, and runs
// pending migrations.
func NewStore(cfg Config) (*Store, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := migration.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{DB: db}, nil
}

// buildDSN encodes the pragmas as go-sqlite3 connection parameters.
// Transactions take the write lock on BEGIN (_txlock=immediate).
func buildDSN(cfg Config) (string, error) {
	mode := strings.ToLower(cfg.PragmaJournalMode)
	if mode != "" && !validJournalModes[mode] {
		return "", fmt.Errorf("invalid pragma journal mode: %q", cfg.PragmaJournalMode)
	}

	params := url.Values{}
	if mode != "" {
		params.Set("_journal_mode", mode)
	}
	if cfg.PragmaBusyTimeout > 0 {
		params.Set("_busy_timeout", strconv.Itoa(cfg.PragmaBusyTimeout))
	}
	params.Set("_txlock", "immediate")

	return cfg.Path + "?" + params.Encode(), nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.DB.Close() }
