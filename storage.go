package authcore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// DefaultBusyTimeout is how long a connection waits on a locked database
// before giving up. Writes are serialized through a single writer, so waiting
// beats failing.
const DefaultBusyTimeout = 30 * time.Second

type storageConfig struct {
	busyTimeout time.Duration
	walMode     bool
	foreignKeys bool
}

// StorageOption tunes how the embedded database is opened.
type StorageOption func(*storageConfig)

// WithBusyTimeout overrides the default lock wait.
func WithBusyTimeout(d time.Duration) StorageOption {
	return func(c *storageConfig) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}

// WithoutWAL disables write-ahead logging, mostly for throwaway test
// databases.
func WithoutWAL() StorageOption {
	return func(c *storageConfig) {
		c.walMode = false
	}
}

// OpenDB opens the embedded sqlite database behind a bun handle. The
// connection enforces WAL journaling, a busy timeout, and foreign keys, and
// is capped to a single open connection so every write funnels through one
// writer.
func OpenDB(dsn string, opts ...StorageOption) (*bun.DB, error) {
	cfg := &storageConfig{
		busyTimeout: DefaultBusyTimeout,
		walMode:     true,
		foreignKeys: true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, applyDSNPragmas(dsn, cfg))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open database")
	}

	// sqlite supports exactly one writer; a single pooled connection keeps
	// writes serialized and lets WAL readers proceed through their own
	// transactions
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	if err := execPragmas(sqldb, cfg); err != nil {
		sqldb.Close()
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func applyDSNPragmas(dsn string, cfg *storageConfig) string {
	pragmas := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", cfg.busyTimeout.Milliseconds()),
	}
	if cfg.walMode {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	if cfg.foreignKeys {
		pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + strings.Join(pragmas, "&")
}

func execPragmas(db *sql.DB, cfg *storageConfig) error {
	statements := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d;", cfg.busyTimeout.Milliseconds()),
	}
	if cfg.walMode {
		statements = append(statements, "PRAGMA journal_mode = WAL;")
	}
	if cfg.foreignKeys {
		statements = append(statements, "PRAGMA foreign_keys = ON;")
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply database pragma").
				WithMetadata(map[string]any{"pragma": stmt})
		}
	}

	return nil
}

// MemoryDSN is a private in-memory database, one per open handle.
func MemoryDSN() string {
	return "file::memory:?cache=shared"
}

// FileDSN builds a file-backed DSN from a filesystem path.
func FileDSN(path string) string {
	return "file:" + url.PathEscape(path)
}

// CreateTables creates the schema for a fresh database. Production setups
// run the embedded migrations instead; this covers tests and first boot.
func CreateTables(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create accounts table")
	}

	if _, err := db.NewCreateTable().
		Model((*SetupToken)(nil)).
		IfNotExists().
		ForeignKey(`("account_id") REFERENCES "accounts" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create setup_tokens table")
	}

	return nil
}
