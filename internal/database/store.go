package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rickgao/barsync/internal/config"
	"github.com/rickgao/barsync/internal/model"
)

// Store is the run-scoped handle to the relational store.
// The caller owns it exclusively and must Close it on every exit path.
type Store struct {
	DB      *sql.DB
	Dialect Dialect

	// pool backs DB when the driver is postgres.
	pool *pgxpool.Pool
}

// Open opens the store selected by cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenReadOnly opens the store selected by cfg for reading. SQLite files
// must already exist.
func OpenReadOnly(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLiteReadOnly(ctx, cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenSQLite opens (creating if needed) a SQLite database file.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == ":memory:" {
		// :memory: databases are per-connection.
		return openSQLite(ctx, path, 1)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	if err := ensureDir(abs); err != nil {
		return nil, err
	}
	return openSQLite(ctx, abs+"?_journal_mode=WAL&_busy_timeout=5000", sqliteMaxConns)
}

// OpenSQLiteReadOnly opens an existing SQLite database file without
// creating it or its directory.
func OpenSQLiteReadOnly(ctx context.Context, path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %w", model.ErrStoreUnavailable, path, err)
	}
	return openSQLite(ctx, "file:"+abs+"?mode=ro&_busy_timeout=5000", sqliteMaxConns)
}

// sqliteMaxConns bounds file-backed pools. WAL lets readers such as health
// checks run beside the sync transaction.
const sqliteMaxConns = 4

func openSQLite(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", model.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %w", model.ErrStoreUnavailable, err)
	}

	return &Store{DB: db, Dialect: SQLite}, nil
}

// OpenPostgres connects a pool and wraps it as a *sql.DB.
func OpenPostgres(ctx context.Context, cfg config.DBConfig) (*Store, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %w", model.ErrStoreUnavailable, err)
	}
	return &Store{
		DB:      stdlib.OpenDBFromPool(pool),
		Dialect: Postgres,
		pool:    pool,
	}, nil
}

// Connect creates a single connection pool.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Close releases the handle.
func (s *Store) Close() error {
	err := s.DB.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping %s: %w", model.ErrStoreUnavailable, s.Dialect, err)
	}
	return nil
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", model.ErrStoreUnavailable, err)
	}
	return tx, nil
}

// Rebind rewrites a ? query for this store's dialect.
func (s *Store) Rebind(query string) string {
	return s.Dialect.Rebind(query)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
