// Package sqlite is a KeyValueStore over a single SQLite table, for nodes
// that prefer one database file to a directory tree.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"
)

const (
	driverName       = "sqlite"
	memoryPath       = ":memory:"
	dbDirMode        = 0o700
	busyTimeoutMS    = 5_000
	maxBusyRetries   = 3
	busyRetryBackoff = 50 * time.Millisecond
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

type Store struct {
	db   *sql.DB
	path string
}

var _ ports.KeyValueStore = (*Store)(nil)

// Open opens or creates the database at path with WAL journaling and a busy
// timeout, then makes sure the kv table exists.
func Open(path string) (*Store, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), dbDirMode); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == memoryPath {
		// Every connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range append(pragmas, schema) {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare database %s: %w", path, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var value []byte
	err := withBusyRetry(ctx, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("key %q: %w", key, domain.ErrKeyNotFound)
		}
		return nil, fmt.Errorf("read key %q: %w", key, err)
	}

	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	err := withBusyRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, time.Now().UTC().Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("write key %q: %w", key, err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := withBusyRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete key %q: %w", key, err)
	}

	return nil
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("store key is empty")
	}
	return nil
}

// withBusyRetry retries op while SQLite reports the database as locked.
// Any other error is returned on the first attempt.
func withBusyRetry(ctx context.Context, op func(context.Context) error) error {
	backoff := retry.NewFibonacci(busyRetryBackoff)
	backoff = retry.WithMaxRetries(maxBusyRetries, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
