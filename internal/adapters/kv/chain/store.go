package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/nodetel/internal/adapters/kv/file"
	sqlitestore "github.com/bnema/nodetel/internal/adapters/kv/sqlite"
	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
)

// Store reads and writes through primary and falls back to fallback when the
// primary backend fails or does not have the key.
type Store struct {
	primary  ports.KeyValueStore
	fallback ports.KeyValueStore
}

var _ ports.KeyValueStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary store is nil")
	errNilFallbackStore = errors.New("fallback store is nil")
)

func NewStore(primary ports.KeyValueStore, fallback ports.KeyValueStore) *Store {
	store, err := NewStoreChecked(primary, fallback)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.KeyValueStore, fallback ports.KeyValueStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

// NewSQLiteFirstWithFileFallback opens dbPath as the primary backend and uses
// a file tree under fileRoot as the fallback. When the database cannot be
// opened at all the file store is returned on its own.
func NewSQLiteFirstWithFileFallback(dbPath string, fileRoot string) (ports.KeyValueStore, func() error, error) {
	files := filestore.NewStore(fileRoot)

	db, err := sqlitestore.Open(dbPath)
	if err != nil {
		return files, func() error { return nil }, fmt.Errorf("open sqlite store, using file store only: %w", err)
	}

	store, err := NewStoreChecked(db, files)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return store, db.Close, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	err := s.primary.Set(ctx, key, value)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Set(ctx, key, value)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend set failed: %w; fallback backend set failed: %w", err, fallbackErr)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return nil, err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}
	if errors.Is(err, domain.ErrKeyNotFound) && errors.Is(fallbackErr, domain.ErrKeyNotFound) {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrKeyNotFound)
	}

	return nil, fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

// Delete removes the key from both backends so a stale fallback copy cannot
// resurface after an invalidation.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if shouldSkipFallback(err) {
		return err
	}

	var errs []error
	if err != nil {
		errs = append(errs, fmt.Errorf("primary backend delete failed: %w", err))
	}
	if fallbackErr := s.fallback.Delete(ctx, key); fallbackErr != nil {
		errs = append(errs, fmt.Errorf("fallback backend delete failed: %w", fallbackErr))
	}

	return errors.Join(errs...)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
