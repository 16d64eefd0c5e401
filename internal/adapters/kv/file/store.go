package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
)

const (
	storeDirMode    = 0o700
	valueFileMode   = 0o600
	tempFilePattern = ".kv-*.tmp"
)

// Store keeps one file per key under root. Writes go through a temp file and
// a rename so a crash never leaves a half-written value behind.
type Store struct {
	root string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	rootLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.KeyValueStore = (*Store)(nil)

func NewStore(root string) *Store {
	root = filepath.Clean(root)
	return &Store{root: root, mu: lockForRoot(root)}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	if err := writeAtomic(path, value); err != nil {
		return fmt.Errorf("write key %q: %w", key, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("key %q: %w", key, domain.ErrKeyNotFound)
		}
		return nil, fmt.Errorf("read key %q: %w", key, err)
	}

	return data, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete key %q: %w", key, err)
	}

	return nil
}

func (s *Store) pathForKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("store key is empty")
	}

	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") || cleaned == "." {
		return "", fmt.Errorf("invalid store key %q", key)
	}

	return filepath.Join(s.root, cleaned), nil
}

func writeAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tempFile.Chmod(valueFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}

	cleanup = false
	return nil
}

func lockForRoot(root string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := rootLockMap[root]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	rootLockMap[root] = mu
	return mu
}
