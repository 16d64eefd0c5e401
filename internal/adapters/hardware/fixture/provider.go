// Package fixture serves a hardware snapshot pinned in a TOML file. Nodes
// whose hardware cannot be probed (containers, locked-down hosts) use it, and
// so do the CLI scripts.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/nodetel/internal/application"
	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
)

type Provider struct {
	path  string
	clock ports.Clock
}

var _ ports.HardwareFactsProvider = (*Provider)(nil)

func NewProvider(path string, clock ports.Clock) (*Provider, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("snapshot file path is required")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Provider{path: filepath.Clean(path), clock: clock}, nil
}

func (p *Provider) Path() string {
	return p.path
}

// Collect rereads the file on every call so edits show up on the next round.
func (p *Provider) Collect(ctx context.Context) (domain.HardwareSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.HardwareSnapshot{}, err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return domain.HardwareSnapshot{}, fmt.Errorf("%w: read snapshot file: %v", domain.ErrHardwareUnavailable, err)
	}

	snapshot, err := application.DecodeSnapshotTOML(data)
	if err != nil {
		return domain.HardwareSnapshot{}, fmt.Errorf("%w: %v", domain.ErrHardwareUnavailable, err)
	}
	if snapshot.CollectedAt.IsZero() {
		snapshot.CollectedAt = p.clock.Now()
	}

	return snapshot, nil
}

// Write pins a snapshot to path, replacing the file atomically.
func Write(path string, snapshot domain.HardwareSnapshot) error {
	data, err := application.EncodeSnapshotTOML(snapshot)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}

	return nil
}
