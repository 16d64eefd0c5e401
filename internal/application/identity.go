package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
	"github.com/google/uuid"
)

const nodeIDKey = "node/id"

// NodeID returns the persisted node identity, minting one on first use.
func NodeID(ctx context.Context, store ports.KeyValueStore) (string, error) {
	data, err := store.Get(ctx, nodeIDKey)
	switch {
	case err == nil:
		if id, parseErr := uuid.ParseBytes([]byte(strings.TrimSpace(string(data)))); parseErr == nil {
			return id.String(), nil
		}
	case !errors.Is(err, domain.ErrKeyNotFound):
		return "", fmt.Errorf("load node id: %w", err)
	}

	id := uuid.NewString()
	if err := store.Set(ctx, nodeIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("save node id: %w", err)
	}

	return id, nil
}
