package ports

import "context"

// KeyValueStore is last-write-wins byte storage. Get returns
// domain.ErrKeyNotFound when the key was never written or was deleted.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
