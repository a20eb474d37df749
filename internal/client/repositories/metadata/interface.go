// Package metadata stores small key/value records of the local store such as
// the last successful sync time and the persisted session.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyLastSync = "last_sync_at"
	KeySession  = "session"
)

type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
