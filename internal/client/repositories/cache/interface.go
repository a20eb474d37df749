// Package cache holds the read-through copy of server-confirmed entries used
// for instant list rendering.
package cache

import (
	"context"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
)

// Repository operates on the cached_entries table. A full replace is done by
// calling DeleteAll and Insert on a repository bound to one transaction.
type Repository interface {
	DeleteAll(ctx context.Context) error
	Insert(ctx context.Context, e *models.CachedEntry) error
	// List returns all rows, newest first.
	List(ctx context.Context) ([]*models.CachedEntry, error)
}
