// Package pending persists the outbox: container entries captured locally
// that have not yet been confirmed by the server.
package pending

import (
	"context"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
)

// Repository describes outbox operations. Records are returned in insertion
// order.
type Repository interface {
	// Add inserts a new record with status pending and zero retries.
	Add(ctx context.Context, e *models.PendingEntry) error

	List(ctx context.Context) ([]*models.PendingEntry, error)
	ListByStatus(ctx context.Context, status models.SyncStatus) ([]*models.PendingEntry, error)

	// Get returns common.ErrNotFound when the id is unknown.
	Get(ctx context.Context, id string) (*models.PendingEntry, error)

	// UpdateStatus is a no-op when the record is gone. The retry counter
	// never grows past models.MaxRetries.
	UpdateStatus(ctx context.Context, id string, status models.SyncStatus, incrementRetry bool) error

	// Remove is idempotent.
	Remove(ctx context.Context, id string) error

	Count(ctx context.Context) (int, error)
}
