package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/dbx"
)

const selectColumns = `SELECT id, container_number, second_container_number, size, container_image,
	license_plate_number, entry_type, user_id, user_name, created_at, sync_status, retry_count
	FROM pending_entries`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, e *models.PendingEntry) error {
	query := `INSERT INTO pending_entries (id, container_number, second_container_number, size,
			container_image, license_plate_number, entry_type, user_id, user_name, created_at,
			sync_status, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.ContainerNumber, e.SecondContainerNumber, string(e.Size), e.ContainerImage,
		e.LicensePlateNumber, string(e.EntryType), e.UserID, e.UserName, dbx.FormatTime(e.CreatedAt),
		string(models.SyncStatusPending))
	if err != nil {
		return fmt.Errorf("failed to insert pending entry %s: %w", e.ID, err)
	}
	e.SyncStatus = models.SyncStatusPending
	e.RetryCount = 0
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.PendingEntry, error) {
	res, err := dbx.QueryAll(ctx, r.db, scanEntry, selectColumns+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}
	return res, nil
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, status models.SyncStatus) ([]*models.PendingEntry, error) {
	res, err := dbx.QueryAll(ctx, r.db, scanEntry, selectColumns+` WHERE sync_status = ? ORDER BY seq`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", status, err)
	}
	return res, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.PendingEntry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending entry %s: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status models.SyncStatus, incrementRetry bool) error {
	inc := 0
	if incrementRetry {
		inc = 1
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE pending_entries SET sync_status = ?, retry_count = MIN(retry_count + ?, ?) WHERE id = ?`,
		string(status), inc, models.MaxRetries, id)
	if err != nil {
		return fmt.Errorf("failed to update pending entry %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending entry %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending entries: %w", err)
	}
	return n, nil
}

func scanEntry(s dbx.Scanner) (*models.PendingEntry, error) {
	var (
		e                          models.PendingEntry
		size, typ, status, created string
	)
	err := s.Scan(&e.ID, &e.ContainerNumber, &e.SecondContainerNumber, &size, &e.ContainerImage,
		&e.LicensePlateNumber, &typ, &e.UserID, &e.UserName, &created, &status, &e.RetryCount)
	if err != nil {
		return nil, err
	}
	if e.CreatedAt, err = dbx.ParseTime(created); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	e.Size = models.ContainerSize(size)
	e.EntryType = models.EntryType(typ)
	e.SyncStatus = models.SyncStatus(status)
	return &e, nil
}
