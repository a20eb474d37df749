package cache

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cached_entries`); err != nil {
		return fmt.Errorf("failed to clear cached entries: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.CachedEntry) error {
	query := `INSERT INTO cached_entries (id, container_number, second_container_number, size,
			user_name, user_id, created_at, container_image, license_plate_number, entry_type,
			deletion_requested)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.ContainerNumber, e.SecondContainerNumber, string(e.Size), e.UserName, e.UserID,
		dbx.FormatTime(e.CreatedAt), e.ContainerImage, e.LicensePlateNumber, string(e.EntryType),
		e.DeletionRequested)
	if err != nil {
		return fmt.Errorf("failed to insert cached entry %s: %w", e.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.CachedEntry, error) {
	query := `SELECT id, container_number, second_container_number, size, user_name, user_id,
			created_at, container_image, license_plate_number, entry_type, deletion_requested
		FROM cached_entries ORDER BY created_at DESC, id`
	res, err := dbx.QueryAll(ctx, r.db, scanEntry, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached entries: %w", err)
	}
	return res, nil
}

func scanEntry(s dbx.Scanner) (*models.CachedEntry, error) {
	var (
		e                  models.CachedEntry
		size, typ, created string
	)
	err := s.Scan(&e.ID, &e.ContainerNumber, &e.SecondContainerNumber, &size, &e.UserName, &e.UserID,
		&created, &e.ContainerImage, &e.LicensePlateNumber, &typ, &e.DeletionRequested)
	if err != nil {
		return nil, err
	}
	if e.CreatedAt, err = dbx.ParseTime(created); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	e.Size = models.ContainerSize(size)
	e.EntryType = models.EntryType(typ)
	return &e, nil
}
