package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/client/repositories/cache"
	"github.com/dmitrijs2005/containertracker/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/containertracker/internal/client/repositories/pending"
	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/dbx"
)

var ErrStorage = errors.New("local storage error")

func wrap(err error) error {
	if err == nil || errors.Is(err, ErrStorage) || errors.Is(err, common.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Store is the facade over the local repositories.
type Store struct {
	db       *sql.DB
	pending  pending.Repository
	cache    cache.Repository
	metadata metadata.Repository
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{
		db:       db,
		pending:  pending.NewSQLiteRepository(db),
		cache:    cache.NewSQLiteRepository(db),
		metadata: metadata.NewSQLiteRepository(db),
	}
}

func (s *Store) Close() error {
	return wrap(s.db.Close())
}

// AddPending stores e in the outbox with status pending and zero retries.
func (s *Store) AddPending(ctx context.Context, e *models.PendingEntry) error {
	return wrap(s.pending.Add(ctx, e))
}

func (s *Store) ListPending(ctx context.Context) ([]*models.PendingEntry, error) {
	res, err := s.pending.List(ctx)
	return res, wrap(err)
}

func (s *Store) ListPendingByStatus(ctx context.Context, status models.SyncStatus) ([]*models.PendingEntry, error) {
	res, err := s.pending.ListByStatus(ctx, status)
	return res, wrap(err)
}

// GetPending returns common.ErrNotFound for unknown ids.
func (s *Store) GetPending(ctx context.Context, id string) (*models.PendingEntry, error) {
	res, err := s.pending.Get(ctx, id)
	return res, wrap(err)
}

// UpdatePendingStatus silently ignores records that no longer exist.
func (s *Store) UpdatePendingStatus(ctx context.Context, id string, status models.SyncStatus, incrementRetry bool) error {
	return wrap(s.pending.UpdateStatus(ctx, id, status, incrementRetry))
}

func (s *Store) RemovePending(ctx context.Context, id string) error {
	return wrap(s.pending.Remove(ctx, id))
}

func (s *Store) CountPending(ctx context.Context) (int, error) {
	n, err := s.pending.Count(ctx)
	return n, wrap(err)
}

// ReplaceCache swaps the whole cache for entries in one transaction.
func (s *Store) ReplaceCache(ctx context.Context, entries []*models.CachedEntry) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := cache.NewSQLiteRepository(tx)
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		for _, e := range entries {
			if err := repo.Insert(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err)
}

// GetCache returns the cached entries, newest first.
func (s *Store) GetCache(ctx context.Context) ([]*models.CachedEntry, error) {
	res, err := s.cache.List(ctx)
	return res, wrap(err)
}

func (s *Store) SetLastSync(ctx context.Context, t time.Time) error {
	return wrap(s.metadata.Set(ctx, metadata.KeyLastSync, []byte(dbx.FormatTime(t))))
}

// GetLastSync reports false when no drain has ever synced anything.
func (s *Store) GetLastSync(ctx context.Context) (time.Time, bool, error) {
	v, err := s.metadata.Get(ctx, metadata.KeyLastSync)
	if err != nil {
		return time.Time{}, false, wrap(err)
	}
	if v == nil {
		return time.Time{}, false, nil
	}
	t, err := dbx.ParseTime(string(v))
	if err != nil {
		return time.Time{}, false, wrap(fmt.Errorf("bad %s value: %w", metadata.KeyLastSync, err))
	}
	return t, true, nil
}

// GetMeta returns (nil, nil) for absent keys.
func (s *Store) GetMeta(ctx context.Context, key string) ([]byte, error) {
	v, err := s.metadata.Get(ctx, key)
	return v, wrap(err)
}

func (s *Store) SetMeta(ctx context.Context, key string, value []byte) error {
	return wrap(s.metadata.Set(ctx, key, value))
}

func (s *Store) DeleteMeta(ctx context.Context, key string) error {
	return wrap(s.metadata.Delete(ctx, key))
}
