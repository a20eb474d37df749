package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/containertracker/internal/client/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`
CREATE TABLE cached_entries (
    id TEXT PRIMARY KEY,
    container_number TEXT NOT NULL,
    second_container_number TEXT NOT NULL DEFAULT '',
    size TEXT NOT NULL,
    user_name TEXT NOT NULL,
    user_id TEXT NOT NULL,
    created_at TEXT NOT NULL,
    container_image TEXT NOT NULL DEFAULT '',
    license_plate_number TEXT NOT NULL DEFAULT '',
    entry_type TEXT NOT NULL,
    deletion_requested INTEGER NOT NULL DEFAULT 0
);`)
	require.NoError(t, err)
	return db
}

func entry(id string, created time.Time) *models.CachedEntry {
	return &models.CachedEntry{
		ID:                 id,
		ContainerNumber:    "TGHU" + id,
		Size:               models.Size20ft,
		UserName:           "Yaw",
		UserID:             "u-9",
		CreatedAt:          created,
		LicensePlateNumber: "AS555",
		EntryType:          models.EntryTypeClearing,
	}
}

func TestInsertAndList_NewestFirst(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	old := entry("1", base)
	mid := entry("2", base.Add(time.Hour))
	mid.DeletionRequested = true
	newest := entry("3", base.Add(2*time.Hour))

	for _, e := range []*models.CachedEntry{mid, old, newest} {
		require.NoError(t, r.Insert(ctx, e))
	}

	got, err := r.List(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]*models.CachedEntry{newest, mid, old}, got); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteAll(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, entry("1", time.Now())))
	require.NoError(t, r.DeleteAll(ctx))

	got, err := r.List(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestInsert_DuplicateFails(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, entry("1", time.Now())))
	require.ErrorContains(t, r.Insert(ctx, entry("1", time.Now())), "failed to insert cached entry 1")
}
