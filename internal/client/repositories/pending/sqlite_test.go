package pending

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/common"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE pending_entries (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    container_number TEXT NOT NULL,
    second_container_number TEXT NOT NULL DEFAULT '',
    size TEXT NOT NULL,
    container_image TEXT NOT NULL DEFAULT '',
    license_plate_number TEXT NOT NULL DEFAULT '',
    entry_type TEXT NOT NULL,
    user_id TEXT NOT NULL,
    user_name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    sync_status TEXT NOT NULL DEFAULT 'pending',
    retry_count INTEGER NOT NULL DEFAULT 0
);`

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

func newEntry(id string) *models.PendingEntry {
	return &models.PendingEntry{
		ID:                 id,
		ContainerNumber:    "MSCU1234567",
		Size:               models.Size40ft,
		LicensePlateNumber: "GR1234",
		EntryType:          models.EntryTypeReceiving,
		UserID:             "u-1",
		UserName:           "Ama",
		CreatedAt:          time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC),
	}
}

func TestAdd_ForcesPendingAndZeroRetries(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := newEntry("e-1")
	e.SyncStatus = models.SyncStatusFailed
	e.RetryCount = 2
	require.NoError(t, r.Add(ctx, e))

	got, err := r.Get(ctx, "e-1")
	require.NoError(t, err)

	want := newEntry("e-1")
	want.SyncStatus = models.SyncStatusPending
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("stored entry mismatch (-want +got):\n%s", diff)
	}
}

func TestAdd_DuplicateIDFails(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, newEntry("dup")))
	err := r.Add(ctx, newEntry("dup"))
	require.ErrorContains(t, err, "failed to insert pending entry dup")
}

func TestList_PreservesInsertionOrder(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		require.NoError(t, r.Add(ctx, newEntry(id)))
	}

	got, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, id := range ids {
		assert.Equal(t, id, got[i].ID)
	}
}

func TestListByStatus_Filters(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for i := range 3 {
		require.NoError(t, r.Add(ctx, newEntry(fmt.Sprintf("e-%d", i))))
	}
	require.NoError(t, r.UpdateStatus(ctx, "e-1", models.SyncStatusFailed, true))

	failed, err := r.ListByStatus(ctx, models.SyncStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "e-1", failed[0].ID)
	assert.Equal(t, 1, failed[0].RetryCount)

	pend, err := r.ListByStatus(ctx, models.SyncStatusPending)
	require.NoError(t, err)
	assert.Len(t, pend, 2)
}

func TestUpdateStatus_MissingRowIsNoop(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	require.NoError(t, r.UpdateStatus(context.Background(), "ghost", models.SyncStatusFailed, true))
}

func TestUpdateStatus_RetryNeverExceedsCeiling(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Add(ctx, newEntry("e")))

	for range models.MaxRetries + 3 {
		require.NoError(t, r.UpdateStatus(ctx, "e", models.SyncStatusFailed, true))
	}

	got, err := r.Get(ctx, "e")
	require.NoError(t, err)
	assert.Equal(t, models.MaxRetries, got.RetryCount)
	assert.Equal(t, models.SyncStatusFailed, got.SyncStatus)
}

func TestUpdateStatus_WithoutIncrementKeepsRetries(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Add(ctx, newEntry("e")))
	require.NoError(t, r.UpdateStatus(ctx, "e", models.SyncStatusFailed, true))
	require.NoError(t, r.UpdateStatus(ctx, "e", models.SyncStatusSyncing, false))

	got, err := r.Get(ctx, "e")
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, models.SyncStatusSyncing, got.SyncStatus)
}

func TestRemove_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Add(ctx, newEntry("e")))

	require.NoError(t, r.Remove(ctx, "e"))
	require.NoError(t, r.Remove(ctx, "e"))

	_, err := r.Get(ctx, "e")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCount(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, r.Add(ctx, newEntry("a")))
	require.NoError(t, r.Add(ctx, newEntry("b")))

	n, err = r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRepository_DBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.List(ctx)
	require.ErrorContains(t, err, "failed to list pending entries")
	_, err = r.Count(ctx)
	require.ErrorContains(t, err, "failed to count pending entries")
	err = r.UpdateStatus(ctx, "x", models.SyncStatusFailed, true)
	require.ErrorContains(t, err, "failed to update pending entry x")
	err = r.Remove(ctx, "x")
	require.ErrorContains(t, err, "failed to delete pending entry x")
}
