package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/containertracker/internal/client/capture"
	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/client/remote"
	"github.com/dmitrijs2005/containertracker/internal/client/status"
	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/logging"
	"github.com/dmitrijs2005/containertracker/internal/rpc"
)

type fakeSessions struct {
	cur      *models.Session
	loginErr error
	gotName  string
	gotCode  string
}

func (f *fakeSessions) Login(_ context.Context, name, code string) (*models.Session, error) {
	f.gotName, f.gotCode = name, code
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.cur = &models.Session{ID: "u-1", Name: name, Token: "tok"}
	return f.cur, nil
}

func (f *fakeSessions) Logout(context.Context) error {
	f.cur = nil
	return nil
}

func (f *fakeSessions) Current() *models.Session { return f.cur }

type fakeCapture struct {
	drafts []capture.Draft
	ocr    map[string]string
	kinds  []string
	err    error
}

func (f *fakeCapture) Extract(_ context.Context, kind, _ string) (string, bool) {
	f.kinds = append(f.kinds, kind)
	text, ok := f.ocr[kind]
	return text, ok
}

func (f *fakeCapture) Submit(_ context.Context, d capture.Draft) (*models.PendingEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.drafts = append(f.drafts, d)
	return &models.PendingEntry{ID: "id-1", ContainerNumber: strings.ToUpper(d.ContainerNumber)}, nil
}

type fakeStore struct {
	pending []*models.PendingEntry
	cache   []*models.CachedEntry
	removed []string
}

func (f *fakeStore) ListPending(context.Context) ([]*models.PendingEntry, error) { return f.pending, nil }
func (f *fakeStore) GetCache(context.Context) ([]*models.CachedEntry, error) { return f.cache, nil }

func (f *fakeStore) GetPending(_ context.Context, id string) (*models.PendingEntry, error) {
	for _, e := range f.pending {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeStore) RemovePending(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return nil
}

type fakeStatus struct {
	view      status.View
	res       models.SyncResult
	err       error
	syncs     int
	refreshes int
}

func (f *fakeStatus) View() status.View { return f.view }
func (f *fakeStatus) Refresh(context.Context) error { f.refreshes++; return nil }
func (f *fakeStatus) SyncNow(context.Context) (models.SyncResult, error) {
	f.syncs++
	return f.res, f.err
}

type fakeServer struct {
	refreshErr error
	deleteErr  error
	refreshes  int
	deleted    []string
}

func (f *fakeServer) RefreshCache(context.Context) error {
	f.refreshes++
	return f.refreshErr
}

func (f *fakeServer) RequestDeletion(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fixture struct {
	app      *App
	out      *bytes.Buffer
	sessions *fakeSessions
	capture  *fakeCapture
	store    *fakeStore
	status   *fakeStatus
	server   *fakeServer
	online   bool
}

func newFixture(t *testing.T, input string) *fixture {
	t.Helper()
	old := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = old })

	f := &fixture{
		out:      &bytes.Buffer{},
		sessions: &fakeSessions{},
		capture:  &fakeCapture{ocr: map[string]string{}},
		store:    &fakeStore{},
		status:   &fakeStatus{},
		server:   &fakeServer{},
	}
	f.app = NewApp(f.sessions, f.capture, f.store, f.status, f.server,
		func() bool { return f.online }, logging.Discard(), strings.NewReader(input), f.out)
	f.app.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestLogin(t *testing.T) {
	f := newFixture(t, "Ama Mensah\nab12c\n")
	require.NoError(t, f.app.Login(context.Background()))
	assert.Equal(t, "Ama Mensah", f.sessions.gotName)
	assert.Equal(t, "AB12C", f.sessions.gotCode)
	assert.Contains(t, f.out.String(), "Welcome, Ama Mensah")
	assert.True(t, f.app.isLoggedIn())
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{remote.ErrUnavailable, "needs a connection"},
		{remote.ErrRateLimited, "Too many login attempts"},
		{remote.ErrUnauthorized, "Invalid name or code"},
		{models.ErrValidation, "validation failed"},
	}
	for _, tt := range tests {
		f := newFixture(t, "Ama\nAB12C\n")
		f.sessions.loginErr = tt.err
		require.ErrorIs(t, f.app.Login(context.Background()), tt.err)
		assert.Contains(t, f.out.String(), tt.want)
	}
}

func TestAdd_RequiresLogin(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.app.Add(context.Background()))
	assert.Contains(t, f.out.String(), "Please login first")
	assert.Empty(t, f.capture.drafts)
}

func TestAdd_OfflineQueues(t *testing.T) {
	f := newFixture(t, strings.Join([]string{"", "mscu1234567", "", "2", "1", "", "GR 1234"}, "\n")+"\n")
	f.sessions.cur = &models.Session{ID: "u-1", Name: "Ama"}

	require.NoError(t, f.app.Add(context.Background()))
	require.Len(t, f.capture.drafts, 1)
	d := f.capture.drafts[0]
	assert.Equal(t, "mscu1234567", d.ContainerNumber)
	assert.Empty(t, d.SecondContainerNumber)
	assert.Equal(t, "40ft", d.Size)
	assert.Equal(t, "receiving", d.EntryType)
	assert.Equal(t, "GR 1234", d.LicensePlateNumber)
	assert.Empty(t, d.ContainerImage)

	assert.Contains(t, f.out.String(), "Saved MSCU1234567 locally")
	assert.Contains(t, f.out.String(), "Offline")
	assert.Zero(t, f.status.syncs)
	assert.Equal(t, 1, f.status.refreshes)
}

func TestAdd_UsesOCRSuggestionsAndSyncsOnline(t *testing.T) {
	old := loadImageFile
	loadImageFile = func(path string) (string, error) { return "data:image/png;base64,AAAA", nil }
	t.Cleanup(func() { loadImageFile = old })

	f := newFixture(t, strings.Join([]string{"box.png", "", "", "1", "clearing", "plate.png", ""}, "\n")+"\n")
	f.sessions.cur = &models.Session{ID: "u-1", Name: "Ama"}
	f.capture.ocr[rpc.KindContainerNumber] = "MSCU1234567"
	f.capture.ocr[rpc.KindLicensePlate] = "GR1234"
	f.online = true
	f.status.res = models.SyncResult{Synced: 1}

	require.NoError(t, f.app.Add(context.Background()))
	require.Len(t, f.capture.drafts, 1)
	d := f.capture.drafts[0]
	assert.Equal(t, "MSCU1234567", d.ContainerNumber)
	assert.Equal(t, "GR1234", d.LicensePlateNumber)
	assert.Equal(t, "20ft", d.Size)
	assert.Equal(t, "clearing", d.EntryType)
	assert.Equal(t, "data:image/png;base64,AAAA", d.ContainerImage)
	assert.Equal(t, []string{rpc.KindContainerNumber, rpc.KindLicensePlate}, f.capture.kinds)

	assert.Equal(t, 1, f.status.syncs)
	assert.Contains(t, f.out.String(), "Synced 1 offline entry")
}

func TestAdd_ValidationError(t *testing.T) {
	f := newFixture(t, strings.Join([]string{"", "", "", "1", "1", "", ""}, "\n")+"\n")
	f.sessions.cur = &models.Session{ID: "u-1", Name: "Ama"}
	f.capture.err = models.ErrValidation

	require.ErrorIs(t, f.app.Add(context.Background()), models.ErrValidation)
	assert.Contains(t, f.out.String(), "validation failed")
}

func TestOutboxAndDiscard(t *testing.T) {
	f := newFixture(t, "")
	created := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	f.store.pending = []*models.PendingEntry{
		{ID: "a", ContainerNumber: "MSCU1", EntryType: models.EntryTypeReceiving, SyncStatus: models.SyncStatusPending, CreatedAt: created},
		{ID: "b", ContainerNumber: "MSCU2", EntryType: models.EntryTypeClearing, SyncStatus: models.SyncStatusFailed, RetryCount: models.MaxRetries, CreatedAt: created},
	}
	ctx := context.Background()

	require.NoError(t, f.app.Outbox(ctx))
	s := f.out.String()
	assert.Contains(t, s, "MSCU1")
	assert.Contains(t, s, "failed (gave up)")
	assert.Contains(t, s, "3/3")
	assert.Contains(t, s, "1 hour ago")

	require.NoError(t, f.app.Discard(ctx, "b"))
	assert.Equal(t, []string{"b"}, f.store.removed)
	assert.Contains(t, f.out.String(), "Discarded MSCU2")

	require.ErrorIs(t, f.app.Discard(ctx, "zzz"), common.ErrNotFound)
	assert.Contains(t, f.out.String(), "No such entry: zzz")
}

func TestList(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.app.List(context.Background()))
	assert.Contains(t, f.out.String(), "No entries cached")

	f.store.cache = []*models.CachedEntry{{
		ID: "s-1", ContainerNumber: "TGHU7654321", Size: models.Size45ft, EntryType: models.EntryTypeClearing,
		UserName: "Kofi", CreatedAt: time.Date(2024, 5, 1, 11, 58, 0, 0, time.UTC),
	}}
	require.NoError(t, f.app.List(context.Background()))
	s := f.out.String()
	assert.Contains(t, s, "TGHU7654321")
	assert.Contains(t, s, "Kofi")
	assert.Contains(t, s, "2 minutes ago")
	assert.Contains(t, s, "s-1")
	assert.NotContains(t, s, "requested")

	f.store.cache[0].DeletionRequested = true
	f.out.Reset()
	require.NoError(t, f.app.List(context.Background()))
	assert.Contains(t, f.out.String(), "requested")
}

func TestSync(t *testing.T) {
	f := newFixture(t, "")
	f.status.err = status.ErrOffline
	require.NoError(t, f.app.Sync(context.Background()))
	assert.Contains(t, f.out.String(), "entries stay queued")

	f.status.err = nil
	f.status.res = models.SyncResult{Skipped: true}
	require.NoError(t, f.app.Sync(context.Background()))
	assert.Contains(t, f.out.String(), "Sync already in progress")

	f.status.err = errors.New("disk I/O error")
	require.Error(t, f.app.Sync(context.Background()))
	assert.Contains(t, f.out.String(), "Sync failed")
}

func TestStatus(t *testing.T) {
	f := newFixture(t, "")
	f.status.view = status.View{Mode: status.ModeHidden, LastSync: time.Date(2024, 5, 1, 11, 55, 0, 0, time.UTC)}
	require.NoError(t, f.app.Status(context.Background()))
	assert.Contains(t, f.out.String(), "all entries synced (last synced 5 minutes ago)")

	f.status.view = status.View{Visible: true, Mode: status.ModeOffline, Pending: 2}
	require.NoError(t, f.app.Status(context.Background()))
	assert.Contains(t, f.out.String(), "Offline mode (2 queued)")
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.app.Refresh(context.Background()))
	assert.Contains(t, f.out.String(), "Offline")

	f.online = true
	require.NoError(t, f.app.Refresh(context.Background()))
	assert.Contains(t, f.out.String(), "Entries refreshed")
}

func TestRequestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	require.NoError(t, f.app.RequestDelete(ctx, ""))
	assert.Contains(t, f.out.String(), "Usage: request-delete <id>")

	require.NoError(t, f.app.RequestDelete(ctx, "srv-1"))
	assert.Contains(t, f.out.String(), "need a connection")
	assert.Empty(t, f.server.deleted)

	f.online = true
	require.NoError(t, f.app.RequestDelete(ctx, "srv-1"))
	assert.Equal(t, []string{"srv-1"}, f.server.deleted)
	assert.Equal(t, 1, f.server.refreshes, "cache reloaded after the request")
	assert.Contains(t, f.out.String(), "Deletion requested for srv-1")
}

func TestRequestDelete_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("request deletion: %w", remote.ErrNotFound), "No such entry on the server"},
		{fmt.Errorf("request deletion: %w", remote.ErrUnauthorized), "log in again"},
		{fmt.Errorf("request deletion: %w", remote.ErrUnavailable), "Deletion request failed"},
	}
	for _, tt := range tests {
		f := newFixture(t, "")
		f.online = true
		f.server.deleteErr = tt.err
		require.ErrorIs(t, f.app.RequestDelete(context.Background(), "srv-1"), tt.err)
		assert.Contains(t, f.out.String(), tt.want)
		assert.Zero(t, f.server.refreshes)
	}
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, "(offline)", f.app.getStatus())
	f.online = true
	f.sessions.cur = &models.Session{Name: "Ama"}
	assert.Equal(t, "(Ama online)", f.app.getStatus())
}
