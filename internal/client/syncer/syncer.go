// Package syncer drains the local outbox against the remote create-entry
// operation.
//
// A drain walks a snapshot of the outbox in insertion order. Every record is
// attempted at most once per pass: success removes it, failure marks it failed
// and bumps its retry counter until models.MaxRetries, after which it is kept
// for manual attention but never attempted again. A session the server
// rejects stops the pass without touching retry counters. Delivery is at-least-once;
// the entry id travels with every attempt so the server can drop repeats.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/client/storage"
	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/logging"
	"github.com/dmitrijs2005/containertracker/internal/metrics"
)

// DefaultRequestTimeout bounds a single remote call.
const DefaultRequestTimeout = 30 * time.Second

// Outbox is the part of the local store used by the engine.
type Outbox interface {
	ListPending(ctx context.Context) ([]*models.PendingEntry, error)
	UpdatePendingStatus(ctx context.Context, id string, status models.SyncStatus, incrementRetry bool) error
	RemovePending(ctx context.Context, id string) error
	SetLastSync(ctx context.Context, t time.Time) error
}

// EntryCreator sends one entry. An error wrapping common.ErrUnauthorized
// means the session was rejected, not the entry.
type EntryCreator interface {
	CreateEntry(ctx context.Context, token string, fields models.EntryFields) error
}

type EntryLister interface {
	ListEntries(ctx context.Context, token string) ([]*models.CachedEntry, error)
}

// DeletionRequester flags a server entry for removal.
type DeletionRequester interface {
	RequestDeletion(ctx context.Context, token, entryID string) error
}

type CacheWriter interface {
	ReplaceCache(ctx context.Context, entries []*models.CachedEntry) error
}

// TokenSource supplies the current session token without network access.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// OnlineFunc reports current connectivity.
type OnlineFunc func() bool

type Engine struct {
	outbox  Outbox
	remote  EntryCreator
	tokens  TokenSource
	online  OnlineFunc
	timeout time.Duration
	log     logging.Logger
	metrics *metrics.Sync
	now     func() time.Time

	lister  EntryLister
	cache   CacheWriter
	deleter DeletionRequester

	onUnauthorized func(ctx context.Context)

	running atomic.Bool
}

type Option func(*Engine)

// WithOnline lets the engine stop between items once connectivity is lost.
func WithOnline(f OnlineFunc) Option {
	return func(e *Engine) { e.online = f }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Sync) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCache enables RefreshCache.
func WithCache(l EntryLister, c CacheWriter) Option {
	return func(e *Engine) {
		e.lister = l
		e.cache = c
	}
}

// WithDeletionRequests enables RequestDeletion.
func WithDeletionRequests(d DeletionRequester) Option {
	return func(e *Engine) { e.deleter = d }
}

// WithUnauthorized registers f to run when the server rejects the session
// token during a drain.
func WithUnauthorized(f func(ctx context.Context)) Option {
	return func(e *Engine) { e.onUnauthorized = f }
}

func New(outbox Outbox, remote EntryCreator, tokens TokenSource, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		outbox:  outbox,
		remote:  remote,
		tokens:  tokens,
		timeout: DefaultRequestTimeout,
		log:     log.With("module", "syncer"),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Syncing reports whether a drain is in flight.
func (e *Engine) Syncing() bool {
	return e.running.Load()
}

// Drain pushes the outbox to the server once.
//
// Per-item remote failures are counted, not returned. The returned error is
// reserved for local storage failures, which leave retry counters untouched.
// A call made while another drain runs returns Skipped immediately.
func (e *Engine) Drain(ctx context.Context) (models.SyncResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.log.Debug(ctx, "drain already in progress")
		e.metrics.ObserveDrain(0, 0, true, 0)
		return models.SyncResult{Skipped: true}, nil
	}
	defer e.running.Store(false)

	start := e.now()
	res, err := e.drain(ctx)
	e.metrics.ObserveDrain(res.Synced, res.Failed, false, e.now().Sub(start))

	if err != nil {
		e.log.Error(ctx, "drain aborted", "error", err, "synced", res.Synced, "failed", res.Failed)
	} else if res.Synced > 0 || res.Failed > 0 {
		e.log.Info(ctx, "drain finished", "synced", res.Synced, "failed", res.Failed,
			"no_session", res.NoSession, "interrupted", res.Interrupted)
	}
	return res, err
}

func (e *Engine) drain(ctx context.Context) (models.SyncResult, error) {
	var res models.SyncResult

	items, err := e.outbox.ListPending(ctx)
	if err != nil {
		return res, fmt.Errorf("read outbox: %w", err)
	}
	if len(items) == 0 {
		return res, nil
	}

	token, err := e.tokens.Token(ctx)
	if errors.Is(err, storage.ErrStorage) {
		return res, fmt.Errorf("read session: %w", err)
	}
	if err != nil || token == "" {
		e.log.Warn(ctx, "sync blocked: no session", "pending", len(items))
		res.Failed = len(items)
		res.NoSession = true
		return res, nil
	}

	var storeErr error
	for i, item := range items {
		if i > 0 && !e.isOnline() {
			e.log.Info(ctx, "connection lost, stopping drain", "remaining", len(items)-i)
			res.Interrupted = true
			break
		}

		if item.Exhausted() {
			res.Failed++
			continue
		}

		out, err := e.syncOne(ctx, token, item)
		if err != nil {
			storeErr = err
			break
		}
		switch out {
		case synced:
			res.Synced++
		case failed:
			res.Failed++
		case unauthorized:
			e.log.Warn(ctx, "sync blocked: session rejected by server", "remaining", len(items)-i)
			res.Failed += len(items) - i
			res.NoSession = true
		}
		if res.NoSession {
			break
		}
	}

	if res.NoSession && e.onUnauthorized != nil {
		e.onUnauthorized(ctx)
	}

	if res.Synced > 0 {
		if err := e.outbox.SetLastSync(ctx, e.now()); err != nil {
			storeErr = errors.Join(storeErr, fmt.Errorf("record last sync: %w", err))
		}
	}
	return res, storeErr
}

type outcome int

const (
	synced outcome = iota
	failed
	unauthorized
)

// syncOne attempts a single record. The error is non-nil only for local
// storage failures.
func (e *Engine) syncOne(ctx context.Context, token string, item *models.PendingEntry) (outcome, error) {
	log := e.log.With("entry_id", item.ID)

	if err := e.outbox.UpdatePendingStatus(ctx, item.ID, models.SyncStatusSyncing, false); err != nil {
		return failed, fmt.Errorf("mark %s syncing: %w", item.ID, err)
	}

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	err := e.remote.CreateEntry(rctx, token, item.Fields())
	cancel()

	switch {
	case err == nil:
		if err := e.outbox.RemovePending(ctx, item.ID); err != nil {
			return failed, fmt.Errorf("remove synced %s: %w", item.ID, err)
		}
		log.Debug(ctx, "entry synced")
		return synced, nil

	case errors.Is(err, common.ErrUnauthorized):
		prev := item.SyncStatus
		if prev == "" || prev == models.SyncStatusSyncing {
			prev = models.SyncStatusPending
		}
		if err := e.outbox.UpdatePendingStatus(ctx, item.ID, prev, false); err != nil {
			return failed, fmt.Errorf("restore %s: %w", item.ID, err)
		}
		return unauthorized, nil
	}

	log.Warn(ctx, "entry failed to sync", "error", err, "attempt", item.RetryCount+1)
	if err := e.outbox.UpdatePendingStatus(ctx, item.ID, models.SyncStatusFailed, true); err != nil {
		return failed, fmt.Errorf("mark %s failed: %w", item.ID, err)
	}
	return failed, nil
}

func (e *Engine) isOnline() bool {
	return e.online == nil || e.online()
}

var ErrCacheDisabled = errors.New("cache refresh not configured")

// RefreshCache replaces the local cache with the server's entry list.
func (e *Engine) RefreshCache(ctx context.Context) error {
	if e.lister == nil || e.cache == nil {
		return ErrCacheDisabled
	}
	token, err := e.tokens.Token(ctx)
	if err != nil {
		return err
	}

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	entries, err := e.lister.ListEntries(rctx, token)
	cancel()
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	if err := e.cache.ReplaceCache(ctx, entries); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	e.log.Debug(ctx, "cache refreshed", "entries", len(entries))
	return nil
}

var ErrDeletionDisabled = errors.New("deletion requests not configured")

// RequestDeletion asks the server to flag entry id for removal. A rejected
// session is cleared the same way a drain clears it.
func (e *Engine) RequestDeletion(ctx context.Context, id string) error {
	if e.deleter == nil {
		return ErrDeletionDisabled
	}
	token, err := e.tokens.Token(ctx)
	if err != nil {
		return err
	}

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	err = e.deleter.RequestDeletion(rctx, token, id)
	cancel()
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) && e.onUnauthorized != nil {
			e.onUnauthorized(ctx)
		}
		return fmt.Errorf("request deletion: %w", err)
	}
	e.log.Info(ctx, "deletion requested", "id", id)
	return nil
}

// SyncAndRefresh drains the outbox and, when that was possible, refreshes
// the cache.
func (e *Engine) SyncAndRefresh(ctx context.Context) (models.SyncResult, error) {
	res, err := e.Drain(ctx)
	if err != nil || res.Skipped || res.NoSession || res.Interrupted || !e.isOnline() {
		return res, err
	}
	if e.lister == nil || e.cache == nil {
		return res, nil
	}
	return res, e.RefreshCache(ctx)
}
