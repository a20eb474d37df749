// Package status keeps the sync status line of the client up to date.
package status

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/client/network"
	"github.com/dmitrijs2005/containertracker/internal/logging"
	"github.com/dmitrijs2005/containertracker/internal/metrics"
)

// DefaultPollInterval is how often the store counters are re-read.
const DefaultPollInterval = 5 * time.Second

var ErrOffline = errors.New("offline")

type Store interface {
	CountPending(ctx context.Context) (int, error)
	GetLastSync(ctx context.Context) (time.Time, bool, error)
}

type Drainer interface {
	Drain(ctx context.Context) (models.SyncResult, error)
	Syncing() bool
}

type Connectivity interface {
	State() network.State
	OnChange(fn func(network.State)) (unsubscribe func())
}

type Mode string

const (
	ModeHidden     Mode = "hidden"
	ModePending    Mode = "pending"
	ModeBackOnline Mode = "back-online"
	ModeOffline    Mode = "offline"
)

type View struct {
	Visible  bool
	Mode     Mode
	Pending  int
	LastSync time.Time
	Syncing  bool
}

type Indicator struct {
	store    Store
	drainer  Drainer
	net      Connectivity
	log      logging.Logger
	metrics  *metrics.Sync
	interval time.Duration
	onSync   func(models.SyncResult, error)

	mu       sync.Mutex
	pending  int
	lastSync time.Time
	syncing  bool
	subs     []func(View)
	// stopped is set under mu before Run waits for auto syncs, so a late
	// listener call cannot add to wg.
	stopped bool

	wg sync.WaitGroup
}

type Option func(*Indicator)

func WithInterval(d time.Duration) Option {
	return func(i *Indicator) {
		if d > 0 {
			i.interval = d
		}
	}
}

func WithMetrics(m *metrics.Sync) Option {
	return func(i *Indicator) { i.metrics = m }
}

// WithSyncHook is called after every drain started by a reconnect.
func WithSyncHook(fn func(models.SyncResult, error)) Option {
	return func(i *Indicator) { i.onSync = fn }
}

func New(store Store, drainer Drainer, net Connectivity, log logging.Logger, opts ...Option) *Indicator {
	i := &Indicator{
		store:    store,
		drainer:  drainer,
		net:      net,
		log:      log.With("module", "status"),
		interval: DefaultPollInterval,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// OnUpdate registers fn for every change of the view.
func (i *Indicator) OnUpdate(fn func(View)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.subs = append(i.subs, fn)
}

func (i *Indicator) View() View {
	st := i.net.State()
	i.mu.Lock()
	defer i.mu.Unlock()
	return buildView(st, i.pending, i.lastSync, i.syncing || i.drainer.Syncing())
}

func buildView(st network.State, pending int, last time.Time, syncing bool) View {
	v := View{Pending: pending, LastSync: last, Syncing: syncing, Visible: true}
	switch {
	case st == network.Offline:
		v.Mode = ModeOffline
	case pending > 0:
		v.Mode = ModePending
	case st == network.JustReconnected:
		v.Mode = ModeBackOnline
	default:
		v.Mode = ModeHidden
		v.Visible = false
	}
	return v
}

func (i *Indicator) publish() {
	v := i.View()
	i.mu.Lock()
	subs := append(([]func(View))(nil), i.subs...)
	i.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

// Refresh re-reads the counters from the store. On error the previous
// values are kept.
func (i *Indicator) Refresh(ctx context.Context) error {
	n, err := i.store.CountPending(ctx)
	if err != nil {
		i.log.Warn(ctx, "count pending failed", "error", err)
		return err
	}
	last, _, err := i.store.GetLastSync(ctx)
	if err != nil {
		i.log.Warn(ctx, "read last sync failed", "error", err)
		return err
	}

	i.mu.Lock()
	i.pending = n
	i.lastSync = last
	i.mu.Unlock()

	i.metrics.SetPending(n)
	i.publish()
	return nil
}

// Run polls the store until ctx is done and drains once whenever the
// connection comes back with entries waiting.
func (i *Indicator) Run(ctx context.Context) {
	i.mu.Lock()
	i.stopped = false
	i.mu.Unlock()

	unsubscribe := i.net.OnChange(func(st network.State) {
		i.publish()
		if st != network.JustReconnected {
			return
		}
		i.mu.Lock()
		defer i.mu.Unlock()
		if i.stopped || ctx.Err() != nil {
			return
		}
		i.wg.Add(1)
		go func() {
			defer i.wg.Done()
			i.autoSync(ctx)
		}()
	})
	defer func() {
		i.mu.Lock()
		i.stopped = true
		i.mu.Unlock()
		unsubscribe()
		i.wg.Wait()
	}()

	_ = i.Refresh(ctx)

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = i.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (i *Indicator) autoSync(ctx context.Context) {
	n, err := i.store.CountPending(ctx)
	if err != nil {
		i.log.Warn(ctx, "count pending failed", "error", err)
		return
	}
	if n == 0 {
		return
	}
	i.log.Info(ctx, "connection restored, syncing", "pending", n)
	res, err := i.sync(ctx)
	if i.onSync != nil {
		i.onSync(res, err)
	}
}

// SyncNow drains the outbox on request. It returns ErrOffline without
// touching the outbox when there is no connection, and a Skipped result
// when a drain is already running.
func (i *Indicator) SyncNow(ctx context.Context) (models.SyncResult, error) {
	if i.net.State() == network.Offline {
		return models.SyncResult{}, ErrOffline
	}
	if i.drainer.Syncing() {
		return models.SyncResult{Skipped: true}, nil
	}
	return i.sync(ctx)
}

func (i *Indicator) sync(ctx context.Context) (models.SyncResult, error) {
	i.mu.Lock()
	i.syncing = true
	i.mu.Unlock()
	i.publish()

	res, err := i.drainer.Drain(ctx)
	if err != nil {
		i.log.Error(ctx, "sync failed", "error", err)
	}

	i.mu.Lock()
	i.syncing = false
	i.mu.Unlock()

	if rerr := i.Refresh(ctx); rerr != nil {
		i.publish()
	}
	return res, err
}
