package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/containertracker/internal/client/capture"
	"github.com/dmitrijs2005/containertracker/internal/client/config"
	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/client/network"
	"github.com/dmitrijs2005/containertracker/internal/client/remote"
	"github.com/dmitrijs2005/containertracker/internal/client/session"
	"github.com/dmitrijs2005/containertracker/internal/client/status"
	"github.com/dmitrijs2005/containertracker/internal/client/storage"
	"github.com/dmitrijs2005/containertracker/internal/client/syncer"
	"github.com/dmitrijs2005/containertracker/internal/filex"
	"github.com/dmitrijs2005/containertracker/internal/logging"
	"github.com/dmitrijs2005/containertracker/internal/metrics"
)

// Runtime owns every long-lived component of the client.
type Runtime struct {
	cfg *config.Config
	out io.Writer
	mu  sync.Mutex

	Log      logging.Logger
	Store    *storage.Store
	Remote   *remote.GRPCClient
	Monitor  *network.Monitor
	Prober   *network.Prober
	Sessions *session.Manager
	Engine   *syncer.Engine
	Status   *status.Indicator
	Capture  *capture.Service
	Registry *prometheus.Registry

	closers []io.Closer
}

// Setup opens the local store, connects to the server and restores the
// session. The session is checked with the server when it is reachable,
// otherwise the stored one is used as is.
func Setup(ctx context.Context, cfg *config.Config, out io.Writer) (_ *Runtime, err error) {
	r := &Runtime{cfg: cfg, out: out}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	log, logCloser, err := logging.New(cfg.LogOptions())
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	r.Log = log
	r.closers = append(r.closers, logCloser)

	dbPath := cfg.DatabasePath()
	if _, err := filex.EnsureParentDir(dbPath); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if r.Store, err = storage.Open(ctx, dbPath); err != nil {
		return nil, err
	}
	r.closers = append(r.closers, r.Store)

	if r.Remote, err = remote.NewGRPCClient(cfg.ServerAddr); err != nil {
		return nil, fmt.Errorf("server client: %w", err)
	}
	r.closers = append(r.closers, r.Remote)

	pctx, cancel := context.WithTimeout(ctx, cfg.OnlineCheckInterval)
	online := r.Remote.Ping(pctx) == nil
	cancel()

	r.Monitor = network.NewMonitor(online, cfg.ReconnectWindow)
	r.Prober = network.NewProber(r.Remote, r.Monitor, cfg.OnlineCheckInterval, cfg.OnlineCheckInterval, log)

	r.Registry = prometheus.NewRegistry()
	m := metrics.NewSync(r.Registry)

	r.Sessions = session.NewManager(r.Store, r.Remote, log, session.WithTTL(cfg.SessionTTL))
	if online {
		_, err = r.Sessions.Validate(ctx)
	} else {
		_, err = r.Sessions.Load(ctx)
	}
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return nil, err
	}
	err = nil

	r.Engine = syncer.New(r.Store, r.Remote, r.Sessions, log,
		syncer.WithOnline(r.Monitor.IsOnline),
		syncer.WithRequestTimeout(cfg.RequestTimeout),
		syncer.WithMetrics(m),
		syncer.WithCache(r.Remote, r.Store),
		syncer.WithDeletionRequests(r.Remote),
		syncer.WithUnauthorized(func(ctx context.Context) {
			if err := r.Sessions.Expire(ctx); err != nil {
				r.Log.Warn(ctx, "clear rejected session", "error", err)
			}
		}),
	)
	r.Status = status.New(r.Store, r.Engine, r.Monitor, log,
		status.WithInterval(cfg.StatusPollInterval),
		status.WithMetrics(m),
		status.WithSyncHook(r.announceSync),
	)
	r.Capture = capture.NewService(r.Store, r.Remote, r.Sessions, log)

	if err := r.Status.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runtime) announce(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, line)
}

func (r *Runtime) announceSync(res models.SyncResult, err error) {
	if err != nil {
		r.announce("\nAutomatic sync failed: " + err.Error())
		return
	}
	r.announce("\n" + syncer.Summary(res))
}

// Start runs the connectivity prober, the status poller and, when
// configured, the metrics endpoint. The returned function waits for them
// after ctx is cancelled.
func (r *Runtime) Start(ctx context.Context) (wait func()) {
	var (
		wg   sync.WaitGroup
		last = r.Status.View().Mode
		mu   sync.Mutex
	)
	r.Status.OnUpdate(func(v status.View) {
		mu.Lock()
		changed := v.Mode != last
		last = v.Mode
		mu.Unlock()
		if changed && v.Visible {
			r.announce("\n" + status.Render(v, time.Now()))
		}
	})

	wg.Add(2)
	go func() {
		defer wg.Done()
		r.Status.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		r.Prober.Run(ctx)
	}()

	if r.cfg.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.Serve(ctx, r.cfg.MetricsAddr, r.Registry); err != nil {
				r.Log.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
	}
	return wg.Wait
}

// App builds the command front end reading from in.
func (r *Runtime) App(in io.Reader) *App {
	return NewApp(r.Sessions, r.Capture, r.Store, r.Status, r.Engine, r.Monitor.IsOnline, r.Log, in, r.out)
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}
