// Package metrics holds the Prometheus collectors of the sync path and a
// small /metrics HTTP endpoint shared by the client and the dev server.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "containertracker"

// Sync collects outbox and drain statistics.
type Sync struct {
	drains   prometheus.Counter
	entries  *prometheus.CounterVec
	pending  prometheus.Gauge
	duration prometheus.Histogram
}

// NewSync creates the collectors and registers them on reg when reg is not nil.
func NewSync(reg prometheus.Registerer) *Sync {
	s := &Sync{
		drains: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_drains_total",
			Help:      "Drain passes started, including skipped ones.",
		}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_entries_total",
			Help:      "Outbox entries processed by result.",
		}, []string{"result"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Entries waiting in the local outbox.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of drain passes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(s.drains, s.entries, s.pending, s.duration)
	}
	return s
}

// ObserveDrain records one finished drain. A nil receiver is a no-op.
func (s *Sync) ObserveDrain(synced, failed int, skipped bool, d time.Duration) {
	if s == nil {
		return
	}
	s.drains.Inc()
	if skipped {
		s.entries.WithLabelValues("skipped").Inc()
		return
	}
	s.entries.WithLabelValues("synced").Add(float64(synced))
	s.entries.WithLabelValues("failed").Add(float64(failed))
	s.duration.Observe(d.Seconds())
}

func (s *Sync) SetPending(n int) {
	if s == nil {
		return
	}
	s.pending.Set(float64(n))
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
