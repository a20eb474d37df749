package network

import (
	"context"
	"time"

	"github.com/dmitrijs2005/containertracker/internal/logging"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober periodically pings the server and reports the outcome to a Monitor.
type Prober struct {
	pinger   Pinger
	monitor  *Monitor
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger
}

func NewProber(p Pinger, m *Monitor, interval, timeout time.Duration, log logging.Logger) *Prober {
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Prober{
		pinger:   p,
		monitor:  m,
		interval: interval,
		timeout:  timeout,
		log:      log.With("module", "network"),
	}
}

// Probe pings once and updates the monitor. A ping cut short by the
// cancellation of ctx itself is not reported as lost connectivity.
func (p *Prober) Probe(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.pinger.Ping(pctx)
	cancel()

	if err != nil && ctx.Err() != nil {
		return p.monitor.IsOnline()
	}

	online := err == nil
	if was := p.monitor.IsOnline(); was != online {
		if online {
			p.log.Info(ctx, "connection restored")
		} else {
			p.log.Warn(ctx, "connection lost", "error", err)
		}
	}
	p.monitor.SetOnline(online)
	return online
}

// Run probes immediately and then on every tick until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Probe(ctx)
	for {
		select {
		case <-ticker.C:
			p.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
