package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jaimehuang168/VoxParaguay2026/internal/metrics"
)

// Reaper periodically sweeps the online index and logs out agents whose last
// activity is older than the staleness timeout. It runs on a fixed interval
// independent of any request, so presence recovers even when clients vanish
// without a clean logout.
type Reaper struct {
	registry *Registry
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration
}

func NewReaper(registry *Registry, clock clockwork.Clock, interval, timeout time.Duration) *Reaper {
	return &Reaper{
		registry: registry,
		clock:    clock,
		interval: interval,
		timeout:  timeout,
	}
}

// Run starts the sweep loop. It blocks until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	reaped, err := r.registry.ReapStale(ctx, r.timeout)
	if err != nil {
		slog.Warn("Reaper sweep failed", "error", err)
		return
	}
	if reaped > 0 {
		slog.Info("Reaped stale agents", "count", reaped)
	}

	online, err := r.registry.ListOnline(ctx)
	if err != nil {
		return
	}
	metrics.AgentsOnline.Set(float64(len(online)))
}
