package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/freezer333/streaming-worker/internal/telemetry"
)

const reapInterval = 15 * time.Second

// SessionSweeper is the hub surface consumed by the Reaper.
type SessionSweeper interface {
	// ReapIdle force-closes sessions idle longer than maxIdle and
	// returns the number closed.
	ReapIdle(maxIdle time.Duration) int
	// QueueDepths reports messages waiting in inbound queues and
	// undelivered outbound buffers, summed over live sessions.
	QueueDepths() (inbound, outbound int)
}

// Reaper force-closes idle sessions and refreshes sampled queue gauges.
type Reaper struct {
	hub     SessionSweeper
	metrics *telemetry.Metrics
	history *HistoryRecorder // optional, for the queue length gauge
	maxIdle time.Duration
	every   time.Duration
}

// NewReaper creates a Reaper sweeping at the default interval.
func NewReaper(hub SessionSweeper, metrics *telemetry.Metrics, history *HistoryRecorder, maxIdle time.Duration) *Reaper {
	return &Reaper{
		hub:     hub,
		metrics: metrics,
		history: history,
		maxIdle: maxIdle,
		every:   reapInterval,
	}
}

// Name returns the task identifier.
func (r *Reaper) Name() string { return "reaper" }

// Run sweeps periodically until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	if r.maxIdle > 0 {
		if n := r.hub.ReapIdle(r.maxIdle); n > 0 {
			slog.LogAttrs(ctx, slog.LevelInfo, "idle sessions reaped",
				slog.Int("count", n),
			)
		}
	}

	if r.metrics == nil {
		return
	}
	in, out := r.hub.QueueDepths()
	r.metrics.QueueDepth.WithLabelValues("inbound").Set(float64(in))
	r.metrics.QueueDepth.WithLabelValues("outbound").Set(float64(out))
	if r.history != nil {
		r.metrics.HistoryQueueLength.Set(float64(r.history.Pending()))
	}
}
