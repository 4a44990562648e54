package background

import (
	"context"
	"log/slog"
	"time"
)

const pruneInterval = time.Hour

// PruneStore is the persistence interface consumed by the Pruner.
type PruneStore interface {
	PruneSessions(ctx context.Context, before time.Time) (int64, error)
}

// Pruner deletes history records older than the retention window.
type Pruner struct {
	store     PruneStore
	retention time.Duration
}

// NewPruner creates a Pruner with the given retention window.
func NewPruner(store PruneStore, retention time.Duration) *Pruner {
	return &Pruner{store: store, retention: retention}
}

// Name returns the task identifier.
func (p *Pruner) Name() string { return "history_pruner" }

// Run performs an initial prune, then prunes hourly until ctx is cancelled.
func (p *Pruner) Run(ctx context.Context) error {
	p.prune(ctx)

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.prune(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.retention)
	n, err := p.store.PruneSessions(ctx, cutoff)
	if err != nil {
		slog.LogAttrs(ctx, slog.LevelError, "history prune failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if n > 0 {
		slog.Info("history pruned", "removed", n, "cutoff", cutoff.Format(time.RFC3339))
	}
}
