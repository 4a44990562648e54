package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/freezer333/streaming-worker/internal/storage"
)

const (
	historyChanSize  = 1024
	historyBatchSize = 100
	historyDrainTime = 30 * time.Second
)

// HistoryStore is the persistence interface consumed by HistoryRecorder.
type HistoryStore interface {
	InsertSessions(ctx context.Context, records []storage.SessionRecord) error
}

// HistoryRecorder buffers terminated-session records and batch-flushes them
// to the store. Records are dropped if the channel is full (back-pressure
// on slow DB).
type HistoryRecorder struct {
	ch         chan storage.SessionRecord
	store      HistoryStore
	flushEvery time.Duration
}

// NewHistoryRecorder creates a HistoryRecorder backed by store.
func NewHistoryRecorder(store HistoryStore, flushEvery time.Duration) *HistoryRecorder {
	if flushEvery <= 0 {
		flushEvery = 5 * time.Second
	}
	return &HistoryRecorder{
		ch:         make(chan storage.SessionRecord, historyChanSize),
		store:      store,
		flushEvery: flushEvery,
	}
}

// Name returns the task identifier.
func (h *HistoryRecorder) Name() string { return "history_recorder" }

// Record enqueues a session record. It never blocks; drops on full channel.
func (h *HistoryRecorder) Record(r storage.SessionRecord) {
	select {
	case h.ch <- r:
	default:
		slog.Warn("history record dropped, channel full", "session_id", r.ID)
	}
}

// Pending returns the number of queued records awaiting flush.
func (h *HistoryRecorder) Pending() int { return len(h.ch) }

// Run processes records until ctx is cancelled, then drains remaining records.
func (h *HistoryRecorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.flushEvery)
	defer ticker.Stop()

	buf := make([]storage.SessionRecord, 0, historyBatchSize)

	for {
		select {
		case r := <-h.ch:
			buf = append(buf, r)
			if len(buf) >= historyBatchSize {
				h.flush(ctx, buf)
				buf = buf[:0]
			}

		case <-ticker.C:
			if len(buf) > 0 {
				h.flush(ctx, buf)
				buf = buf[:0]
			}

		case <-ctx.Done():
			// Drain remaining records with a timeout.
			h.drain(buf)
			return nil
		}
	}
}

func (h *HistoryRecorder) drain(buf []storage.SessionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), historyDrainTime)
	defer cancel()

	for {
		select {
		case r := <-h.ch:
			buf = append(buf, r)
			if len(buf) >= historyBatchSize {
				h.flush(ctx, buf)
				buf = buf[:0]
			}
		default:
			// Channel empty, flush remaining.
			if len(buf) > 0 {
				h.flush(ctx, buf)
			}
			return
		}
	}
}

func (h *HistoryRecorder) flush(ctx context.Context, buf []storage.SessionRecord) {
	// Copy to avoid aliasing the caller's slice.
	batch := make([]storage.SessionRecord, len(buf))
	copy(batch, buf)

	if err := h.store.InsertSessions(ctx, batch); err != nil {
		slog.LogAttrs(ctx, slog.LevelError, "history flush failed",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()),
		)
	}
}
