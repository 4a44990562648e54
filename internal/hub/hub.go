// Package hub manages the daemon's live sessions: creation against the
// worker registry, inbound pushes, exclusive outbound feeds, terminated
// session tombstones, and idle reaping.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter/v2"

	streamworker "github.com/freezer333/streaming-worker"
	"github.com/freezer333/streaming-worker/internal/storage"
	"github.com/freezer333/streaming-worker/internal/telemetry"
)

// Sentinel errors for session management.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("session limit reached")
	ErrFeedBusy        = errors.New("feed already attached")
	ErrInvalidOptions  = errors.New("invalid worker options")
)

const tombstoneCacheSize = 4096

// HistorySink receives a record for every terminated session.
type HistorySink interface {
	Record(storage.SessionRecord)
}

// Config holds hub construction parameters.
type Config struct {
	Registry     *streamworker.Registry
	Metrics      *telemetry.Metrics              // nil disables instrumentation
	History      HistorySink                     // nil disables history
	MaxLive      int                             // 0 means unlimited
	TombstoneTTL time.Duration                   // how long terminated sessions stay queryable
	Defaults     map[string]streamworker.Options // per-worker option defaults
}

// Hub tracks every session the daemon owns. Live sessions sit in a map;
// terminated ones move to a TTL tombstone cache so clients can still read
// final state and drain a feed backlog shortly after termination.
type Hub struct {
	registry *streamworker.Registry
	metrics  *telemetry.Metrics
	history  HistorySink
	maxLive  int
	defaults map[string]streamworker.Options

	mu   sync.RWMutex
	live map[string]*entry

	tombstones *otter.Cache[string, *entry]
}

// New creates a Hub from cfg.
func New(cfg Config) (*Hub, error) {
	ttl := cfg.TombstoneTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	tombstones, err := otter.New[string, *entry](&otter.Options[string, *entry]{
		MaximumSize:      tombstoneCacheSize,
		ExpiryCalculator: otter.ExpiryWriting[string, *entry](ttl),
	})
	if err != nil {
		return nil, err
	}
	return &Hub{
		registry:   cfg.Registry,
		metrics:    cfg.Metrics,
		history:    cfg.History,
		maxLive:    cfg.MaxLive,
		defaults:   cfg.Defaults,
		live:       make(map[string]*entry),
		tombstones: tombstones,
	}, nil
}

// entry is the hub's bookkeeping around one session. The feed outbox
// mirrors every outbound message so a streaming client can attach at any
// point and still receive the full backlog in order.
type entry struct {
	session *streamworker.Session
	worker  string
	started time.Time
	feed    *streamworker.Outbox

	msgsIn  atomic.Int64
	msgsOut atomic.Int64

	mu           sync.Mutex
	lastActive   time.Time
	attached     bool
	outcome      string // "" while live, then "completed" or "failed"
	errText      string
	terminatedAt time.Time
}

func (e *entry) touch() {
	e.mu.Lock()
	e.lastActive = time.Now()
	e.mu.Unlock()
}

func (e *entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActive
}

// snapshot returns a point-in-time Info for the entry.
func (e *entry) snapshot() Info {
	info := Info{
		ID:          e.session.ID(),
		Worker:      e.worker,
		MessagesIn:  e.msgsIn.Load(),
		MessagesOut: e.msgsOut.Load(),
		Pending:     e.session.Pending(),
		Buffered:    e.feed.Len(),
		StartedAt:   e.started,
	}
	e.mu.Lock()
	if e.outcome == "" {
		info.State = e.session.State().String()
	} else {
		info.State = streamworker.StateTerminated.String()
		info.Outcome = e.outcome
		info.Error = e.errText
		t := e.terminatedAt
		info.TerminatedAt = &t
	}
	e.mu.Unlock()
	return info
}

// Info is a point-in-time snapshot of one session.
type Info struct {
	ID           string     `json:"id"`
	Worker       string     `json:"worker"`
	State        string     `json:"state"`
	Outcome      string     `json:"outcome,omitempty"`
	Error        string     `json:"error,omitempty"`
	MessagesIn   int64      `json:"messages_in"`
	MessagesOut  int64      `json:"messages_out"`
	Pending      int        `json:"pending"`
	Buffered     int        `json:"buffered"`
	StartedAt    time.Time  `json:"started_at"`
	TerminatedAt *time.Time `json:"terminated_at,omitempty"`
}

// Create opens and starts a session for the named worker. Request options
// override configured per-worker defaults key by key. A factory that rejects
// its options fails here, synchronously, wrapped in ErrInvalidOptions.
func (h *Hub) Create(worker string, opts streamworker.Options) (Info, error) {
	s, err := h.registry.Open(worker, h.mergeOpts(worker, opts))
	if err != nil {
		if errors.Is(err, streamworker.ErrWorkerNotFound) {
			return Info{}, err
		}
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	now := time.Now().UTC()
	e := &entry{
		session:    s,
		worker:     worker,
		started:    now,
		lastActive: now,
		feed:       streamworker.NewOutbox(),
	}

	// Callbacks run on the session's dispatcher goroutine. They must be
	// registered before Start so the feed sees the earliest messages.
	s.OnMessage(func(m streamworker.Message) {
		e.msgsOut.Add(1)
		e.touch()
		e.feed.Send(m)
		if h.metrics != nil {
			h.metrics.MessagesTotal.WithLabelValues("out", worker).Inc()
		}
	})
	s.OnComplete(func() { h.finish(e, nil) })
	s.OnError(func(err error) { h.finish(e, err) })

	h.mu.Lock()
	if h.maxLive > 0 && len(h.live) >= h.maxLive {
		h.mu.Unlock()
		s.Close() // never started, terminates in place
		return Info{}, ErrSessionLimit
	}
	h.live[s.ID()] = e
	h.mu.Unlock()

	if err := s.Start(); err != nil {
		h.mu.Lock()
		delete(h.live, s.ID())
		h.mu.Unlock()
		return Info{}, err
	}

	if h.metrics != nil {
		h.metrics.SessionsStarted.WithLabelValues(worker).Inc()
		h.metrics.SessionsActive.Inc()
	}
	slog.Info("session created", "session_id", s.ID(), "worker", worker)
	return e.snapshot(), nil
}

// Push delivers an inbound message to the session's worker.
func (h *Hub) Push(id string, m streamworker.Message) error {
	e, err := h.lookup(id)
	if err != nil {
		return err
	}
	if err := e.session.Push(m); err != nil {
		return err
	}
	e.msgsIn.Add(1)
	e.touch()
	if h.metrics != nil {
		h.metrics.MessagesTotal.WithLabelValues("in", e.worker).Inc()
	}
	return nil
}

// Get returns a snapshot of a live or recently terminated session.
func (h *Hub) Get(id string) (Info, error) {
	e, err := h.lookup(id)
	if err != nil {
		return Info{}, err
	}
	return e.snapshot(), nil
}

// List returns snapshots of all live sessions, oldest first.
func (h *Hub) List() []Info {
	h.mu.RLock()
	entries := make([]*entry, 0, len(h.live))
	for _, e := range h.live {
		entries = append(entries, e)
	}
	h.mu.RUnlock()

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, e.snapshot())
	}
	slices.SortFunc(infos, func(a, b Info) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return infos
}

// CloseSession signals end-of-input to the session's worker. The session
// terminates once the worker drains and returns; closing an already
// terminated session is a no-op.
func (h *Hub) CloseSession(id string) error {
	e, err := h.lookup(id)
	if err != nil {
		return err
	}
	e.session.Close()
	return nil
}

// WorkerInfo describes one registered worker and its configured option
// defaults.
type WorkerInfo struct {
	Name     string               `json:"name"`
	Defaults streamworker.Options `json:"defaults,omitempty"`
}

// Workers returns the registered workers sorted by name, each with the
// configured defaults a session request may override.
func (h *Hub) Workers() []WorkerInfo {
	names := h.registry.List()
	out := make([]WorkerInfo, 0, len(names))
	for _, name := range names {
		out = append(out, WorkerInfo{Name: name, Defaults: h.defaults[name]})
	}
	return out
}

// ReapIdle force-closes live sessions idle longer than maxIdle and returns
// the number of sessions signalled. Closure is cooperative; the count is
// sessions told to stop, not sessions already gone.
func (h *Hub) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	h.mu.RLock()
	var stale []*entry
	for _, e := range h.live {
		if e.idleSince().Before(cutoff) {
			stale = append(stale, e)
		}
	}
	h.mu.RUnlock()

	for _, e := range stale {
		slog.Warn("closing idle session",
			"session_id", e.session.ID(),
			"worker", e.worker,
		)
		e.session.Close()
	}
	return len(stale)
}

// QueueDepths reports messages waiting in inbound queues and undelivered
// feed backlogs, summed over live sessions.
func (h *Hub) QueueDepths() (inbound, outbound int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.live {
		inbound += e.session.Pending()
		outbound += e.feed.Len()
	}
	return inbound, outbound
}

// Shutdown closes every live session and waits for all of them to
// terminate, or until ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.RLock()
	entries := make([]*entry, 0, len(h.live))
	for _, e := range h.live {
		entries = append(entries, e)
	}
	h.mu.RUnlock()

	for _, e := range entries {
		e.session.Close()
	}
	for _, e := range entries {
		select {
		case <-e.session.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// finish runs on the session's dispatcher goroutine after the last message
// has been delivered. It seals the feed, moves the entry to the tombstone
// cache, and emits metrics and history.
func (h *Hub) finish(e *entry, cause error) {
	now := time.Now().UTC()
	outcome := "completed"
	errText := ""
	if cause != nil {
		outcome = "failed"
		errText = cause.Error()
		e.feed.Fail(cause)
	} else {
		e.feed.Complete()
	}

	e.mu.Lock()
	e.outcome = outcome
	e.errText = errText
	e.terminatedAt = now
	e.mu.Unlock()

	id := e.session.ID()
	h.mu.Lock()
	delete(h.live, id)
	h.mu.Unlock()
	h.tombstones.Set(id, e)

	if h.metrics != nil {
		h.metrics.SessionsActive.Dec()
		h.metrics.SessionDuration.WithLabelValues(e.worker, outcome).
			Observe(now.Sub(e.started).Seconds())
	}
	if h.history != nil {
		h.history.Record(storage.SessionRecord{
			ID:           id,
			Worker:       e.worker,
			Outcome:      outcome,
			Error:        errText,
			MessagesIn:   e.msgsIn.Load(),
			MessagesOut:  e.msgsOut.Load(),
			StartedAt:    e.started,
			TerminatedAt: now,
		})
	}
	slog.Info("session terminated",
		"session_id", id,
		"worker", e.worker,
		"outcome", outcome,
	)
}

// lookup finds an entry among live sessions first, then tombstones.
func (h *Hub) lookup(id string) (*entry, error) {
	h.mu.RLock()
	e, ok := h.live[id]
	h.mu.RUnlock()
	if ok {
		return e, nil
	}
	if e, ok := h.tombstones.GetIfPresent(id); ok {
		return e, nil
	}
	return nil, ErrSessionNotFound
}

func (h *Hub) mergeOpts(worker string, opts streamworker.Options) streamworker.Options {
	defaults := h.defaults[worker]
	if len(defaults) == 0 {
		return opts
	}
	merged := make(streamworker.Options, len(defaults)+len(opts))
	maps.Copy(merged, defaults)
	maps.Copy(merged, opts)
	return merged
}
