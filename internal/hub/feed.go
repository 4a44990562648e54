package hub

import (
	"sync"

	streamworker "github.com/freezer333/streaming-worker"
)

// Feed is an exclusive, ordered view of one session's outbound stream.
// Draining is destructive, so only one client may hold a feed at a time;
// a client that detaches and reattaches resumes from the first message it
// has not yet drained. The hub keeps feeding the underlying outbox while
// no one is attached, so nothing is lost across reconnects.
type Feed struct {
	e    *entry
	once sync.Once
}

// Attach claims the session's feed. It fails with ErrFeedBusy while
// another client holds it and with ErrSessionNotFound once the session's
// tombstone has expired.
func (h *Hub) Attach(id string) (*Feed, error) {
	e, err := h.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.attached {
		e.mu.Unlock()
		return nil, ErrFeedBusy
	}
	e.attached = true
	e.mu.Unlock()
	return &Feed{e: e}, nil
}

// Ready returns the wake channel: at least one receive is guaranteed after
// any message or the terminal marker arrives. Spurious wakes drain empty.
func (f *Feed) Ready() <-chan struct{} {
	return f.e.feed.Ready()
}

// Drain removes and returns everything buffered since the previous drain.
// done is sticky once the session has terminated; cause is the terminal
// error, nil for a completed session.
func (f *Feed) Drain() (msgs []streamworker.Message, done bool, cause error) {
	return f.e.feed.Drain()
}

// Session returns the ID of the session this feed belongs to.
func (f *Feed) Session() string {
	return f.e.session.ID()
}

// Close releases the feed so another client may attach. Undrained messages
// stay buffered. Close is idempotent.
func (f *Feed) Close() {
	f.once.Do(func() {
		f.e.mu.Lock()
		f.e.attached = false
		f.e.mu.Unlock()
	})
}
