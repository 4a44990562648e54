package streamworker

import "sync"

// Outbox is the worker-to-controller channel: an ordered buffer plus a
// one-time terminal marker. The worker goroutine sends into it; the session's
// dispatcher is the only drainer, so worker code never runs controller-side
// callbacks. Send order is preserved and the terminal marker is always the
// last thing a drain reports.
type Outbox struct {
	mu    sync.Mutex
	buf   []Message
	done  bool
	cause error

	ready chan struct{}
}

// NewOutbox returns an empty outbox with no terminal marker.
func NewOutbox() *Outbox {
	return &Outbox{ready: make(chan struct{}, 1)}
}

// Send buffers m for the next drain. Once a terminal marker is set it rejects
// with ErrOutboxClosed and m is dropped; a worker that keeps sending after
// completing may check for that condition.
func (o *Outbox) Send(m Message) error {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return ErrOutboxClosed
	}
	o.buf = append(o.buf, m)
	o.mu.Unlock()
	o.wake()
	return nil
}

// Complete sets the Completed terminal marker. The first marker wins: calling
// Complete again, or after Fail, is a no-op.
func (o *Outbox) Complete() {
	o.terminate(nil)
}

// Fail sets the Failed terminal marker carrying reason. A nil reason is
// coerced to ErrWorkerFailed so a failed session always has one. The first
// marker wins; later calls are no-ops.
func (o *Outbox) Fail(reason error) {
	if reason == nil {
		reason = ErrWorkerFailed
	}
	o.terminate(reason)
}

func (o *Outbox) terminate(cause error) {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return
	}
	o.done = true
	o.cause = cause
	o.mu.Unlock()
	o.wake()
}

// Drain removes and returns everything buffered since the previous drain,
// preserving send order. done is sticky once a terminal marker is set; cause
// is the failure reason, nil when the session completed.
func (o *Outbox) Drain() (msgs []Message, done bool, cause error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs = o.buf
	o.buf = nil
	return msgs, o.done, o.cause
}

// Ready returns the wake channel: a coalesced signal guaranteeing at least
// one receive after any Send, Complete, or Fail. It makes drain loops
// selectable against cancellation; a spurious wake drains empty and is
// harmless.
func (o *Outbox) Ready() <-chan struct{} {
	return o.ready
}

// Len reports the number of buffered, undrained messages.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.buf)
}

// wake posts one token without blocking; a pending token already covers this
// signal. Called outside mu so a concurrent drain cannot miss it.
func (o *Outbox) wake() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}
