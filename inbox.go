package streamworker

import "sync"

// Inbox is the controller-to-worker FIFO. Push never blocks and the queue is
// unbounded; Pop blocks the worker goroutine until a message arrives or the
// inbox is closed. All access runs under one monitor (mutex plus condition
// variable), so no message is ever popped twice and waiters never spin.
type Inbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Message
	head   int
	closed bool
}

// NewInbox returns an empty, open inbox.
func NewInbox() *Inbox {
	in := &Inbox{}
	in.cond = sync.NewCond(&in.mu)
	return in
}

// Push appends m to the tail and wakes one blocked Pop. It fails only after
// Close.
func (in *Inbox) Push(m Message) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return ErrInboxClosed
	}
	in.items = append(in.items, m)
	in.cond.Signal()
	return nil
}

// Pop removes and returns the oldest message, blocking until one is
// available. Messages pushed before Close are still drained in order; once
// the inbox is closed and empty, Pop returns ok=false (end-of-input) instead
// of blocking forever.
func (in *Inbox) Pop() (Message, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for in.head == len(in.items) && !in.closed {
		in.cond.Wait()
	}
	if in.head == len(in.items) {
		return Message{}, false
	}
	return in.take(), true
}

// TryPop is the non-blocking variant of Pop for timer-driven workers.
// ok=false means nothing was immediately available; it does not distinguish
// empty from closed, use Closed for that.
func (in *Inbox) TryPop() (Message, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.head == len(in.items) {
		return Message{}, false
	}
	return in.take(), true
}

// take removes the head element. Caller holds mu.
func (in *Inbox) take() Message {
	m := in.items[in.head]
	in.items[in.head] = Message{}
	in.head++
	if in.head == len(in.items) {
		in.items = in.items[:0]
		in.head = 0
	}
	return m
}

// Close marks the inbox closed and wakes every blocked Pop. It is idempotent.
func (in *Inbox) Close() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	in.closed = true
	in.cond.Broadcast()
}

// Len reports the number of messages not yet popped.
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.items) - in.head
}

// Closed reports whether Close has been called. Pending messages may remain
// after close; Pop drains them before signaling end-of-input.
func (in *Inbox) Closed() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.closed
}
