package streamworker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session is the bridge between a controller and one worker. It owns the
// inbox, the outbox, the goroutine running Execute, and the dispatcher that
// delivers outbound messages and the terminal signal to registered callbacks.
//
// A session runs exactly two goroutines. The worker goroutine executes the
// Worker to completion. The dispatcher goroutine is the controller's delivery
// context: it alone drains the outbox and invokes callbacks, always in send
// order, with no internal lock held, so a callback may itself Push without
// deadlocking. A slow callback delays subsequent drains but never the worker.
type Session struct {
	id     string
	opts   Options
	worker Worker

	inbox  *Inbox
	outbox *Outbox

	state atomic.Int32

	mu         sync.Mutex
	onMessage  []func(Message)
	onComplete []func()
	onError    []func(error)
	err        error

	workerDone chan struct{}
	done       chan struct{}
}

// New constructs a session by invoking factory exactly once with opts. The
// factory runs synchronously on the caller, before any goroutine exists, so
// construction faults surface here and nothing needs tearing down.
func New(factory Factory, opts Options) (*Session, error) {
	w, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("construct worker: %w", err)
	}
	return &Session{
		id:         uuid.Must(uuid.NewV7()).String(),
		opts:       opts,
		worker:     w,
		inbox:      NewInbox(),
		outbox:     NewOutbox(),
		workerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state via an atomic read.
func (s *Session) State() State { return State(s.state.Load()) }

// OnMessage registers fn for every outbound message, invoked on the
// dispatcher in delivery order. Register before Start to observe the earliest
// messages; registration after termination never fires.
func (s *Session) OnMessage(fn func(Message)) {
	s.mu.Lock()
	s.onMessage = append(s.onMessage, fn)
	s.mu.Unlock()
}

// OnComplete registers fn to run once if the session ends Completed, after
// every buffered message has been delivered.
func (s *Session) OnComplete(fn func()) {
	s.mu.Lock()
	s.onComplete = append(s.onComplete, fn)
	s.mu.Unlock()
}

// OnError registers fn to run once with the terminal reason if the session
// ends Failed, after every buffered message has been delivered.
func (s *Session) OnError(fn func(error)) {
	s.mu.Lock()
	s.onError = append(s.onError, fn)
	s.mu.Unlock()
}

// Start launches the worker and dispatcher goroutines, moving the session to
// Running. A second Start fails with ErrAlreadyStarted; starting a session
// that was closed before it ever ran fails with ErrSessionClosed.
func (s *Session) Start() error {
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		if s.State() == StateTerminated {
			return ErrSessionClosed
		}
		return ErrAlreadyStarted
	}
	slog.Debug("session started", "session_id", s.id)
	go s.runWorker()
	go s.dispatch()
	return nil
}

// Push appends m to the inbox, fire-and-forget: no acknowledgement of
// worker-side consumption is returned. After termination it fails with
// ErrSessionClosed; after an explicit Close, ErrInboxClosed.
func (s *Session) Push(m Message) error {
	if s.State() == StateTerminated {
		return ErrSessionClosed
	}
	return s.inbox.Push(m)
}

// Close requests shutdown by closing the inbox: a blocked Pop unblocks with
// end-of-input and a cooperative worker returns promptly. The worker
// goroutine is never forcibly stopped. Close is idempotent. Closing a session
// that was never started terminates it in place; no terminal callback fires
// for a session that never ran.
func (s *Session) Close() {
	if s.state.CompareAndSwap(int32(StateCreated), int32(StateTerminated)) {
		s.inbox.Close()
		close(s.done)
		slog.Debug("session closed before start", "session_id", s.id)
		return
	}
	s.inbox.Close()
}

// Done returns a channel closed once the session reaches Terminated.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the terminal reason: nil until the session terminates and for
// sessions that complete normally.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the session terminates or ctx is cancelled, returning
// the terminal reason or the context error.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports the number of inbox messages the worker has not popped yet.
func (s *Session) Pending() int { return s.inbox.Len() }

// Buffered reports the number of outbox messages not yet delivered.
func (s *Session) Buffered() int { return s.outbox.Len() }

// runWorker drives Execute on the dedicated worker goroutine. The transition
// to Draining happens here, at Execute-return, before the terminal marker is
// set, so the dispatcher can rely on the marker being final. workerDone
// closes last: once it is closed the outbox is guaranteed terminal.
func (s *Session) runWorker() {
	defer close(s.workerDone)
	err := s.execute()
	s.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	if err != nil {
		s.outbox.Fail(err)
		return
	}
	s.outbox.Complete()
}

// execute runs the worker and converts a panic into the terminal error, so a
// worker crash never crosses the goroutine boundary as a raw fault.
func (s *Session) execute() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
			slog.Warn("worker panicked", "session_id", s.id, "panic", r)
		}
	}()
	return s.worker.Execute(s.inbox, s.outbox)
}

// dispatch is the delivery loop: wait for the outbox wake signal, drain, and
// hand each message to the callbacks in order. Once the terminal marker is
// drained it joins the worker goroutine, fires exactly one terminal callback,
// and tears the session down.
func (s *Session) dispatch() {
	var terminal bool
	var cause error
	for !terminal {
		select {
		case <-s.outbox.Ready():
		case <-s.workerDone:
		}
		var msgs []Message
		msgs, terminal, cause = s.outbox.Drain()
		for _, m := range msgs {
			s.deliver(m)
		}
	}
	<-s.workerDone

	s.mu.Lock()
	s.err = cause
	onComplete := s.onComplete
	onError := s.onError
	s.mu.Unlock()

	if cause != nil {
		for _, fn := range onError {
			fn(cause)
		}
	} else {
		for _, fn := range onComplete {
			fn()
		}
	}

	s.state.CompareAndSwap(int32(StateDraining), int32(StateTerminated))
	s.inbox.Close()
	close(s.done)
	slog.Debug("session terminated", "session_id", s.id, "failed", cause != nil)
}

// deliver snapshots the handler list and invokes it outside the session lock
// so a callback can push, register, or close without deadlock.
func (s *Session) deliver(m Message) {
	s.mu.Lock()
	handlers := s.onMessage
	s.mu.Unlock()
	for _, fn := range handlers {
		fn(m)
	}
}
