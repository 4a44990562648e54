package streamworker

// Worker is the computation a session runs on its dedicated goroutine.
// Execute is invoked exactly once; it may block in in.Pop and send through
// out in any pattern: pure producer, pure consumer, or interleaved
// request/response. Returning nil completes the session, returning an error
// fails it, and a panic is recovered at the goroutine boundary and converted
// to a failure.
//
// State private to the worker is touched only from its own goroutine; the
// inbox and outbox are the sole sanctioned channels across the boundary.
// Implementers who share anything else own that synchronization themselves.
type Worker interface {
	Execute(in *Inbox, out *Outbox) error
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc func(in *Inbox, out *Outbox) error

// Execute calls f.
func (f WorkerFunc) Execute(in *Inbox, out *Outbox) error {
	return f(in, out)
}

// Factory builds a Worker from session options. New invokes it exactly once,
// synchronously on the caller, before the worker goroutine starts, so
// construction faults surface to the session creator and start nothing.
type Factory func(opts Options) (Worker, error)
