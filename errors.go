package streamworker

import "errors"

// Sentinel errors for the streaming bridge.
var (
	ErrInboxClosed    = errors.New("inbox closed")
	ErrOutboxClosed   = errors.New("outbox closed")
	ErrSessionClosed  = errors.New("session closed")
	ErrAlreadyStarted = errors.New("session already started")
	ErrWorkerFailed   = errors.New("worker failed")
	ErrWorkerPanic    = errors.New("worker panicked")
	ErrWorkerNotFound = errors.New("worker not registered")
)
