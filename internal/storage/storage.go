// Package storage defines persistence interfaces for session history.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SessionRecord is one terminated session as persisted to history.
type SessionRecord struct {
	ID           string    `json:"id"`
	Worker       string    `json:"worker"`
	Outcome      string    `json:"outcome"` // "completed" or "failed"
	Error        string    `json:"error,omitempty"`
	MessagesIn   int64     `json:"messages_in"`
	MessagesOut  int64     `json:"messages_out"`
	StartedAt    time.Time `json:"started_at"`
	TerminatedAt time.Time `json:"terminated_at"`
}

// SessionFilter narrows history queries. Zero-valued fields match everything.
type SessionFilter struct {
	Worker  string
	Outcome string
	Since   string // RFC3339, inclusive lower bound on terminated_at
	Until   string // RFC3339, exclusive upper bound on terminated_at
	Limit   int
	Offset  int
}

// HistoryStore manages terminated-session persistence.
type HistoryStore interface {
	InsertSessions(ctx context.Context, records []SessionRecord) error
	GetSession(ctx context.Context, id string) (*SessionRecord, error)
	QuerySessions(ctx context.Context, f SessionFilter) ([]SessionRecord, error)
	CountSessions(ctx context.Context, f SessionFilter) (int, error)
	PruneSessions(ctx context.Context, before time.Time) (int64, error)
}

// Store combines all storage interfaces.
type Store interface {
	HistoryStore
	Ping(ctx context.Context) error
	Close() error
}
