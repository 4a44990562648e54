// Package testutil provides in-memory fakes shared by daemon tests.
package testutil

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/freezer333/streaming-worker/internal/storage"
)

// FakeStore is an in-memory implementation of storage.Store for testing.
type FakeStore struct {
	mu      sync.RWMutex
	records map[string]storage.SessionRecord
	pingErr error
}

// NewFakeStore returns a FakeStore with no records.
func NewFakeStore() *FakeStore {
	return &FakeStore{records: make(map[string]storage.SessionRecord)}
}

// SetPingError makes Ping fail with err, for readiness tests.
func (s *FakeStore) SetPingError(err error) {
	s.mu.Lock()
	s.pingErr = err
	s.mu.Unlock()
}

// InsertSessions stores the records, last write per id winning.
func (s *FakeStore) InsertSessions(_ context.Context, records []storage.SessionRecord) error {
	s.mu.Lock()
	for _, r := range records {
		s.records[r.ID] = r
	}
	s.mu.Unlock()
	return nil
}

// GetSession returns the record with the given id.
func (s *FakeStore) GetSession(_ context.Context, id string) (*storage.SessionRecord, error) {
	s.mu.RLock()
	r, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

// QuerySessions returns records matching f, newest first, honoring
// offset/limit the way the SQLite store does.
func (s *FakeStore) QuerySessions(_ context.Context, f storage.SessionFilter) ([]storage.SessionRecord, error) {
	matched := s.matching(f)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// CountSessions returns the number of records matching f.
func (s *FakeStore) CountSessions(_ context.Context, f storage.SessionFilter) (int, error) {
	return len(s.matching(f)), nil
}

// PruneSessions deletes records terminated before the cutoff.
func (s *FakeStore) PruneSessions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.records {
		if r.TerminatedAt.Before(before) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Ping returns the configured ping error, nil by default.
func (s *FakeStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pingErr
}

// Close is a no-op.
func (s *FakeStore) Close() error { return nil }

// Len reports the number of stored records.
func (s *FakeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *FakeStore) matching(f storage.SessionFilter) []storage.SessionRecord {
	var since, until time.Time
	if f.Since != "" {
		since, _ = time.Parse(time.RFC3339, f.Since)
	}
	if f.Until != "" {
		until, _ = time.Parse(time.RFC3339, f.Until)
	}

	s.mu.RLock()
	var out []storage.SessionRecord
	for _, r := range s.records {
		if f.Worker != "" && r.Worker != f.Worker {
			continue
		}
		if f.Outcome != "" && r.Outcome != f.Outcome {
			continue
		}
		if !since.IsZero() && r.TerminatedAt.Before(since) {
			continue
		}
		if !until.IsZero() && !r.TerminatedAt.Before(until) {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b storage.SessionRecord) int {
		return b.TerminatedAt.Compare(a.TerminatedAt)
	})
	return out
}
