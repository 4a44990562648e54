package background

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/freezer333/streaming-worker/internal/storage"
)

type fakeHistoryStore struct {
	mu      sync.Mutex
	batches [][]storage.SessionRecord
}

func (s *fakeHistoryStore) InsertSessions(_ context.Context, records []storage.SessionRecord) error {
	s.mu.Lock()
	s.batches = append(s.batches, records)
	s.mu.Unlock()
	return nil
}

func (s *fakeHistoryStore) totalRecords() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestHistoryRecorder_BatchOnSize(t *testing.T) {
	t.Parallel()
	store := &fakeHistoryStore{}
	rec := NewHistoryRecorder(store, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	// Send exactly historyBatchSize records.
	for i := range historyBatchSize {
		rec.Record(storage.SessionRecord{ID: fmt.Sprintf("s-%d", i)})
	}

	// Wait for batch to be flushed.
	deadline := time.After(2 * time.Second)
	for {
		if store.totalRecords() >= historyBatchSize {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("batch not flushed; got %d records", store.totalRecords())
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()
	<-done
}

func TestHistoryRecorder_FlushOnTimeout(t *testing.T) {
	t.Parallel()
	store := &fakeHistoryStore{}
	rec := NewHistoryRecorder(store, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	// Send fewer than batch size.
	rec.Record(storage.SessionRecord{ID: "test-1"})
	rec.Record(storage.SessionRecord{ID: "test-2"})

	// Wait for ticker-based flush.
	deadline := time.After(2 * time.Second)
	for {
		if store.totalRecords() >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timeout flush not triggered; got %d records", store.totalRecords())
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()
	<-done
}

func TestHistoryRecorder_DropOnFull(t *testing.T) {
	t.Parallel()
	store := &fakeHistoryStore{}
	rec := &HistoryRecorder{
		ch:    make(chan storage.SessionRecord, 2), // tiny buffer
		store: store,
	}

	// Fill the channel.
	rec.Record(storage.SessionRecord{ID: "1"})
	rec.Record(storage.SessionRecord{ID: "2"})
	// This should be dropped silently.
	rec.Record(storage.SessionRecord{ID: "3"})

	if rec.Pending() != 2 {
		t.Errorf("pending = %d, want 2", rec.Pending())
	}
}

func TestHistoryRecorder_DrainOnShutdown(t *testing.T) {
	t.Parallel()
	store := &fakeHistoryStore{}
	rec := NewHistoryRecorder(store, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	// Send some records.
	rec.Record(storage.SessionRecord{ID: "drain-1"})
	rec.Record(storage.SessionRecord{ID: "drain-2"})

	// Cancel immediately -- should drain.
	time.Sleep(50 * time.Millisecond) // let the goroutine start
	cancel()
	<-done

	if store.totalRecords() < 2 {
		t.Errorf("expected at least 2 drained records, got %d", store.totalRecords())
	}
}
