package workers

import (
	"testing"

	streamworker "github.com/freezer333/streaming-worker"
)

// collect runs one session to termination: it starts the worker, pushes the
// given messages, optionally closes the inbox, and returns everything
// delivered plus the terminal reason.
func collect(t *testing.T, factory streamworker.Factory, opts streamworker.Options,
	pushes []streamworker.Message, closeInbox bool) ([]streamworker.Message, error) {

	t.Helper()
	s, err := streamworker.New(factory, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var got []streamworker.Message
	s.OnMessage(func(m streamworker.Message) { got = append(got, m) })

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, m := range pushes {
		if err := s.Push(m); err != nil {
			t.Fatalf("Push %v: %v", m, err)
		}
	}
	if closeInbox {
		s.Close()
	}
	// Wait first: the dispatcher is still appending to got until the
	// session terminates.
	err = s.Wait(t.Context())
	return got, err
}
