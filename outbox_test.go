package streamworker

import (
	"errors"
	"strconv"
	"testing"
)

func TestOutbox_DrainOrder(t *testing.T) {
	t.Parallel()
	out := NewOutbox()

	const n = 20
	for i := range n {
		if err := out.Send(Message{Name: "n", Data: strconv.Itoa(i)}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if got := out.Len(); got != n {
		t.Fatalf("Len() = %d, want %d", got, n)
	}

	msgs, done, cause := out.Drain()
	if done || cause != nil {
		t.Fatalf("drain: done=%v cause=%v, want open channel", done, cause)
	}
	if len(msgs) != n {
		t.Fatalf("drained %d messages, want %d", len(msgs), n)
	}
	for i, m := range msgs {
		if m.Data != strconv.Itoa(i) {
			t.Errorf("msg %d: got %q, want %q", i, m.Data, strconv.Itoa(i))
		}
	}

	// A second drain returns nothing new.
	msgs, done, _ = out.Drain()
	if len(msgs) != 0 || done {
		t.Errorf("second drain: got %d messages, done=%v", len(msgs), done)
	}
}

func TestOutbox_SendAfterTerminalRejected(t *testing.T) {
	t.Parallel()
	out := NewOutbox()

	out.Send(Message{Name: "kept"})
	out.Complete()

	if err := out.Send(Message{Name: "dropped"}); !errors.Is(err, ErrOutboxClosed) {
		t.Fatalf("send after Complete: got %v, want ErrOutboxClosed", err)
	}

	msgs, done, cause := out.Drain()
	if !done || cause != nil {
		t.Fatalf("drain: done=%v cause=%v, want completed", done, cause)
	}
	if len(msgs) != 1 || msgs[0].Name != "kept" {
		t.Errorf("drained %v, want only the message sent before the marker", msgs)
	}
}

func TestOutbox_FirstMarkerWins(t *testing.T) {
	t.Parallel()

	failErr := errors.New("boom")

	out := NewOutbox()
	out.Fail(failErr)
	out.Complete() // no-op
	if _, done, cause := out.Drain(); !done || !errors.Is(cause, failErr) {
		t.Errorf("Fail then Complete: done=%v cause=%v, want failed/boom", done, cause)
	}

	out = NewOutbox()
	out.Complete()
	out.Fail(failErr) // no-op
	if _, done, cause := out.Drain(); !done || cause != nil {
		t.Errorf("Complete then Fail: done=%v cause=%v, want completed/nil", done, cause)
	}
}

func TestOutbox_FailNilCoerced(t *testing.T) {
	t.Parallel()
	out := NewOutbox()
	out.Fail(nil)

	_, done, cause := out.Drain()
	if !done || !errors.Is(cause, ErrWorkerFailed) {
		t.Errorf("Fail(nil): done=%v cause=%v, want ErrWorkerFailed", done, cause)
	}
}

func TestOutbox_ReadySignal(t *testing.T) {
	t.Parallel()
	out := NewOutbox()

	// No signal while nothing happened.
	select {
	case <-out.Ready():
		t.Fatal("ready before any send")
	default:
	}

	out.Send(Message{Name: "a"})
	out.Send(Message{Name: "b"})

	// Multiple sends coalesce into one pending token.
	select {
	case <-out.Ready():
	default:
		t.Fatal("no wake signal after send")
	}
	select {
	case <-out.Ready():
		t.Fatal("wake signal not coalesced")
	default:
	}

	// Terminal marking signals again.
	out.Complete()
	select {
	case <-out.Ready():
	default:
		t.Fatal("no wake signal after Complete")
	}
}
