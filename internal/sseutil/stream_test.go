package sseutil

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReadEvents(t *testing.T) {
	t.Parallel()

	input := "event: message\n" +
		`data: {"name":"integer","data":"0"}` + "\n\n" +
		": keep-alive\n\n" +
		"event: message\n" +
		`data: {"name":"integer","data":"1"}` + "\n\n" +
		"event: complete\n" +
		"data: {}\n\n"

	var events []Event
	for ev := range ReadEvents(t.Context(), strings.NewReader(input)) {
		if ev.Err != nil {
			t.Fatal("unexpected stream error:", ev.Err)
		}
		events = append(events, ev)
	}

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Type != "message" || events[0].Data != `{"name":"integer","data":"0"}` {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[2].Type != "complete" {
		t.Errorf("event 2 type = %q, want complete", events[2].Type)
	}
}

func TestReadEventsBareData(t *testing.T) {
	t.Parallel()

	// A data line with no preceding event line has an empty type, and the
	// type never leaks into a later event.
	input := "data: first\n\n" +
		"event: message\n" +
		"data: second\n\n" +
		"data: third\n\n"

	var events []Event
	for ev := range ReadEvents(t.Context(), strings.NewReader(input)) {
		events = append(events, ev)
	}

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Type != "" {
		t.Errorf("event 0 type = %q, want empty", events[0].Type)
	}
	if events[1].Type != "message" {
		t.Errorf("event 1 type = %q, want message", events[1].Type)
	}
	if events[2].Type != "" {
		t.Errorf("event 2 type = %q, want empty (type must not carry over)", events[2].Type)
	}
}

func TestReadEventsMultiLineData(t *testing.T) {
	t.Parallel()

	input := "event: message\n" +
		"data: line1\n" +
		"data: line2\n\n"

	var events []Event
	for ev := range ReadEvents(t.Context(), strings.NewReader(input)) {
		events = append(events, ev)
	}

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Data != "line1\nline2" {
		t.Errorf("data = %q, want %q", events[0].Data, "line1\nline2")
	}
}

func TestReadEventsTruncatedFrame(t *testing.T) {
	t.Parallel()

	// EOF before the dispatching blank line discards the half-built frame
	// instead of delivering it.
	input := "data: whole\n\n" +
		"event: message\n" +
		"data: cut off"

	var events []Event
	for ev := range ReadEvents(t.Context(), strings.NewReader(input)) {
		if ev.Err != nil {
			t.Fatal("unexpected stream error:", ev.Err)
		}
		events = append(events, ev)
	}

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Data != "whole" {
		t.Errorf("data = %q, want %q", events[0].Data, "whole")
	}
}

func TestReadEventsLineTooLong(t *testing.T) {
	t.Parallel()

	input := "data: ok\n\n" +
		"data: " + strings.Repeat("x", maxLineSize+1) + "\n\n"

	var events []Event
	for ev := range ReadEvents(t.Context(), strings.NewReader(input)) {
		events = append(events, ev)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Data != "ok" {
		t.Errorf("event 0 data = %q, want ok", events[0].Data)
	}
	if !errors.Is(events[1].Err, bufio.ErrTooLong) {
		t.Errorf("final event err = %v, want bufio.ErrTooLong", events[1].Err)
	}
}

func TestReadEventsCancel(t *testing.T) {
	t.Parallel()

	// An unconsumed stream stops promptly when the context is cancelled.
	input := strings.Repeat("data: x\n\n", 100)
	ctx, cancel := context.WithCancel(context.Background())
	ch := ReadEvents(ctx, strings.NewReader(input))

	<-ch // take one event, then walk away
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel never closed after cancel")
		}
	}
}
