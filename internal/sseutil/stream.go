package sseutil

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Event is one fully assembled server-sent event. A read failure surfaces
// as a final Event with Err set before the channel closes.
type Event struct {
	Type string
	Data string
	Err  error
}

// ReadEvents assembles events from the SSE stream r and sends them on the
// returned channel. An "event:" line names the pending event's type,
// consecutive "data:" lines accumulate and join with newlines, and a blank
// line dispatches the event. Comments and fields other than event/data are
// skipped. The channel closes on EOF, read error, or ctx cancellation; a
// frame cut off mid-assembly by EOF is discarded.
func ReadEvents(ctx context.Context, r io.Reader) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)

		var (
			typ     string
			data    []string
			pending bool
		)
		sc := newLineScanner(r)
		for sc.Scan() {
			line := sc.Text()
			if line == "" {
				if !pending {
					continue
				}
				ev := Event{Type: typ, Data: strings.Join(data, "\n")}
				typ, data, pending = "", data[:0], false
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				continue
			}

			name, value, ok := splitField(line)
			if !ok {
				continue
			}
			switch name {
			case "event":
				typ = value
				pending = true
			case "data":
				data = append(data, value)
				pending = true
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case out <- Event{Err: fmt.Errorf("read event stream: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out
}
