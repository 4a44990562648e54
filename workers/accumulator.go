package workers

import (
	"fmt"
	"strconv"

	streamworker "github.com/freezer333/streaming-worker"
)

// Accumulator sums the integer payloads of messages carrying a configured
// name until it reads the sentinel payload or end-of-input, then emits one
// {"sum", total} and completes. Messages with other names are skipped. The
// sentinel is an application convention configured per session; the bridge
// itself knows nothing about it.
type Accumulator struct {
	name     string
	sentinel string
}

// NewAccumulator is the accumulator factory. Options: "name", the message
// name to sum (default "value"), and "sentinel", the payload ending the run
// (default "-1").
func NewAccumulator(opts streamworker.Options) (streamworker.Worker, error) {
	return &Accumulator{
		name:     opts.Get("name", "value"),
		sentinel: opts.Get("sentinel", "-1"),
	}, nil
}

// Execute pops until the sentinel or end-of-input, then reports the sum.
// A non-numeric payload fails the session.
func (a *Accumulator) Execute(in *streamworker.Inbox, out *streamworker.Outbox) error {
	var total int64
	for {
		m, ok := in.Pop()
		if !ok {
			break
		}
		if m.Name != a.name {
			continue
		}
		if m.Data == a.sentinel {
			break
		}
		n, err := strconv.ParseInt(m.Data, 10, 64)
		if err != nil {
			return fmt.Errorf("accumulator: non-numeric payload %q: %w", m.Data, err)
		}
		total += n
	}
	return out.Send(streamworker.Message{Name: "sum", Data: strconv.FormatInt(total, 10)})
}
