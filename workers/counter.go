package workers

import (
	"fmt"
	"strconv"

	streamworker "github.com/freezer333/streaming-worker"
)

const defaultCount = 100

// Counter is a pure producer: it emits {"integer", i} for i in [0, count) in
// ascending order, then completes. It never reads its inbox.
type Counter struct {
	count int
}

// NewCounter is the counter factory. Options: "count", the number of
// integers to emit (default 100).
func NewCounter(opts streamworker.Options) (streamworker.Worker, error) {
	count := defaultCount
	if v := opts.Get("count", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("counter: invalid count %q", v)
		}
		count = n
	}
	return &Counter{count: count}, nil
}

// Execute emits the sequence and returns.
func (c *Counter) Execute(_ *streamworker.Inbox, out *streamworker.Outbox) error {
	for i := range c.count {
		if err := out.Send(streamworker.Message{Name: "integer", Data: strconv.Itoa(i)}); err != nil {
			return err
		}
	}
	return nil
}
