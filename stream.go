package streamworker

// Stream adapts a session to channel-based consumption: outbound messages
// are forwarded to a buffered channel that closes at the terminal marker.
// Once the buffer fills, a slow receiver stalls the session's dispatcher
// (not the worker), delaying later deliveries.
type Stream struct {
	s    *Session
	msgs chan Message
	err  error
}

// NewStream wraps s with a receive buffer of the given size. Call it before
// Start so no message precedes the subscription.
func NewStream(s *Session, buffer int) *Stream {
	st := &Stream{
		s:    s,
		msgs: make(chan Message, buffer),
	}
	s.OnMessage(func(m Message) { st.msgs <- m })
	s.OnComplete(func() { close(st.msgs) })
	s.OnError(func(err error) {
		st.err = err
		close(st.msgs)
	})
	return st
}

// Messages returns the receive channel. It closes after the terminal marker;
// check Err afterwards to distinguish completion from failure.
func (st *Stream) Messages() <-chan Message { return st.msgs }

// Err returns the terminal reason once Messages is closed, nil for a
// completed session.
func (st *Stream) Err() error { return st.err }

// Send pushes an inbound message to the worker.
func (st *Stream) Send(m Message) error { return st.s.Push(m) }

// Session returns the underlying session for lifecycle control.
func (st *Stream) Session() *Session { return st.s }
