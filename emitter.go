package streamworker

import "sync"

// Emitter is a name-keyed callback facade over a session: handlers subscribe
// per message name and Emit pushes inbound messages. It suits
// request/response workers where each message name is a distinct event.
type Emitter struct {
	s *Session

	mu       sync.RWMutex
	handlers map[string][]func(Message)
}

// NewEmitter wraps s. Subscribe before Start so no early message goes
// unrouted; messages with no handler for their name are dropped by the
// emitter (other OnMessage callbacks on the session still see them).
func NewEmitter(s *Session) *Emitter {
	e := &Emitter{
		s:        s,
		handlers: make(map[string][]func(Message)),
	}
	s.OnMessage(e.route)
	return e
}

// On registers fn for messages named name. Multiple handlers per name run in
// registration order on the session's dispatcher.
func (e *Emitter) On(name string, fn func(Message)) {
	e.mu.Lock()
	e.handlers[name] = append(e.handlers[name], fn)
	e.mu.Unlock()
}

// Emit pushes an inbound message to the worker.
func (e *Emitter) Emit(name, data string) error {
	return e.s.Push(Message{Name: name, Data: data})
}

// Session returns the underlying session for lifecycle control.
func (e *Emitter) Session() *Session { return e.s }

func (e *Emitter) route(m Message) {
	e.mu.RLock()
	handlers := e.handlers[m.Name]
	e.mu.RUnlock()
	for _, fn := range handlers {
		fn(m)
	}
}
