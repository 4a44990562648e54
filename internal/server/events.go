package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const sseKeepAliveEvery = 15 * time.Second

// sseTerminal is the payload of the final "complete" or "error" frame.
type sseTerminal struct {
	Error string `json:"error,omitempty"`
}

// handleSessionEvents attaches the caller to a session's outbound stream
// over SSE. Each message becomes an "event: message" frame carrying
// {"name","data"} JSON; the stream ends with exactly one "event: complete"
// or "event: error" frame. The feed is exclusive, so a second concurrent
// attach is rejected with 409; a client that reconnects resumes from the
// first message it has not drained.
func (s *server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	// The span covers the attach decision only; the stream itself can stay
	// open for hours.
	_, span := tracer.Start(r.Context(), "session.attach",
		trace.WithAttributes(attribute.String("transport", "sse")))
	feed, err := s.deps.Hub.Attach(chi.URLParam(r, "id"))
	if err != nil {
		span.RecordError(err)
		span.End()
		writeError(w, r, err)
		return
	}
	span.End()
	defer feed.Close()

	writeSSEHeaders(w)
	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("ResponseWriter does not implement http.Flusher")
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAliveEvery)
	defer keepAlive.Stop()

	for {
		// Drain before waiting: the backlog may predate any wake signal.
		msgs, done, cause := feed.Drain()
		for _, m := range msgs {
			data, err := json.Marshal(m)
			if err != nil {
				slog.LogAttrs(r.Context(), slog.LevelError, "encode event",
					slog.String("error", err.Error()),
				)
				continue
			}
			writeSSEEvent(w, sseEventMessage, data)
		}
		if len(msgs) > 0 {
			flusher.Flush()
		}
		if done {
			var term sseTerminal
			eventLine := sseEventComplete
			if cause != nil {
				eventLine = sseEventError
				term.Error = cause.Error()
			}
			data, _ := json.Marshal(term)
			writeSSEEvent(w, eventLine, data)
			flusher.Flush()
			return
		}

		select {
		case <-feed.Ready():
		case <-keepAlive.C:
			writeSSEKeepAlive(w)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
