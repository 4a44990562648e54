package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	streamworker "github.com/freezer333/streaming-worker"
)

const wsPingEvery = 15 * time.Second

// wsFrame is the JSON frame exchanged over a websocket attachment. The
// daemon sends "message" frames followed by exactly one "complete" or
// "error"; the client sends "message" frames, which push to the session.
type wsFrame struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The bearer token is the access control here; the daemon serves
	// operators and scripts, not untrusted browser pages.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleSessionWS attaches the caller to a session over a websocket. The
// feed is exclusive, same as the SSE attachment; inbound frames make the
// socket bidirectional where SSE needs a separate push endpoint.
func (s *server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, span := tracer.Start(r.Context(), "session.attach",
		trace.WithAttributes(attribute.String("transport", "ws")))
	feed, err := s.deps.Hub.Attach(id)
	if err != nil {
		span.RecordError(err)
		span.End()
		writeError(w, r, err)
		return
	}
	span.End()
	defer feed.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.readWS(ctx, cancel, conn, id)

	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()

	// Single-writer loop: gorilla connections tolerate one concurrent
	// writer, so the terminal frame, messages, and pings all leave from
	// here.
	for {
		msgs, done, cause := feed.Drain()
		for _, m := range msgs {
			if err := conn.WriteJSON(wsFrame{Type: "message", Name: m.Name, Data: m.Data}); err != nil {
				return
			}
		}
		if done {
			final := wsFrame{Type: "complete"}
			if cause != nil {
				final = wsFrame{Type: "error", Error: cause.Error()}
			}
			if err := conn.WriteJSON(final); err != nil {
				return
			}
			deadline := time.Now().Add(time.Second)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		}

		select {
		case <-feed.Ready():
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readWS pumps inbound frames into the session until the client goes away.
// Read errors cancel the write loop; malformed frames are skipped so one
// bad client message never tears down the attachment.
func (s *server) readWS(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, id string) {
	defer cancel()
	for {
		_, buf, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f wsFrame
		if err := json.Unmarshal(buf, &f); err != nil || f.Type != "message" || f.Name == "" {
			continue
		}
		if err := s.deps.Hub.Push(id, streamworker.Message{Name: f.Name, Data: f.Data}); err != nil {
			slog.LogAttrs(ctx, slog.LevelWarn, "websocket push rejected",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
}
