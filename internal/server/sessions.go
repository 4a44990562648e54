package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	streamworker "github.com/freezer333/streaming-worker"
)

// readBody consumes at most maxBodySize bytes of the request body. A nil
// return means the 400 has already been written.
func readBody(w http.ResponseWriter, r *http.Request) []byte {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("failed to read request body"))
		return nil
	}
	return body
}

// handleListWorkers returns the registered workers and their configured
// option defaults.
func (s *server) handleListWorkers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"workers": s.deps.Hub.Workers()})
}

// handleCreateSession starts a session for the requested worker:
//
//	{"worker": "counter", "options": {"count": "10"}}
//
// The worker name is required; options override configured defaults key by
// key. Factory validation errors surface as 400 with the factory's message.
func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	body := readBody(w, r)
	if body == nil {
		return
	}

	worker := gjson.GetBytes(body, "worker").String()
	if worker == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("worker not specified"))
		return
	}

	var opts streamworker.Options
	if o := gjson.GetBytes(body, "options"); o.IsObject() {
		opts = make(streamworker.Options)
		o.ForEach(func(key, value gjson.Result) bool {
			opts[key.Str] = value.String()
			return true
		})
	}

	_, span := tracer.Start(r.Context(), "session.create",
		trace.WithAttributes(attribute.String("worker", worker)))
	defer span.End()

	info, err := s.deps.Hub.Create(worker, opts)
	if err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("session_id", info.ID))
	writeJSON(w, http.StatusCreated, info)
}

// handleListSessions returns snapshots of all live sessions, oldest first.
func (s *server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.deps.Hub.List()})
}

// handleGetSession returns one session's snapshot, live or recently
// terminated.
func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Hub.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleCloseSession signals end-of-input to the session's worker. The
// worker drains its inbox and terminates on its own schedule, so the
// response reports acceptance, not completion.
func (s *server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Hub.CloseSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "closing"})
}

// handlePushMessage delivers one inbound message:
//
//	{"name": "value", "data": "42"}
//
// Push is fire-and-forget: 202 acknowledges queueing, not worker-side
// consumption.
func (s *server) handlePushMessage(w http.ResponseWriter, r *http.Request) {
	body := readBody(w, r)
	if body == nil {
		return
	}

	name := gjson.GetBytes(body, "name").String()
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("message name not specified"))
		return
	}
	msg := streamworker.Message{
		Name: name,
		Data: gjson.GetBytes(body, "data").String(),
	}

	_, span := tracer.Start(r.Context(), "session.push")
	defer span.End()

	if err := s.deps.Hub.Push(chi.URLParam(r, "id"), msg); err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
