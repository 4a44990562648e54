package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freezer333/streaming-worker/internal/storage"
)

// handleListHistory returns persisted session records, newest first, with
// optional worker/outcome/since/until filters and offset/limit pagination.
func (s *server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	since, until, ok := parseSinceUntil(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	outcome := q.Get("outcome")
	if outcome != "" && outcome != "completed" && outcome != "failed" {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid outcome, use completed or failed"))
		return
	}
	offset, limit := parsePagination(r)
	filter := storage.SessionFilter{
		Worker:  q.Get("worker"),
		Outcome: outcome,
		Since:   since,
		Until:   until,
		Offset:  offset,
		Limit:   limit,
	}

	records, err := s.deps.History.QuerySessions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := s.deps.History.CountSessions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []storage.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Data:       records,
		Pagination: pagination{Offset: offset, Limit: limit, Total: total},
	})
}

// handleGetHistory returns one persisted session record by id.
func (s *server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.History.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
