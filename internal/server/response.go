package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	streamworker "github.com/freezer333/streaming-worker"
	"github.com/freezer333/streaming-worker/internal/hub"
	"github.com/freezer333/streaming-worker/internal/storage"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func errorResponse(msg string) apiError {
	var e apiError
	e.Error.Message = msg
	e.Error.Type = "invalid_request_error"
	return e
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, hub.ErrSessionNotFound),
		errors.Is(err, streamworker.ErrWorkerNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, hub.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, hub.ErrSessionLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, hub.ErrFeedBusy):
		return http.StatusConflict
	case errors.Is(err, streamworker.ErrSessionClosed),
		errors.Is(err, streamworker.ErrInboxClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code and writes the JSON error body.
// Unrecognized errors are logged server-side and sanitized to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("error", err.Error()),
		)
		writeJSON(w, status, errorResponse("internal error"))
		return
	}
	writeJSON(w, status, errorResponse(err.Error()))
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// (w.Header()["Content-Type"] = jsonCT) avoids the []string{v} alloc
// that Header.Set creates on every call. Saves 1 alloc/req.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON limits body size, decodes JSON into v, and writes a 400 on error.
// Returns true if decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	return true
}

// --- Pagination helpers ---

type pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

type listResponse struct {
	Data       any        `json:"data"`
	Pagination pagination `json:"pagination"`
}

func parsePagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return
}

// parseSinceUntil validates optional since/until RFC3339 query params and
// normalizes them to UTC, so the store's lexicographic timestamp comparison
// holds for any client offset. Writes 400 and returns false on bad input.
func parseSinceUntil(w http.ResponseWriter, r *http.Request) (since, until string, ok bool) {
	q := r.URL.Query()
	since, until = q.Get("since"), q.Get("until")
	if since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid since format, use RFC3339"))
			return "", "", false
		}
		since = ts.UTC().Format(time.RFC3339)
	}
	if until != "" {
		ts, err := time.Parse(time.RFC3339, until)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid until format, use RFC3339"))
			return "", "", false
		}
		until = ts.UTC().Format(time.RFC3339)
	}
	return since, until, true
}
