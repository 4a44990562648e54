package server

import "net/http"

// Pre-rendered byte slices for SSE framing. The stream hot path writes
// these directly so frame formatting never allocates.
var (
	sseEventMessage  = []byte("event: message\n")
	sseEventComplete = []byte("event: complete\n")
	sseEventError    = []byte("event: error\n")
	sseDataPrefix    = []byte("data: ")
	sseFrameEnd      = []byte("\n\n")
	sseKeepAlive     = []byte(": keep-alive\n\n")
)

// Pre-allocated header value slices for SSE responses.
// Direct map assignment avoids the []string{v} alloc that Header.Set creates.
var (
	sseContentType  = []string{"text/event-stream"}
	sseCacheControl = []string{"no-cache"}
	sseConnection   = []string{"keep-alive"}
	sseAccelBuf     = []string{"no"}
)

// writeSSEHeaders sets the response headers for an SSE stream. The
// X-Accel-Buffering header stops nginx-style proxies from holding frames
// back.
func writeSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h["Content-Type"] = sseContentType
	h["Cache-Control"] = sseCacheControl
	h["Connection"] = sseConnection
	h["X-Accel-Buffering"] = sseAccelBuf
	w.WriteHeader(http.StatusOK)
}

// writeSSEEvent writes one frame: a pre-rendered "event: <name>" line
// followed by its data payload.
func writeSSEEvent(w http.ResponseWriter, eventLine, data []byte) {
	w.Write(eventLine)
	w.Write(sseDataPrefix)
	w.Write(data)
	w.Write(sseFrameEnd)
}

// writeSSEKeepAlive writes an SSE comment to keep the connection alive.
func writeSSEKeepAlive(w http.ResponseWriter) {
	w.Write(sseKeepAlive)
}
