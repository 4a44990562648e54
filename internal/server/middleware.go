package server

import (
	"bufio"
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// statusWriterPool recycles the per-request writer wrapper; &statusWriter{}
// would otherwise escape and cost an allocation on every request. Fields are
// reset on Get, and ResponseWriter is nilled on Put so pooled wrappers never
// pin a finished connection.
var statusWriterPool = sync.Pool{
	New: func() any { return &statusWriter{} },
}

type ctxKey int

const requestIDKey ctxKey = iota

// requestIDHeader uses the canonical MIME form so direct map access
// (r.Header[key], w.Header()[key] = ...) skips the per-call header-name
// canonicalization inside Header.Get and Header.Set.
const requestIDHeader = "X-Request-Id"

// requestID propagates the caller's X-Request-Id, minting a UUIDv7 when the
// header is absent, and exposes it to handlers and the request log through
// the context.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if vals := r.Header[requestIDHeader]; len(vals) > 0 {
			id = vals[0]
		} else {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header()[requestIDHeader] = []string{id}
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// logging wraps the response in a pooled statusWriter and emits one line per
// request. The line is emitted from a defer so requests that die mid-stream
// (recovery re-panicking with ErrAbortHandler) still get logged with whatever
// status and byte count made it out.
func (s *server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := statusWriterPool.Get().(*statusWriter)
		sw.ResponseWriter = w
		sw.status = http.StatusOK
		sw.wroteHeader = false
		sw.written = 0
		defer func() {
			// Typed attrs stay on the stack; slog.Info would box every
			// key and value into an any.
			slog.LogAttrs(r.Context(), slog.LevelInfo, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Int64("bytes", sw.written),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", requestIDFromContext(r.Context())),
			)
			sw.ResponseWriter = nil
			statusWriterPool.Put(sw)
		}()
		next.ServeHTTP(sw, r)
	})
}

// recovery turns handler panics into JSON 500s while the response is still
// unsent. Once headers are out (an SSE or websocket attachment mid-stream)
// a 500 would just corrupt the stream, so the connection is aborted instead
// and the client sees EOF. Sits inside logging so it can inspect the
// statusWriter.
func (s *server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				// Client went away; net/http handles this quietly.
				panic(rec)
			}
			slog.LogAttrs(r.Context(), slog.LevelError, "panic recovered",
				slog.Any("error", rec),
				slog.String("path", r.URL.Path),
				slog.String("request_id", requestIDFromContext(r.Context())),
			)
			if sw, ok := w.(*statusWriter); ok && sw.wroteHeader {
				panic(http.ErrAbortHandler)
			}
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate enforces the configured bearer token. With no token
// configured every request passes.
func (s *server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := bearerToken(r)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.deps.AuthToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return h[len(prefix):], true
}

// statusWriter captures the response status and body size on their way to
// the wire. Only the first WriteHeader is recorded, matching net/http
// semantics where later calls are superfluous.
type statusWriter struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.written += int64(n)
	return n, err
}

// Flush delegates to the underlying ResponseWriter if it implements
// http.Flusher, so SSE streaming works through middleware.
func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter, allowing
// http.ResponseController and similar utilities to find interface
// implementations.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// Hijack delegates to the underlying ResponseWriter if it implements
// http.Hijacker, so websocket upgrades work through middleware.
func (sw *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}
