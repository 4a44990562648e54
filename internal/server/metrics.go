package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freezer333/streaming-worker/internal/telemetry"
)

// statusText maps HTTP status codes to pre-allocated strings,
// avoiding a strconv.Itoa allocation per request.
var statusText [600]string

func init() {
	for i := range statusText {
		statusText[i] = strconv.Itoa(i)
	}
}

// metricsMiddleware records request counts, durations, and the
// active-request gauge. Long-lived attachment requests (SSE, websocket) sit
// in ActiveRequests for their whole lifetime, which is the intended reading.
// Recording happens in a defer so aborted streams still count.
func metricsMiddleware(m *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.ActiveRequests.Inc()
			start := time.Now()

			// The logging middleware upstream already wraps the writer;
			// reuse its status capture rather than pooling a second one.
			sw, ok := w.(*statusWriter)
			if !ok {
				sw = statusWriterPool.Get().(*statusWriter)
				sw.ResponseWriter = w
				sw.status = http.StatusOK
				sw.wroteHeader = false
				sw.written = 0
				defer func() {
					sw.ResponseWriter = nil
					statusWriterPool.Put(sw)
				}()
			}

			defer func() {
				m.ActiveRequests.Dec()

				pattern := routePattern(r)
				m.RequestsTotal.WithLabelValues(r.Method, pattern, statusText[sw.status]).Inc()
				m.RequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

// routePattern returns the chi route pattern for bounded cardinality,
// falling back to the raw path for non-chi routes.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
