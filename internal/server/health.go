package server

import "net/http"

// Probe responses are pre-rendered; direct header map assignment skips the
// []string{v} alloc from Header.Set.
var (
	probeCT   = []string{"text/plain"}
	probeOK   = []byte("ok")
	probeDown = []byte("not ready")
)

func writeProbe(w http.ResponseWriter, status int, body []byte) {
	w.Header()["Content-Type"] = probeCT
	w.WriteHeader(status)
	w.Write(body)
}

// handleHealthz reports process liveness: the daemon is up and serving.
func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, probeOK)
}

// handleReadyz reports readiness. With history enabled this pings the
// store, so a wedged SQLite file flips the daemon out of rotation.
func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReadyCheck != nil {
		if err := s.deps.ReadyCheck(r.Context()); err != nil {
			writeProbe(w, http.StatusServiceUnavailable, probeDown)
			return
		}
	}
	writeProbe(w, http.StatusOK, probeOK)
}
