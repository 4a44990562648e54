package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	streamworker "github.com/freezer333/streaming-worker"
	"github.com/freezer333/streaming-worker/internal/hub"
	"github.com/freezer333/streaming-worker/internal/storage"
	"github.com/freezer333/streaming-worker/internal/testutil"
)

// testRegistry registers the worker shapes the handler tests need: an echo
// worker, a bounded producer, and a worker that fails after two sends.
func testRegistry() *streamworker.Registry {
	reg := streamworker.NewRegistry()
	reg.Register("echo", func(streamworker.Options) (streamworker.Worker, error) {
		return streamworker.WorkerFunc(func(in *streamworker.Inbox, out *streamworker.Outbox) error {
			for {
				m, ok := in.Pop()
				if !ok {
					return nil
				}
				out.Send(streamworker.Message{Name: "echo", Data: m.Data})
			}
		}), nil
	})
	reg.Register("burst", func(opts streamworker.Options) (streamworker.Worker, error) {
		n, err := strconv.Atoi(opts.Get("count", "3"))
		if err != nil || n < 0 {
			return nil, errors.New("burst: invalid count")
		}
		return streamworker.WorkerFunc(func(_ *streamworker.Inbox, out *streamworker.Outbox) error {
			for i := range n {
				out.Send(streamworker.Message{Name: "integer", Data: strconv.Itoa(i)})
			}
			return nil
		}), nil
	})
	reg.Register("flaky", func(streamworker.Options) (streamworker.Worker, error) {
		return streamworker.WorkerFunc(func(_ *streamworker.Inbox, out *streamworker.Outbox) error {
			out.Send(streamworker.Message{Name: "part", Data: "1"})
			out.Send(streamworker.Message{Name: "part", Data: "2"})
			return errors.New("flaky worker gave up")
		}), nil
	})
	return reg
}

type handlerOpts struct {
	authToken string
	history   storage.Store
	readyErr  error
	maxLive   int
}

func newTestHandler(t testing.TB, o handlerOpts) http.Handler {
	t.Helper()
	h, err := hub.New(hub.Config{Registry: testRegistry(), MaxLive: o.maxLive})
	if err != nil {
		t.Fatal(err)
	}
	var ready ReadyChecker
	if o.readyErr != nil {
		ready = func(context.Context) error { return o.readyErr }
	}
	return New(Deps{
		Hub:        h,
		History:    o.history,
		AuthToken:  o.authToken,
		ReadyCheck: ready,
	})
}

// doJSON issues a request and decodes the JSON response into v (when
// non-nil), returning the status code.
func doJSON(t *testing.T, h http.Handler, method, path, body string, v any) int {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if v != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("decode %s %s response: %v; body = %s", method, path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func createSession(t *testing.T, h http.Handler, body string) hub.Info {
	t.Helper()
	var info hub.Info
	if code := doJSON(t, h, http.MethodPost, "/v1/sessions", body, &info); code != http.StatusCreated {
		t.Fatalf("create session: status = %d", code)
	}
	if info.ID == "" {
		t.Fatal("create session: empty id")
	}
	return info
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, handlerOpts{})
	if code := doJSON(t, h, http.MethodGet, "/readyz", "", nil); code != http.StatusOK {
		t.Errorf("ready: status = %d, want 200", code)
	}

	h = newTestHandler(t, handlerOpts{readyErr: errors.New("db down")})
	if code := doJSON(t, h, http.MethodGet, "/readyz", "", nil); code != http.StatusServiceUnavailable {
		t.Errorf("not ready: status = %d, want 503", code)
	}
}

func TestAuthentication(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{authToken: "secret"})

	// No token.
	req := httptest.NewRequest(http.MethodGet, "/v1/workers", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	// Wrong token.
	req = httptest.NewRequest(http.MethodGet, "/v1/workers", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rec.Code)
	}

	// Correct token.
	req = httptest.NewRequest(http.MethodGet, "/v1/workers", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("correct token: status = %d, want 200", rec.Code)
	}

	// Health stays open without a token.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz with auth on: status = %d, want 200", rec.Code)
	}
}

func TestListWorkers(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{})

	var resp struct {
		Workers []hub.WorkerInfo `json:"workers"`
	}
	if code := doJSON(t, h, http.MethodGet, "/v1/workers", "", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	names := make([]string, len(resp.Workers))
	for i, w := range resp.Workers {
		names[i] = w.Name
	}
	want := []string{"burst", "echo", "flaky"}
	if len(names) != len(want) {
		t.Fatalf("workers = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("workers[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestCreateSession(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{})

	info := createSession(t, h, `{"worker":"echo"}`)
	if info.Worker != "echo" {
		t.Errorf("worker = %q, want echo", info.Worker)
	}
	if info.State != "running" {
		t.Errorf("state = %q, want running", info.State)
	}
}

func TestCreateSessionErrors(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{})

	// Missing worker name.
	if code := doJSON(t, h, http.MethodPost, "/v1/sessions", `{}`, nil); code != http.StatusBadRequest {
		t.Errorf("missing worker: status = %d, want 400", code)
	}

	// Unknown worker.
	if code := doJSON(t, h, http.MethodPost, "/v1/sessions", `{"worker":"nope"}`, nil); code != http.StatusNotFound {
		t.Errorf("unknown worker: status = %d, want 404", code)
	}

	// Factory rejects the options synchronously.
	code := doJSON(t, h, http.MethodPost, "/v1/sessions", `{"worker":"burst","options":{"count":"NaN"}}`, nil)
	if code != http.StatusBadRequest {
		t.Errorf("invalid options: status = %d, want 400", code)
	}
}

func TestSessionLimit(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{maxLive: 1})

	createSession(t, h, `{"worker":"echo"}`)
	if code := doJSON(t, h, http.MethodPost, "/v1/sessions", `{"worker":"echo"}`, nil); code != http.StatusTooManyRequests {
		t.Errorf("over limit: status = %d, want 429", code)
	}
}

func TestPushAndLifecycle(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{})

	info := createSession(t, h, `{"worker":"echo"}`)

	// Push a message.
	path := "/v1/sessions/" + info.ID + "/messages"
	if code := doJSON(t, h, http.MethodPost, path, `{"name":"in","data":"x"}`, nil); code != http.StatusAccepted {
		t.Errorf("push: status = %d, want 202", code)
	}

	// Push without a name is rejected.
	if code := doJSON(t, h, http.MethodPost, path, `{"data":"x"}`, nil); code != http.StatusBadRequest {
		t.Errorf("push unnamed: status = %d, want 400", code)
	}

	// Close, then wait for the terminated snapshot.
	if code := doJSON(t, h, http.MethodDelete, "/v1/sessions/"+info.ID, "", nil); code != http.StatusAccepted {
		t.Errorf("close: status = %d, want 202", code)
	}

	deadline := time.After(2 * time.Second)
	for {
		var got hub.Info
		if code := doJSON(t, h, http.MethodGet, "/v1/sessions/"+info.ID, "", &got); code != http.StatusOK {
			t.Fatalf("get: status = %d", code)
		}
		if got.State == "terminated" {
			if got.Outcome != "completed" {
				t.Errorf("outcome = %q, want completed", got.Outcome)
			}
			if got.MessagesIn != 1 || got.MessagesOut != 1 {
				t.Errorf("counts = %d/%d, want 1/1", got.MessagesIn, got.MessagesOut)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("session never terminated")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	// Push after termination conflicts.
	if code := doJSON(t, h, http.MethodPost, path, `{"name":"in","data":"y"}`, nil); code != http.StatusConflict {
		t.Errorf("push after close: status = %d, want 409", code)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{})

	if code := doJSON(t, h, http.MethodGet, "/v1/sessions/missing", "", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestListSessions(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{})

	first := createSession(t, h, `{"worker":"echo"}`)
	second := createSession(t, h, `{"worker":"echo"}`)

	var resp struct {
		Sessions []hub.Info `json:"sessions"`
	}
	if code := doJSON(t, h, http.MethodGet, "/v1/sessions", "", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(resp.Sessions))
	}
	if resp.Sessions[0].ID != first.ID || resp.Sessions[1].ID != second.ID {
		t.Errorf("order = %s, %s; want %s, %s",
			resp.Sessions[0].ID, resp.Sessions[1].ID, first.ID, second.ID)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	t.Parallel()
	store := testutil.NewFakeStore()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	store.InsertSessions(context.Background(), []storage.SessionRecord{
		{ID: "s-1", Worker: "echo", Outcome: "completed", TerminatedAt: base},
		{ID: "s-2", Worker: "burst", Outcome: "failed", Error: "boom", TerminatedAt: base.Add(time.Minute)},
		{ID: "s-3", Worker: "echo", Outcome: "completed", TerminatedAt: base.Add(2 * time.Minute)},
	})
	h := newTestHandler(t, handlerOpts{history: store})

	var resp struct {
		Data       []storage.SessionRecord `json:"data"`
		Pagination pagination              `json:"pagination"`
	}
	if code := doJSON(t, h, http.MethodGet, "/v1/history", "", &resp); code != http.StatusOK {
		t.Fatalf("list: status = %d", code)
	}
	if resp.Pagination.Total != 3 || len(resp.Data) != 3 {
		t.Fatalf("total = %d, rows = %d, want 3/3", resp.Pagination.Total, len(resp.Data))
	}
	// Newest first.
	if resp.Data[0].ID != "s-3" {
		t.Errorf("first row = %q, want s-3", resp.Data[0].ID)
	}

	// Worker filter.
	if code := doJSON(t, h, http.MethodGet, "/v1/history?worker=echo", "", &resp); code != http.StatusOK {
		t.Fatalf("filter: status = %d", code)
	}
	if len(resp.Data) != 2 {
		t.Errorf("echo rows = %d, want 2", len(resp.Data))
	}

	// Outcome filter plus validation.
	if code := doJSON(t, h, http.MethodGet, "/v1/history?outcome=failed", "", &resp); code != http.StatusOK {
		t.Fatalf("outcome filter: status = %d", code)
	}
	if len(resp.Data) != 1 || resp.Data[0].Error != "boom" {
		t.Errorf("failed rows = %+v, want one boom", resp.Data)
	}
	if code := doJSON(t, h, http.MethodGet, "/v1/history?outcome=exploded", "", nil); code != http.StatusBadRequest {
		t.Errorf("bad outcome: status = %d, want 400", code)
	}
	if code := doJSON(t, h, http.MethodGet, "/v1/history?since=yesterday", "", nil); code != http.StatusBadRequest {
		t.Errorf("bad since: status = %d, want 400", code)
	}

	// Single record.
	var rec storage.SessionRecord
	if code := doJSON(t, h, http.MethodGet, "/v1/history/s-2", "", &rec); code != http.StatusOK {
		t.Fatalf("get: status = %d", code)
	}
	if rec.Outcome != "failed" {
		t.Errorf("outcome = %q, want failed", rec.Outcome)
	}
	if code := doJSON(t, h, http.MethodGet, "/v1/history/missing", "", nil); code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", code)
	}
}

func TestHistoryNotMountedWithoutStore(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{})

	if code := doJSON(t, h, http.MethodGet, "/v1/history", "", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, handlerOpts{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("generated request id missing")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "given-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "given-id" {
		t.Errorf("request id = %q, want given-id", got)
	}
}
