package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/freezer333/streaming-worker/internal/hub"
)

func TestMain(m *testing.M) {
	// io.Discard silences the request log for the whole package, but the
	// TextHandler still formats every attr so benchmark allocation counts
	// stay honest. A handler reporting Enabled()=false would skip that
	// work and undercount.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func BenchmarkPushMessage(b *testing.B) {
	h := newTestHandler(b, handlerOpts{})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"worker":"echo"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		b.Fatalf("create: status = %d; body = %s", rec.Code, rec.Body.String())
	}
	var info hub.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		b.Fatalf("decode create response: %v", err)
	}
	path := "/v1/sessions/" + info.ID + "/messages"

	b.ResetTimer()
	for b.Loop() {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"name":"n","data":"1"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusAccepted {
			b.Fatalf("status = %d, want 202; body = %s", rec.Code, rec.Body.String())
		}
	}
}

func BenchmarkListWorkersParallel(b *testing.B) {
	h := newTestHandler(b, handlerOpts{})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req := httptest.NewRequest(http.MethodGet, "/v1/workers", nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				b.Fatalf("status = %d, want 200", rec.Code)
			}
		}
	})
}
