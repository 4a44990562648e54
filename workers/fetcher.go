package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	streamworker "github.com/freezer333/streaming-worker"
)

const defaultFetchTimeout = 10 * time.Second

// Fetcher performs HTTP GETs on request: each {"fetch", url} produces one
// {"fetched", json} summary, or {"fetch_error", json} when the request fails.
// Per-URL failures are reported in-band so one bad URL never ends the
// session; the worker serves until end-of-input.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher returns a fetcher factory. All sessions built by one factory
// share a pooled client on a dnscache-backed transport. Options: "timeout",
// the per-request bound (default 10s).
func NewFetcher(resolver *dnscache.Resolver) streamworker.Factory {
	client := &http.Client{Transport: NewTransport(resolver)}
	return func(opts streamworker.Options) (streamworker.Worker, error) {
		timeout := defaultFetchTimeout
		if v := opts.Get("timeout", ""); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return nil, fmt.Errorf("fetcher: invalid timeout %q", v)
			}
			timeout = d
		}
		return &Fetcher{client: client, timeout: timeout}, nil
	}
}

type fetchResult struct {
	URL      string `json:"url"`
	Status   int    `json:"status,omitempty"`
	Bytes    int64  `json:"bytes,omitempty"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// Execute serves fetch requests until the inbox closes.
func (f *Fetcher) Execute(in *streamworker.Inbox, out *streamworker.Outbox) error {
	for {
		m, ok := in.Pop()
		if !ok {
			return nil
		}
		if m.Name != "fetch" {
			continue
		}
		res := f.fetch(m.Data)
		name := "fetched"
		if res.Error != "" {
			name = "fetch_error"
		}
		buf, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("fetcher: encode result: %w", err)
		}
		if err := out.Send(streamworker.Message{Name: name, Data: string(buf)}); err != nil {
			return err
		}
	}
}

// fetch GETs url, discards the body, and summarizes the response.
func (f *Fetcher) fetch(url string) (res fetchResult) {
	res.URL = url
	start := time.Now()
	defer func() { res.Duration = time.Since(start).String() }()

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	resp, err := f.client.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		res.Error = err.Error()
	}
	res.Status = resp.StatusCode
	res.Bytes = n
	return res
}
