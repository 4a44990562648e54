package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/freezer333/streaming-worker/internal/sseutil"
)

// --- Response types (mirror the daemon's wire format) ---

// Worker is one registered worker and its configured option defaults.
type Worker struct {
	Name     string            `json:"name"`
	Defaults map[string]string `json:"defaults,omitempty"`
}

// Session is a session snapshot from the API.
type Session struct {
	ID           string `json:"id"`
	Worker       string `json:"worker"`
	State        string `json:"state"`
	Outcome      string `json:"outcome,omitempty"`
	Error        string `json:"error,omitempty"`
	MessagesIn   int64  `json:"messages_in"`
	MessagesOut  int64  `json:"messages_out"`
	Pending      int    `json:"pending"`
	Buffered     int    `json:"buffered"`
	StartedAt    string `json:"started_at"`
	TerminatedAt string `json:"terminated_at,omitempty"`
}

// HistoryRecord is one terminated session from the history API.
type HistoryRecord struct {
	ID           string `json:"id"`
	Worker       string `json:"worker"`
	Outcome      string `json:"outcome"`
	Error        string `json:"error,omitempty"`
	MessagesIn   int64  `json:"messages_in"`
	MessagesOut  int64  `json:"messages_out"`
	StartedAt    string `json:"started_at"`
	TerminatedAt string `json:"terminated_at"`
}

// HistoryOpts filters history queries. Zero-valued fields are omitted.
type HistoryOpts struct {
	Worker  string
	Outcome string
	Since   string // RFC3339
	Limit   int
}

// WatchMessage is one streamed message frame.
type WatchMessage struct {
	Name string
	Data string
	Raw  string // the frame's original JSON payload
}

// --- API response wrappers ---

type workersResponse struct {
	Workers []Worker `json:"workers"`
}

type sessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

type historyResponse struct {
	Data       []HistoryRecord `json:"data"`
	Pagination struct {
		Total int `json:"total"`
	} `json:"pagination"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// --- Client ---

// Client is the HTTP client for the streamd API.
type Client struct {
	baseURL string
	token   string

	httpClient   *http.Client // bounded timeout for unary calls
	streamClient *http.Client // no timeout, used by Watch
}

// NewClient creates a client for the daemon at baseURL. token may be empty
// when the daemon runs without auth.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:      baseURL,
		token:        token,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
	}
}

// ListWorkers returns the daemon's registered workers.
func (c *Client) ListWorkers() ([]Worker, error) {
	var wr workersResponse
	err := c.get("/v1/workers", &wr)
	return wr.Workers, err
}

// CreateSession starts a session for the named worker.
func (c *Client) CreateSession(worker string, options map[string]string) (*Session, error) {
	body := map[string]any{"worker": worker}
	if len(options) > 0 {
		body["options"] = options
	}
	var s Session
	err := c.post("/v1/sessions", body, &s)
	return &s, err
}

// ListSessions returns all live sessions, oldest first.
func (c *Client) ListSessions() ([]Session, error) {
	var sr sessionsResponse
	err := c.get("/v1/sessions", &sr)
	return sr.Sessions, err
}

// GetSession returns one session, live or recently terminated.
func (c *Client) GetSession(id string) (*Session, error) {
	var s Session
	err := c.get("/v1/sessions/"+id, &s)
	return &s, err
}

// PushMessage queues one inbound message for the session's worker.
func (c *Client) PushMessage(id, name, data string) error {
	body := map[string]string{"name": name, "data": data}
	return c.post("/v1/sessions/"+id+"/messages", body, nil)
}

// CloseSession signals end-of-input; the session drains and terminates on
// its own schedule.
func (c *Client) CloseSession(id string) error {
	return c.delete("/v1/sessions/" + id)
}

// ListHistory returns terminated sessions matching opts, plus the total
// match count before pagination.
func (c *Client) ListHistory(opts HistoryOpts) ([]HistoryRecord, int, error) {
	params := url.Values{}
	if opts.Worker != "" {
		params.Set("worker", opts.Worker)
	}
	if opts.Outcome != "" {
		params.Set("outcome", opts.Outcome)
	}
	if opts.Since != "" {
		params.Set("since", opts.Since)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/v1/history"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var hr historyResponse
	if err := c.get(path, &hr); err != nil {
		return nil, 0, err
	}
	return hr.Data, hr.Pagination.Total, nil
}

// GetHistory returns one terminated session's record.
func (c *Client) GetHistory(id string) (*HistoryRecord, error) {
	var rec HistoryRecord
	err := c.get("/v1/history/"+id, &rec)
	return &rec, err
}

// Watch attaches to a session's event stream and invokes fn for every
// message frame until the terminal frame arrives. It returns nil on a
// "complete" terminal and the worker's failure on an "error" terminal.
func (c *Client) Watch(ctx context.Context, id string, fn func(WatchMessage)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/sessions/"+id+"/events", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := c.checkError(resp); err != nil {
		return err
	}

	for ev := range sseutil.ReadEvents(ctx, resp.Body) {
		switch {
		case ev.Err != nil:
			return ev.Err
		case ev.Type == "message":
			fn(WatchMessage{
				Name: gjson.Get(ev.Data, "name").String(),
				Data: gjson.Get(ev.Data, "data").String(),
				Raw:  ev.Data,
			})
		case ev.Type == "complete":
			return nil
		case ev.Type == "error":
			msg := gjson.Get(ev.Data, "error").String()
			if msg == "" {
				msg = "worker failed"
			}
			return errors.New(msg)
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.New("event stream closed before terminal frame")
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doJSON(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body, result any) error {
	return c.doJSON(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	return c.doJSON(http.MethodDelete, path, nil, nil)
}

func (c *Client) doJSON(method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error.Message == "" {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}
	return errors.New(er.Error.Message)
}
