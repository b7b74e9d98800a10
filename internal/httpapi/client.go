// Package httpapi is the terminal's only way to reach the backend: every call
// carries the stored bearer token, non-2xx responses become poserr errors and
// an unauthorized response tears the session down.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/logger"
	"tokoku/client/internal/poserr"
	"tokoku/client/internal/session"
	"tokoku/client/internal/xid"
)

// ProbePath is the session probe. Its 401 is left to the caller.
const ProbePath = "/auth/me"

const maxErrorBody = 1 << 20

// UnauthorizedFunc runs after a 401 has cleared the session.
type UnauthorizedFunc func(ctx context.Context, err error)

type Client struct {
	baseURL        string
	http           *http.Client
	sessions       session.Store
	metrics        *Metrics
	log            *logger.Logger
	terminalID     string
	onUnauthorized UnauthorizedFunc
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d, Transport: c.http.Transport}
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithTerminalID(id string) Option {
	return func(c *Client) { c.terminalID = id }
}

// WithUnauthorizedHandler sets the hook that sends the operator back to login.
func WithUnauthorizedHandler(fn UnauthorizedFunc) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(baseURL string, sessions session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessions == nil {
		c.sessions = session.NewMemoryStore()
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Sessions exposes the session store the client reads its token from.
func (c *Client) Sessions() session.Store {
	return c.sessions
}

// call describes one request. route is the path template used as the metric
// label, path the concrete path.
type call struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
	out    any
	// raw receives the body of a download instead of decoding JSON.
	raw *domain.Export
}

func (c *Client) do(ctx context.Context, cl call) error {
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return poserr.Wrap(poserr.CodeInternal, err, "encode request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return poserr.Wrap(poserr.CodeInternal, err, "build request")
	}
	requestID := xid.New("req")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.terminalID != "" {
		req.Header.Set("X-Terminal-ID", c.terminalID)
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.Observe(cl.route, cl.method, 0, elapsed)
		c.log.Warn(c.log.WithRequestID(ctx, requestID), cl.method+" "+cl.route+" failed", err)
		return poserr.Wrap(poserr.CodeNetwork, err, "tidak dapat terhubung ke server")
	}
	defer resp.Body.Close()

	c.metrics.Observe(cl.route, cl.method, resp.StatusCode, elapsed)
	c.log.Debug(c.log.WithRequestID(ctx, requestID), "api call", map[string]any{
		"method":     cl.method,
		"path":       cl.path,
		"status":     resp.StatusCode,
		"latency_ms": elapsed.Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := poserr.FromStatus(resp.StatusCode, errorMessage(resp.Body))
		if resp.StatusCode == http.StatusUnauthorized && cl.path != ProbePath {
			c.teardown(ctx, apiErr)
		}
		return apiErr
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if cl.raw != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return poserr.Wrap(poserr.CodeNetwork, err, "download interrupted")
		}
		cl.raw.Data = data
		cl.raw.ContentType = resp.Header.Get("Content-Type")
		cl.raw.FileName = attachmentName(resp.Header.Get("Content-Disposition"))
		return nil
	}
	if cl.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return poserr.Wrap(poserr.CodeAPI, err, "respons server tidak valid").WithStatus(resp.StatusCode)
	}
	return nil
}

func (c *Client) token(ctx context.Context) string {
	s, err := c.sessions.Load(ctx)
	if err != nil {
		c.log.Warn(ctx, "session load failed", err)
		return ""
	}
	return s.Token
}

func (c *Client) teardown(ctx context.Context, cause error) {
	if err := c.sessions.Clear(ctx); err != nil {
		c.log.Error(ctx, "session clear failed", err)
	}
	c.log.Info(ctx, "session cleared after unauthorized response")
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx, cause)
	}
}

// errorMessage pulls message or error out of a JSON error body.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(body.Error)
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func listQuery(q domain.ListQuery) url.Values {
	q = q.Normalize()
	values := url.Values{}
	values.Set("page", fmt.Sprint(q.Page))
	values.Set("limit", fmt.Sprint(q.Limit))
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	for k, v := range q.Filters {
		if v != "" {
			values.Set(k, v)
		}
	}
	return values
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
