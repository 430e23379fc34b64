// Package apiclient is the authenticated HTTP wrapper over the portal REST API.
//
// Every call attaches the session's bearer token and applies one unauthorized
// policy: a 401 expires the session (clear + redirect to login) and fails the
// call with ErrSessionExpired. Other non-2xx responses fail with *Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"abjad/internal/tokenstore"
	logx "abjad/pkg/logx"
)

const (
	defaultTimeout = 15 * time.Second
	// maxBody caps how much of a response is read into memory.
	maxBody = 32 << 20
)

var (
	ErrSessionExpired = errors.New("Session expired")
	ErrDownloadFailed = errors.New("Download failed")
)

// Error is a non-2xx, non-401 response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Session is the slice of the token store the client needs.
type Session interface {
	Token() string
	ExpireSession(ctx context.Context)
}

// FormBody is a pre-encoded form payload (e.g. multipart with a boundary).
// The client sends it as-is with its own content type instead of JSON.
type FormBody struct {
	ContentType string
	Body        io.Reader
}

// Options mirrors fetch() options: Method defaults to GET. Body is JSON-encoded
// unless it is a FormBody, an io.Reader or []byte.
type Options struct {
	Method  string
	Headers http.Header
	Body    any
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	base    string
	timeout time.Duration
	http    *http.Client
	session Session
	log     logx.Logger
}

type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithLogger(log logx.Logger) Option { return func(c *Client) { c.log = log } }

func New(cfg Config, session Session, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout: cfg.Timeout,
		http:    &http.Client{},
		session: session,
		log:     logx.Nop(),
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL resolves a path: absolute http(s) URLs pass through, anything else is
// placed under <base>/api.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base + "/api" + path
}

func (c *Client) newRequest(ctx context.Context, path string, opts Options) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}

	var (
		body        io.Reader
		contentType = "application/json"
	)
	switch b := opts.Body.(type) {
	case nil:
	case FormBody:
		body, contentType = b.Body, b.ContentType
	case *FormBody:
		body, contentType = b.Body, b.ContentType
	case io.Reader:
		body = b
	case []byte:
		body = bytes.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.session != nil {
		if tok := c.session.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	// Caller headers win.
	for k, vs := range opts.Headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, path string, opts Options) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, path, opts)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api request failed", logx.String("method", req.Method), logx.String("path", path), logx.Err(err))
		return nil, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, nil, err
	}
	c.log.Debug("api request",
		logx.String("method", req.Method),
		logx.String("path", path),
		logx.Int("status", resp.StatusCode),
		logx.Duration("took", time.Since(start)),
		logx.String("request_id", req.Header.Get("X-Request-ID")),
	)
	return resp, b, nil
}

// Do performs the request and decodes a 2xx JSON body into out (may be nil).
func (c *Client) Do(ctx context.Context, path string, opts Options, out any) error {
	b, err := c.call(ctx, path, opts)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Request returns the decoded JSON body. A non-JSON 2xx body is returned as
// {"message": <text>}.
func (c *Client) Request(ctx context.Context, path string, opts Options) (any, error) {
	b, err := c.call(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return map[string]any{"message": string(b)}, nil
	}
	return v, nil
}

// call sends the request and applies the status policy, returning the 2xx body.
func (c *Client) call(ctx context.Context, path string, opts Options) ([]byte, error) {
	resp, b, err := c.send(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.expire(ctx)
		return nil, ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Message: errorMessage(resp, b)}
	}
	return b, nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, path, Options{}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, path, Options{Method: http.MethodPost, Body: body}, out)
}

// Me loads the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (tokenstore.User, error) {
	var u tokenstore.User
	err := c.Get(ctx, "/auth/me", &u)
	return u, err
}

// Blob is a raw download.
type Blob struct {
	ContentType string
	Data        []byte
}

// RequestBlob downloads a binary payload (invoices, exports). Same 401 policy;
// any other failure is ErrDownloadFailed.
func (c *Client) RequestBlob(ctx context.Context, path string) (Blob, error) {
	resp, b, err := c.send(ctx, path, Options{Headers: http.Header{"Accept": {"*/*"}, "Content-Type": nil}})
	if err != nil {
		return Blob{}, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.expire(ctx)
		return Blob{}, ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Blob{}, ErrDownloadFailed
	}
	return Blob{ContentType: resp.Header.Get("Content-Type"), Data: b}, nil
}

func (c *Client) expire(ctx context.Context) {
	c.log.Info("session expired; redirecting to login")
	if c.session != nil {
		// The request context may already be done; clearing must still happen.
		c.session.ExpireSession(context.WithoutCancel(ctx))
	}
}

// errorMessage picks the payload's "error", then "message", then the status text.
func errorMessage(resp *http.Response, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		payload.Message = strings.TrimSpace(string(body))
	}
	switch {
	case payload.Error != "":
		return payload.Error
	case payload.Message != "":
		return payload.Message
	}
	if t := http.StatusText(resp.StatusCode); t != "" {
		return t
	}
	return resp.Status
}
