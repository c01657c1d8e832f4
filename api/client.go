// Package api is the RD Station Marketing REST client: one authenticated
// call per invocation, normalized errors, and the page loop used by the
// "return all" operations.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-rdstation/core"
	"github.com/goliatone/go-rdstation/credential"
	"github.com/goliatone/go-rdstation/ratelimit"
	"github.com/goliatone/go-rdstation/transport"
)

// Requester is the capability the node dispatcher and the paginator need.
type Requester interface {
	Do(ctx context.Context, req Request) (any, error)
}

type Client struct {
	baseURL              string
	timeout              time.Duration
	maxResponseBodyBytes int64
	transport            core.TransportAdapter
	source               credential.Source
	authenticator        credential.Authenticator
	gate                 *ratelimit.Gate
	observer             *core.Observer
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithMaxResponseBodyBytes(limit int64) ClientOption {
	return func(c *Client) {
		c.maxResponseBodyBytes = limit
	}
}

func WithTransport(adapter core.TransportAdapter) ClientOption {
	return func(c *Client) {
		if adapter != nil {
			c.transport = adapter
		}
	}
}

func WithAuthenticator(authenticator credential.Authenticator) ClientOption {
	return func(c *Client) {
		if authenticator != nil {
			c.authenticator = authenticator
		}
	}
}

func WithRateGate(gate *ratelimit.Gate) ClientOption {
	return func(c *Client) {
		c.gate = gate
	}
}

func WithObserver(observer *core.Observer) ClientOption {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithConfig applies the api section of the module config.
func WithConfig(cfg core.APIConfig) ClientOption {
	return func(c *Client) {
		WithBaseURL(cfg.BaseURL)(c)
		c.timeout = cfg.Timeout
		c.maxResponseBodyBytes = cfg.MaxResponseBodyBytes
	}
}

func NewClient(source credential.Source, opts ...ClientOption) (*Client, error) {
	if source == nil {
		return nil, errors.New("api: credential source is required")
	}
	client := &Client{
		baseURL:       core.DefaultBaseURL,
		transport:     transport.NewRESTAdapter(nil),
		source:        source,
		authenticator: credential.Descriptor{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// Request is shorthand for Do with a request built from its arguments.
func (c *Client) Request(ctx context.Context, method, path string, body map[string]any, query map[string]any, opts ...RequestOption) (any, error) {
	return c.Do(ctx, NewRequest(method, path, body, query, opts...))
}

// Do performs exactly one network call and returns the decoded JSON body.
// An empty response body yields nil.
func (c *Client) Do(ctx context.Context, req Request) (result any, err error) {
	if c == nil || c.transport == nil {
		return nil, errors.New("api: client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()
	statusCode := 0
	defer func() {
		c.observer.Observe(ctx, startedAt, "request", err, map[string]any{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": statusCode,
		})
	}()

	treq, err := req.transportRequest(c.baseURL)
	if err != nil {
		return nil, err
	}
	treq.Timeout = c.timeout
	treq.MaxResponseBodyBytes = c.maxResponseBodyBytes

	cred, err := c.source.Credential(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.authenticator.Authenticate(&treq, cred); err != nil {
		return nil, err
	}
	// per-request headers win over the authenticate hook defaults
	for key, value := range req.Headers {
		treq.Headers[key] = value
	}

	bucket := rateBucket(req.Path)
	if err := c.gate.Before(ctx, bucket); err != nil {
		return nil, err
	}
	res, err := c.transport.Do(ctx, treq)
	if err != nil {
		return nil, transportFailure(err, treq.Method, req.Path)
	}
	statusCode = res.StatusCode
	c.gate.After(ctx, bucket, res.StatusCode, res.Headers)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := decodeErrorBody(res.StatusCode, res.Body)
		apiErr.Method = treq.Method
		apiErr.Path = req.Path
		return nil, apiErr
	}
	return decodeBody(res.Body), nil
}

func decodeBody(body []byte) any {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body)
	}
	return decoded
}

// rateBucket groups calls by the first path segment after /platform.
func rateBucket(path string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	path = strings.TrimPrefix(path, "platform/")
	if index := strings.IndexByte(path, '/'); index >= 0 {
		path = path[:index]
	}
	if index := strings.IndexByte(path, '?'); index >= 0 {
		path = path[:index]
	}
	return path
}

var _ Requester = (*Client)(nil)
