// Package transport performs the outbound HTTP calls of the integration. It
// never interprets status codes: non-2xx responses are returned as-is and
// left to the API client to normalize.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
)

const KindREST = "rest"

const (
	defaultRESTClientTimeout           = 30 * time.Second
	defaultRESTResponseBodyLimit int64 = core.DefaultMaxResponseBodyBytes
	defaultUserAgent                   = "go-rdstation"
)

type RESTAdapter struct {
	Client               core.HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
	Now                  func() time.Time
}

func NewRESTAdapter(client core.HTTPDoer) *RESTAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	return &RESTAdapter{
		Client: client,
		DefaultHeaders: map[string]string{
			"Accept":     "application/json",
			"User-Agent": defaultUserAgent,
		},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
		Now:                  time.Now,
	}
}

func (*RESTAdapter) Kind() string {
	return KindREST
}

func (a *RESTAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Client == nil {
		return core.TransportResponse{}, failure(nil, goerrors.CategoryInternal, http.StatusInternalServerError,
			"transport: rest adapter requires an http client")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target, err := buildURL(req.URL, req.Query)
	if err != nil {
		return core.TransportResponse{}, err
	}

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, body)
	if err != nil {
		return core.TransportResponse{}, failure(err, goerrors.CategoryBadInput, http.StatusBadRequest,
			"transport: create http request", "method", method, "url", target)
	}
	applyHeaders(httpReq.Header, a.DefaultHeaders)
	applyHeaders(httpReq.Header, req.Headers)

	startedAt := a.now()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, classifyDoError(err, method, target)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := resolveResponseBodyLimit(req.MaxResponseBodyBytes, a.MaxResponseBodyBytes)
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.TransportResponse{}, failure(err, goerrors.CategoryExternal, http.StatusBadGateway,
			"transport: read response body", "status_code", httpRes.StatusCode)
	}
	if int64(len(payload)) > maxBodyBytes {
		return core.TransportResponse{}, failure(nil, goerrors.CategoryExternal, http.StatusBadGateway,
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			"status_code", httpRes.StatusCode,
			"response_limit_b", maxBodyBytes,
		)
	}

	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       payload,
		Metadata: map[string]any{
			"duration_ms": a.now().Sub(startedAt).Milliseconds(),
			"kind":        KindREST,
			"method":      method,
		},
	}, nil
}

func (a *RESTAdapter) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func buildURL(raw string, params map[string]string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", failure(nil, goerrors.CategoryBadInput, http.StatusBadRequest, "transport: request url is required")
	}
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return "", failure(err, goerrors.CategoryBadInput, http.StatusBadRequest,
			"transport: invalid request url", "url", raw)
	}
	if len(params) == 0 {
		return parsedURL.String(), nil
	}
	query := parsedURL.Query()
	for key, value := range params {
		if strings.TrimSpace(key) == "" {
			continue
		}
		query.Set(strings.TrimSpace(key), value)
	}
	parsedURL.RawQuery = query.Encode()
	return parsedURL.String(), nil
}

func applyHeaders(target http.Header, headers map[string]string) {
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		target.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
}

// classifyDoError separates caller cancellation from network failures.
func classifyDoError(err error, method, target string) error {
	switch {
	case errors.Is(err, context.Canceled):
		return failure(err, goerrors.CategoryOperation, 499, "transport: request cancelled", "method", method, "url", target)
	case errors.Is(err, context.DeadlineExceeded):
		return failure(err, goerrors.CategoryExternal, http.StatusGatewayTimeout, "transport: request timed out", "method", method, "url", target)
	default:
		return failure(err, goerrors.CategoryExternal, http.StatusBadGateway, "transport: execute http request", "method", method, "url", target)
	}
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, adapterLimit int64) int64 {
	if requestLimit > 0 {
		return requestLimit
	}
	if adapterLimit > 0 {
		return adapterLimit
	}
	return defaultRESTResponseBodyLimit
}

var _ core.TransportAdapter = (*RESTAdapter)(nil)
