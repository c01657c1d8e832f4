package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
)

// Request describes a single API call. Path is relative to the client base
// URL unless URL is set.
type Request struct {
	Method  string
	Path    string
	URL     string
	Body    map[string]any
	Query   map[string]any
	Headers map[string]string
}

type RequestOption func(*Request)

// WithHeader sets a header on a single request.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		if r.Headers == nil {
			r.Headers = map[string]string{}
		}
		r.Headers[key] = value
	}
}

// WithURL replaces the base URL and path with an absolute URL.
func WithURL(rawURL string) RequestOption {
	return func(r *Request) {
		r.URL = strings.TrimSpace(rawURL)
	}
}

func NewRequest(method, path string, body map[string]any, query map[string]any, opts ...RequestOption) Request {
	req := Request{
		Method: strings.ToUpper(strings.TrimSpace(method)),
		Path:   strings.TrimSpace(path),
		Body:   body,
		Query:  query,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&req)
		}
	}
	return req
}

// transportRequest compiles the request. Empty bodies and empty query maps
// are left out entirely.
func (r Request) transportRequest(baseURL string) (core.TransportRequest, error) {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = http.MethodGet
	}
	target := strings.TrimSpace(r.URL)
	if target == "" {
		path := strings.TrimSpace(r.Path)
		if path == "" {
			return core.TransportRequest{}, goerrors.New("api: request path is required", goerrors.CategoryBadInput).
				WithTextCode(core.ErrorBadInput)
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		target = strings.TrimRight(baseURL, "/") + path
	}

	out := core.TransportRequest{
		Method:  method,
		URL:     target,
		Headers: map[string]string{},
	}
	for key, value := range r.Headers {
		out.Headers[key] = value
	}
	if len(r.Query) > 0 {
		out.Query = make(map[string]string, len(r.Query))
		for key, value := range r.Query {
			if value == nil {
				continue
			}
			out.Query[key] = queryValue(value)
		}
	}
	if len(r.Body) > 0 {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return core.TransportRequest{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "api: encode request body").
				WithTextCode(core.ErrorBadInput)
		}
		out.Body = payload
	}
	return out, nil
}

func queryValue(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func cloneQuery(query map[string]any) map[string]any {
	out := make(map[string]any, len(query)+2)
	for key, value := range query {
		out[key] = value
	}
	return out
}
