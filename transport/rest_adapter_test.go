package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
)

func TestRESTAdapter_SendsHeadersQueryAndBody(t *testing.T) {
	var gotMethod, gotQuery, gotAuth, gotAccept, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("X-Request-Id", "req-1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	res, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  "post",
		URL:     server.URL + "/platform/events",
		Query:   map[string]string{"event_type": "conversion"},
		Headers: map[string]string{"Authorization": "Bearer token"},
		Body:    []byte(`{"event_type":"CONVERSION"}`),
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotMethod != http.MethodPost || gotQuery != "event_type=conversion" {
		t.Fatalf("unexpected method/query %s %s", gotMethod, gotQuery)
	}
	if gotAuth != "Bearer token" || gotAccept != "application/json" {
		t.Fatalf("unexpected headers auth=%q accept=%q", gotAuth, gotAccept)
	}
	if gotBody != `{"event_type":"CONVERSION"}` {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if res.StatusCode != http.StatusCreated || string(res.Body) != `{"ok":true}` {
		t.Fatalf("unexpected response %+v", res)
	}
	if res.Headers["X-Request-Id"] != "req-1" {
		t.Fatalf("expected flattened response headers, got %+v", res.Headers)
	}
}

func TestRESTAdapter_ReturnsNon2xxWithoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"error_message":"bad"}]}`))
	}))
	defer server.Close()

	res, err := NewRESTAdapter(server.Client()).Do(context.Background(), core.TransportRequest{URL: server.URL})
	if err != nil {
		t.Fatalf("expected no transport error, got %v", err)
	}
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.StatusCode)
	}
}

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorTransportFailure {
		t.Fatalf("expected %q text code, got %q", core.ErrorTransportFailure, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_NilClientReturnsRichError(t *testing.T) {
	var adapter *RESTAdapter
	_, err := adapter.Do(context.Background(), core.TransportRequest{URL: "https://api.rd.services"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal go-errors envelope, got %v", err)
	}
}

func TestRESTAdapter_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRESTAdapter(server.Client()).Do(ctx, core.TransportRequest{URL: server.URL})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %v", err)
	}
	if rich.TextCode != core.ErrorExecutionCancelled {
		t.Fatalf("expected cancelled text code, got %q", rich.TextCode)
	}
	if rich.Metadata["adapter"] != KindREST || rich.Metadata["method"] != http.MethodGet {
		t.Fatalf("unexpected metadata %#v", rich.Metadata)
	}
}

func TestRESTAdapter_RequiresURL(t *testing.T) {
	_, err := NewRESTAdapter(nil).Do(context.Background(), core.TransportRequest{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input error, got %v", err)
	}
}
