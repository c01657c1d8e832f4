package api

import (
	"context"
	"errors"
	"testing"
)

type scriptedRequester struct {
	responses []any
	requests  []Request
	err       error
}

func (s *scriptedRequester) Do(_ context.Context, req Request) (any, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	index := len(s.requests) - 1
	if index >= len(s.responses) {
		return map[string]any{}, nil
	}
	return s.responses[index], nil
}

func contactPage(size int, offset int, more *bool) map[string]any {
	contacts := make([]any, 0, size)
	for i := 0; i < size; i++ {
		contacts = append(contacts, map[string]any{"seq": offset + i})
	}
	page := map[string]any{"contacts": contacts}
	if more != nil {
		page["has_more"] = *more
	}
	return page
}

func boolPtr(value bool) *bool { return &value }

func TestPaginator_HasMoreAccumulatesInOrder(t *testing.T) {
	requester := &scriptedRequester{responses: []any{
		contactPage(200, 0, boolPtr(true)),
		contactPage(200, 200, boolPtr(true)),
		contactPage(50, 400, boolPtr(false)),
	}}
	paginator := Paginator{Client: requester, Field: "contacts", Style: StopOnHasMore, PageSize: 200}

	items, err := paginator.All(context.Background(), "GET", "/platform/segmentations/1/contacts", nil, map[string]any{"order": "name"})
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(items) != 450 {
		t.Fatalf("expected 450 items, got %d", len(items))
	}
	if len(requester.requests) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(requester.requests))
	}
	for index, item := range items {
		if item["seq"] != index {
			t.Fatalf("expected page order preserved at %d, got %v", index, item["seq"])
		}
	}
	for index, req := range requester.requests {
		if req.Query["page"] != index+1 {
			t.Fatalf("expected page %d, got %v", index+1, req.Query["page"])
		}
		if req.Query["page_size"] != 200 || req.Query["order"] != "name" {
			t.Fatalf("unexpected query %+v", req.Query)
		}
	}
}

func TestPaginator_HasMoreAbsentStopsAfterFirstPage(t *testing.T) {
	requester := &scriptedRequester{responses: []any{contactPage(3, 0, nil)}}
	items, err := Paginator{Client: requester, Field: "contacts"}.All(context.Background(), "GET", "/x", nil, nil)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(items) != 3 || len(requester.requests) != 1 {
		t.Fatalf("expected one page of 3, got %d items in %d calls", len(items), len(requester.requests))
	}
}

func TestPaginator_EmptyPageStops(t *testing.T) {
	requester := &scriptedRequester{responses: []any{
		contactPage(200, 0, nil),
		contactPage(200, 200, nil),
		contactPage(50, 400, nil),
		map[string]any{"contacts": []any{}},
	}}
	items, err := Paginator{Client: requester, Field: "contacts", Style: StopOnEmptyPage}.All(context.Background(), "GET", "/x", nil, nil)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(items) != 450 || len(requester.requests) != 4 {
		t.Fatalf("expected 450 items in 4 calls, got %d in %d", len(items), len(requester.requests))
	}
}

func TestPaginator_EmptyPageStopsOnAbsentField(t *testing.T) {
	requester := &scriptedRequester{responses: []any{
		contactPage(2, 0, nil),
		map[string]any{"other": true},
	}}
	items, err := Paginator{Client: requester, Field: "contacts", Style: StopOnEmptyPage}.All(context.Background(), "GET", "/x", nil, nil)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(items) != 2 || len(requester.requests) != 2 {
		t.Fatalf("expected 2 items in 2 calls, got %d in %d", len(items), len(requester.requests))
	}
}

func TestPaginator_BareObjectWithoutField(t *testing.T) {
	requester := &scriptedRequester{responses: []any{map[string]any{"uuid": "u-1"}}}
	items, err := Paginator{Client: requester}.All(context.Background(), "GET", "/x", nil, nil)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(items) != 1 || items[0]["uuid"] != "u-1" {
		t.Fatalf("expected object treated as single record, got %#v", items)
	}
}

func TestPaginator_TopLevelArray(t *testing.T) {
	requester := &scriptedRequester{responses: []any{[]any{map[string]any{"id": 1}, "scalar"}}}
	items, err := Paginator{Client: requester, Field: "contacts"}.All(context.Background(), "GET", "/x", nil, nil)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(items) != 2 || items[1]["value"] != "scalar" {
		t.Fatalf("unexpected items %#v", items)
	}
}

func TestPaginator_PropagatesErrorsAndCancellation(t *testing.T) {
	boom := errors.New("boom")
	_, err := Paginator{Client: &scriptedRequester{err: boom}}.All(context.Background(), "GET", "/x", nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected request error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	requester := &scriptedRequester{}
	_, err = Paginator{Client: requester}.All(ctx, "GET", "/x", nil, nil)
	if !errors.Is(err, context.Canceled) || len(requester.requests) != 0 {
		t.Fatalf("expected cancellation before first page, got %v", err)
	}
}
