package api

import (
	"context"
	"testing"
	"time"
)

func TestContactCustomFields_FiltersAndSorts(t *testing.T) {
	requester := &scriptedRequester{responses: []any{map[string]any{
		"fields": []any{
			map[string]any{"api_identifier": "name", "custom_field": false, "label": map[string]any{"default": "Name"}},
			map[string]any{"api_identifier": "cf_plan", "custom_field": true, "label": map[string]any{"default": "Plan"}},
			map[string]any{"api_identifier": "cf_color", "custom_field": true, "label": map[string]any{"default": "Color"}},
		},
	}}}
	options, err := ContactCustomFields(context.Background(), requester)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("expected 2 custom fields, got %d", len(options))
	}
	if options[0].Name != "Color (cf_color)" || options[0].Value != "cf_color" {
		t.Fatalf("unexpected first option %+v", options[0])
	}
	if options[1].Name != "Plan (cf_plan)" {
		t.Fatalf("unexpected second option %+v", options[1])
	}
	if requester.requests[0].Path != ContactFieldsPath {
		t.Fatalf("unexpected path %q", requester.requests[0].Path)
	}
}

func TestSegmentationOptions_MarksStandard(t *testing.T) {
	requester := &scriptedRequester{responses: []any{map[string]any{
		"segmentations": []any{
			map[string]any{"id": float64(71), "name": "Leads", "standard": true},
			map[string]any{"id": float64(9), "name": "Customers", "standard": false},
		},
	}}}
	options, err := SegmentationOptions(context.Background(), requester)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if options[0].Name != "Customers" || options[0].Value != "9" {
		t.Fatalf("unexpected first option %+v", options[0])
	}
	if options[1].Name != "Leads (standard)" || options[1].Value != "71" {
		t.Fatalf("unexpected second option %+v", options[1])
	}
	if requester.requests[0].Headers["Accept"] != "application/json" {
		t.Fatalf("expected accept header, got %+v", requester.requests[0].Headers)
	}
}

func TestLoader_UnknownMethod(t *testing.T) {
	if _, err := NewLoader(&scriptedRequester{}).LoadOptions(context.Background(), "getDeals"); err == nil {
		t.Fatalf("expected unsupported method error")
	}
}

func TestCachedOptionsLoader_FetchesOnce(t *testing.T) {
	requester := &scriptedRequester{responses: []any{
		map[string]any{"segmentations": []any{map[string]any{"id": "1", "name": "All"}}},
		map[string]any{"segmentations": []any{map[string]any{"id": "2", "name": "Changed"}}},
	}}
	cacheService, err := NewOptionsCacheService(time.Minute)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	loader, err := NewCachedOptionsLoader(NewLoader(requester), cacheService, "account-1")
	if err != nil {
		t.Fatalf("new cached loader: %v", err)
	}

	for i := 0; i < 3; i++ {
		options, err := loader.LoadOptions(context.Background(), LoadSegmentationOptions)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(options) != 1 || options[0].Name != "All" {
			t.Fatalf("unexpected cached options %+v", options)
		}
	}
	if len(requester.requests) != 1 {
		t.Fatalf("expected one upstream call, got %d", len(requester.requests))
	}

	if err := loader.Invalidate(context.Background(), LoadSegmentationOptions); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	options, err := loader.LoadOptions(context.Background(), LoadSegmentationOptions)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if options[0].Name != "Changed" || len(requester.requests) != 2 {
		t.Fatalf("expected refetch after invalidate, got %+v", options)
	}
}
