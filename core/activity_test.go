package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryActivitySink_ListFiltersAndPages(t *testing.T) {
	sink := NewMemoryActivitySink()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for index := 0; index < 5; index++ {
		status := ActivityStatusSuccess
		if index%2 == 1 {
			status = ActivityStatusFailure
		}
		if err := sink.Record(context.Background(), ActivityEntry{
			ExecutionID: "exec-1",
			Resource:    "contact",
			Operation:   "create",
			ItemIndex:   index,
			Status:      status,
			CreatedAt:   base.Add(time.Duration(index) * time.Minute),
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	page, err := sink.List(context.Background(), ActivityFilter{Status: ActivityStatusSuccess, PerPage: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 || !page.HasMore {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].ItemIndex != 4 || page.Items[1].ItemIndex != 2 {
		t.Fatalf("expected newest first, got %d,%d", page.Items[0].ItemIndex, page.Items[1].ItemIndex)
	}

	page, err = sink.List(context.Background(), ActivityFilter{Status: ActivityStatusSuccess, PerPage: 2, Page: 2})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page.Items) != 1 || page.HasMore {
		t.Fatalf("unexpected second page %+v", page)
	}
}

func TestNormalizeActivityFilter_Clamps(t *testing.T) {
	filter := NormalizeActivityFilter(ActivityFilter{Page: -1, PerPage: 1000, Resource: " contact "})
	if filter.Page != 1 || filter.PerPage != 200 || filter.Resource != "contact" {
		t.Fatalf("unexpected normalized filter %+v", filter)
	}
}
