package sqlstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-rdstation/core"
	sqlstore "github.com/goliatone/go-rdstation/store/sql"
)

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"rdstation_activity_entries",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "rdstation_activity_entries" {
		t.Fatalf("expected rdstation_activity_entries table, got %q", tableName)
	}
}

func TestActivityStore_RecordAndListByExecution(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewActivityStoreFromPersistence(client)
	if err != nil {
		t.Fatalf("new activity store: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []core.ActivityEntry{
		{ExecutionID: "exec-1", Resource: "contact", Operation: "create", ItemIndex: 0, Status: core.ActivityStatusSuccess, OutputCount: 1, CreatedAt: base},
		{
			ExecutionID: "exec-1",
			Resource:    "contact",
			Operation:   "create",
			ItemIndex:   1,
			Status:      core.ActivityStatusFailure,
			Error:       "Email is required",
			Metadata:    map[string]any{"text_code": core.ErrorValidation},
			CreatedAt:   base.Add(time.Second),
		},
		{ExecutionID: "exec-2", Resource: "funnel", Operation: "get", ItemIndex: 0, Status: core.ActivityStatusSuccess, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("record activity: %v", err)
		}
	}

	page, err := store.List(ctx, core.ActivityFilter{ExecutionID: "exec-1"})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected two entries for exec-1, got total=%d items=%d", page.Total, len(page.Items))
	}
	if page.Items[0].ItemIndex != 1 {
		t.Fatalf("expected newest entry first, got item %d", page.Items[0].ItemIndex)
	}
	if page.Items[0].Error != "Email is required" || page.Items[0].Status != core.ActivityStatusFailure {
		t.Fatalf("unexpected failure entry %#v", page.Items[0])
	}
	if page.Items[0].Metadata["text_code"] != core.ErrorValidation {
		t.Fatalf("expected metadata to round trip, got %#v", page.Items[0].Metadata)
	}
	if page.Items[0].ID == "" {
		t.Fatalf("expected generated id")
	}

	failures, err := store.List(ctx, core.ActivityFilter{Status: core.ActivityStatusFailure})
	if err != nil {
		t.Fatalf("list failures: %v", err)
	}
	if failures.Total != 1 {
		t.Fatalf("expected one failure, got %d", failures.Total)
	}

	since := base.Add(1500 * time.Millisecond)
	recent, err := store.List(ctx, core.ActivityFilter{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if recent.Total != 1 || recent.Items[0].Resource != "funnel" {
		t.Fatalf("expected only the funnel entry, got %#v", recent.Items)
	}
}

func TestActivityStore_ListSinceIncludesBoundary(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewActivityStoreFromPersistence(client)
	if err != nil {
		t.Fatalf("new activity store: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	offsets := []time.Duration{0, time.Second, 1500 * time.Millisecond, 3 * time.Second}
	for index, offset := range offsets {
		if err := store.Record(ctx, core.ActivityEntry{
			ExecutionID: "exec-since",
			Resource:    "contact",
			Operation:   "get",
			ItemIndex:   index,
			CreatedAt:   base.Add(offset),
		}); err != nil {
			t.Fatalf("record activity: %v", err)
		}
	}

	since := base.Add(time.Second)
	page, err := store.List(ctx, core.ActivityFilter{ExecutionID: "exec-since", Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected entries at and after the bound, got %d", page.Total)
	}
	for _, item := range page.Items {
		if item.CreatedAt.Before(since) {
			t.Fatalf("entry %d is older than the bound: %s", item.ItemIndex, item.CreatedAt)
		}
	}
}

func TestActivityStore_ListPaginates(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewActivityStore(client.DB())
	if err != nil {
		t.Fatalf("new activity store: %v", err)
	}
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, core.ActivityEntry{
			ExecutionID: "exec-page",
			Resource:    "contact",
			Operation:   "getAll",
			ItemIndex:   i,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	first, err := store.List(ctx, core.ActivityFilter{ExecutionID: "exec-page", Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(first.Items) != 2 || !first.HasMore || first.NextOffset != 2 {
		t.Fatalf("unexpected first page %#v", first)
	}
	last, err := store.List(ctx, core.ActivityFilter{ExecutionID: "exec-page", Page: 3, PerPage: 2})
	if err != nil {
		t.Fatalf("list last page: %v", err)
	}
	if len(last.Items) != 1 || last.HasMore {
		t.Fatalf("unexpected last page %#v", last)
	}
	if last.Items[0].Status != core.ActivityStatusSuccess {
		t.Fatalf("expected default success status, got %q", last.Items[0].Status)
	}
}

func TestActivityStore_RecordValidatesEntry(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewActivityStore(client.DB())
	if err != nil {
		t.Fatalf("new activity store: %v", err)
	}
	if err := store.Record(context.Background(), core.ActivityEntry{Resource: "contact"}); err == nil {
		t.Fatalf("expected missing execution id to fail")
	}
	if err := store.Record(context.Background(), core.ActivityEntry{ExecutionID: "exec", ItemIndex: -1}); err == nil {
		t.Fatalf("expected negative item index to fail")
	}
}

func TestActivityStore_PruneByRowCap(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewActivityStore(client.DB())
	if err != nil {
		t.Fatalf("new activity store: %v", err)
	}
	base := time.Now().UTC().Add(-time.Minute)
	for i := 0; i < 4; i++ {
		if err := store.Record(ctx, core.ActivityEntry{
			ExecutionID: "exec-prune",
			ItemIndex:   i,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	deleted, err := store.Prune(ctx, sqlstore.RetentionPolicy{RowCap: 3})
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected one pruned row, got %d", deleted)
	}
	page, err := store.List(ctx, core.ActivityFilter{ExecutionID: "exec-prune", PerPage: 10})
	if err != nil {
		t.Fatalf("list after prune: %v", err)
	}
	for _, item := range page.Items {
		if item.ItemIndex == 0 {
			t.Fatalf("expected the oldest entry to be pruned")
		}
	}
}

func TestNewActivityStoreFromPersistenceRejectsUnknownClient(t *testing.T) {
	if _, err := sqlstore.NewActivityStoreFromPersistence("not a client"); err == nil {
		t.Fatalf("expected unsupported client error")
	}
	if _, err := sqlstore.NewActivityStoreFromPersistence(nil); err == nil {
		t.Fatalf("expected nil client error")
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:rdstation-test-%d?mode=memory&cache=shared",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.OpenSQLite(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}
	return client, func() {
		_ = client.Close()
	}
}
