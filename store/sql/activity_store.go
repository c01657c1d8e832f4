package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-rdstation/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const DefaultActivityPerPage = 25

// RetentionPolicy bounds the activity ledger. Zero values disable the
// matching rule.
type RetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

type ActivityStore struct {
	db   *bun.DB
	repo repository.Repository[*activityEntryRecord]
	now  func() time.Time
}

func NewActivityStore(db *bun.DB) (*ActivityStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*activityEntryRecord](db, activityHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid activity repository wiring: %w", err)
		}
	}
	return &ActivityStore{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *ActivityStore) Record(ctx context.Context, entry core.ActivityEntry) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: activity store is not configured")
	}
	executionID := strings.TrimSpace(entry.ExecutionID)
	if executionID == "" {
		return fmt.Errorf("sqlstore: activity entry requires an execution id")
	}
	if entry.ItemIndex < 0 {
		return fmt.Errorf("sqlstore: activity item index must be >= 0")
	}

	id := strings.TrimSpace(entry.ID)
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := entry.CreatedAt.UTC()
	if entry.CreatedAt.IsZero() {
		createdAt = s.now()
	}
	status := strings.TrimSpace(string(entry.Status))
	if status == "" {
		status = string(core.ActivityStatusSuccess)
	}

	record := &activityEntryRecord{
		ID:          id,
		ExecutionID: executionID,
		Resource:    strings.TrimSpace(entry.Resource),
		Operation:   strings.TrimSpace(entry.Operation),
		ItemIndex:   entry.ItemIndex,
		Status:      status,
		Error:       strings.TrimSpace(entry.Error),
		Description: strings.TrimSpace(entry.Description),
		OutputCount: entry.OutputCount,
		DurationMS:  entry.DurationMS,
		Metadata:    copyAnyMap(entry.Metadata),
		CreatedAt:   createdAt,
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *ActivityStore) List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	if s == nil || s.repo == nil {
		return core.ActivityPage{}, fmt.Errorf("sqlstore: activity store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = DefaultActivityPerPage
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.OrderBy("item_index ASC"),
		repository.SelectPaginate(perPage, offset),
	}
	if executionID := strings.TrimSpace(filter.ExecutionID); executionID != "" {
		selectors = append(selectors, repository.SelectBy("execution_id", "=", executionID))
	}
	if resource := strings.TrimSpace(filter.Resource); resource != "" {
		selectors = append(selectors, repository.SelectBy("resource", "=", resource))
	}
	if operation := strings.TrimSpace(filter.Operation); operation != "" {
		selectors = append(selectors, repository.SelectBy("operation", "=", operation))
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", status))
	}
	if filter.Since != nil {
		selectors = append(selectors, createdSince(filter.Since.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.ActivityPage{}, err
	}
	items := make([]core.ActivityEntry, 0, len(records))
	for _, record := range records {
		items = append(items, activityRecordToDomain(record))
	}
	hasMore := offset+len(items) < total
	nextOffset := 0
	if hasMore {
		nextOffset = offset + len(items)
	}
	return core.ActivityPage{
		Items:      items,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		HasMore:    hasMore,
		NextOffset: nextOffset,
	}, nil
}

// Prune removes entries older than the TTL, then the oldest entries above
// the row cap. It returns the number of deleted rows.
func (s *ActivityStore) Prune(ctx context.Context, policy RetentionPolicy) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: activity store is not configured")
	}
	deleted := 0

	if policy.TTL > 0 {
		cutoff := s.now().Add(-policy.TTL)
		res, err := s.db.NewDelete().
			Model((*activityEntryRecord)(nil)).
			Where("created_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return deleted, err
		}
		affected, _ := res.RowsAffected()
		deleted += int(affected)
	}

	if policy.RowCap > 0 {
		total, err := s.db.NewSelect().Model((*activityEntryRecord)(nil)).Count(ctx)
		if err != nil {
			return deleted, err
		}
		excess := total - policy.RowCap
		if excess > 0 {
			res, err := s.db.NewRaw(
				"DELETE FROM rdstation_activity_entries WHERE id IN (SELECT id FROM rdstation_activity_entries ORDER BY created_at ASC LIMIT ?)",
				excess,
			).Exec(ctx)
			if err != nil {
				return deleted, err
			}
			affected, _ := res.RowsAffected()
			deleted += int(affected)
		}
	}

	return deleted, nil
}

// createdSince binds the bound as a time value so each dialect formats it
// the way it stores created_at. sqlite keeps timestamps as text, and an
// RFC3339 string would not compare with them.
func createdSince(since time.Time) repository.SelectCriteria {
	return repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.created_at >= ?", since)
	})
}

func activityRecordToDomain(record *activityEntryRecord) core.ActivityEntry {
	if record == nil {
		return core.ActivityEntry{}
	}
	return core.ActivityEntry{
		ID:          record.ID,
		ExecutionID: record.ExecutionID,
		Resource:    record.Resource,
		Operation:   record.Operation,
		ItemIndex:   record.ItemIndex,
		Status:      core.ActivityStatus(record.Status),
		Error:       record.Error,
		Description: record.Description,
		OutputCount: record.OutputCount,
		DurationMS:  record.DurationMS,
		Metadata:    copyAnyMap(record.Metadata),
		CreatedAt:   record.CreatedAt,
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.ActivitySink   = (*ActivityStore)(nil)
	_ core.ActivityReader = (*ActivityStore)(nil)
)
