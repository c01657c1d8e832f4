package core

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type NopActivitySink struct{}

func (NopActivitySink) Record(context.Context, ActivityEntry) error { return nil }

// MemoryActivitySink keeps entries in insertion order and serves them back
// newest first, matching the SQL store.
type MemoryActivitySink struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func NewMemoryActivitySink() *MemoryActivitySink {
	return &MemoryActivitySink{}
}

func (s *MemoryActivitySink) Record(_ context.Context, entry ActivityEntry) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Metadata = cloneFields(entry.Metadata)
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryActivitySink) Entries() []ActivityEntry {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ActivityEntry(nil), s.entries...)
}

func (s *MemoryActivitySink) List(_ context.Context, filter ActivityFilter) (ActivityPage, error) {
	if s == nil {
		return ActivityPage{}, nil
	}
	filter = NormalizeActivityFilter(filter)
	s.mu.Lock()
	matched := make([]ActivityEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if activityMatches(entry, filter) {
			matched = append(matched, entry)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := (filter.Page - 1) * filter.PerPage
	page := ActivityPage{Page: filter.Page, PerPage: filter.PerPage, Total: len(matched)}
	if offset >= len(matched) {
		return page, nil
	}
	end := offset + filter.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	page.Items = append([]ActivityEntry(nil), matched[offset:end]...)
	page.HasMore = end < len(matched)
	if page.HasMore {
		page.NextOffset = end
	}
	return page, nil
}

// NormalizeActivityFilter trims the string filters and clamps paging to
// page >= 1 and 1 <= per_page <= 200.
func NormalizeActivityFilter(filter ActivityFilter) ActivityFilter {
	filter.ExecutionID = strings.TrimSpace(filter.ExecutionID)
	filter.Resource = strings.TrimSpace(filter.Resource)
	filter.Operation = strings.TrimSpace(filter.Operation)
	filter.Status = ActivityStatus(strings.TrimSpace(string(filter.Status)))
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 50
	}
	if filter.PerPage > 200 {
		filter.PerPage = 200
	}
	return filter
}

func activityMatches(entry ActivityEntry, filter ActivityFilter) bool {
	if filter.ExecutionID != "" && entry.ExecutionID != filter.ExecutionID {
		return false
	}
	if filter.Resource != "" && entry.Resource != filter.Resource {
		return false
	}
	if filter.Operation != "" && entry.Operation != filter.Operation {
		return false
	}
	if filter.Status != "" && entry.Status != filter.Status {
		return false
	}
	if filter.Since != nil && entry.CreatedAt.Before(*filter.Since) {
		return false
	}
	return true
}
