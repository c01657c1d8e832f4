package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// PaginationStyle selects how the end of a collection is detected.
type PaginationStyle int

const (
	// StopOnHasMore stops once a response has_more flag is not true.
	StopOnHasMore PaginationStyle = iota
	// StopOnEmptyPage stops at the first page whose item field is absent
	// or empty.
	StopOnEmptyPage
)

const (
	DefaultPageParam     = "page"
	DefaultPageSizeParam = "page_size"
)

// Paginator walks a paged collection starting at page 1. There is no upper
// bound on the number of pages; cancellation is checked between pages.
type Paginator struct {
	Client        Requester
	Field         string
	Style         PaginationStyle
	PageSize      int
	PageParam     string
	PageSizeParam string
}

// All fetches every page and concatenates the items in page order.
func (p Paginator) All(ctx context.Context, method, path string, body map[string]any, query map[string]any, opts ...RequestOption) ([]map[string]any, error) {
	if p.Client == nil {
		return nil, errors.New("api: paginator requires a client")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(method) == "" {
		method = http.MethodGet
	}
	pageParam := p.PageParam
	if pageParam == "" {
		pageParam = DefaultPageParam
	}
	pageSizeParam := p.PageSizeParam
	if pageSizeParam == "" {
		pageSizeParam = DefaultPageSizeParam
	}

	accumulated := []map[string]any{}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageQuery := cloneQuery(query)
		pageQuery[pageParam] = page
		if p.PageSize > 0 {
			pageQuery[pageSizeParam] = p.PageSize
		}

		response, err := p.Client.Do(ctx, NewRequest(method, path, body, pageQuery, opts...))
		if err != nil {
			return nil, err
		}
		items := p.items(response)
		accumulated = append(accumulated, items...)

		switch p.Style {
		case StopOnEmptyPage:
			if len(items) == 0 {
				return accumulated, nil
			}
		default:
			if !hasMore(response) {
				return accumulated, nil
			}
		}
	}
}

func (p Paginator) items(response any) []map[string]any {
	if object, ok := response.(map[string]any); ok {
		if p.Field != "" {
			if list, ok := object[p.Field].([]any); ok {
				return toRecords(list)
			}
			return nil
		}
		if p.Style == StopOnHasMore {
			return []map[string]any{object}
		}
		return nil
	}
	if list, ok := response.([]any); ok {
		return toRecords(list)
	}
	return nil
}

func hasMore(response any) bool {
	object, ok := response.(map[string]any)
	if !ok {
		return false
	}
	flag, ok := object["has_more"].(bool)
	return ok && flag
}

// toRecords keeps objects as-is and wraps scalar items as {"value": item}.
func toRecords(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if record, ok := item.(map[string]any); ok {
			out = append(out, record)
			continue
		}
		out = append(out, map[string]any{"value": item})
	}
	return out
}

// Records converts a decoded response into records: a list yields its items,
// an object with field set yields that list, any other object yields itself.
func Records(response any, field string) []map[string]any {
	switch typed := response.(type) {
	case []any:
		return toRecords(typed)
	case map[string]any:
		if field != "" {
			if list, ok := typed[field].([]any); ok {
				return toRecords(list)
			}
		}
		return []map[string]any{typed}
	default:
		return nil
	}
}
