package shape

import (
	"fmt"
	"strings"
)

// FormatTags splits a comma separated list, trims each piece and drops the
// empty ones. Order is preserved.
func FormatTags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// NormalizeTags accepts either a comma separated string or a list and
// returns the cleaned tag list. ok is false for any other type.
func NormalizeTags(value any) (tags []string, ok bool) {
	switch typed := value.(type) {
	case string:
		return FormatTags(typed), true
	case []string:
		return FormatTags(strings.Join(typed, ",")), true
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if item == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return FormatTags(strings.Join(parts, ",")), true
	default:
		return nil, false
	}
}

// tagsValue converts a tag list into the []any form used in JSON bodies.
func tagsValue(tags []string) []any {
	out := make([]any, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag)
	}
	return out
}
