// Package shape holds the pure transforms applied to request bodies before
// they are sent to RD Station Marketing.
package shape

import (
	"strings"
	"unicode"
)

// KeysToSnakeCase rewrites every object key by inserting "_" before each
// upper-case letter and lower-casing it. Slices are mapped element-wise and
// scalars pass through unchanged. Keys already in snake_case are untouched.
func KeysToSnakeCase(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[SnakeCase(key)] = KeysToSnakeCase(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for index, item := range typed {
			out[index] = KeysToSnakeCase(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(typed))
		for index, item := range typed {
			out[index] = KeysToSnakeCase(item)
		}
		return out
	default:
		return value
	}
}

// SnakeCase converts a single key.
func SnakeCase(key string) string {
	if key == "" {
		return key
	}
	var builder strings.Builder
	builder.Grow(len(key) + 4)
	for _, r := range key {
		if unicode.IsUpper(r) {
			builder.WriteByte('_')
			builder.WriteRune(unicode.ToLower(r))
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
