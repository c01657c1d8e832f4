package shape

import (
	"sort"
	"strings"

	"github.com/goliatone/go-rdstation/schema"
)

// PrepareLeadData applies the body transforms shared by contacts, leads and
// event payloads: custom field flattening, tag normalization and birthdate
// truncation. A nested payload object is prepared the same way. The input
// map is not modified.
func PrepareLeadData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	out := FlattenCustomFields(data)
	if raw, ok := out["tags"]; ok {
		if tags, ok := NormalizeTags(raw); ok {
			out["tags"] = tagsValue(tags)
		}
	}
	if raw, ok := out["birthdate"].(string); ok && raw != "" {
		out["birthdate"] = TruncateDate(raw)
	}
	if payload, ok := out["payload"].(map[string]any); ok {
		out["payload"] = PrepareLeadData(payload)
	}
	return out
}

// SortOptions orders option lists by name, case-insensitively, keeping the
// original order for equal names.
func SortOptions(options []schema.Option) []schema.Option {
	out := append([]schema.Option(nil), options...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
