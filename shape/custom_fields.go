package shape

import (
	"fmt"
	"strings"
)

const (
	CustomFieldsKey   = "customFields"
	customFieldsGroup = "field"
	CustomFieldPrefix = "cf_"
)

// FlattenCustomFields merges every {name, value} pair found under
// customFields into the object as cf_<name>: value and removes the
// container. The input map is not modified.
func FlattenCustomFields(data map[string]any) map[string]any {
	out := cloneMap(data)
	raw, ok := out[CustomFieldsKey]
	if !ok {
		return out
	}
	delete(out, CustomFieldsKey)
	for _, pair := range customFieldPairs(raw) {
		name := strings.TrimSpace(fmt.Sprint(pair["name"]))
		if name == "" || pair["name"] == nil {
			continue
		}
		out[CustomFieldName(name)] = pair["value"]
	}
	return out
}

// CustomFieldName prefixes name with cf_ unless it already carries it.
func CustomFieldName(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, CustomFieldPrefix) {
		return name
	}
	return CustomFieldPrefix + name
}

// customFieldPairs accepts the fixed collection form {field: [...]} as well
// as a bare list of pairs.
func customFieldPairs(raw any) []map[string]any {
	switch typed := raw.(type) {
	case map[string]any:
		return customFieldPairs(typed[customFieldsGroup])
	case []map[string]any:
		return typed
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			if pair, ok := item.(map[string]any); ok {
				out = append(out, pair)
			}
		}
		return out
	default:
		return nil
	}
}

func cloneMap(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = value
	}
	return out
}
