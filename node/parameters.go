package node

import (
	"fmt"
	"strconv"
	"strings"
)

// ParameterSource supplies the user configured value of a parameter for
// one input item. ok is false when the parameter is not set.
type ParameterSource interface {
	Parameter(name string, itemIndex int) (value any, ok bool)
}

// ParameterFunc adapts a function to ParameterSource.
type ParameterFunc func(name string, itemIndex int) (any, bool)

func (f ParameterFunc) Parameter(name string, itemIndex int) (any, bool) {
	return f(name, itemIndex)
}

// Parameters is a map backed source. Items holds per item overrides and
// Values the values shared by every item.
type Parameters struct {
	Values map[string]any
	Items  []map[string]any
}

func (p Parameters) Parameter(name string, itemIndex int) (any, bool) {
	if itemIndex >= 0 && itemIndex < len(p.Items) {
		if value, ok := p.Items[itemIndex][name]; ok {
			return value, true
		}
	}
	value, ok := p.Values[name]
	return value, ok
}

// Params reads the parameters of a single item, falling back to the
// defaults declared in the node description.
type Params struct {
	source    ParameterSource
	itemIndex int
	defaults  map[string]any
}

func NewParams(source ParameterSource, itemIndex int, defaults map[string]any) Params {
	return Params{source: source, itemIndex: itemIndex, defaults: defaults}
}

func (p Params) ItemIndex() int {
	return p.itemIndex
}

func (p Params) Value(name string) (any, bool) {
	if p.source != nil {
		if value, ok := p.source.Parameter(name, p.itemIndex); ok {
			return value, true
		}
	}
	value, ok := p.defaults[name]
	return value, ok
}

func (p Params) String(name string) string {
	value, ok := p.Value(name)
	if !ok || value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// RequiredString returns the trimmed value or a validation error carrying
// message.
func (p Params) RequiredString(name string, message string) (string, error) {
	value := p.String(name)
	if value == "" {
		if message == "" {
			message = fmt.Sprintf("Parameter %q is required", name)
		}
		return "", missingParameter(name, message)
	}
	return value, nil
}

func (p Params) Bool(name string) bool {
	value, ok := p.Value(name)
	if !ok || value == nil {
		return false
	}
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	default:
		return false
	}
}

func (p Params) Int(name string, fallback int) int {
	value, ok := p.Value(name)
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case int:
		return typed
	case int32:
		return int(typed)
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case float32:
		return int(typed)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}

func (p Params) Number(name string) (float64, bool) {
	value, ok := p.Value(name)
	if !ok || value == nil {
		return 0, false
	}
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

// Object returns a copy of a collection parameter, or an empty map.
func (p Params) Object(name string) map[string]any {
	value, ok := p.Value(name)
	if !ok {
		return map[string]any{}
	}
	object, ok := value.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(object))
	for key, item := range object {
		out[key] = item
	}
	return out
}

func missingParameter(name, message string) error {
	return &OperationError{Parameter: name, Message: message}
}
