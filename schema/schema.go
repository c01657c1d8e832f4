// Package schema describes node and credential form fields together with
// the rules that decide when a field is shown.
package schema

import (
	"fmt"
	"reflect"
	"strings"
)

type PropertyType string

const (
	TypeString          PropertyType = "string"
	TypeNumber          PropertyType = "number"
	TypeBoolean         PropertyType = "boolean"
	TypeOptions         PropertyType = "options"
	TypeMultiOptions    PropertyType = "multiOptions"
	TypeCollection      PropertyType = "collection"
	TypeFixedCollection PropertyType = "fixedCollection"
	TypeHidden          PropertyType = "hidden"
	TypeDateTime        PropertyType = "dateTime"
	TypeJSON            PropertyType = "json"
)

type Option struct {
	Name        string `json:"name"`
	Value       any    `json:"value"`
	Description string `json:"description,omitempty"`
	Action      string `json:"action,omitempty"`
}

// DisplayOptions lists, per parameter name, the values that make a property
// visible (Show) or hidden (Hide).
type DisplayOptions struct {
	Show map[string][]any `json:"show,omitempty"`
	Hide map[string][]any `json:"hide,omitempty"`
}

type PropertyTypeOptions struct {
	MultipleValues       bool     `json:"multipleValues,omitempty"`
	LoadOptionsMethod    string   `json:"loadOptionsMethod,omitempty"`
	LoadOptionsDependsOn []string `json:"loadOptionsDependsOn,omitempty"`
	MinValue             *float64 `json:"minValue,omitempty"`
	MaxValue             *float64 `json:"maxValue,omitempty"`
	Password             bool     `json:"password,omitempty"`
}

// Property is a single form field. Options holds choices for option types,
// Fields the nested properties of collections, and Groups the named groups
// of a fixed collection.
type Property struct {
	DisplayName      string               `json:"displayName"`
	Name             string               `json:"name"`
	Type             PropertyType         `json:"type"`
	Default          any                  `json:"default"`
	Required         bool                 `json:"required,omitempty"`
	Description      string               `json:"description,omitempty"`
	Placeholder      string               `json:"placeholder,omitempty"`
	NoDataExpression bool                 `json:"noDataExpression,omitempty"`
	Options          []Option             `json:"options,omitempty"`
	Fields           []Property           `json:"fields,omitempty"`
	Groups           []Group              `json:"groups,omitempty"`
	TypeOptions      *PropertyTypeOptions `json:"typeOptions,omitempty"`
	DisplayOptions   *DisplayOptions      `json:"displayOptions,omitempty"`
}

type Group struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName"`
	Values      []Property `json:"values"`
}

// Visible evaluates the display rules against the current parameter values.
// Every Show key must match one of its listed values and no Hide key may
// match.
func (p Property) Visible(values map[string]any) bool {
	if p.DisplayOptions == nil {
		return true
	}
	for key, allowed := range p.DisplayOptions.Show {
		current, ok := values[key]
		if !ok || !containsValue(allowed, current) {
			return false
		}
	}
	for key, denied := range p.DisplayOptions.Hide {
		current, ok := values[key]
		if ok && containsValue(denied, current) {
			return false
		}
	}
	return true
}

// OptionValues returns the values of the property options in declared order.
func (p Property) OptionValues() []any {
	out := make([]any, 0, len(p.Options))
	for _, option := range p.Options {
		out = append(out, option.Value)
	}
	return out
}

func (p Property) HasOption(value any) bool {
	return containsValue(p.OptionValues(), value)
}

// Properties is an ordered set of form fields.
type Properties []Property

// Visible returns the properties whose display rules pass for values.
func (ps Properties) Visible(values map[string]any) Properties {
	out := make(Properties, 0, len(ps))
	for _, property := range ps {
		if property.Visible(values) {
			out = append(out, property)
		}
	}
	return out
}

// Find returns the first visible property named name.
func (ps Properties) Find(name string, values map[string]any) (Property, bool) {
	name = strings.TrimSpace(name)
	for _, property := range ps {
		if property.Name != name {
			continue
		}
		if property.Visible(values) {
			return property, true
		}
	}
	return Property{}, false
}

// Validate checks the declaration for duplicate names under the same
// visibility rule and for option defaults that are not declared options.
func (ps Properties) Validate() error {
	seen := map[string]struct{}{}
	for _, property := range ps {
		if strings.TrimSpace(property.Name) == "" {
			return fmt.Errorf("schema: property name is required")
		}
		if strings.TrimSpace(string(property.Type)) == "" {
			return fmt.Errorf("schema: property %q type is required", property.Name)
		}
		key := property.Name + "|" + displayKey(property.DisplayOptions)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("schema: property %q declared twice with the same display rules", property.Name)
		}
		seen[key] = struct{}{}
		if property.Type == TypeOptions && property.Default != nil && len(property.Options) > 0 && !property.HasOption(property.Default) {
			return fmt.Errorf("schema: property %q default %v is not an option", property.Name, property.Default)
		}
		if len(property.Fields) > 0 {
			if err := Properties(property.Fields).Validate(); err != nil {
				return err
			}
		}
		for _, group := range property.Groups {
			if err := Properties(group.Values).Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func displayKey(options *DisplayOptions) string {
	if options == nil {
		return ""
	}
	return fmt.Sprintf("%v|%v", options.Show, options.Hide)
}

func containsValue(values []any, target any) bool {
	for _, value := range values {
		if equalValues(value, target) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() && a == b {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Show builds display options from key/value pairs.
func Show(pairs map[string][]any) *DisplayOptions {
	return &DisplayOptions{Show: pairs}
}

// ShowFor is the common resource/operation visibility rule.
func ShowFor(resource string, operations ...string) *DisplayOptions {
	show := map[string][]any{"resource": {resource}}
	if len(operations) > 0 {
		values := make([]any, 0, len(operations))
		for _, operation := range operations {
			values = append(values, operation)
		}
		show["operation"] = values
	}
	return &DisplayOptions{Show: show}
}
