package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
)

const (
	DefaultErrorDescription = "RD Station Marketing API Error"
	UnknownErrorMessage     = "Unknown RD Station Marketing API error"
	// UnknownDetailMessage stands in for a list entry that carries no message.
	UnknownDetailMessage    = "Unknown error"
)

// ErrorKind tags the shape an API failure was decoded from.
type ErrorKind string

const (
	KindErrorList  ErrorKind = "error_list"
	KindOAuthError ErrorKind = "oauth_error"
	KindTransport  ErrorKind = "transport"
	KindUnknown    ErrorKind = "unknown"
)

// Detail is one entry of a structured error list.
type Detail struct {
	Field   string `json:"field,omitempty"`
	Type    string `json:"error_type,omitempty"`
	Message string `json:"error_message,omitempty"`
}

// Error is the normalized form of every failed API call.
type Error struct {
	Kind        ErrorKind
	StatusCode  int
	Message     string
	Description string
	Details     []Detail
	Method      string
	Path        string
	Cause       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
	}
	return "api: " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *Error) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	category := goerrors.CategoryExternal
	if e.Kind != KindTransport && e.StatusCode > 0 {
		category = core.CategoryForStatus(e.StatusCode)
	}
	code := e.StatusCode
	if code == 0 {
		code = core.ServiceHTTPStatus(category)
	}
	metadata := map[string]any{
		"kind":        string(e.Kind),
		"description": e.Description,
	}
	if e.StatusCode > 0 {
		metadata["status_code"] = e.StatusCode
	}
	if e.Method != "" {
		metadata["method"] = e.Method
	}
	if e.Path != "" {
		metadata["path"] = e.Path
	}
	if len(e.Details) > 0 {
		details := make([]map[string]any, 0, len(e.Details))
		for _, detail := range e.Details {
			details = append(details, map[string]any{
				"field":   detail.Field,
				"type":    detail.Type,
				"message": detail.Message,
			})
		}
		metadata["details"] = details
	}
	textCode := core.ErrorExternalFailure
	switch category {
	case goerrors.CategoryAuth:
		textCode = core.ErrorUnauthorized
	case goerrors.CategoryAuthz:
		textCode = core.ErrorForbidden
	case goerrors.CategoryNotFound:
		textCode = core.ErrorNotFound
	case goerrors.CategoryConflict:
		textCode = core.ErrorConflict
	case goerrors.CategoryRateLimit:
		textCode = core.ErrorRateLimited
	case goerrors.CategoryBadInput:
		textCode = core.ErrorBadInput
	}
	if e.Kind == KindTransport {
		textCode = core.ErrorTransportFailure
	}
	return goerrors.New(e.Message, category).
		WithCode(code).
		WithTextCode(textCode).
		WithMetadata(metadata)
}

// decodeErrorBody builds an Error from a non-2xx response body. Structured
// error lists win, then the OAuth error fields, then a plain message.
func decodeErrorBody(status int, body []byte) *Error {
	apiErr := &Error{
		Kind:        KindUnknown,
		StatusCode:  status,
		Message:     UnknownErrorMessage,
		Description: DefaultErrorDescription,
	}
	var payload map[string]any
	if len(strings.TrimSpace(string(body))) == 0 || json.Unmarshal(body, &payload) != nil {
		if status > 0 {
			if text := http.StatusText(status); text != "" {
				apiErr.Description = fmt.Sprintf("%s (%d %s)", DefaultErrorDescription, status, text)
			}
		}
		return apiErr
	}
	if description := stringField(payload, "error_description"); description != "" {
		apiErr.Description = description
	}

	if details := decodeDetails(payload["errors"]); len(details) > 0 {
		messages := make([]string, 0, len(details))
		for _, detail := range details {
			if detail.Message != "" {
				messages = append(messages, detail.Message)
			}
		}
		apiErr.Details = details
		if len(messages) > 0 {
			apiErr.Kind = KindErrorList
			apiErr.Message = strings.Join(messages, ", ")
			return apiErr
		}
	}
	if description := stringField(payload, "error_description"); description != "" {
		apiErr.Kind = KindOAuthError
		apiErr.Message = description
		return apiErr
	}
	if code := stringField(payload, "error"); code != "" {
		apiErr.Kind = KindOAuthError
		apiErr.Message = code
		return apiErr
	}
	if message := stringField(payload, "message"); message != "" {
		apiErr.Message = message
	}
	return apiErr
}

// decodeDetails accepts a list of error objects or an object keyed by field
// whose values are error objects or lists of them.
func decodeDetails(raw any) []Detail {
	switch typed := raw.(type) {
	case []any:
		out := make([]Detail, 0, len(typed))
		for _, item := range typed {
			detail, ok := decodeDetail("", item)
			if !ok {
				detail = Detail{Message: UnknownDetailMessage}
			}
			out = append(out, detail)
		}
		return out
	case map[string]any:
		if detail, ok := decodeDetail("", typed); ok {
			return []Detail{detail}
		}
		fields := make([]string, 0, len(typed))
		for field := range typed {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		out := []Detail{}
		for _, field := range fields {
			switch value := typed[field].(type) {
			case []any:
				for _, item := range value {
					if detail, ok := decodeDetail(field, item); ok {
						out = append(out, detail)
					}
				}
			default:
				if detail, ok := decodeDetail(field, value); ok {
					out = append(out, detail)
				}
			}
		}
		return out
	default:
		return nil
	}
}

func decodeDetail(field string, raw any) (Detail, bool) {
	switch typed := raw.(type) {
	case map[string]any:
		message := stringField(typed, "error_message")
		if message == "" {
			message = stringField(typed, "message")
		}
		if message == "" {
			return Detail{}, false
		}
		return Detail{
			Field:   field,
			Type:    stringField(typed, "error_type"),
			Message: message,
		}, true
	case string:
		if strings.TrimSpace(typed) == "" {
			return Detail{}, false
		}
		return Detail{Field: field, Message: strings.TrimSpace(typed)}, true
	default:
		return Detail{}, false
	}
}

func transportFailure(err error, method, path string) *Error {
	message := err.Error()
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && strings.TrimSpace(rich.Message) != "" {
		message = rich.Message
	}
	return &Error{
		Kind:        KindTransport,
		Message:     message,
		Description: DefaultErrorDescription,
		Method:      method,
		Path:        path,
		Cause:       err,
	}
}

// DescribeError renders an error for display: the normalized API message,
// the go-errors message, or the error text, falling back to the generic
// unknown error message.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if goerrors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && strings.TrimSpace(rich.Message) != "" {
		return rich.Message
	}
	if text := strings.TrimSpace(err.Error()); text != "" {
		return text
	}
	return UnknownErrorMessage
}

// DescriptionOf returns the long form description carried by err.
func DescriptionOf(err error) string {
	var apiErr *Error
	if goerrors.As(err, &apiErr) && strings.TrimSpace(apiErr.Description) != "" {
		return apiErr.Description
	}
	return ""
}

func stringField(payload map[string]any, key string) string {
	value, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
