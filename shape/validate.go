package shape

import (
	"regexp"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	uuidPattern  = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
)

const (
	TextCodeInvalidEmail = "RDSTATION_INVALID_EMAIL"
	TextCodeInvalidUUID  = "RDSTATION_INVALID_UUID"
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidateUUID(value string) bool {
	return uuidPattern.MatchString(value)
}

// InvalidEmailError is the validation error raised for a malformed email.
func InvalidEmailError(field string, value string) *goerrors.Error {
	return goerrors.NewValidation("Invalid email format provided", goerrors.FieldError{
		Field:   field,
		Message: "must be a valid email address",
		Value:   value,
	}).WithTextCode(TextCodeInvalidEmail).WithCode(400)
}

func InvalidUUIDError(field string, value string) *goerrors.Error {
	return goerrors.NewValidation("Invalid UUID format provided", goerrors.FieldError{
		Field:   field,
		Message: "must be a valid UUID",
		Value:   value,
	}).WithTextCode(TextCodeInvalidUUID).WithCode(400)
}

// SanitizeContactData drops nil and empty string fields, rejects a malformed
// email and turns a tag string into a list.
func SanitizeContactData(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for key, value := range data {
		if isBlank(value) {
			continue
		}
		out[key] = value
	}
	if raw, ok := out["email"]; ok {
		email, isString := raw.(string)
		if !isString || !ValidateEmail(strings.TrimSpace(email)) {
			return nil, InvalidEmailError("email", stringValue(raw))
		}
		out["email"] = strings.TrimSpace(email)
	}
	if raw, ok := out["tags"]; ok {
		if tags, ok := NormalizeTags(raw); ok {
			out["tags"] = tagsValue(tags)
		}
	}
	return out, nil
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}
	if text, ok := value.(string); ok {
		return text == ""
	}
	return false
}

func stringValue(value any) string {
	if text, ok := value.(string); ok {
		return text
	}
	return ""
}
