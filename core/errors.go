package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput            = "RDSTATION_BAD_INPUT"
	ErrorValidation          = "RDSTATION_VALIDATION_FAILED"
	ErrorUnauthorized        = "RDSTATION_UNAUTHORIZED"
	ErrorForbidden           = "RDSTATION_FORBIDDEN"
	ErrorNotFound            = "RDSTATION_NOT_FOUND"
	ErrorConflict            = "RDSTATION_CONFLICT"
	ErrorRateLimited         = "RDSTATION_RATE_LIMITED"
	ErrorOperationNotFound   = "RDSTATION_OPERATION_NOT_FOUND"
	ErrorExternalFailure     = "RDSTATION_EXTERNAL_FAILURE"
	ErrorCredentialMissing   = "RDSTATION_CREDENTIAL_MISSING"
	ErrorCredentialRefresh   = "RDSTATION_CREDENTIAL_REFRESH_FAILED"
	ErrorTransportFailure    = "RDSTATION_TRANSPORT_FAILURE"
	ErrorExecutionCancelled  = "RDSTATION_EXECUTION_CANCELLED"
	ErrorInternal            = "RDSTATION_INTERNAL_ERROR"
)

// ServiceErrorConverter is implemented by domain errors that know their own
// go-errors envelope.
type ServiceErrorConverter interface {
	ToServiceError() *goerrors.Error
}

// MapError normalizes any error into a go-errors envelope carrying an HTTP
// status and a stable text code.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return serviceErrorMapper(err)
}

func DefaultErrorMapper() ErrorMapper {
	return MapError
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	// an explicit envelope at the top of the chain wins, then the nearest
	// domain error that knows its own envelope
	if richErr, ok := err.(*goerrors.Error); ok {
		return ensureServiceErrorEnvelope(richErr)
	}

	var converter ServiceErrorConverter
	if goerrors.As(err, &converter) {
		if mapped := converter.ToServiceError(); mapped != nil {
			return ensureServiceErrorEnvelope(mapped)
		}
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "operation") && strings.Contains(msg, "not supported"):
		return NewServiceError(err.Error(), goerrors.CategoryNotFound, ErrorOperationNotFound)
	case strings.Contains(msg, "access token"):
		return NewServiceError(err.Error(), goerrors.CategoryAuth, ErrorCredentialMissing)
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return NewServiceError(err.Error(), goerrors.CategoryRateLimit, ErrorRateLimited)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return NewServiceError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func NewServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func WrapServiceError(err error, category goerrors.Category, textCode string, message string) *goerrors.Error {
	if err == nil {
		return nil
	}
	return ensureServiceErrorEnvelope(
		goerrors.Wrap(err, category, message).
			WithTextCode(textCode),
	)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = ServiceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return ErrorBadInput
	case goerrors.CategoryValidation:
		return ErrorValidation
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryAuth:
		return ErrorUnauthorized
	case goerrors.CategoryAuthz:
		return ErrorForbidden
	case goerrors.CategoryConflict:
		return ErrorConflict
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	case goerrors.CategoryExternal:
		return ErrorExternalFailure
	default:
		return ErrorInternal
	}
}

func ServiceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CategoryForStatus maps an upstream HTTP status onto an error category.
func CategoryForStatus(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryExternal
	}
}
