package transport

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
)

// failure builds the error for a request that produced no usable response.
// cause may be nil. fields are key/value pairs added to the metadata next to
// the adapter kind.
func failure(cause error, category goerrors.Category, status int, message string, fields ...any) error {
	var err *goerrors.Error
	if cause == nil {
		err = goerrors.New(message, category)
	} else {
		err = goerrors.Wrap(cause, category, message)
	}
	metadata := map[string]any{"adapter": KindREST}
	for i := 0; i+1 < len(fields); i += 2 {
		metadata[fmt.Sprint(fields[i])] = fields[i+1]
	}
	return err.
		WithCode(status).
		WithTextCode(failureTextCode(category)).
		WithMetadata(metadata)
}

// failureTextCode keeps cancellation distinct from upstream failures so the
// node can tell a stopped workflow from a broken API.
func failureTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ErrorBadInput
	case goerrors.CategoryOperation:
		return core.ErrorExecutionCancelled
	case goerrors.CategoryExternal:
		return core.ErrorTransportFailure
	default:
		return core.ErrorInternal
	}
}
