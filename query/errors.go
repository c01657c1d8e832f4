package query

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
)

func invalidQuery(messageType string, field string, reason string) error {
	return goerrors.NewValidation(messageType+": invalid query", goerrors.FieldError{
		Field:   field,
		Message: reason,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ErrorBadInput).
		WithMetadata(map[string]any{"message_type": messageType})
}

// missingReader is returned by a query built without its backing reader.
// Read paths surface it as internal since nothing the caller sends fixes it.
func missingReader(messageType string, reader string) error {
	return goerrors.New(fmt.Sprintf("%s: %s is not configured", messageType, reader), goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ErrorInternal).
		WithMetadata(map[string]any{"message_type": messageType, "reader": reader})
}
