package command

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
)

// invalidMessage rejects a command before it reaches the service. The
// message type travels in the metadata so bus logs name the refused command.
func invalidMessage(messageType string, field string, reason string) error {
	return goerrors.NewValidation(messageType+": invalid message", goerrors.FieldError{
		Field:   field,
		Message: reason,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ErrorBadInput).
		WithMetadata(map[string]any{"message_type": messageType})
}

// unwired reports a command handler built without the service it calls.
func unwired(messageType string, dependency string) error {
	return goerrors.New(fmt.Sprintf("%s: %s is not configured", messageType, dependency), goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ErrorInternal).
		WithMetadata(map[string]any{
			"message_type": messageType,
			"dependency":   dependency,
		})
}
