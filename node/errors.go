package node

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/api"
	"github.com/goliatone/go-rdstation/core"
)

// OperationError is raised for invalid or missing node parameters before
// any network call is made.
type OperationError struct {
	Parameter string
	Message   string
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *OperationError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	field := goerrors.FieldError{Field: e.Parameter, Message: "is required"}
	return goerrors.NewValidation(e.Message, field).
		WithCode(400).
		WithTextCode(core.ErrorValidation)
}

// ExecutionError aborts an execution at the first failing item when
// continue on fail is off.
type ExecutionError struct {
	ItemIndex   int
	Resource    string
	Operation   string
	Message     string
	Description string
	Cause       error
}

func newExecutionError(key Key, itemIndex int, cause error) *ExecutionError {
	return &ExecutionError{
		ItemIndex:   itemIndex,
		Resource:    key.Resource,
		Operation:   key.Operation,
		Message:     api.DescribeError(cause),
		Description: api.DescriptionOf(cause),
		Cause:       cause,
	}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("node: item %d: %s", e.ItemIndex, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *ExecutionError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	var mapped *goerrors.Error
	if e.Cause != nil {
		mapped = core.MapError(e.Cause).Clone()
	} else {
		mapped = core.NewServiceError(e.Message, goerrors.CategoryInternal, core.ErrorInternal)
	}
	metadata := map[string]any{
		"item_index": e.ItemIndex,
		"resource":   e.Resource,
		"operation":  e.Operation,
	}
	if strings.TrimSpace(e.Description) != "" {
		metadata["description"] = e.Description
	}
	return mapped.WithMetadata(metadata)
}

func unsupportedOperation(key Key) error {
	return core.NewServiceError(
		fmt.Sprintf("node: operation %q is not supported for resource %q", key.Operation, key.Resource),
		goerrors.CategoryNotFound,
		core.ErrorOperationNotFound,
	).WithMetadata(map[string]any{
		"resource":  key.Resource,
		"operation": key.Operation,
	})
}

func cancelledExecution(err error, itemIndex int) error {
	category := goerrors.CategoryOperation
	if errors.Is(err, context.DeadlineExceeded) {
		category = goerrors.CategoryExternal
	}
	return core.WrapServiceError(err, category, core.ErrorExecutionCancelled, "node: execution cancelled").
		WithMetadata(map[string]any{"item_index": itemIndex})
}
