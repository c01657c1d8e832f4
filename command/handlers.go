package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-rdstation/core"
	"github.com/goliatone/go-rdstation/node"
)

type MutatingService interface {
	ExecuteNode(ctx context.Context, items []node.Item, params node.ParameterSource, opts node.ExecuteOptions) ([]node.Output, error)
	ContinueOnFail() bool
	CompleteAuthorization(ctx context.Context, code string) (core.ActiveCredential, error)
	RefreshCredential(ctx context.Context) (core.ActiveCredential, error)
	InvalidateOptions(ctx context.Context, method string) error
}

type ExecuteNodeCommand struct {
	service MutatingService
}

func NewExecuteNodeCommand(service MutatingService) *ExecuteNodeCommand {
	return &ExecuteNodeCommand{service: service}
}

func (c *ExecuteNodeCommand) Execute(ctx context.Context, msg ExecuteNodeMessage) error {
	if c == nil || c.service == nil {
		return unwired(TypeExecuteNode, "node execution service")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	continueOnFail := c.service.ContinueOnFail()
	if msg.ContinueOnFail != nil {
		continueOnFail = *msg.ContinueOnFail
	}
	out, err := c.service.ExecuteNode(ctx, msg.Items, msg.Parameters, node.ExecuteOptions{
		ContinueOnFail: continueOnFail,
		ExecutionID:    msg.ExecutionID,
	})
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteAuthorizationCommand struct {
	service MutatingService
}

func NewCompleteAuthorizationCommand(service MutatingService) *CompleteAuthorizationCommand {
	return &CompleteAuthorizationCommand{service: service}
}

func (c *CompleteAuthorizationCommand) Execute(ctx context.Context, msg CompleteAuthorizationMessage) error {
	if c == nil || c.service == nil {
		return unwired(TypeCompleteAuthorization, "authorization service")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.CompleteAuthorization(ctx, msg.Code)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshCredentialCommand struct {
	service MutatingService
}

func NewRefreshCredentialCommand(service MutatingService) *RefreshCredentialCommand {
	return &RefreshCredentialCommand{service: service}
}

func (c *RefreshCredentialCommand) Execute(ctx context.Context, _ RefreshCredentialMessage) error {
	if c == nil || c.service == nil {
		return unwired(TypeRefreshCredential, "credential service")
	}
	out, err := c.service.RefreshCredential(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type InvalidateOptionsCommand struct {
	service MutatingService
}

func NewInvalidateOptionsCommand(service MutatingService) *InvalidateOptionsCommand {
	return &InvalidateOptionsCommand{service: service}
}

func (c *InvalidateOptionsCommand) Execute(ctx context.Context, msg InvalidateOptionsMessage) error {
	if c == nil || c.service == nil {
		return unwired(TypeInvalidateOptions, "options service")
	}
	return c.service.InvalidateOptions(ctx, msg.Method)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
