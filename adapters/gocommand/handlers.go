package gocommand

import (
	"context"

	"github.com/goliatone/go-rdstation/command"
	"github.com/goliatone/go-rdstation/core"
	"github.com/goliatone/go-rdstation/node"
	"github.com/goliatone/go-rdstation/query"
	"github.com/goliatone/go-rdstation/schema"
)

// ReadService backs every query handler.
type ReadService interface {
	query.OptionsReader
	query.ActivityReader
	query.NodeDescriber
}

// RegisterHandlers puts the rdstation commands and queries on bus. On
// failure the bus is closed.
func RegisterHandlers(bus *Bus, mutating command.MutatingService, reads ReadService) error {
	steps := []func() error{
		func() error { return Handle(bus, command.NewExecuteNodeCommand(mutating)) },
		func() error { return Handle(bus, command.NewCompleteAuthorizationCommand(mutating)) },
		func() error { return Handle(bus, command.NewRefreshCredentialCommand(mutating)) },
		func() error { return Handle(bus, command.NewInvalidateOptionsCommand(mutating)) },
		func() error { return Serve(bus, query.NewLoadOptionsQuery(reads)) },
		func() error { return Serve(bus, query.NewListActivityQuery(reads)) },
		func() error { return Serve(bus, query.NewDescribeNodeQuery(reads)) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			bus.Close()
			return err
		}
	}
	return nil
}

// ExecuteNode runs a node execution through the bus and returns its outputs.
func ExecuteNode(ctx context.Context, msg command.ExecuteNodeMessage) ([]node.Output, error) {
	return DispatchResult[command.ExecuteNodeMessage, []node.Output](ctx, msg)
}

func CompleteAuthorization(ctx context.Context, code string) (core.ActiveCredential, error) {
	return DispatchResult[command.CompleteAuthorizationMessage, core.ActiveCredential](ctx, command.CompleteAuthorizationMessage{Code: code})
}

func LoadOptions(ctx context.Context, method string) ([]schema.Option, error) {
	return Ask[query.LoadOptionsMessage, []schema.Option](ctx, query.LoadOptionsMessage{Method: method})
}

func ListActivity(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	return Ask[query.ListActivityMessage, core.ActivityPage](ctx, query.ListActivityMessage{Filter: filter})
}

func DescribeNode(ctx context.Context) (node.Description, error) {
	return Ask[query.DescribeNodeMessage, node.Description](ctx, query.DescribeNodeMessage{})
}
