package rdstation

import (
	"fmt"

	rdcommand "github.com/goliatone/go-rdstation/command"
	rdquery "github.com/goliatone/go-rdstation/query"
)

type CommandQueryService interface {
	rdcommand.MutatingService
	rdquery.OptionsReader
	rdquery.NodeDescriber
}

type Commands struct {
	ExecuteNode           *rdcommand.ExecuteNodeCommand
	CompleteAuthorization *rdcommand.CompleteAuthorizationCommand
	RefreshCredential     *rdcommand.RefreshCredentialCommand
	InvalidateOptions     *rdcommand.InvalidateOptionsCommand
}

type Queries struct {
	LoadOptions  *rdquery.LoadOptionsQuery
	ListActivity *rdquery.ListActivityQuery
	DescribeNode *rdquery.DescribeNodeQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	activityReader rdquery.ActivityReader
}

func WithFacadeActivityReader(reader rdquery.ActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

// NewFacade builds the command and query handlers over service. The
// activity reader defaults to the service itself.
func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("rdstation: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.activityReader
	if reader == nil {
		if candidate, ok := service.(rdquery.ActivityReader); ok {
			reader = candidate
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		ExecuteNode:           rdcommand.NewExecuteNodeCommand(service),
		CompleteAuthorization: rdcommand.NewCompleteAuthorizationCommand(service),
		RefreshCredential:     rdcommand.NewRefreshCredentialCommand(service),
		InvalidateOptions:     rdcommand.NewInvalidateOptionsCommand(service),
	}
	facade.queries = Queries{
		LoadOptions:  rdquery.NewLoadOptionsQuery(service),
		ListActivity: rdquery.NewListActivityQuery(reader),
		DescribeNode: rdquery.NewDescribeNodeQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*Service)(nil)
