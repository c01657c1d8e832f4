package command

import (
	"strings"

	"github.com/goliatone/go-rdstation/node"
)

const (
	TypeExecuteNode           = "rdstation.command.node.execute"
	TypeCompleteAuthorization = "rdstation.command.oauth.complete"
	TypeRefreshCredential     = "rdstation.command.oauth.refresh"
	TypeInvalidateOptions     = "rdstation.command.options.invalidate"
)

// ExecuteNodeMessage runs the node once over Items. ContinueOnFail nil
// falls back to the configured default.
type ExecuteNodeMessage struct {
	Items          []node.Item
	Parameters     node.Parameters
	ContinueOnFail *bool
	ExecutionID    string
}

func (ExecuteNodeMessage) Type() string { return TypeExecuteNode }

func (m ExecuteNodeMessage) Validate() error {
	if len(m.Parameters.Items) > len(m.Items) {
		return invalidMessage(TypeExecuteNode, "parameters.items", "must not outnumber the input items")
	}
	for _, name := range []string{"resource", "operation"} {
		value, ok := m.Parameters.Values[name]
		if !ok {
			continue
		}
		text, isString := value.(string)
		if !isString || strings.TrimSpace(text) == "" {
			return invalidMessage(TypeExecuteNode, name, "must be a non-empty string when set")
		}
	}
	return nil
}

type CompleteAuthorizationMessage struct {
	Code string
}

func (CompleteAuthorizationMessage) Type() string { return TypeCompleteAuthorization }

func (m CompleteAuthorizationMessage) Validate() error {
	if strings.TrimSpace(m.Code) == "" {
		return invalidMessage(TypeCompleteAuthorization, "code", "authorization code is required")
	}
	return nil
}

type RefreshCredentialMessage struct{}

func (RefreshCredentialMessage) Type() string { return TypeRefreshCredential }

func (RefreshCredentialMessage) Validate() error { return nil }

// InvalidateOptionsMessage drops the cached option list of Method, or of
// every method when Method is empty.
type InvalidateOptionsMessage struct {
	Method string
}

func (InvalidateOptionsMessage) Type() string { return TypeInvalidateOptions }

func (InvalidateOptionsMessage) Validate() error { return nil }
