package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ExecuteNodeMessage]           = (*ExecuteNodeCommand)(nil)
	_ gocmd.Commander[CompleteAuthorizationMessage] = (*CompleteAuthorizationCommand)(nil)
	_ gocmd.Commander[RefreshCredentialMessage]     = (*RefreshCredentialCommand)(nil)
	_ gocmd.Commander[InvalidateOptionsMessage]     = (*InvalidateOptionsCommand)(nil)
)
