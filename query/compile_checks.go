package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-rdstation/core"
	"github.com/goliatone/go-rdstation/node"
	"github.com/goliatone/go-rdstation/schema"
)

var (
	_ gocmd.Querier[LoadOptionsMessage, []schema.Option]    = (*LoadOptionsQuery)(nil)
	_ gocmd.Querier[ListActivityMessage, core.ActivityPage] = (*ListActivityQuery)(nil)
	_ gocmd.Querier[DescribeNodeMessage, node.Description]  = (*DescribeNodeQuery)(nil)
)
