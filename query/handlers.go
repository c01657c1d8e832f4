package query

import (
	"context"

	"github.com/goliatone/go-rdstation/core"
	"github.com/goliatone/go-rdstation/node"
	"github.com/goliatone/go-rdstation/schema"
)

type OptionsReader interface {
	LoadOptions(ctx context.Context, method string) ([]schema.Option, error)
}

type ActivityReader interface {
	List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error)
}

type NodeDescriber interface {
	Description() node.Description
}

type LoadOptionsQuery struct {
	reader OptionsReader
}

func NewLoadOptionsQuery(reader OptionsReader) *LoadOptionsQuery {
	return &LoadOptionsQuery{reader: reader}
}

func (q *LoadOptionsQuery) Query(ctx context.Context, msg LoadOptionsMessage) ([]schema.Option, error) {
	if q == nil || q.reader == nil {
		return nil, missingReader(TypeLoadOptions, "options reader")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.LoadOptions(ctx, msg.Method)
}

type ListActivityQuery struct {
	reader ActivityReader
}

func NewListActivityQuery(reader ActivityReader) *ListActivityQuery {
	return &ListActivityQuery{reader: reader}
}

func (q *ListActivityQuery) Query(ctx context.Context, msg ListActivityMessage) (core.ActivityPage, error) {
	if q == nil || q.reader == nil {
		return core.ActivityPage{}, missingReader(TypeListActivity, "activity reader")
	}
	if err := msg.Validate(); err != nil {
		return core.ActivityPage{}, err
	}
	return q.reader.List(ctx, msg.Filter)
}

type DescribeNodeQuery struct {
	describer NodeDescriber
}

func NewDescribeNodeQuery(describer NodeDescriber) *DescribeNodeQuery {
	return &DescribeNodeQuery{describer: describer}
}

func (q *DescribeNodeQuery) Query(context.Context, DescribeNodeMessage) (node.Description, error) {
	if q == nil || q.describer == nil {
		return node.Description{}, missingReader(TypeDescribeNode, "node describer")
	}
	return q.describer.Description(), nil
}
