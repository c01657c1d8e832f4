package query

import (
	"strings"

	"github.com/goliatone/go-rdstation/core"
)

const (
	TypeLoadOptions  = "rdstation.query.options.load"
	TypeListActivity = "rdstation.query.activity.list"
	TypeDescribeNode = "rdstation.query.node.describe"
)

type LoadOptionsMessage struct {
	Method string
}

func (LoadOptionsMessage) Type() string { return TypeLoadOptions }

func (m LoadOptionsMessage) Validate() error {
	if strings.TrimSpace(m.Method) == "" {
		return invalidQuery(TypeLoadOptions, "method", "load options method is required")
	}
	return nil
}

type ListActivityMessage struct {
	Filter core.ActivityFilter
}

func (ListActivityMessage) Type() string { return TypeListActivity }

func (m ListActivityMessage) Validate() error {
	if m.Filter.Page < 0 {
		return invalidQuery(TypeListActivity, "page", "must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return invalidQuery(TypeListActivity, "per_page", "must be >= 0")
	}
	return nil
}

type DescribeNodeMessage struct{}

func (DescribeNodeMessage) Type() string { return TypeDescribeNode }

func (DescribeNodeMessage) Validate() error { return nil }
