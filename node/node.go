// Package node maps a (resource, operation) pair chosen in the workflow
// editor onto RD Station Marketing API calls, one input item at a time.
package node

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-rdstation/api"
	"github.com/goliatone/go-rdstation/core"
	"github.com/google/uuid"
)

// Key identifies a handler in the dispatch table.
type Key struct {
	Resource  string
	Operation string
}

func (k Key) String() string {
	return k.Resource + "." + k.Operation
}

// Item is one input record of an execution.
type Item struct {
	JSON map[string]any
}

type PairedItem struct {
	Item int `json:"item"`
}

// Output is one emitted record, tagged with the index of the input item
// that produced it.
type Output struct {
	JSON       map[string]any `json:"json"`
	PairedItem PairedItem     `json:"pairedItem"`
}

type ExecuteOptions struct {
	ContinueOnFail bool
	ExecutionID    string
}

// Call carries everything a handler needs to process one item.
type Call struct {
	Client    api.Requester
	Params    Params
	ItemIndex int
	Item      Item
	PageSize  int
}

// Handler processes one item and returns the records to emit for it.
type Handler func(ctx context.Context, call Call) ([]map[string]any, error)

type Dispatcher struct {
	client      api.Requester
	description Description
	handlers    map[Key]Handler
	activity    core.ActivitySink
	observer    *core.Observer
	pageSize    int
	now         func() time.Time
	newID       func() string
}

type Option func(*Dispatcher)

func WithActivitySink(sink core.ActivitySink) Option {
	return func(d *Dispatcher) {
		if sink != nil {
			d.activity = sink
		}
	}
}

func WithObserver(observer *core.Observer) Option {
	return func(d *Dispatcher) {
		d.observer = observer
	}
}

// WithPageSize sets the page size used by "return all" operations.
func WithPageSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.pageSize = size
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func WithExecutionIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// New builds a dispatcher with every built-in operation registered.
func New(client api.Requester, opts ...Option) (*Dispatcher, error) {
	if client == nil {
		return nil, errors.New("node: api client is required")
	}
	d := &Dispatcher{
		client:      client,
		description: NewDescription(),
		handlers:    map[Key]Handler{},
		activity:    core.NopActivitySink{},
		pageSize:    core.DefaultPageSize,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for key, handler := range builtinHandlers() {
		d.handlers[key] = handler
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// Register adds or replaces the handler for key.
func (d *Dispatcher) Register(key Key, handler Handler) error {
	if d == nil {
		return errors.New("node: dispatcher is nil")
	}
	key = normalizeKey(key)
	if key.Resource == "" || key.Operation == "" {
		return errors.New("node: resource and operation are required")
	}
	if handler == nil {
		return errors.New("node: handler is required")
	}
	d.handlers[key] = handler
	return nil
}

func (d *Dispatcher) Keys() []Key {
	if d == nil {
		return nil
	}
	keys := make([]Key, 0, len(d.handlers))
	for key := range d.handlers {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

func (d *Dispatcher) Description() Description {
	return d.description
}

// Execute runs the selected operation once per item, in order. Resource and
// operation are read from the first item only. With ContinueOnFail a failing
// item emits an {error, description} record and processing moves on;
// otherwise the first failure aborts with an *ExecutionError.
func (d *Dispatcher) Execute(ctx context.Context, items []Item, params ParameterSource, opts ExecuteOptions) (outputs []Output, err error) {
	if d == nil {
		return nil, errors.New("node: dispatcher is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(items) == 0 {
		return []Output{}, nil
	}

	key := d.resolveKey(params)
	startedAt := d.now()
	defer func() {
		d.observer.Observe(ctx, startedAt, "execute", err, map[string]any{
			"resource":  key.Resource,
			"operation": key.Operation,
			"items":     len(items),
			"outputs":   len(outputs),
		})
	}()

	handler, ok := d.handlers[key]
	if !ok {
		return nil, unsupportedOperation(key)
	}
	executionID := strings.TrimSpace(opts.ExecutionID)
	if executionID == "" {
		executionID = d.newID()
	}
	defaults := d.description.ParameterDefaults(key.Resource, key.Operation)

	outputs = make([]Output, 0, len(items))
	for index, item := range items {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelledExecution(ctxErr, index)
		}
		itemStarted := d.now()
		records, callErr := handler(ctx, Call{
			Client:    d.client,
			Params:    NewParams(params, index, defaults),
			ItemIndex: index,
			Item:      item,
			PageSize:  d.pageSize,
		})
		d.recordActivity(ctx, executionID, key, index, itemStarted, len(records), callErr, opts.ContinueOnFail)

		if callErr != nil {
			if ctx.Err() != nil && isContextError(callErr) {
				return nil, cancelledExecution(callErr, index)
			}
			if opts.ContinueOnFail {
				outputs = append(outputs, failureOutput(index, callErr))
				continue
			}
			return nil, newExecutionError(key, index, callErr)
		}
		for _, record := range records {
			outputs = append(outputs, Output{JSON: record, PairedItem: PairedItem{Item: index}})
		}
	}
	return outputs, nil
}

func (d *Dispatcher) resolveKey(params ParameterSource) Key {
	first := NewParams(params, 0, nil)
	resource := first.String("resource")
	if resource == "" {
		resource = DefaultResource
	}
	operation := first.String("operation")
	if operation == "" {
		operation = d.description.DefaultOperation(resource)
	}
	return normalizeKey(Key{Resource: resource, Operation: operation})
}

func (d *Dispatcher) recordActivity(
	ctx context.Context,
	executionID string,
	key Key,
	itemIndex int,
	startedAt time.Time,
	outputCount int,
	callErr error,
	continueOnFail bool,
) {
	entry := core.ActivityEntry{
		ID:          d.newID(),
		ExecutionID: executionID,
		Resource:    key.Resource,
		Operation:   key.Operation,
		ItemIndex:   itemIndex,
		Status:      core.ActivityStatusSuccess,
		OutputCount: outputCount,
		DurationMS:  d.now().Sub(startedAt).Milliseconds(),
		Metadata:    map[string]any{"continue_on_fail": continueOnFail},
		CreatedAt:   d.now().UTC(),
	}
	if callErr != nil {
		entry.Status = core.ActivityStatusFailure
		entry.Error = api.DescribeError(callErr)
		entry.Description = api.DescriptionOf(callErr)
		entry.OutputCount = 0
		if mapped := core.MapError(callErr); mapped != nil {
			entry.Metadata["text_code"] = mapped.TextCode
		}
	}
	if err := d.activity.Record(ctx, entry); err != nil {
		d.observer.Warn(ctx, "node activity record failed", map[string]any{
			"execution_id": executionID,
			"item_index":   itemIndex,
			"error":        err.Error(),
		})
	}
}

// failureOutput is the record emitted for a failed item under continue on
// fail.
func failureOutput(itemIndex int, err error) Output {
	record := map[string]any{"error": api.DescribeError(err)}
	if description := api.DescriptionOf(err); description != "" {
		record["description"] = description
	}
	return Output{JSON: record, PairedItem: PairedItem{Item: itemIndex}}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func normalizeKey(key Key) Key {
	return Key{
		Resource:  strings.TrimSpace(key.Resource),
		Operation: strings.TrimSpace(key.Operation),
	}
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}
