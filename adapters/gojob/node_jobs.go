package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/adapters/gologger"
	"github.com/goliatone/go-rdstation/command"
	"github.com/goliatone/go-rdstation/core"
	"github.com/goliatone/go-rdstation/node"
	"github.com/goliatone/go-rdstation/ratelimit"
)

const (
	JobIDExecuteNode = "rdstation.node.execute"

	DefaultRetryDelay = 30 * time.Second
)

const (
	paramItems          = "items"
	paramValues         = "parameters"
	paramItemParameters = "item_parameters"
	paramContinueOnFail = "continue_on_fail"
	paramExecutionID    = "execution_id"
)

// NewExecuteNodeJob packs a node execution into a queue message. The
// execution id doubles as the idempotency key.
func NewExecuteNodeJob(msg command.ExecuteNodeMessage) *core.JobExecutionMessage {
	items := make([]any, 0, len(msg.Items))
	for _, item := range msg.Items {
		items = append(items, copyAnyMap(item.JSON))
	}
	itemParameters := make([]any, 0, len(msg.Parameters.Items))
	for _, values := range msg.Parameters.Items {
		itemParameters = append(itemParameters, copyAnyMap(values))
	}
	parameters := map[string]any{
		paramItems:          items,
		paramValues:         copyAnyMap(msg.Parameters.Values),
		paramItemParameters: itemParameters,
		paramExecutionID:    strings.TrimSpace(msg.ExecutionID),
	}
	if msg.ContinueOnFail != nil {
		parameters[paramContinueOnFail] = *msg.ContinueOnFail
	}
	return &core.JobExecutionMessage{
		JobID:          JobIDExecuteNode,
		ScriptPath:     JobIDExecuteNode,
		Parameters:     parameters,
		IdempotencyKey: strings.TrimSpace(msg.ExecutionID),
	}
}

// DecodeExecuteNodeJob is the inverse of NewExecuteNodeJob.
func DecodeExecuteNodeJob(msg *core.JobExecutionMessage) (command.ExecuteNodeMessage, error) {
	if msg == nil {
		return command.ExecuteNodeMessage{}, fmt.Errorf("gojob: execution message is required")
	}
	if msg.JobID != JobIDExecuteNode {
		return command.ExecuteNodeMessage{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	out := command.ExecuteNodeMessage{}
	for _, raw := range listParam(msg.Parameters[paramItems]) {
		out.Items = append(out.Items, node.Item{JSON: raw})
	}
	out.Parameters.Values = mapParam(msg.Parameters[paramValues])
	out.Parameters.Items = listParam(msg.Parameters[paramItemParameters])
	if flag, ok := msg.Parameters[paramContinueOnFail].(bool); ok {
		out.ContinueOnFail = &flag
	}
	if id, ok := msg.Parameters[paramExecutionID].(string); ok {
		out.ExecutionID = id
	}
	if out.ExecutionID == "" {
		out.ExecutionID = msg.IdempotencyKey
	}
	return out, nil
}

// NodeExecutor is satisfied by command.ExecuteNodeCommand.
type NodeExecutor interface {
	Execute(ctx context.Context, msg command.ExecuteNodeMessage) error
}

// NodeRunner pulls node executions from the queue, acks the ones that
// finish and nacks the rest according to the error category.
type NodeRunner struct {
	dequeuer core.JobDequeuer
	executor NodeExecutor
	logger   core.Logger
}

// NewNodeRunner falls back to the "rdstation.jobs" component logger when
// logger is nil.
func NewNodeRunner(dequeuer core.JobDequeuer, executor NodeExecutor, logger core.Logger) *NodeRunner {
	if logger == nil {
		logger = gologger.Component(nil, nil, "jobs")
	}
	return &NodeRunner{dequeuer: dequeuer, executor: executor, logger: logger}
}

// RunOnce processes a single delivery.
func (r *NodeRunner) RunOnce(ctx context.Context) error {
	if r == nil || r.dequeuer == nil || r.executor == nil {
		return fmt.Errorf("gojob: node runner is not configured")
	}
	delivery, err := r.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	msg, err := DecodeExecuteNodeJob(delivery.Message())
	if err != nil {
		if nackErr := delivery.Nack(ctx, core.JobNackOptions{DeadLetter: true, Reason: err.Error()}); nackErr != nil {
			return nackErr
		}
		return err
	}

	if execErr := r.executor.Execute(ctx, msg); execErr != nil {
		opts := NackOptionsFor(execErr)
		if r.logger != nil {
			attempt := 0
			if counted, ok := delivery.(interface{ Attempt() int }); ok {
				attempt = counted.Attempt()
			}
			r.logger.Warn("rdstation node job failed",
				"execution_id", msg.ExecutionID,
				"attempt", attempt,
				"requeue", opts.Requeue,
				"dead_letter", opts.DeadLetter,
				"error", execErr.Error(),
			)
		}
		if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
			return nackErr
		}
		return execErr
	}
	return delivery.Ack(ctx)
}

// NackOptionsFor requeues throttled and upstream failures and dead letters
// everything a retry cannot fix.
func NackOptionsFor(err error) core.JobNackOptions {
	mapped := core.MapError(err)
	reason := err.Error()
	if mapped != nil && mapped.Message != "" {
		reason = mapped.Message
	}
	var throttled ratelimit.ThrottledError
	if goerrors.As(err, &throttled) && throttled.RetryAfter > 0 {
		return core.JobNackOptions{Requeue: true, Delay: throttled.RetryAfter, Reason: reason}
	}
	if mapped == nil {
		return core.JobNackOptions{Requeue: true, Delay: DefaultRetryDelay, Reason: reason}
	}
	switch mapped.Category {
	case goerrors.CategoryBadInput,
		goerrors.CategoryValidation,
		goerrors.CategoryAuth,
		goerrors.CategoryAuthz,
		goerrors.CategoryNotFound,
		goerrors.CategoryConflict:
		return core.JobNackOptions{DeadLetter: true, Reason: reason}
	default:
		return core.JobNackOptions{Requeue: true, Delay: DefaultRetryDelay, Reason: reason}
	}
}

func listParam(raw any) []map[string]any {
	switch typed := raw.(type) {
	case []map[string]any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, copyAnyMap(item))
		}
		return out
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, mapParam(item))
		}
		return out
	default:
		return nil
	}
}

func mapParam(raw any) map[string]any {
	if typed, ok := raw.(map[string]any); ok {
		return copyAnyMap(typed)
	}
	return map[string]any{}
}
