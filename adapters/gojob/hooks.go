package gojob

import (
	"context"

	"github.com/goliatone/go-rdstation/core"

	"github.com/goliatone/go-job/queue/worker"
)

// ObserverHook reports worker lifecycle events through the module
// observer as job.<stage> operations.
type ObserverHook struct {
	observer *core.Observer
}

func NewObserverHook(observer *core.Observer) *ObserverHook {
	return &ObserverHook{observer: observer}
}

func (h *ObserverHook) OnStart(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.observer.Debug(ctx, "rdstation job started", eventFields(event))
}

func (h *ObserverHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.observe(ctx, "job_success", event)
}

func (h *ObserverHook) OnFailure(ctx context.Context, event worker.Event) {
	h.observe(ctx, "job_failure", event)
}

func (h *ObserverHook) OnRetry(ctx context.Context, event worker.Event) {
	h.observe(ctx, "job_retry", event)
}

func (h *ObserverHook) observe(ctx context.Context, operation string, event worker.Event) {
	if h == nil {
		return
	}
	h.observer.Observe(ctx, event.StartedAt, operation, event.Err, eventFields(event))
}

func eventFields(event worker.Event) map[string]any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fields := map[string]any{
		"attempt":  event.Attempt,
		"delay_ms": event.Delay.Milliseconds(),
	}
	if message != nil {
		fields["job_id"] = message.JobID
		fields["idempotency_key"] = message.IdempotencyKey
	}
	return fields
}

var _ worker.Hook = (*ObserverHook)(nil)
