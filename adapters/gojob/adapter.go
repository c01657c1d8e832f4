package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-rdstation/command"
	"github.com/goliatone/go-rdstation/core"
	"github.com/google/uuid"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

// RetryPolicy bounds how often a failed node execution goes back to the
// queue.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// DefaultRetryPolicy gives an execution five attempts, then dead letters it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		MaxDelay:        15 * time.Minute,
		DeadLetterOnMax: true,
	}
}

// Apply clamps the delay and stops requeueing once attempt reaches
// MaxAttempts. A nack that neither requeues nor dead letters is requeued.
func (p RetryPolicy) Apply(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
		return out
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		out.DeadLetter = p.DeadLetterOnMax
		if !out.DeadLetter {
			out.Reason = strings.TrimSpace(fmt.Sprintf("%s (dropped after %d attempts)", out.Reason, attempt))
		}
		return out
	}
	out.Requeue = true
	return out
}

func ToQueueMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

func FromQueueMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// Producer puts node executions on a go-job queue.
type Producer struct {
	enqueuer queue.Enqueuer
	newID    func() string
}

func NewProducer(enqueuer queue.Enqueuer) *Producer {
	return &Producer{enqueuer: enqueuer, newID: uuid.NewString}
}

func (p *Producer) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if p == nil || p.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) == "" {
		return fmt.Errorf("gojob: job id is required")
	}
	_, err := p.enqueuer.Enqueue(ctx, ToQueueMessage(msg))
	return err
}

// EnqueueExecution validates msg and queues it, assigning an execution id
// when msg has none. The id keys both the activity ledger and queue
// deduplication.
func (p *Producer) EnqueueExecution(ctx context.Context, msg command.ExecuteNodeMessage) (string, error) {
	if p == nil {
		return "", fmt.Errorf("gojob: enqueuer is not configured")
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}
	msg.ExecutionID = strings.TrimSpace(msg.ExecutionID)
	if msg.ExecutionID == "" {
		msg.ExecutionID = p.newID()
	}
	if err := p.Enqueue(ctx, NewExecuteNodeJob(msg)); err != nil {
		return "", err
	}
	return msg.ExecutionID, nil
}

// Consumer pulls node executions off a go-job queue. It counts deliveries
// per execution id in process memory so the retry policy can cap attempts.
type Consumer struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy

	mu       sync.Mutex
	attempts map[string]int
}

func NewConsumer(dequeuer queue.Dequeuer, policy RetryPolicy) *Consumer {
	return &Consumer{dequeuer: dequeuer, policy: policy, attempts: map[string]int{}}
}

func (c *Consumer) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if c == nil || c.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	raw, err := c.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("gojob: dequeuer returned no delivery")
	}
	key := ""
	if msg := raw.Message(); msg != nil {
		key = strings.TrimSpace(msg.IdempotencyKey)
	}
	return &Delivery{raw: raw, consumer: c, key: key, attempt: c.nextAttempt(key)}, nil
}

// InFlight reports the number of executions with a retry pending.
func (c *Consumer) InFlight() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.attempts)
}

func (c *Consumer) nextAttempt(key string) int {
	if c == nil || key == "" {
		return 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[key]++
	return c.attempts[key]
}

func (c *Consumer) forget(key string) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, key)
}

// Delivery is one dequeued node execution.
type Delivery struct {
	raw      queue.Delivery
	consumer *Consumer
	key      string
	attempt  int
}

func (d *Delivery) Message() *core.JobExecutionMessage {
	if d == nil || d.raw == nil {
		return nil
	}
	return FromQueueMessage(d.raw.Message())
}

// Attempt is 1 on first delivery.
func (d *Delivery) Attempt() int {
	if d == nil {
		return 0
	}
	return d.attempt
}

func (d *Delivery) Ack(ctx context.Context) error {
	if d == nil || d.raw == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	if err := d.raw.Ack(ctx); err != nil {
		return err
	}
	d.consumer.forget(d.key)
	return nil
}

// Nack applies the consumer retry policy for the current attempt.
func (d *Delivery) Nack(ctx context.Context, opts core.JobNackOptions) error {
	if d == nil || d.raw == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	policy := RetryPolicy{}
	if d.consumer != nil {
		policy = d.consumer.policy
	}
	applied := policy.Apply(opts, d.attempt)
	if err := d.raw.Nack(ctx, ToNackOptions(applied)); err != nil {
		return err
	}
	if !applied.Requeue {
		d.consumer.forget(d.key)
	}
	return nil
}

// ToNackOptions maps a policy decision onto a go-job nack. Requeue wins
// over dead letter; a nack that does neither fails the delivery for good.
func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	out := queue.NackOptions{Reason: opts.Reason}
	switch {
	case opts.Requeue:
		out.Disposition = queue.NackDispositionRetry
		out.Delay = max(opts.Delay, 0)
	case opts.DeadLetter:
		out.Disposition = queue.NackDispositionDeadLetter
	default:
		out.Disposition = queue.NackDispositionFailed
	}
	return out
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.JobEnqueuer = (*Producer)(nil)
	_ core.JobDelivery = (*Delivery)(nil)
	_ core.JobDequeuer = (*Consumer)(nil)
)
