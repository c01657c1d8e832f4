package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-rdstation/command"
	"github.com/goliatone/go-rdstation/core"
	"github.com/goliatone/go-rdstation/node"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

func TestMessageMappingRoundTrip(t *testing.T) {
	original := &core.JobExecutionMessage{
		JobID:          JobIDExecuteNode,
		ScriptPath:     JobIDExecuteNode,
		Parameters:     map[string]any{"execution_id": "exec_1"},
		IdempotencyKey: "exec_1",
		DedupPolicy:    "drop",
	}

	converted := ToQueueMessage(original)
	if converted == nil {
		t.Fatalf("expected converted message")
	}
	roundTrip := FromQueueMessage(converted)
	if roundTrip.JobID != original.JobID {
		t.Fatalf("expected job id %q, got %q", original.JobID, roundTrip.JobID)
	}
	if roundTrip.IdempotencyKey != original.IdempotencyKey {
		t.Fatalf("expected idempotency key %q, got %q", original.IdempotencyKey, roundTrip.IdempotencyKey)
	}
	if roundTrip.DedupPolicy != original.DedupPolicy {
		t.Fatalf("expected dedup policy %q, got %q", original.DedupPolicy, roundTrip.DedupPolicy)
	}
	if roundTrip.Parameters["execution_id"] != "exec_1" {
		t.Fatalf("expected parameters to survive mapping")
	}
}

func TestProducerAndConsumer(t *testing.T) {
	ctx := context.Background()
	enqueuer := &stubQueueEnqueuer{}
	producer := NewProducer(enqueuer)

	msg := &core.JobExecutionMessage{
		JobID:          JobIDExecuteNode,
		ScriptPath:     JobIDExecuteNode,
		IdempotencyKey: "exec_2",
	}
	if err := producer.Enqueue(ctx, msg); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDExecuteNode {
		t.Fatalf("expected mapped go-job message")
	}

	dequeuer := &stubQueueDequeuer{delivery: &stubQueueDelivery{msg: enqueuer.last}}
	consumer := NewConsumer(dequeuer, RetryPolicy{})
	delivery, err := consumer.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got := delivery.Message(); got == nil || got.IdempotencyKey != "exec_2" {
		t.Fatalf("expected mapped core message")
	}
	if consumer.InFlight() != 1 {
		t.Fatalf("expected the execution to be tracked")
	}
	if err := delivery.Ack(ctx); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !dequeuer.delivery.(*stubQueueDelivery).acked {
		t.Fatalf("expected ack on underlying delivery")
	}
	if consumer.InFlight() != 0 {
		t.Fatalf("expected ack to release the attempt counter")
	}
}

func TestProducerEnqueueExecutionAssignsID(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	producer := NewProducer(enqueuer)
	producer.newID = func() string { return "generated" }

	id, err := producer.EnqueueExecution(context.Background(), command.ExecuteNodeMessage{
		Items:      []node.Item{{JSON: map[string]any{}}},
		Parameters: node.Parameters{Values: map[string]any{"resource": "contact", "operation": "get"}},
	})
	if err != nil {
		t.Fatalf("enqueue execution: %v", err)
	}
	if id != "generated" || enqueuer.last.IdempotencyKey != "generated" {
		t.Fatalf("expected generated execution id, got %q / %q", id, enqueuer.last.IdempotencyKey)
	}
	if enqueuer.last.Parameters["execution_id"] != "generated" {
		t.Fatalf("expected execution id in job parameters")
	}

	_, err = producer.EnqueueExecution(context.Background(), command.ExecuteNodeMessage{
		Parameters: node.Parameters{Values: map[string]any{"resource": ""}},
	})
	if err == nil {
		t.Fatalf("expected invalid message to be rejected before enqueue")
	}
}

func TestProducerRequiresMessage(t *testing.T) {
	if err := NewProducer(&stubQueueEnqueuer{}).Enqueue(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil message")
	}
	if err := NewProducer(&stubQueueEnqueuer{}).Enqueue(context.Background(), &core.JobExecutionMessage{}); err == nil {
		t.Fatalf("expected error for missing job id")
	}
	if err := NewProducer(nil).Enqueue(context.Background(), &core.JobExecutionMessage{JobID: JobIDExecuteNode}); err == nil {
		t.Fatalf("expected error for missing enqueuer")
	}
}

func TestRetryPolicyApply(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, MaxDelay: 10 * time.Second, DeadLetterOnMax: true}

	first := policy.Apply(core.JobNackOptions{Delay: 30 * time.Second, Reason: " throttled "}, 1)
	if !first.Requeue || first.DeadLetter || first.Delay != 10*time.Second || first.Reason != "throttled" {
		t.Fatalf("unexpected first attempt options %#v", first)
	}
	last := policy.Apply(core.JobNackOptions{Requeue: true}, 3)
	if last.Requeue || !last.DeadLetter {
		t.Fatalf("expected dead letter at max attempts, got %#v", last)
	}
	dropped := RetryPolicy{MaxAttempts: 1}.Apply(core.JobNackOptions{Requeue: true, Reason: "boom"}, 1)
	if dropped.Requeue || dropped.DeadLetter {
		t.Fatalf("expected drop without dead letter, got %#v", dropped)
	}
	explicit := policy.Apply(core.JobNackOptions{Requeue: true, DeadLetter: true}, 1)
	if explicit.Requeue || !explicit.DeadLetter {
		t.Fatalf("expected explicit dead letter to win, got %#v", explicit)
	}
}

func TestToNackOptions(t *testing.T) {
	retry := ToNackOptions(core.JobNackOptions{Requeue: true, DeadLetter: true, Delay: -time.Second, Reason: "later"})
	if retry.Disposition != queue.NackDispositionRetry || retry.Delay != 0 || retry.Reason != "later" {
		t.Fatalf("unexpected retry nack %#v", retry)
	}
	dead := ToNackOptions(core.JobNackOptions{DeadLetter: true, Delay: time.Minute})
	if dead.Disposition != queue.NackDispositionDeadLetter || dead.Delay != 0 {
		t.Fatalf("unexpected dead letter nack %#v", dead)
	}
	if failed := ToNackOptions(core.JobNackOptions{}); failed.Disposition != queue.NackDispositionFailed {
		t.Fatalf("expected failed disposition, got %#v", failed)
	}
}

func TestConsumerDropsWithoutDeadLetter(t *testing.T) {
	rawDelivery := &stubQueueDelivery{
		msg: &job.ExecutionMessage{JobID: JobIDExecuteNode, IdempotencyKey: "exec_drop"},
	}
	consumer := NewConsumer(&stubQueueDequeuer{delivery: rawDelivery}, RetryPolicy{MaxAttempts: 1})
	delivery, err := consumer.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := delivery.Nack(context.Background(), core.JobNackOptions{Requeue: true, Reason: "boom"}); err != nil {
		t.Fatalf("nack: %v", err)
	}
	if rawDelivery.nackOpts.Disposition != queue.NackDispositionFailed {
		t.Fatalf("expected failed disposition, got %#v", rawDelivery.nackOpts)
	}
	if rawDelivery.nackOpts.Reason != "boom (dropped after 1 attempts)" {
		t.Fatalf("unexpected reason %q", rawDelivery.nackOpts.Reason)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	fourth := policy.Apply(core.JobNackOptions{Delay: time.Hour}, 4)
	if !fourth.Requeue || fourth.Delay != 15*time.Minute {
		t.Fatalf("expected bounded requeue before the last attempt, got %#v", fourth)
	}
	fifth := policy.Apply(core.JobNackOptions{}, 5)
	if fifth.Requeue || !fifth.DeadLetter {
		t.Fatalf("expected dead letter on the fifth attempt, got %#v", fifth)
	}
}

func TestConsumerCountsAttemptsPerExecution(t *testing.T) {
	ctx := context.Background()
	rawDelivery := &stubQueueDelivery{
		msg: &job.ExecutionMessage{JobID: JobIDExecuteNode, IdempotencyKey: "exec_retry"},
	}
	consumer := NewConsumer(&stubQueueDequeuer{delivery: rawDelivery}, RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	})

	for attempt := 1; attempt <= 3; attempt++ {
		delivery, err := consumer.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue attempt %d: %v", attempt, err)
		}
		if got := delivery.(*Delivery).Attempt(); got != attempt {
			t.Fatalf("expected attempt %d, got %d", attempt, got)
		}
		if err := delivery.Nack(ctx, core.JobNackOptions{Delay: 30 * time.Second, Reason: "throttled"}); err != nil {
			t.Fatalf("nack attempt %d: %v", attempt, err)
		}
		if attempt < 3 {
			if rawDelivery.nackOpts.Disposition != queue.NackDispositionRetry || rawDelivery.nackOpts.Delay != 10*time.Second {
				t.Fatalf("expected bounded requeue on attempt %d, got %#v", attempt, rawDelivery.nackOpts)
			}
		}
	}
	if rawDelivery.nackOpts.Disposition != queue.NackDispositionDeadLetter {
		t.Fatalf("expected dead letter on the last attempt, got %#v", rawDelivery.nackOpts)
	}
	if consumer.InFlight() != 0 {
		t.Fatalf("expected dead letter to release the attempt counter")
	}
}

func TestObserverHookRecordsWorkerEvents(t *testing.T) {
	metrics := core.NewMemoryMetricsRecorder()
	hook := NewObserverHook(core.NewObserver("rdstation", nil, metrics))

	evt := worker.Event{
		Message: &job.ExecutionMessage{
			JobID:          JobIDExecuteNode,
			IdempotencyKey: "exec_3",
		},
		Attempt:   2,
		Delay:     5 * time.Second,
		Err:       errors.New("retry"),
		StartedAt: time.Now().Add(-time.Second),
		Duration:  250 * time.Millisecond,
	}

	hook.OnStart(context.Background(), evt)
	hook.OnRetry(context.Background(), evt)
	hook.OnFailure(context.Background(), evt)

	if got := metrics.Counter("rdstation.job_retry.total"); got != 1 {
		t.Fatalf("expected one retry counted, got %d", got)
	}
	if got := metrics.Counter("rdstation.job_failure.total"); got != 1 {
		t.Fatalf("expected one failure counted, got %d", got)
	}
	if samples := metrics.Samples("rdstation.job_retry.duration_ms"); len(samples) != 1 {
		t.Fatalf("expected one duration sample, got %d", len(samples))
	}

	fields := eventFields(evt)
	if fields["job_id"] != JobIDExecuteNode || fields["attempt"] != 2 {
		t.Fatalf("unexpected event fields %#v", fields)
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	s.last = msg
	return queue.EnqueueReceipt{DispatchID: "dispatch-" + msg.IdempotencyKey}, nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nacked   bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nacked = true
	s.nackOpts = opts
	return nil
}
