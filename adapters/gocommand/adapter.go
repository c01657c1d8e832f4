package gocommand

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// MessagePrefix namespaces every command and query type handled on the bus.
const MessagePrefix = "rdstation."

// QueueResolverKey is the resolver name under which registered commands are
// mirrored into a go-job queue registry.
const QueueResolverKey = "rdstation.queue"

// ValidateMessage enforces the go-command contract (Type plus optional
// Validate) and the rdstation type namespace.
func ValidateMessage(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	return validateType(m.Type())
}

func validateType(messageType string) error {
	messageType = strings.TrimSpace(messageType)
	if messageType == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	if !strings.HasPrefix(messageType, MessagePrefix) {
		return fmt.Errorf("gocommand: message type %q is outside the %q namespace", messageType, MessagePrefix)
	}
	return nil
}

// Bus owns a go-command registry and every dispatcher subscription made
// through it, so a host can tear the handlers down in one call.
type Bus struct {
	mu            sync.Mutex
	registry      *command.Registry
	runnerOpts    []runner.Option
	subscriptions []commanddispatcher.Subscription
}

func NewBus(registry *command.Registry, runnerOpts ...runner.Option) *Bus {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &Bus{registry: registry, runnerOpts: runnerOpts}
}

func (b *Bus) Registry() *command.Registry {
	if b == nil {
		return nil
	}
	return b.registry
}

func (b *Bus) AddResolver(key string, resolver command.Resolver) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (b *Bus) HasResolver(key string) bool {
	if b == nil || b.registry == nil {
		return false
	}
	return b.registry.HasResolver(strings.TrimSpace(key))
}

// MirrorToQueue copies every registered command into queueRegistry on
// Initialize, which lets go-job workers run node executions.
func (b *Bus) MirrorToQueue(queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return b.AddResolver(QueueResolverKey, jobqueuecommand.QueueResolver(queueRegistry))
}

func (b *Bus) Initialize() error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.Initialize()
}

// Len reports the number of live subscriptions.
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscriptions)
}

// Close releases every subscription. The registry keeps its entries.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	subscriptions := b.subscriptions
	b.subscriptions = nil
	b.mu.Unlock()
	for _, subscription := range subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

func (b *Bus) track(subscription commanddispatcher.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = append(b.subscriptions, subscription)
}

// Handle registers cmd and subscribes it to the dispatcher. The message
// type of T must live under MessagePrefix.
func Handle[T any](b *Bus, cmd command.Commander[T]) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return fmt.Errorf("gocommand: command is required")
	}
	if err := validateMessageType[T](); err != nil {
		return err
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, b.runnerOpts...)
	if err := b.registry.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	b.track(subscription)
	return nil
}

// Serve registers qry and subscribes it to the dispatcher.
func Serve[T any, R any](b *Bus, qry command.Querier[T, R]) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return fmt.Errorf("gocommand: query is required")
	}
	if err := validateMessageType[T](); err != nil {
		return err
	}
	subscription := commanddispatcher.SubscribeQuery(qry, b.runnerOpts...)
	if err := b.registry.RegisterCommand(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	b.track(subscription)
	return nil
}

// Dispatch validates msg and sends it to the subscribed command handler.
func Dispatch[T any](ctx context.Context, msg T) error {
	if err := ValidateMessage(msg); err != nil {
		return err
	}
	return commanddispatcher.Dispatch(ctx, msg)
}

// Ask validates msg and returns the subscribed query handler's answer.
func Ask[T any, R any](ctx context.Context, msg T) (R, error) {
	if err := ValidateMessage(msg); err != nil {
		var zero R
		return zero, err
	}
	return commanddispatcher.Query[T, R](ctx, msg)
}

// DispatchResult dispatches msg and returns the value the handler stored in
// the context result collector.
func DispatchResult[T any, R any](ctx context.Context, msg T) (R, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	collector := command.NewResult[R]()
	if err := Dispatch(command.ContextWithResult(ctx, collector), msg); err != nil {
		var zero R
		return zero, err
	}
	value, ok := collector.Load()
	if !ok {
		var zero R
		return zero, fmt.Errorf("gocommand: handler for %T stored no result", msg)
	}
	return value, nil
}

func validateMessageType[T any]() error {
	var zero T
	m, ok := any(zero).(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message %T must implement Type() string", zero)
	}
	return validateType(m.Type())
}
