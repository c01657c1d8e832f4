package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type ActiveCredential struct {
	TokenType    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Refreshable  bool
	Metadata     map[string]any
}

// Expired reports whether the credential expires before now+skew. Credentials
// without an expiry never expire.
func (c ActiveCredential) Expired(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Add(skew).Before(*c.ExpiresAt)
}

// ExpiresIn returns the remaining lifetime in whole seconds, or zero.
func (c ActiveCredential) ExpiresIn(now time.Time) int64 {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := c.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type ActivityStatus string

const (
	ActivityStatusSuccess ActivityStatus = "success"
	ActivityStatusFailure ActivityStatus = "failure"
	ActivityStatusSkipped ActivityStatus = "skipped"
)

// ActivityEntry is one processed input item of a node execution.
type ActivityEntry struct {
	ID          string
	ExecutionID string
	Resource    string
	Operation   string
	ItemIndex   int
	Status      ActivityStatus
	Error       string
	Description string
	OutputCount int
	DurationMS  int64
	Metadata    map[string]any
	CreatedAt   time.Time
}

type ActivityFilter struct {
	ExecutionID string
	Resource    string
	Operation   string
	Status      ActivityStatus
	Since       *time.Time
	Page        int
	PerPage     int
}

type ActivityPage struct {
	Items      []ActivityEntry
	Page       int
	PerPage    int
	Total      int
	HasMore    bool
	NextOffset int
}

type ActivitySink interface {
	Record(ctx context.Context, entry ActivityEntry) error
}

type ActivityReader interface {
	List(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
