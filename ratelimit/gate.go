// Package ratelimit paces outgoing calls and remembers throttle windows
// announced by the API. It never retries a call.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
	"golang.org/x/time/rate"
)

const DefaultBucket = "default"

type ThrottledError struct {
	Bucket     string
	RetryAfter time.Duration
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf(
		"ratelimit: bucket %q throttled for %s",
		strings.TrimSpace(e.Bucket),
		e.RetryAfter,
	)
}

func (e ThrottledError) ToServiceError() *goerrors.Error {
	metadata := map[string]any{
		"bucket": strings.TrimSpace(e.Bucket),
	}
	if e.RetryAfter > 0 {
		metadata["retry_after_ms"] = e.RetryAfter.Milliseconds()
	}
	return goerrors.New(e.Error(), goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(core.ErrorRateLimited).
		WithMetadata(metadata)
}

// State is the throttle bookkeeping of one bucket.
type State struct {
	Bucket         string
	Limit          int
	Remaining      int
	ResetAt        *time.Time
	ThrottledUntil *time.Time
	LastStatus     int
	UpdatedAt      time.Time
}

// Gate combines a token bucket limiter with the throttle windows learned
// from responses. The zero value lets every call through.
type Gate struct {
	Now              func() time.Time
	DefaultRetryHint time.Duration

	limiter *rate.Limiter
	mu      sync.Mutex
	states  map[string]State
}

// NewGate builds a gate allowing requestsPerSecond with the given burst.
// A non-positive rate disables pacing and keeps only throttle windows.
func NewGate(requestsPerSecond float64, burst int) *Gate {
	gate := &Gate{
		Now:              func() time.Time { return time.Now().UTC() },
		DefaultRetryHint: 5 * time.Second,
		states:           map[string]State{},
	}
	if requestsPerSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		gate.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return gate
}

func NewGateFromConfig(cfg core.RateLimitConfig) *Gate {
	return NewGate(cfg.RequestsPerSecond, cfg.Burst)
}

// Before fails fast while the bucket is inside a throttle window and
// otherwise waits for a limiter token.
func (g *Gate) Before(ctx context.Context, bucket string) error {
	if g == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	bucket = normalizeBucket(bucket)
	now := g.now()

	g.mu.Lock()
	state, ok := g.states[bucket]
	g.mu.Unlock()
	if ok {
		if until := state.ThrottledUntil; until != nil && now.Before(*until) {
			return ThrottledError{Bucket: bucket, RetryAfter: until.Sub(now)}
		}
		if state.Remaining == 0 && state.ResetAt != nil && now.Before(*state.ResetAt) {
			return ThrottledError{Bucket: bucket, RetryAfter: state.ResetAt.Sub(now)}
		}
	}
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryRateLimit, "ratelimit: wait for token").
			WithCode(http.StatusTooManyRequests).
			WithTextCode(core.ErrorRateLimited)
	}
	return nil
}

// After records the response status and rate headers for bucket.
func (g *Gate) After(_ context.Context, bucket string, statusCode int, headers map[string]string) {
	if g == nil {
		return
	}
	bucket = normalizeBucket(bucket)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.states == nil {
		g.states = map[string]State{}
	}
	state := g.states[bucket]
	state.Bucket = bucket
	state.LastStatus = statusCode
	state.UpdatedAt = now

	_, hasRemaining := parseHeaderInt(headers, "x-ratelimit-remaining")
	if limit, ok := parseHeaderInt(headers, "x-ratelimit-limit"); ok {
		state.Limit = limit
	}
	if remaining, ok := parseHeaderInt(headers, "x-ratelimit-remaining"); ok {
		state.Remaining = remaining
	}
	if resetAt, ok := parseHeaderResetAt(headers, now); ok {
		state.ResetAt = &resetAt
	}
	if !hasRemaining {
		state.Remaining = -1
	}

	if statusCode == http.StatusTooManyRequests {
		delay, ok := parseRetryAfter(headers, now)
		if !ok {
			delay = g.defaultRetryHint()
		}
		until := now.Add(delay)
		state.ThrottledUntil = &until
	} else {
		state.ThrottledUntil = nil
	}
	g.states[bucket] = state
}

func (g *Gate) State(bucket string) (State, bool) {
	if g == nil {
		return State{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.states[normalizeBucket(bucket)]
	return state, ok
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

func (g *Gate) defaultRetryHint() time.Duration {
	if g.DefaultRetryHint > 0 {
		return g.DefaultRetryHint
	}
	return 5 * time.Second
}

func normalizeBucket(bucket string) string {
	bucket = strings.TrimSpace(strings.ToLower(bucket))
	if bucket == "" {
		return DefaultBucket
	}
	return bucket
}

func parseRetryAfter(headers map[string]string, now time.Time) (time.Duration, bool) {
	raw := headerValue(headers, "retry-after")
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if retryAt, err := http.ParseTime(raw); err == nil {
		if retryAt.After(now) {
			return retryAt.Sub(now), true
		}
	}
	return 0, false
}

func parseHeaderInt(headers map[string]string, key string) (int, bool) {
	value := headerValue(headers, key)
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// parseHeaderResetAt accepts either a unix timestamp or a number of seconds
// relative to now.
func parseHeaderResetAt(headers map[string]string, now time.Time) (time.Time, bool) {
	value := headerValue(headers, "x-ratelimit-reset")
	if value == "" {
		return time.Time{}, false
	}
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil || seconds <= 0 {
		return time.Time{}, false
	}
	if seconds < 1_000_000_000 {
		return now.Add(time.Duration(seconds) * time.Second), true
	}
	return time.Unix(seconds, 0).UTC(), true
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
