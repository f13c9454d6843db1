// Package ratelimit implements fixed-window request limiting keyed by
// client identifier. The counter store is injected so a single-process
// deployment can use process memory while a multi-instance deployment
// shares state through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of one check-and-increment. Denied requests still
// count against the window, so Remaining can reach zero while further
// requests keep arriving.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds until the window resets, at least 1.
func (r *Result) RetryAfter(now time.Time) int64 {
	secs := int64((r.ResetAt.Sub(now) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Store performs the authoritative check-and-increment for a key. The
// operation must be atomic per key: concurrent calls may never both be
// admitted when only one slot remains.
type Store interface {
	Take(ctx context.Context, key string) (*Result, error)
}

// Limiter scopes rate-limit accounting to one caller.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow records one request from clientID and reports whether it is
// admitted along with the caller's current quota telemetry. When the
// store fails the request is admitted with a synthetic full-quota
// result, so callers can keep their header contract, and the error is
// returned alongside it for logging.
func (l *Limiter) Allow(ctx context.Context, clientID string) (*Result, error) {
	key := fmt.Sprintf("ratelimit:client:%s", clientID)
	res, err := l.store.Take(ctx, key)
	if err != nil {
		return &Result{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit,
			ResetAt:   time.Now().Add(l.window),
		}, err
	}
	return res, nil
}
