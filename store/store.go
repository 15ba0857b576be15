// Package store provides sliding-window backends for the rate limiter.
package store

import (
	"context"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	// Allowed reports whether the request was admitted and recorded.
	Allowed bool

	// Count is the number of recorded requests inside the window, including
	// this one when it was admitted.
	Count int64

	// ResetIn is the time until the oldest recorded request leaves the
	// window and frees a slot.
	ResetIn time.Duration
}

// Store records request timestamps per key over a sliding window.
// Implementations must be safe for concurrent use.
type Store interface {
	// Allow drops timestamps older than window for key, then admits and
	// records the request if fewer than limit remain. A rejected request is
	// not recorded.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (Result, error)

	// Close releases any resources held by the store.
	Close() error
}
