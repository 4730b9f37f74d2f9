// Package ratelimit enforces fixed-window request limits for the three flow
// surfaces: initiation, callback, and refresh.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/lumina-dash/lumina/internal/shared/config"
)

// Bucket identifies one independently limited surface.
type Bucket string

const (
	BucketInitiation Bucket = "initiation"
	BucketCallback   Bucket = "callback"
	BucketRefresh    Bucket = "refresh"
)

// Decision is the outcome of an admission check. RetryAfter is only
// meaningful when Allowed is false and points at the start of the next
// window.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// CounterStore increments a windowed counter and returns the new value.
// The first increment of a key must arm the expiry.
type CounterStore interface {
	Incr(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// Governor admits or rejects requests per bucket using fixed windows.
// Counters live in the store keyed by bucket, caller identity, and the
// window number, so windows roll over without any cleanup pass.
type Governor struct {
	store   CounterStore
	buckets map[Bucket]config.RateLimitBucketConfig
}

func NewGovernor(s CounterStore, cfg config.RateLimitConfig) *Governor {
	return &Governor{
		store: s,
		buckets: map[Bucket]config.RateLimitBucketConfig{
			BucketInitiation: cfg.Initiation,
			BucketCallback:   cfg.Callback,
			BucketRefresh:    cfg.Refresh,
		},
	}
}

// Admit counts the request against the bucket for the given caller key.
// A bucket with limit <= 0 is unlimited; so is one without a positive
// window, since no counter can be scoped to it.
func (g *Governor) Admit(ctx context.Context, bucket Bucket, key string) (Decision, error) {
	bc, ok := g.buckets[bucket]
	if !ok || bc.Limit <= 0 || bc.WindowSeconds <= 0 {
		return Decision{Allowed: true}, nil
	}

	window := bc.Window()
	now := time.Now()
	windowNum := now.Unix() / int64(window.Seconds())
	counterKey := counterKey(bucket, key, windowNum)

	count, err := g.store.Incr(ctx, counterKey, window+time.Second)
	if err != nil {
		return Decision{}, err
	}

	if count > int64(bc.Limit) {
		retryAfter := window - time.Duration(now.Unix()%int64(window.Seconds()))*time.Second
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	return Decision{Allowed: true, Remaining: int64(bc.Limit) - count}, nil
}

func counterKey(bucket Bucket, key string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", bucket, key, window)
}
