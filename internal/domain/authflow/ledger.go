package authflow

import (
	"context"
	"time"
)

// StateLedger records every issued state token so each can be consumed exactly
// once. ConsumeOnce must be a single atomic conditional mutation at the
// storage layer: two concurrent callbacks presenting the same token race on
// it, and exactly one may win. A read-then-write implementation reintroduces
// the replay window this ledger exists to close.
type StateLedger interface {
	Register(ctx context.Context, token, subjectID, platform string, ttl time.Duration) error
	// ConsumeOnce returns nil for the single winning caller and
	// ErrStateAlreadyConsumed, ErrStateNotFound or ErrStateExpired otherwise.
	ConsumeOnce(ctx context.Context, token string) error
	// DeleteExpired removes entries past expiration. Housekeeping only: the
	// age check rejects expired entries regardless of whether they were swept.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
