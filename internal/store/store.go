// Package store defines the account store contract: the persistent
// mapping of user to plan plus per-day usage counters. The Postgres
// implementation lives in internal/repository; Memory below is the
// reference implementation used by tests and local development.
package store

import (
	"context"

	"github.com/storynest/backend/internal/quota"
)

// AccountStore is the only mutable shared state in the generation
// pipeline. Implementations must make IncrementUsage atomic: two
// concurrent increments for the same (userKey, dayBucket) yield two
// distinct sequential counts, never a lost update.
type AccountStore interface {
	// GetOrCreatePlan returns the user's plan, creating the account on
	// the free plan if it does not exist yet. Concurrent first calls
	// for the same key must collapse to one record; the loser observes
	// the winner's value.
	GetOrCreatePlan(ctx context.Context, userKey string) (quota.Plan, error)

	// GetUsage returns the usage count for the given UTC day bucket,
	// or 0 when no record exists. It never creates a record.
	GetUsage(ctx context.Context, userKey, dayBucket string) (int, error)

	// IncrementUsage atomically increments the counter for the given
	// day bucket, creating it at 1 when absent, and returns the
	// post-increment value.
	IncrementUsage(ctx context.Context, userKey, dayBucket string) (int, error)
}
