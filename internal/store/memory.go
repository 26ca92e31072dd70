package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/storynest/backend/internal/quota"
)

// Memory is an in-memory AccountStore. A single mutex guards both maps;
// the increment therefore carries the same atomicity guarantee as the
// Postgres upsert it stands in for.
type Memory struct {
	mu    sync.Mutex
	plans map[string]quota.Plan
	usage map[usageKey]int
}

type usageKey struct {
	userKey   string
	dayBucket string
}

// NewMemory creates an empty in-memory account store.
func NewMemory() *Memory {
	return &Memory{
		plans: make(map[string]quota.Plan),
		usage: make(map[usageKey]int),
	}
}

// GetOrCreatePlan returns the stored plan, creating the account on the
// free plan when absent.
func (m *Memory) GetOrCreatePlan(ctx context.Context, userKey string) (quota.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if plan, ok := m.plans[userKey]; ok {
		return plan, nil
	}
	m.plans[userKey] = quota.PlanFree
	return quota.PlanFree, nil
}

// UpdatePlan overwrites a user's plan. It is the upgrade-path hook; the
// generation pipeline itself never calls it.
func (m *Memory) UpdatePlan(ctx context.Context, userKey string, plan quota.Plan) error {
	if !quota.IsValidPlan(plan) {
		return fmt.Errorf("invalid plan: %s", plan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[userKey] = plan
	return nil
}

// GetUsage returns the counter for (userKey, dayBucket), 0 when absent.
func (m *Memory) GetUsage(ctx context.Context, userKey, dayBucket string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage[usageKey{userKey, dayBucket}], nil
}

// IncrementUsage bumps the counter and returns the new value.
func (m *Memory) IncrementUsage(ctx context.Context, userKey, dayBucket string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := usageKey{userKey, dayBucket}
	m.usage[key]++
	return m.usage[key], nil
}
