package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/backend/internal/quota"
)

func TestGetOrCreatePlan(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// First call creates the account on the free plan
	plan, err := m.GetOrCreatePlan(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, quota.PlanFree, plan)

	// An upgraded plan survives subsequent calls
	require.NoError(t, m.UpdatePlan(ctx, "user-1", quota.PlanPaid))
	plan, err = m.GetOrCreatePlan(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, quota.PlanPaid, plan)
}

func TestUpdatePlanRejectsUnknownPlan(t *testing.T) {
	m := NewMemory()
	err := m.UpdatePlan(context.Background(), "user-1", quota.Plan("enterprise"))
	assert.Error(t, err)
}

func TestGetUsageWithoutRecord(t *testing.T) {
	m := NewMemory()

	used, err := m.GetUsage(context.Background(), "user-1", "2025-11-03")
	require.NoError(t, err)
	assert.Equal(t, 0, used)
}

func TestIncrementUsage(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	n, err := m.IncrementUsage(ctx, "user-1", "2025-11-03")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.IncrementUsage(ctx, "user-1", "2025-11-03")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Separate buckets and users do not interfere
	n, err = m.IncrementUsage(ctx, "user-1", "2025-11-04")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.IncrementUsage(ctx, "user-2", "2025-11-03")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIncrementUsageConcurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	const goroutines = 100

	var wg sync.WaitGroup
	counts := make(chan int, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := m.IncrementUsage(ctx, "user-1", "2025-11-03")
			assert.NoError(t, err)
			counts <- n
		}()
	}
	wg.Wait()
	close(counts)

	// No lost updates: every increment observed a distinct count and the
	// final value is exactly the number of increments.
	seen := make(map[int]bool)
	for n := range counts {
		assert.False(t, seen[n], "duplicate count %d", n)
		seen[n] = true
	}

	final, err := m.GetUsage(ctx, "user-1", "2025-11-03")
	require.NoError(t, err)
	assert.Equal(t, goroutines, final)
}
