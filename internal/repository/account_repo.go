package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/storynest/backend/internal/database"
	"github.com/storynest/backend/internal/quota"
)

// AccountRepository is the Postgres-backed account store. It relies on
// the database's atomic upsert primitive for both the lazy plan create
// and the usage increment; neither is emulated with read-modify-write.
type AccountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetOrCreatePlan returns the user's plan, creating the account on the
// free plan when it does not exist. The no-op DO UPDATE makes the insert
// return the winner's plan to a concurrent loser instead of failing on
// the unique key.
func (r *AccountRepository) GetOrCreatePlan(ctx context.Context, userKey string) (quota.Plan, error) {
	query := `
		INSERT INTO accounts (user_key, plan, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (user_key) DO UPDATE SET plan = accounts.plan
		RETURNING plan
	`
	var plan quota.Plan
	err := r.db.QueryRow(ctx, query, userKey, quota.PlanFree).Scan(&plan)
	if err != nil {
		return "", fmt.Errorf("failed to get or create plan: %w", err)
	}

	return plan, nil
}

// GetUsage returns the usage counter for the given day bucket, or 0 when
// no record exists. It never creates a record.
func (r *AccountRepository) GetUsage(ctx context.Context, userKey, dayBucket string) (int, error) {
	query := `SELECT used FROM usage_daily WHERE user_key = $1 AND day_bucket = $2`

	var used int
	err := r.db.QueryRow(ctx, query, userKey, dayBucket).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get usage: %w", err)
	}

	return used, nil
}

// IncrementUsage atomically increments the day's counter, creating it at
// 1 when absent, and returns the post-increment value. Concurrent calls
// serialize on the row, so counts are never lost.
func (r *AccountRepository) IncrementUsage(ctx context.Context, userKey, dayBucket string) (int, error) {
	query := `
		INSERT INTO usage_daily (user_key, day_bucket, used, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (user_key, day_bucket)
		DO UPDATE SET used = usage_daily.used + 1, updated_at = now()
		RETURNING used
	`
	var used int
	err := r.db.QueryRow(ctx, query, userKey, dayBucket).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}

	return used, nil
}

// UpdatePlan sets a user's plan. This is the explicit upgrade path; the
// generation pipeline never mutates plans.
func (r *AccountRepository) UpdatePlan(ctx context.Context, userKey string, plan quota.Plan) error {
	if !quota.IsValidPlan(plan) {
		return fmt.Errorf("invalid plan: %s", plan)
	}

	query := `
		INSERT INTO accounts (user_key, plan, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (user_key) DO UPDATE SET plan = EXCLUDED.plan, updated_at = now()
	`
	if _, err := r.db.Exec(ctx, query, userKey, plan); err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}

	return nil
}
