// Package quota implements the subscription plan policy: plan names,
// per-plan daily generation limits and the allow/deny decision.
// Everything here is pure and synchronous; limits are data so they can
// be tuned through configuration without a redeploy.
package quota

import "time"

// Plan is a subscription tier controlling the daily generation quota.
type Plan string

// Known plans. Accounts are created on the free plan and move to paid
// through the explicit upgrade path only.
const (
	PlanFree Plan = "free"
	PlanPaid Plan = "paid"
)

// IsValidPlan reports whether p is a plan this policy knows about.
func IsValidPlan(p Plan) bool {
	switch p {
	case PlanFree, PlanPaid:
		return true
	default:
		return false
	}
}

// Limits maps plans to their daily generation limit.
type Limits map[Plan]int

// DefaultLimits are the limits used when configuration provides none.
var DefaultLimits = Limits{
	PlanFree: 2,
	PlanPaid: 10,
}

// DailyLimit returns the daily limit for a plan. Unknown plans fall back
// to the free limit so a bad plan value never grants extra quota.
func (l Limits) DailyLimit(p Plan) int {
	if limit, ok := l[p]; ok {
		return limit
	}
	return l[PlanFree]
}

// IsAllowed reports whether a user who has used `used` generations today
// may make another one. A limit of 0 always denies. Negative usage counts
// should not occur, but are treated as 0 rather than granting headroom.
func IsAllowed(used, limit int) bool {
	if used < 0 {
		used = 0
	}
	return used < limit
}

// DayBucket returns the UTC calendar-day key used to partition usage
// counters, e.g. "2025-11-03". The boundary is fixed at UTC midnight.
func DayBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
