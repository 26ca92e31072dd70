package generate

import (
	"fmt"

	"github.com/storynest/backend/internal/quota"
)

// QuotaExceededError denies a generation before dispatch. It carries the
// snapshot the 429 response body needs.
type QuotaExceededError struct {
	Plan       quota.Plan
	DailyLimit int
	UsedToday  int
	DayBucket  string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota exceeded: %d/%d used on plan %q for %s",
		e.UsedToday, e.DailyLimit, e.Plan, e.DayBucket)
}

// ValidationError rejects a malformed generation request before any
// upstream call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ResultInvalidError marks a generated result as unusable. Requests that
// end here are never counted against quota.
type ResultInvalidError struct {
	Reason string
}

func (e *ResultInvalidError) Error() string {
	return "unusable generation result: " + e.Reason
}

// StoreError wraps account store failures occurring before a successful
// generation; they are fatal for the request.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "account store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
