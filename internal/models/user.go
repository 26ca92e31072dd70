package models

import (
	"time"

	"github.com/storynest/backend/internal/quota"
)

// User represents a registered user
type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Account is the plan record the quota pipeline reads. It is keyed by
// the stable user key resolved from the auth token, not by the users
// table, so externally issued identities get an account too.
type Account struct {
	UserKey   string     `json:"user_key" db:"user_key"`
	Plan      quota.Plan `json:"plan" db:"plan"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// UsageRecord is one day's generation counter for a user
type UsageRecord struct {
	UserKey   string    `json:"user_key" db:"user_key"`
	DayBucket string    `json:"day_bucket" db:"day_bucket"`
	Used      int       `json:"used" db:"used"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
