// Package model defines the data models for the rewards hub.
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserID is the opaque identifier handed to us by the identity provider.
type UserID string

// String implements fmt.Stringer.
func (id UserID) String() string {
	return string(id)
}

// PointsBalance is a user's spendable points. One row per user.
type PointsBalance struct {
	UserID    UserID    `db:"user_id"`
	Points    int64     `db:"points"`
	UpdatedAt time.Time `db:"updated_at"`
}

// StreakRecord tracks consecutive daily check-ins. One row per user.
// CurrentStreak is 0 and LastCheckIn is nil until the first claim.
type StreakRecord struct {
	UserID        UserID     `db:"user_id"`
	CurrentStreak int        `db:"current_streak"`
	LastCheckIn   *time.Time `db:"last_check_in"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Ledger is a point-in-time view of the rows the check-in flow owns.
type Ledger struct {
	Balance PointsBalance
	Streak  StreakRecord
}

// ReferralStatus is the lifecycle state of a referral.
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)

// ReferralRecord links a referring user to a referee.
// PointsAwarded only counts once Status is completed.
type ReferralRecord struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	ReferrerID    UserID         `db:"referrer_id" json:"referrer_id"`
	RefereeID     UserID         `db:"referee_id" json:"referee_id"`
	Status        ReferralStatus `db:"status" json:"status"`
	PointsAwarded int64          `db:"points_awarded" json:"points_awarded"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}

// RewardCatalogEntry is a redeemable reward definition.
// Lock state is derived from the user's balance and is never stored.
type RewardCatalogEntry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	PointsRequired int64     `db:"points_required" json:"points_required"`
	Category       string    `db:"category" json:"category"`
	IsActive       bool      `db:"is_active" json:"is_active"`
}

// Identity is the caller as vouched for by the identity provider.
// Email is optional and only used to build the referral code.
type Identity struct {
	UserID UserID
	Email  string
}
