// Package repository provides data access layer implementations.
package repository

import "github.com/go-faster/errors"

// Common errors for repository operations.
var (
	// ErrStaleLedger is returned by ApplyClaim when the streak row no longer
	// matches the state the claim was evaluated against.
	ErrStaleLedger = errors.New("ledger changed since it was read")

	ErrReferralNotFound   = errors.New("referral not found")
	ErrReferralNotPending = errors.New("referral is not pending")
	ErrReferralExists     = errors.New("referral already exists")
)
