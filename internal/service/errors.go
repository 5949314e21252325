// Package service provides business logic implementations.
package service

import "github.com/go-faster/errors"

// Common errors for service operations.
var (
	// ErrStoreUnavailable means the ledger store could not be read or
	// written. The operation can be retried.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	// ErrInvalidState means stored ledger data violates its invariants.
	// Nothing is credited until the data is repaired.
	ErrInvalidState = errors.New("ledger state is invalid")
	// ErrInvalidUser is returned for an empty user ID.
	ErrInvalidUser = errors.New("user id is required")
	// ErrInvalidPoints is returned for a non-positive referral award.
	ErrInvalidPoints = errors.New("points must be positive")
)

// storeError reports a store failure as ErrStoreUnavailable while keeping
// the underlying cause reachable through Unwrap.
type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string {
	return e.op + ": " + ErrStoreUnavailable.Error() + ": " + e.err.Error()
}

func (e *storeError) Unwrap() error { return e.err }

func (e *storeError) Is(target error) bool { return target == ErrStoreUnavailable }

func unavailable(op string, err error) error {
	return &storeError{op: op, err: err}
}
