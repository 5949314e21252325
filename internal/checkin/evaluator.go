// Package checkin decides the outcome of a daily check-in.
// Everything here is pure: callers supply "today" so the rules can be
// exercised without a wall clock.
package checkin

import "time"

// DailyReward is the number of points credited for a successful claim.
// It does not scale with streak length.
const DailyReward int64 = 5

// Outcome is the kind of decision produced by Evaluate.
type Outcome int

const (
	// Reset starts a new streak at 1.
	Reset Outcome = iota
	// Continue extends yesterday's streak by one.
	Continue
	// AlreadyClaimed means today's reward was already credited.
	AlreadyClaimed
)

// String returns the wire name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case AlreadyClaimed:
		return "already_claimed"
	default:
		return "reset"
	}
}

// Credits reports whether the outcome credits points.
func (o Outcome) Credits() bool {
	return o != AlreadyClaimed
}

// Decision is the result of evaluating a claim.
// NewStreak is the streak to store; for AlreadyClaimed it equals the input.
type Decision struct {
	Outcome   Outcome
	NewStreak int
}

// Date truncates t to its calendar day, keeping the wall-clock date in t's
// own location and expressing the result as midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Date(now.In(loc))
}

// Evaluate applies the streak rules:
//   - lastCheckIn == today: AlreadyClaimed, streak unchanged
//   - lastCheckIn == today-1: Continue with currentStreak+1
//   - anything else (never, gap of 2+ days, future date): Reset to 1
func Evaluate(today time.Time, lastCheckIn *time.Time, currentStreak int) Decision {
	today = Date(today)
	if lastCheckIn == nil {
		return Decision{Outcome: Reset, NewStreak: 1}
	}

	last := Date(*lastCheckIn)
	switch {
	case last.Equal(today):
		return Decision{Outcome: AlreadyClaimed, NewStreak: currentStreak}
	case last.Equal(today.AddDate(0, 0, -1)):
		return Decision{Outcome: Continue, NewStreak: currentStreak + 1}
	default:
		return Decision{Outcome: Reset, NewStreak: 1}
	}
}

// CanClaim reports whether a claim made today would credit points.
func CanClaim(today time.Time, lastCheckIn *time.Time) bool {
	return lastCheckIn == nil || !Date(*lastCheckIn).Equal(Date(today))
}
