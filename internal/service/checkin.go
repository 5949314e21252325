package service

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog/log"

	"rewards-hub/internal/checkin"
	"rewards-hub/internal/model"
	"rewards-hub/internal/pkg/lock"
	"rewards-hub/internal/repository"
)

// Clock returns the current time.
type Clock func() time.Time

// CheckinOptions configures CheckinService. Zero values fall back to the
// defaults noted on each field.
type CheckinOptions struct {
	Reward      int64          // checkin.DailyReward
	Location    *time.Location // UTC
	MaxAttempts int            // 3
	LockTimeout time.Duration  // 5s
	Now         Clock          // time.Now
}

// ClaimResult is the ledger state after a claim.
// Credited is the number of points added by this call, zero when the
// reward had already been claimed today.
type ClaimResult struct {
	Outcome     checkin.Outcome `json:"-"`
	Credited    int64           `json:"credited"`
	Points      int64           `json:"points"`
	Streak      int             `json:"streak"`
	LastCheckIn time.Time       `json:"last_check_in"`
}

// CheckinService applies daily check-ins to the ledger.
// At most one claim per user per calendar day is credited, even when several
// requests for the same user arrive at once.
type CheckinService struct {
	store       LedgerStore
	locks       *lock.UserLock
	reward      int64
	loc         *time.Location
	maxAttempts int
	lockTimeout time.Duration
	now         Clock
}

// NewCheckinService creates a new CheckinService instance.
func NewCheckinService(store LedgerStore, locks *lock.UserLock, opts CheckinOptions) *CheckinService {
	s := &CheckinService{
		store:       store,
		locks:       locks,
		reward:      opts.Reward,
		loc:         opts.Location,
		maxAttempts: opts.MaxAttempts,
		lockTimeout: opts.LockTimeout,
		now:         opts.Now,
	}
	if s.locks == nil {
		s.locks = lock.NewUserLock()
	}
	if s.reward <= 0 {
		s.reward = checkin.DailyReward
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 3
	}
	if s.lockTimeout <= 0 {
		s.lockTimeout = 5 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Today returns the current calendar date in the configured timezone.
func (s *CheckinService) Today() time.Time {
	return checkin.Today(s.now(), s.loc)
}

// ClaimDaily credits the daily reward if the user has not claimed today.
// A repeat claim is not an error: it returns Outcome AlreadyClaimed with the
// unchanged state.
func (s *CheckinService) ClaimDaily(ctx context.Context, userID model.UserID) (*ClaimResult, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	var result *ClaimResult
	err := s.locks.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		var err error
		result, err = s.claim(ctx, userID)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrStoreUnavailable) &&
			(errors.Is(err, lock.ErrLockTimeout) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)) {
			return nil, unavailable("claim daily", err)
		}
		return nil, err
	}

	if result.Outcome.Credits() {
		log.Info().
			Str("user_id", userID.String()).
			Str("outcome", result.Outcome.String()).
			Int("streak", result.Streak).
			Int64("points", result.Points).
			Msg("Daily reward claimed")
	}
	return result, nil
}

func (s *CheckinService) claim(ctx context.Context, userID model.UserID) (*ClaimResult, error) {
	if err := s.store.Ensure(ctx, userID); err != nil {
		return nil, unavailable("ensure ledger", err)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		ledger, err := s.store.Get(ctx, userID)
		if err != nil {
			return nil, unavailable("read ledger", err)
		}
		if err := validateLedger(ledger); err != nil {
			log.Error().Err(err).Str("user_id", userID.String()).Msg("Refusing claim on invalid ledger")
			return nil, err
		}

		today := s.Today()
		streak := ledger.Streak
		decision := checkin.Evaluate(today, streak.LastCheckIn, streak.CurrentStreak)

		if !decision.Outcome.Credits() {
			return &ClaimResult{
				Outcome:     decision.Outcome,
				Points:      ledger.Balance.Points,
				Streak:      streak.CurrentStreak,
				LastCheckIn: checkin.Date(*streak.LastCheckIn),
			}, nil
		}

		points, err := s.store.ApplyClaim(ctx, repository.ClaimWrite{
			UserID:              userID,
			ObservedStreak:      streak.CurrentStreak,
			ObservedLastCheckIn: streak.LastCheckIn,
			NewStreak:           decision.NewStreak,
			Day:                 today,
			Reward:              s.reward,
		})
		if errors.Is(err, repository.ErrStaleLedger) {
			log.Debug().Str("user_id", userID.String()).Int("attempt", attempt).Msg("Ledger changed during claim, re-evaluating")
			continue
		}
		if err != nil {
			return nil, unavailable("apply claim", err)
		}

		return &ClaimResult{
			Outcome:     decision.Outcome,
			Credited:    s.reward,
			Points:      points,
			Streak:      decision.NewStreak,
			LastCheckIn: today,
		}, nil
	}

	return nil, unavailable("apply claim", errors.Errorf("ledger kept changing after %d attempts", s.maxAttempts))
}

// validateLedger checks the stored rows against their invariants.
func validateLedger(l *model.Ledger) error {
	switch {
	case l.Balance.Points < 0:
		return errors.Wrapf(ErrInvalidState, "negative balance %d", l.Balance.Points)
	case l.Streak.CurrentStreak < 0:
		return errors.Wrapf(ErrInvalidState, "negative streak %d", l.Streak.CurrentStreak)
	case l.Streak.CurrentStreak == 0 && l.Streak.LastCheckIn != nil:
		return errors.Wrap(ErrInvalidState, "check-in recorded without a streak")
	case l.Streak.CurrentStreak > 0 && l.Streak.LastCheckIn == nil:
		return errors.Wrapf(ErrInvalidState, "streak %d without a check-in date", l.Streak.CurrentStreak)
	}
	return nil
}
