package service

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"rewards-hub/internal/checkin"
	"rewards-hub/internal/model"
	"rewards-hub/internal/rewards"
)

// Dashboard is a snapshot of a user's rewards state. It is built fresh on
// every load and never mutated afterwards.
type Dashboard struct {
	UserID        model.UserID            `json:"user_id"`
	Points        int64                   `json:"points"`
	Streak        int                     `json:"streak"`
	LastCheckIn   *time.Time              `json:"last_check_in,omitempty"`
	CanClaimToday bool                    `json:"can_claim_today"`
	Referrals     rewards.ReferralSummary `json:"referrals"`
	ReferralLink  string                  `json:"referral_link"`
	Goal          rewards.Progress        `json:"goal"`
}

// DashboardOptions configures DashboardService.
type DashboardOptions struct {
	ReferralBaseURL string
	Goal            int64
	Location        *time.Location
	Now             Clock
}

// DashboardService assembles the dashboard from independent reads.
type DashboardService struct {
	ledger    LedgerStore
	referrals ReferralStore
	baseURL   string
	goal      int64
	loc       *time.Location
	now       Clock
}

// NewDashboardService creates a new DashboardService instance.
func NewDashboardService(ledger LedgerStore, referrals ReferralStore, opts DashboardOptions) *DashboardService {
	s := &DashboardService{
		ledger:    ledger,
		referrals: referrals,
		baseURL:   opts.ReferralBaseURL,
		goal:      opts.Goal,
		loc:       opts.Location,
		now:       opts.Now,
	}
	if s.goal <= 0 {
		s.goal = 5000
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GetDashboard loads balance, streak and referrals concurrently and joins
// them into one snapshot. Users with no rows yet see zeros.
func (s *DashboardService) GetDashboard(ctx context.Context, id model.Identity) (*Dashboard, error) {
	if id.UserID == "" {
		return nil, ErrInvalidUser
	}

	var (
		balance   *model.PointsBalance
		streak    *model.StreakRecord
		referrals []model.ReferralRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.ledger.GetBalance(gctx, id.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		streak, err = s.ledger.GetStreak(gctx, id.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		referrals, err = s.referrals.ListByReferrer(gctx, id.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, unavailable("load dashboard", err)
	}

	link, err := rewards.ReferralLink(s.baseURL, id.Email, id.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build referral link")
	}

	today := checkin.Today(s.now(), s.loc)
	return &Dashboard{
		UserID:        id.UserID,
		Points:        balance.Points,
		Streak:        streak.CurrentStreak,
		LastCheckIn:   streak.LastCheckIn,
		CanClaimToday: checkin.CanClaim(today, streak.LastCheckIn),
		Referrals:     rewards.AggregateReferrals(referrals),
		ReferralLink:  link,
		Goal:          rewards.GoalProgress(balance.Points, s.goal),
	}, nil
}
