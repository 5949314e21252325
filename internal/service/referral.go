package service

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rewards-hub/internal/model"
	"rewards-hub/internal/repository"
	"rewards-hub/internal/rewards"
)

// Referral errors surfaced to callers.
var (
	ErrReferralNotFound   = repository.ErrReferralNotFound
	ErrReferralNotPending = repository.ErrReferralNotPending
	ErrReferralExists     = repository.ErrReferralExists
	ErrSelfReferral       = errors.New("users cannot refer themselves")
)

// ReferralService handles referral attribution and completion.
type ReferralService struct {
	store         ReferralStore
	defaultPoints int64
}

// NewReferralService creates a new ReferralService instance.
// defaultPoints is awarded when Complete is called without an amount.
func NewReferralService(store ReferralStore, defaultPoints int64) *ReferralService {
	return &ReferralService{store: store, defaultPoints: defaultPoints}
}

// ReferralList is a user's referrals with their totals.
type ReferralList struct {
	Summary rewards.ReferralSummary `json:"summary"`
	Records []model.ReferralRecord  `json:"records"`
}

// List returns every referral the user has made.
func (s *ReferralService) List(ctx context.Context, userID model.UserID) (*ReferralList, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}
	records, err := s.store.ListByReferrer(ctx, userID)
	if err != nil {
		return nil, unavailable("list referrals", err)
	}
	return &ReferralList{
		Summary: rewards.AggregateReferrals(records),
		Records: records,
	}, nil
}

// Register records a pending referral of refereeID by referrerID.
func (s *ReferralService) Register(ctx context.Context, referrerID, refereeID model.UserID) (*model.ReferralRecord, error) {
	if referrerID == "" || refereeID == "" {
		return nil, ErrInvalidUser
	}
	if referrerID == refereeID {
		return nil, ErrSelfReferral
	}

	rec, err := s.store.Create(ctx, referrerID, refereeID)
	if err != nil {
		if errors.Is(err, repository.ErrReferralExists) {
			return nil, err
		}
		return nil, unavailable("register referral", err)
	}

	log.Info().
		Str("referral_id", rec.ID.String()).
		Str("referrer_id", referrerID.String()).
		Str("referee_id", refereeID.String()).
		Msg("Referral registered")
	return rec, nil
}

// Complete marks a pending referral completed and credits the referrer.
// points <= 0 uses the configured default.
func (s *ReferralService) Complete(ctx context.Context, id uuid.UUID, points int64) (*model.ReferralRecord, error) {
	if points <= 0 {
		points = s.defaultPoints
	}
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	rec, err := s.store.Complete(ctx, id, points)
	if err != nil {
		if errors.Is(err, repository.ErrReferralNotFound) || errors.Is(err, repository.ErrReferralNotPending) {
			return nil, err
		}
		return nil, unavailable("complete referral", err)
	}

	log.Info().
		Str("referral_id", id.String()).
		Str("referrer_id", rec.ReferrerID.String()).
		Int64("points", points).
		Msg("Referral completed")
	return rec, nil
}
