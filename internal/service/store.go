package service

import (
	"context"

	"github.com/google/uuid"

	"rewards-hub/internal/model"
	"rewards-hub/internal/repository"
)

// LedgerStore is the persistence the check-in flow needs.
// repository.LedgerRepository implements it.
type LedgerStore interface {
	Ensure(ctx context.Context, userID model.UserID) error
	Get(ctx context.Context, userID model.UserID) (*model.Ledger, error)
	GetBalance(ctx context.Context, userID model.UserID) (*model.PointsBalance, error)
	GetStreak(ctx context.Context, userID model.UserID) (*model.StreakRecord, error)
	// ApplyClaim returns repository.ErrStaleLedger when the observed state
	// in w no longer matches.
	ApplyClaim(ctx context.Context, w repository.ClaimWrite) (int64, error)
}

// ReferralStore persists referral records.
type ReferralStore interface {
	Create(ctx context.Context, referrerID, refereeID model.UserID) (*model.ReferralRecord, error)
	ListByReferrer(ctx context.Context, referrerID model.UserID) ([]model.ReferralRecord, error)
	Complete(ctx context.Context, id uuid.UUID, points int64) (*model.ReferralRecord, error)
}

// CatalogStore reads the active reward catalog.
type CatalogStore interface {
	ListActive(ctx context.Context) ([]model.RewardCatalogEntry, error)
}

// CatalogCache caches the active catalog. Get reports ok=false on a miss.
type CatalogCache interface {
	Get(ctx context.Context) (entries []model.RewardCatalogEntry, ok bool, err error)
	Set(ctx context.Context, entries []model.RewardCatalogEntry) error
}

var (
	_ LedgerStore   = (*repository.LedgerRepository)(nil)
	_ ReferralStore = (*repository.ReferralRepository)(nil)
	_ CatalogStore  = (*repository.CatalogRepository)(nil)
)
