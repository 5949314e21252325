package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"rewards-hub/internal/model"
	"rewards-hub/internal/rewards"
)

// CatalogService serves the reward catalog classified for a user.
type CatalogService struct {
	store  CatalogStore
	cache  CatalogCache
	ledger LedgerStore
}

// NewCatalogService creates a new CatalogService instance. cache may be nil.
func NewCatalogService(store CatalogStore, cache CatalogCache, ledger LedgerStore) *CatalogService {
	return &CatalogService{store: store, cache: cache, ledger: ledger}
}

// View returns the active catalog as userID sees it under filter.
func (s *CatalogService) View(ctx context.Context, userID model.UserID, filter rewards.Filter) (*rewards.CatalogView, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, unavailable("read balance", err)
	}

	view := rewards.BuildCatalogView(entries, balance.Points, filter)
	return &view, nil
}

// Refresh reloads the catalog from the store into the cache.
func (s *CatalogService) Refresh(ctx context.Context) (int, error) {
	entries, err := s.store.ListActive(ctx)
	if err != nil {
		return 0, unavailable("list catalog", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, entries); err != nil {
			return 0, unavailable("cache catalog", err)
		}
	}
	return len(entries), nil
}

// entries reads through the cache. Cache failures fall back to the store.
func (s *CatalogService) entries(ctx context.Context) ([]model.RewardCatalogEntry, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Catalog cache read failed, falling back to database")
		} else if ok {
			return cached, nil
		}
	}

	entries, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, unavailable("list catalog", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, entries); err != nil {
			log.Warn().Err(err).Msg("Failed to populate catalog cache")
		}
	}
	return entries, nil
}
