package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"rewards-hub/internal/model"
)

// CatalogRepository reads the reward catalog.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a new CatalogRepository instance.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListActive returns active rewards ordered by points required, then name.
func (r *CatalogRepository) ListActive(ctx context.Context) ([]model.RewardCatalogEntry, error) {
	const query = `
		SELECT id, name, description, points_required, category, is_active
		FROM rewards
		WHERE is_active = TRUE
		ORDER BY points_required ASC, name ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list rewards")
	}
	defer rows.Close()

	entries := make([]model.RewardCatalogEntry, 0)
	for rows.Next() {
		var e model.RewardCatalogEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.PointsRequired, &e.Category, &e.IsActive); err != nil {
			return nil, errors.Wrap(err, "failed to scan reward")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate rewards")
	}
	return entries, nil
}
