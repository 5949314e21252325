package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rewards-hub/internal/model"
)

const uniqueViolation = "23505"

const referralColumns = `id, referrer_id, referee_id, status, points_awarded, created_at, completed_at`

// ReferralRepository persists referral records.
type ReferralRepository struct {
	pool *pgxpool.Pool
}

// NewReferralRepository creates a new ReferralRepository instance.
func NewReferralRepository(pool *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{pool: pool}
}

func scanReferral(row pgx.Row) (*model.ReferralRecord, error) {
	var r model.ReferralRecord
	err := row.Scan(
		&r.ID,
		&r.ReferrerID,
		&r.RefereeID,
		&r.Status,
		&r.PointsAwarded,
		&r.CreatedAt,
		&r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create records a pending referral. A referee can only be attributed to the
// same referrer once.
func (r *ReferralRepository) Create(ctx context.Context, referrerID, refereeID model.UserID) (*model.ReferralRecord, error) {
	query := `
		INSERT INTO referrals (id, referrer_id, referee_id, status, points_awarded, created_at)
		VALUES ($1, $2, $3, 'pending', 0, NOW())
		RETURNING ` + referralColumns

	rec, err := scanReferral(r.pool.QueryRow(ctx, query, uuid.New(), referrerID, refereeID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrReferralExists
		}
		return nil, errors.Wrap(err, "failed to create referral")
	}
	return rec, nil
}

// ListByReferrer returns every referral made by the user, newest first.
func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID model.UserID) ([]model.ReferralRecord, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE referrer_id = $1 ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query, referrerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list referrals")
	}
	defer rows.Close()

	records := make([]model.ReferralRecord, 0)
	for rows.Next() {
		rec, err := scanReferral(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan referral")
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate referrals")
	}
	return records, nil
}

// Complete marks a pending referral completed and credits the referrer in a
// single transaction. The referral row is locked for the duration so two
// completions cannot both award points.
func (r *ReferralRepository) Complete(ctx context.Context, id uuid.UUID, points int64) (*model.ReferralRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		referrerID model.UserID
		status     model.ReferralStatus
	)
	err = tx.QueryRow(ctx, `SELECT referrer_id, status FROM referrals WHERE id = $1 FOR UPDATE`, id).
		Scan(&referrerID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReferralNotFound
		}
		return nil, errors.Wrap(err, "failed to lock referral")
	}
	if status != model.ReferralPending {
		return nil, ErrReferralNotPending
	}

	query := `
		UPDATE referrals
		SET status = 'completed', points_awarded = $2, completed_at = NOW()
		WHERE id = $1
		RETURNING ` + referralColumns
	rec, err := scanReferral(tx.QueryRow(ctx, query, id, points))
	if err != nil {
		return nil, errors.Wrap(err, "failed to complete referral")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO points_balance (user_id, points, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET points = points_balance.points + EXCLUDED.points, updated_at = NOW()
	`, referrerID, points)
	if err != nil {
		return nil, errors.Wrap(err, "failed to credit referrer")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit referral completion")
	}
	return rec, nil
}
