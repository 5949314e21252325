package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rewards-hub/internal/model"
)

// LedgerRepository persists points balances and daily streaks.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Ensure creates the user's balance and streak rows if they are missing.
// Existing rows are left untouched.
func (r *LedgerRepository) Ensure(ctx context.Context, userID model.UserID) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO points_balance (user_id, points, updated_at)
		VALUES ($1, 0, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	batch.Queue(`
		INSERT INTO daily_streaks (user_id, current_streak, last_check_in, updated_at)
		VALUES ($1, 0, NULL, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID)

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "failed to ensure ledger rows")
	}
	return nil
}

// Get reads both ledger rows in one round trip. Missing rows read as the
// zero state (no points, no streak).
func (r *LedgerRepository) Get(ctx context.Context, userID model.UserID) (*model.Ledger, error) {
	const query = `
		SELECT COALESCE(b.points, 0),
		       COALESCE(b.updated_at, NOW()),
		       COALESCE(s.current_streak, 0),
		       s.last_check_in,
		       COALESCE(s.updated_at, NOW())
		FROM (SELECT $1::text AS user_id) u
		LEFT JOIN points_balance b ON b.user_id = u.user_id
		LEFT JOIN daily_streaks s ON s.user_id = u.user_id
	`

	l := &model.Ledger{
		Balance: model.PointsBalance{UserID: userID},
		Streak:  model.StreakRecord{UserID: userID},
	}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&l.Balance.Points,
		&l.Balance.UpdatedAt,
		&l.Streak.CurrentStreak,
		&l.Streak.LastCheckIn,
		&l.Streak.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get ledger")
	}
	return l, nil
}

// GetBalance returns the user's balance, or a zero balance if none exists.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID model.UserID) (*model.PointsBalance, error) {
	const query = `SELECT points, updated_at FROM points_balance WHERE user_id = $1`

	b := &model.PointsBalance{UserID: userID}
	err := r.pool.QueryRow(ctx, query, userID).Scan(&b.Points, &b.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	return b, nil
}

// GetStreak returns the user's streak, or a zero streak if none exists.
func (r *LedgerRepository) GetStreak(ctx context.Context, userID model.UserID) (*model.StreakRecord, error) {
	const query = `SELECT current_streak, last_check_in, updated_at FROM daily_streaks WHERE user_id = $1`

	s := &model.StreakRecord{UserID: userID}
	err := r.pool.QueryRow(ctx, query, userID).Scan(&s.CurrentStreak, &s.LastCheckIn, &s.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to get streak")
	}
	return s, nil
}

// ClaimWrite describes one credited check-in. ObservedStreak and
// ObservedLastCheckIn are the values the decision was made against.
type ClaimWrite struct {
	UserID              model.UserID
	ObservedStreak      int
	ObservedLastCheckIn *time.Time
	NewStreak           int
	Day                 time.Time
	Reward              int64
}

// ApplyClaim records a check-in and credits the reward in one transaction.
// The streak update only matches if the row still holds the observed values,
// so two claims racing on the same day cannot both commit. When it matches
// nothing the transaction is rolled back and ErrStaleLedger is returned.
func (r *LedgerRepository) ApplyClaim(ctx context.Context, w ClaimWrite) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE daily_streaks
		SET current_streak = $2, last_check_in = $3::date, updated_at = NOW()
		WHERE user_id = $1
		  AND current_streak = $4
		  AND last_check_in IS NOT DISTINCT FROM $5::date
	`, w.UserID, w.NewStreak, w.Day, w.ObservedStreak, w.ObservedLastCheckIn)
	if err != nil {
		return 0, errors.Wrap(err, "failed to update streak")
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrStaleLedger
	}

	var points int64
	err = tx.QueryRow(ctx, `
		INSERT INTO points_balance (user_id, points, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET points = points_balance.points + EXCLUDED.points, updated_at = NOW()
		RETURNING points
	`, w.UserID, w.Reward).Scan(&points)
	if err != nil {
		return 0, errors.Wrap(err, "failed to credit balance")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "failed to commit claim")
	}
	return points, nil
}
