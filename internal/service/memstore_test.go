package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"rewards-hub/internal/checkin"
	"rewards-hub/internal/model"
	"rewards-hub/internal/repository"
)

// memLedger is an in-memory LedgerStore with the same compare-and-swap
// semantics as the PostgreSQL implementation.
type memLedger struct {
	mu       sync.Mutex
	balances map[model.UserID]int64
	streaks  map[model.UserID]model.StreakRecord

	ensureErr error
	getErr    error
	applyErr  error

	applyCalls  int
	beforeApply func(call int)
}

func newMemLedger() *memLedger {
	return &memLedger{
		balances: make(map[model.UserID]int64),
		streaks:  make(map[model.UserID]model.StreakRecord),
	}
}

func (m *memLedger) seed(userID model.UserID, points int64, streak int, last *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = points
	m.streaks[userID] = model.StreakRecord{UserID: userID, CurrentStreak: streak, LastCheckIn: last}
}

func (m *memLedger) Ensure(_ context.Context, userID model.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ensureErr != nil {
		return m.ensureErr
	}
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = 0
	}
	if _, ok := m.streaks[userID]; !ok {
		m.streaks[userID] = model.StreakRecord{UserID: userID}
	}
	return nil
}

func (m *memLedger) Get(_ context.Context, userID model.UserID) (*model.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.streaks[userID]
	s.UserID = userID
	return &model.Ledger{
		Balance: model.PointsBalance{UserID: userID, Points: m.balances[userID]},
		Streak:  s,
	}, nil
}

func (m *memLedger) GetBalance(_ context.Context, userID model.UserID) (*model.PointsBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &model.PointsBalance{UserID: userID, Points: m.balances[userID]}, nil
}

func (m *memLedger) GetStreak(_ context.Context, userID model.UserID) (*model.StreakRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.streaks[userID]
	s.UserID = userID
	return &s, nil
}

func (m *memLedger) ApplyClaim(_ context.Context, w repository.ClaimWrite) (int64, error) {
	m.mu.Lock()
	m.applyCalls++
	call := m.applyCalls
	hook := m.beforeApply
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return 0, m.applyErr
	}

	cur, ok := m.streaks[w.UserID]
	if !ok || cur.CurrentStreak != w.ObservedStreak || !sameDay(cur.LastCheckIn, w.ObservedLastCheckIn) {
		return 0, repository.ErrStaleLedger
	}

	day := checkin.Date(w.Day)
	m.streaks[w.UserID] = model.StreakRecord{UserID: w.UserID, CurrentStreak: w.NewStreak, LastCheckIn: &day}
	m.balances[w.UserID] += w.Reward
	return m.balances[w.UserID], nil
}

func (m *memLedger) points(userID model.UserID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return checkin.Date(*a).Equal(checkin.Date(*b))
}

// memReferrals is an in-memory ReferralStore that credits a memLedger.
type memReferrals struct {
	mu      sync.Mutex
	records []model.ReferralRecord
	ledger  *memLedger
	err     error
}

func (m *memReferrals) Create(_ context.Context, referrerID, refereeID model.UserID) (*model.ReferralRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.records {
		if r.ReferrerID == referrerID && r.RefereeID == refereeID {
			return nil, repository.ErrReferralExists
		}
	}
	rec := model.ReferralRecord{
		ID:         uuid.New(),
		ReferrerID: referrerID,
		RefereeID:  refereeID,
		Status:     model.ReferralPending,
		CreatedAt:  time.Now(),
	}
	m.records = append(m.records, rec)
	return &rec, nil
}

func (m *memReferrals) ListByReferrer(_ context.Context, referrerID model.UserID) ([]model.ReferralRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.ReferralRecord, 0)
	for _, r := range m.records {
		if r.ReferrerID == referrerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReferrals) Complete(_ context.Context, id uuid.UUID, points int64) (*model.ReferralRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.records {
		if m.records[i].ID != id {
			continue
		}
		if m.records[i].Status != model.ReferralPending {
			return nil, repository.ErrReferralNotPending
		}
		now := time.Now()
		m.records[i].Status = model.ReferralCompleted
		m.records[i].PointsAwarded = points
		m.records[i].CompletedAt = &now
		if m.ledger != nil {
			m.ledger.mu.Lock()
			m.ledger.balances[m.records[i].ReferrerID] += points
			m.ledger.mu.Unlock()
		}
		rec := m.records[i]
		return &rec, nil
	}
	return nil, repository.ErrReferralNotFound
}

// memCatalog is an in-memory CatalogStore.
type memCatalog struct {
	entries []model.RewardCatalogEntry
	calls   int
	err     error
}

func (m *memCatalog) ListActive(context.Context) ([]model.RewardCatalogEntry, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

// memCache is an in-memory CatalogCache.
type memCache struct {
	entries []model.RewardCatalogEntry
	ok      bool
	getErr  error
}

func (m *memCache) Get(context.Context) ([]model.RewardCatalogEntry, bool, error) {
	return m.entries, m.ok, m.getErr
}

func (m *memCache) Set(_ context.Context, entries []model.RewardCatalogEntry) error {
	m.entries, m.ok = entries, true
	return nil
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
