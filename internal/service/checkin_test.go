package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"rewards-hub/internal/checkin"
	"rewards-hub/internal/model"
	"rewards-hub/internal/pkg/lock"
)

var march10 = time.Date(2024, time.March, 10, 14, 30, 0, 0, time.UTC)

func dayBefore(t time.Time, n int) *time.Time {
	d := checkin.Date(t).AddDate(0, 0, -n)
	return &d
}

func newCheckin(store LedgerStore, now time.Time) *CheckinService {
	return NewCheckinService(store, lock.NewUserLock(), CheckinOptions{
		Now:         fixedClock(now),
		LockTimeout: time.Second,
	})
}

func TestClaimDaily_FirstClaim(t *testing.T) {
	store := newMemLedger()
	svc := newCheckin(store, march10)

	res, err := svc.ClaimDaily(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, checkin.Reset, res.Outcome)
	assert.Equal(t, int64(5), res.Credited)
	assert.Equal(t, int64(5), res.Points)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, checkin.Date(march10), res.LastCheckIn)
}

func TestClaimDaily_DoubleClaimCreditsOnce(t *testing.T) {
	store := newMemLedger()
	svc := newCheckin(store, march10)
	ctx := context.Background()

	first, err := svc.ClaimDaily(ctx, "alice")
	require.NoError(t, err)
	second, err := svc.ClaimDaily(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, checkin.Reset, first.Outcome)
	assert.Equal(t, checkin.AlreadyClaimed, second.Outcome)
	assert.Equal(t, int64(0), second.Credited)
	assert.Equal(t, first.Points, second.Points)
	assert.Equal(t, first.Streak, second.Streak)
	assert.Equal(t, int64(5), store.points("alice"))
}

func TestClaimDaily_ContinuesStreak(t *testing.T) {
	store := newMemLedger()
	store.seed("alice", 100, 6, dayBefore(march10, 1))
	svc := newCheckin(store, march10)

	res, err := svc.ClaimDaily(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, checkin.Continue, res.Outcome)
	assert.Equal(t, 7, res.Streak)
	assert.Equal(t, int64(105), res.Points)
}

func TestClaimDaily_ResetsAfterGap(t *testing.T) {
	store := newMemLedger()
	store.seed("alice", 100, 6, dayBefore(march10, 3))
	svc := newCheckin(store, march10)

	res, err := svc.ClaimDaily(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, checkin.Reset, res.Outcome)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, int64(105), res.Points)
}

func TestClaimDaily_UsesConfiguredRewardAndTimezone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on the 9th is already the 10th in Tokyo.
	now := time.Date(2024, time.March, 9, 20, 0, 0, 0, time.UTC)

	store := newMemLedger()
	store.seed("alice", 0, 2, dayBefore(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), 1))
	svc := NewCheckinService(store, nil, CheckinOptions{
		Reward:   12,
		Location: tokyo,
		Now:      fixedClock(now),
	})

	res, err := svc.ClaimDaily(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, checkin.Continue, res.Outcome)
	assert.Equal(t, 3, res.Streak)
	assert.Equal(t, int64(12), res.Points)
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), res.LastCheckIn)
}

func TestClaimDaily_InvalidStateRefused(t *testing.T) {
	tests := []struct {
		name   string
		points int64
		streak int
		last   *time.Time
	}{
		{"date without streak", 10, 0, dayBefore(march10, 1)},
		{"streak without date", 10, 4, nil},
		{"negative streak", 10, -1, nil},
		{"negative balance", -5, 1, dayBefore(march10, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemLedger()
			store.seed("alice", tt.points, tt.streak, tt.last)
			svc := newCheckin(store, march10)

			_, err := svc.ClaimDaily(context.Background(), "alice")
			assert.ErrorIs(t, err, ErrInvalidState)
			assert.Equal(t, tt.points, store.points("alice"), "no credit applied")
			assert.Equal(t, 0, store.applyCalls)
		})
	}
}

func TestClaimDaily_StoreFailures(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("ensure", func(t *testing.T) {
		store := newMemLedger()
		store.ensureErr = boom
		_, err := newCheckin(store, march10).ClaimDaily(context.Background(), "alice")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("read", func(t *testing.T) {
		store := newMemLedger()
		store.getErr = boom
		_, err := newCheckin(store, march10).ClaimDaily(context.Background(), "alice")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("write", func(t *testing.T) {
		store := newMemLedger()
		store.applyErr = boom
		_, err := newCheckin(store, march10).ClaimDaily(context.Background(), "alice")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Equal(t, int64(0), store.points("alice"))
	})
}

func TestClaimDaily_EmptyUser(t *testing.T) {
	_, err := newCheckin(newMemLedger(), march10).ClaimDaily(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestClaimDaily_LockTimeoutIsUnavailable(t *testing.T) {
	locks := lock.NewUserLock()
	svc := NewCheckinService(newMemLedger(), locks, CheckinOptions{
		Now:         fixedClock(march10),
		LockTimeout: 20 * time.Millisecond,
	})

	release := holdLock(t, locks, "alice")
	defer release()

	_, err := svc.ClaimDaily(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
}

func TestClaimDaily_CancelledWhileWaitingIsUnavailable(t *testing.T) {
	locks := lock.NewUserLock()
	store := newMemLedger()
	svc := NewCheckinService(store, locks, CheckinOptions{
		Now:         fixedClock(march10),
		LockTimeout: time.Second,
	})

	release := holdLock(t, locks, "alice")
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.ClaimDaily(ctx, "alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, store.balances["alice"], "nothing is credited")
}

// holdLock keeps the user's lock until the returned func is called.
func holdLock(t *testing.T, locks *lock.UserLock, userID model.UserID) func() {
	t.Helper()
	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locks.WithLockContext(context.Background(), userID, time.Second, func() error {
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	return func() { close(release) }
}

// TestClaimDaily_LosesRaceToOtherProcess simulates another process committing
// a claim between our read and our write.
func TestClaimDaily_LosesRaceToOtherProcess(t *testing.T) {
	store := newMemLedger()
	other := newCheckin(store, march10)
	store.beforeApply = func(call int) {
		if call == 1 {
			_, err := other.ClaimDaily(context.Background(), "alice")
			require.NoError(t, err)
		}
	}
	svc := newCheckin(store, march10)

	res, err := svc.ClaimDaily(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, checkin.AlreadyClaimed, res.Outcome)
	assert.Equal(t, int64(5), store.points("alice"))
}

func TestClaimDaily_GivesUpAfterMaxAttempts(t *testing.T) {
	store := newMemLedger()
	// Every write sees a row that moved underneath it.
	store.beforeApply = func(int) {
		store.mu.Lock()
		s := store.streaks["alice"]
		s.CurrentStreak += 100
		d := checkin.Date(march10).AddDate(0, 0, -10)
		s.LastCheckIn = &d
		store.streaks["alice"] = s
		store.mu.Unlock()
	}
	svc := NewCheckinService(store, nil, CheckinOptions{Now: fixedClock(march10), MaxAttempts: 2})

	_, err := svc.ClaimDaily(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 2, store.applyCalls)
	assert.Equal(t, int64(0), store.points("alice"))
}

func TestClaimDaily_ConcurrentSameUser(t *testing.T) {
	const n = 50
	store := newMemLedger()
	svc := newCheckin(store, march10)

	outcomes := runConcurrentClaims(t, n, func() *CheckinService { return svc }, "alice")

	assert.Equal(t, 1, outcomes[checkin.Reset])
	assert.Equal(t, n-1, outcomes[checkin.AlreadyClaimed])
	assert.Equal(t, int64(5), store.points("alice"))
}

// TestClaimDaily_ConcurrentAcrossInstances gives every goroutine its own
// service and lock, so only the store's conditional write stands between
// them and a double credit.
func TestClaimDaily_ConcurrentAcrossInstances(t *testing.T) {
	const n = 20
	store := newMemLedger()

	outcomes := runConcurrentClaims(t, n, func() *CheckinService {
		return NewCheckinService(store, lock.NewUserLock(), CheckinOptions{
			Now:         fixedClock(march10),
			MaxAttempts: n,
		})
	}, "alice")

	assert.Equal(t, 1, outcomes[checkin.Reset])
	assert.Equal(t, n-1, outcomes[checkin.AlreadyClaimed])
	assert.Equal(t, int64(5), store.points("alice"))
}

func runConcurrentClaims(t *testing.T, n int, svc func() *CheckinService, userID model.UserID) map[checkin.Outcome]int {
	t.Helper()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make(map[checkin.Outcome]int)
		start    = make(chan struct{})
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		s := svc()
		go func() {
			defer wg.Done()
			<-start
			res, err := s.ClaimDaily(context.Background(), userID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			outcomes[res.Outcome]++
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()
	return outcomes
}

func TestClaimDaily_UsersAreIndependent(t *testing.T) {
	store := newMemLedger()
	svc := newCheckin(store, march10)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ClaimDaily(context.Background(), model.UserID(fmt.Sprintf("user-%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		assert.Equal(t, int64(5), store.points(model.UserID(fmt.Sprintf("user-%d", i))))
	}
}

// TestClaimDailySequenceProperty replays a random schedule of claim days and
// checks the ledger against a straightforward model.
func TestClaimDailySequenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := newMemLedger()
		now := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
		svc := NewCheckinService(store, nil, CheckinOptions{Now: func() time.Time { return now }})

		steps := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 40).Draw(t, "gaps")

		var (
			wantPoints int64
			wantStreak int
			last       *time.Time
		)
		for _, gap := range steps {
			now = now.AddDate(0, 0, gap)
			today := checkin.Date(now)

			res, err := svc.ClaimDaily(context.Background(), "alice")
			if err != nil {
				t.Fatalf("claim failed: %v", err)
			}

			switch {
			case last != nil && last.Equal(today):
				if res.Outcome != checkin.AlreadyClaimed {
					t.Fatalf("expected already claimed on %s, got %s", today, res.Outcome)
				}
			case last != nil && last.AddDate(0, 0, 1).Equal(today):
				wantStreak++
				wantPoints += checkin.DailyReward
			default:
				wantStreak = 1
				wantPoints += checkin.DailyReward
			}
			last = &today

			if res.Points != wantPoints || res.Streak != wantStreak {
				t.Fatalf("on %s: got points=%d streak=%d, want points=%d streak=%d",
					today, res.Points, res.Streak, wantPoints, wantStreak)
			}
		}
	})
}
