package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Storage, id, balance int64) {
	t.Helper()
	ctx := context.Background()
	_, err := s.CreateIfMissing(ctx, id, Defaults{})
	require.NoError(t, err)
	if balance > 0 {
		res, err := s.ConditionalAdjust(ctx, id, balance, Always())
		require.NoError(t, err)
		require.True(t, res.Applied)
	}
}

func TestCreateIfMissingKeepsExisting(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	a, err := s.CreateIfMissing(ctx, 42, Defaults{Tier: TierPremium})
	require.NoError(t, err)
	require.Equal(t, int64(0), a.Balance)
	require.Equal(t, TierPremium, a.Tier)
	require.False(t, a.IsDead)
	require.Nil(t, a.ProtectedUntil)
	require.Nil(t, a.DailyClaimedAt)

	_, err = s.ConditionalAdjust(ctx, 42, 500, Always())
	require.NoError(t, err)

	again, err := s.CreateIfMissing(ctx, 42, Defaults{})
	require.NoError(t, err)
	require.Equal(t, int64(500), again.Balance)
	require.Equal(t, TierPremium, again.Tier)
}

func TestGetMissingAccount(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.Get(context.Background(), 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConditionalAdjustPrecondition(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seed(t, s, 1, 100)

	res, err := s.ConditionalAdjust(ctx, 1, -110, AtLeast(110))
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, int64(100), res.NewBalance)

	res, err = s.ConditionalAdjust(ctx, 1, -60, AtLeast(60))
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, int64(40), res.NewBalance)

	// an unguarded debit still cannot push the balance below zero
	res, err = s.ConditionalAdjust(ctx, 1, -41, Always())
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, int64(40), res.NewBalance)
}

func TestConditionalAdjustMissingAccount(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.ConditionalAdjust(context.Background(), 99, 10, Always())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPreconditionHolds(t *testing.T) {
	require.True(t, Always().Holds(-5))
	require.True(t, AtLeast(10).Holds(10))
	require.False(t, AtLeast(10).Holds(9))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seed(t, s, 1, 1000)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.ConditionalAdjust(ctx, 1, -100, AtLeast(100))
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, res.NewBalance, int64(0))
			if res.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, applied)
	a, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(0), a.Balance)
}

func TestConditionalRobDebitRespectsStatus(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	seed(t, s, 1, 300)

	require.NoError(t, s.SetProtection(ctx, 1, now.Add(time.Hour)))
	res, err := s.ConditionalRobDebit(ctx, 1, 100, now)
	require.NoError(t, err)
	require.False(t, res.Applied)

	res, err = s.ConditionalRobDebit(ctx, 1, 100, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, int64(200), res.NewBalance)

	killed, err := s.SetDead(ctx, 1)
	require.NoError(t, err)
	require.True(t, killed)

	res, err = s.ConditionalRobDebit(ctx, 1, 100, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, int64(200), res.NewBalance)
}

func TestDeathToggles(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seed(t, s, 1, 0)

	changed, err := s.SetAlive(ctx, 1)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = s.SetDead(ctx, 1)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = s.SetDead(ctx, 1)
	require.NoError(t, err)
	require.False(t, changed)

	a, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, a.IsDead)
	require.Equal(t, 1, a.Deaths)

	changed, err = s.SetAlive(ctx, 1)
	require.NoError(t, err)
	require.True(t, changed)
}

func TestClaimDailyWindow(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	seed(t, s, 1, 0)

	res, err := s.ClaimDaily(ctx, 1, 1000, now, 24*time.Hour)
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, int64(1000), res.NewBalance)

	res, err = s.ClaimDaily(ctx, 1, 1000, now.Add(time.Hour), 24*time.Hour)
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, int64(1000), res.NewBalance)

	res, err = s.ClaimDaily(ctx, 1, 1000, now.Add(24*time.Hour), 24*time.Hour)
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, int64(2000), res.NewBalance)

	a, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, a.DailyClaimedAt)
	require.Equal(t, now.Add(24*time.Hour).Unix(), a.DailyClaimedAt.Unix())
}

func TestClaimDailyWindowIsMillisecondExact(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	claimed := time.Unix(1_700_000_000, 0).Add(900 * time.Millisecond)
	seed(t, s, 1, 0)

	res, err := s.ClaimDaily(ctx, 1, 1000, claimed, 24*time.Hour)
	require.NoError(t, err)
	require.True(t, res.Applied)

	a, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, claimed.Equal(*a.DailyClaimedAt))

	res, err = s.ClaimDaily(ctx, 1, 1000, claimed.Add(24*time.Hour-800*time.Millisecond), 24*time.Hour)
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, int64(1000), res.NewBalance)

	res, err = s.ClaimDaily(ctx, 1, 1000, claimed.Add(24*time.Hour-time.Millisecond), 24*time.Hour)
	require.NoError(t, err)
	require.False(t, res.Applied)

	res, err = s.ClaimDaily(ctx, 1, 1000, claimed.Add(24*time.Hour), 24*time.Hour)
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, int64(2000), res.NewBalance)
}

func TestReserveUseBoundedByLimit(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seed(t, s, 1, 0)

	for i := 0; i < 2; i++ {
		ok, err := s.ReserveUse(ctx, 1, ActionRob, 2)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := s.ReserveUse(ctx, 1, ActionRob, 2)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.ReleaseUse(ctx, 1, ActionRob))
	ok, err = s.ReserveUse(ctx, 1, ActionRob, 2)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.ReserveUse(ctx, 1, ActionGive, 2)
	require.ErrorIs(t, err, ErrUnknownAction)

	ok, err = s.ReserveUse(ctx, 1, ActionKill, 5)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := s.ResetUsage(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	a, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, a.RobUses)
	require.Zero(t, a.KillUses)
}

func TestTransactionsAndLeaderboards(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seed(t, s, 1, 50)
	seed(t, s, 2, 500)
	seed(t, s, 3, 0)

	_, err := s.CreditWithStats(ctx, 3, 150, 2, 0)
	require.NoError(t, err)
	_, err = s.CreditWithStats(ctx, 1, 0, 1, 0)
	require.NoError(t, err)

	from, to := int64(2), int64(1)
	base := time.Unix(1_700_000_000, 0)
	require.NoError(t, s.AppendTransaction(ctx, &Transaction{FromID: &from, ToID: &to, Amount: 20, Kind: ActionGive, CreatedAt: base}))
	require.NoError(t, s.AppendTransaction(ctx, &Transaction{ToID: &to, Amount: 1000, Kind: ActionDaily, CreatedAt: base.Add(time.Minute)}))

	txs, err := s.RecentTransactions(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, ActionDaily, txs[0].Kind)
	require.Nil(t, txs[0].FromID)
	require.NotEmpty(t, txs[1].ID)
	require.Equal(t, int64(2), *txs[1].FromID)

	rich, err := s.TopByBalance(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rich, 2)
	require.Equal(t, int64(2), rich[0].ID)
	require.Equal(t, int64(3), rich[1].ID)

	killers, err := s.TopByKills(ctx, 10)
	require.NoError(t, err)
	require.Len(t, killers, 2)
	require.Equal(t, int64(3), killers[0].ID)

	total, err := s.TotalBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(700), total)
}

func TestAdjustPropagatesStorageFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("UPDATE accounts SET balance").WillReturnError(errors.New("connection lost"))

	s := &Storage{db: db}
	_, err = s.ConditionalAdjust(context.Background(), 1, -10, AtLeast(10))
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection lost")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetUsagePropagatesStorageFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE accounts SET rob_uses = 0").WillReturnError(errors.New("disk I/O error"))

	s := &Storage{db: db}
	_, err = s.ResetUsage(context.Background())
	require.ErrorContains(t, err, "reset usage")
	require.NoError(t, mock.ExpectationsWereMet())
}
