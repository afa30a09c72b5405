package leaderboard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suspectuso/econ-bot/internal/storage"
)

func TestClamp(t *testing.T) {
	require.Equal(t, DefaultLimit, Clamp(0))
	require.Equal(t, DefaultLimit, Clamp(-3))
	require.Equal(t, 7, Clamp(7))
	require.Equal(t, MaxLimit, Clamp(500))
}

func TestRankings(t *testing.T) {
	store, err := storage.New(filepath.Join(t.TempDir(), "lb.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	for id, balance := range map[int64]int64{1: 300, 2: 900, 3: 0, 4: 50} {
		tier := storage.TierStandard
		if id == 2 {
			tier = storage.TierPremium
		}
		_, err := store.CreateIfMissing(ctx, id, storage.Defaults{Tier: tier})
		require.NoError(t, err)
		_, err = store.ConditionalAdjust(ctx, id, balance, storage.Always())
		require.NoError(t, err)
	}
	_, err = store.CreditWithStats(ctx, 4, 0, 3, 0)
	require.NoError(t, err)
	_, err = store.CreditWithStats(ctx, 1, 0, 1, 0)
	require.NoError(t, err)

	v := New(store)

	rich, err := v.TopRich(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Rank: 1, AccountID: 2, Value: 900, Premium: true},
		{Rank: 2, AccountID: 1, Value: 300},
		{Rank: 3, AccountID: 4, Value: 50},
	}, rich)

	killers, err := v.TopKillers(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []Entry{{Rank: 1, AccountID: 4, Value: 3}}, killers)

	supply, err := v.Supply(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1250), supply)
}

func TestHistory(t *testing.T) {
	store, err := storage.New(filepath.Join(t.TempDir(), "lb.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	to := int64(5)
	for i := 0; i < 12; i++ {
		require.NoError(t, store.AppendTransaction(ctx, &storage.Transaction{ToID: &to, Amount: int64(i), Kind: storage.ActionDaily}))
	}

	txs, err := New(store).History(ctx, 5, 0)
	require.NoError(t, err)
	require.Len(t, txs, DefaultLimit)
}
