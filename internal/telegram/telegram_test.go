package telegram

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/econ-bot/internal/economy"
	"github.com/suspectuso/econ-bot/internal/leaderboard"
	"github.com/suspectuso/econ-bot/internal/notifier"
	"github.com/suspectuso/econ-bot/internal/storage"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		want Command
		ok   bool
	}{
		{"/give 100", Command{Name: "give", Args: []string{"100"}}, true},
		{"/Rob@EconBot", Command{Name: "rob", Args: []string{}}, true},
		{"  /protect   3 ", Command{Name: "protect", Args: []string{"3"}}, true},
		{"hello /rob", Command{}, false},
		{"/", Command{}, false},
		{"", Command{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseCommand(tt.text)
		require.Equal(t, tt.ok, ok, tt.text)
		if ok {
			require.Equal(t, tt.want, got, tt.text)
		}
	}
}

func TestCommandInt(t *testing.T) {
	cmd := Command{Name: "give", Args: []string{"1,500", "abc"}}

	n, ok := cmd.Int(0, 0)
	require.True(t, ok)
	require.Equal(t, int64(1500), n)

	_, ok = cmd.Int(1, 0)
	require.False(t, ok)

	n, ok = cmd.Int(5, 7)
	require.True(t, ok)
	require.Equal(t, int64(7), n)
}

func TestReplyTarget(t *testing.T) {
	_, ok := ReplyTarget(&models.Message{})
	require.False(t, ok)

	_, ok = ReplyTarget(&models.Message{ReplyToMessage: &models.Message{From: &models.User{ID: 9, IsBot: true}}})
	require.False(t, ok)

	u, ok := ReplyTarget(&models.Message{ReplyToMessage: &models.Message{From: &models.User{ID: 9, FirstName: "Bob"}}})
	require.True(t, ok)
	require.Equal(t, int64(9), u.ID)
	require.Equal(t, "Bob", DisplayName(u))
	require.Equal(t, "@bob", DisplayName(&models.User{Username: "bob"}))
	require.Equal(t, "12", DisplayName(&models.User{ID: 12}))
}

func TestIsPrivate(t *testing.T) {
	require.True(t, IsPrivate(models.Chat{ID: 5, Type: "private"}))
	require.False(t, IsPrivate(models.Chat{ID: -100, Type: "supergroup"}))
	require.False(t, IsPrivate(models.Chat{ID: -7, Type: "group"}))
}

func TestFailureTextIsDistinctPerKind(t *testing.T) {
	kinds := []economy.FailureKind{
		economy.CooldownActive,
		economy.TargetDead,
		economy.TargetProtected,
		economy.SelfTarget,
		economy.LimitReached,
		economy.InsufficientFunds,
		economy.ConcurrentConflict,
		economy.InvalidAmount,
		economy.PremiumRequired,
	}

	seen := map[string]economy.FailureKind{}
	for _, k := range kinds {
		text := FailureText(economy.Result{Action: storage.ActionRob, Failure: k, RemainingSeconds: 90})
		require.NotEqual(t, "❌ Something went wrong.", text, k)
		prev, dup := seen[text]
		require.False(t, dup, "%s and %s share a message", k, prev)
		seen[text] = k
	}
}

func TestFailureTextDetails(t *testing.T) {
	require.Contains(t, FailureText(economy.Result{Action: storage.ActionRob, Failure: economy.CooldownActive, RemainingSeconds: 125}), "2m 5s")
	require.Contains(t, FailureText(economy.Result{Action: storage.ActionDaily, Failure: economy.CooldownActive, RemainingSeconds: 86399}), "23h 59m")
	require.Contains(t, FailureText(economy.Result{Action: storage.ActionGive, Failure: economy.InsufficientFunds, Balance: 1234}), "1,234")
	require.Contains(t, FailureText(economy.Result{Action: storage.ActionProtect, Failure: economy.InvalidAmount}), "1 to 3 days")
}

func TestResultText(t *testing.T) {
	rob := economy.Result{Action: storage.ActionRob, OK: true, Amount: 250, Balance: 750}
	require.Equal(t, "🕵️ <b>Al &amp; Co</b> robbed <b>250</b> coins from <b>Bob</b>!\nBalance: <b>750</b>",
		ResultText(rob, "Al & Co", "Bob"))

	empty := economy.Result{Action: storage.ActionRob, OK: true, NothingToSteal: true}
	require.Contains(t, ResultText(empty, "Al", "Bob"), "nothing to steal")

	alive := economy.Result{Action: storage.ActionRevive, OK: true, AlreadyAlive: true}
	require.Contains(t, ResultText(alive, "Al", "Bob"), "already alive")

	until := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	protect := economy.Result{Action: storage.ActionProtect, OK: true, Days: 2, ProtectedUntil: &until}
	require.Contains(t, ResultText(protect, "Al", ""), "2026-01-02 03:04 UTC")

	refused := economy.Result{Action: storage.ActionKill, Failure: economy.TargetDead}
	require.Equal(t, FailureText(refused), ResultText(refused, "Al", "Bob"))
}

func TestBoardAndHistoryText(t *testing.T) {
	require.Contains(t, BoardText("Top", "coins", nil), "Nobody here yet")

	text := BoardText("Top", "coins", []leaderboard.Entry{{Rank: 1, AccountID: 5, Value: 12000, Premium: true}})
	require.Contains(t, text, "1. <a href='tg://user?id=5'>5</a> ⭐")
	require.Contains(t, text, "12,000 coins")

	from, to := int64(1), int64(2)
	at := time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC)
	txs := []storage.Transaction{
		{FromID: &from, ToID: &to, Amount: 100, Kind: storage.ActionGive, CreatedAt: at},
		{ToID: &from, Amount: 1000, Kind: storage.ActionDaily, CreatedAt: at},
	}
	text = HistoryText(1, txs)
	require.Contains(t, text, "03-04 05:06 · give -100")
	require.Contains(t, text, "daily +1,000")
}

func TestFormatCoins(t *testing.T) {
	require.Equal(t, "0", formatCoins(0))
	require.Equal(t, "999", formatCoins(999))
	require.Equal(t, "1,000", formatCoins(1000))
	require.Equal(t, "1,234,567", formatCoins(1234567))
	require.Equal(t, "-45,000", formatCoins(-45000))
}

func TestClassifySendError(t *testing.T) {
	require.NoError(t, classifySendError(nil))

	blocked := classifySendError(fmt.Errorf("%w, Forbidden: bot was blocked by the user", bot.ErrorForbidden))
	require.ErrorIs(t, blocked, notifier.ErrBlocked)

	missing := classifySendError(errors.New("error response from telegram for method sendMessage, 400 Bad Request: chat not found"))
	require.ErrorIs(t, missing, notifier.ErrBlocked)

	other := errors.New("connection reset by peer")
	require.Equal(t, other, classifySendError(other))
}
