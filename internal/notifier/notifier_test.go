package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suspectuso/econ-bot/internal/economy"
	"github.com/suspectuso/econ-bot/internal/storage"
)

type message struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []message
	err  error
}

func (s *fakeSender) SendNotification(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, message{chatID, text})
	return nil
}

type outcomes map[string]int

func (o outcomes) ObserveNotification(outcome string) { o[outcome]++ }

func setup(t *testing.T, sender Sender, dm bool) (*Notifier, *storage.Storage, outcomes) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "notify.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.CreateIfMissing(context.Background(), 2, storage.Defaults{DMEnabled: dm})
	require.NoError(t, err)

	obs := outcomes{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, sender, obs, log), store, obs
}

func robbed(amount int64) Event {
	return Event{
		Result:    economy.Result{Action: storage.ActionRob, OK: true, Amount: amount, TargetBalance: 50},
		Actor:     1,
		ActorName: "<Mallory>",
		Target:    2,
	}
}

func TestHandleResultSendsToTarget(t *testing.T) {
	sender := &fakeSender{}
	n, _, obs := setup(t, sender, true)

	n.HandleResult(context.Background(), robbed(250))

	require.Len(t, sender.sent, 1)
	require.Equal(t, int64(2), sender.sent[0].chatID)
	require.Contains(t, sender.sent[0].text, "&lt;Mallory&gt;")
	require.Contains(t, sender.sent[0].text, "<b>250</b>")
	require.Equal(t, 1, obs["sent"])
}

func TestHandleResultRespectsOptOut(t *testing.T) {
	sender := &fakeSender{}
	n, _, obs := setup(t, sender, false)

	n.HandleResult(context.Background(), robbed(250))

	require.Empty(t, sender.sent)
	require.Equal(t, 1, obs["skipped"])
}

func TestHandleResultIgnoresNonEvents(t *testing.T) {
	sender := &fakeSender{}
	n, _, _ := setup(t, sender, true)
	ctx := context.Background()

	n.HandleResult(ctx, Event{Result: economy.Result{Action: storage.ActionRob, Failure: economy.TargetProtected}, Actor: 1, Target: 2})
	n.HandleResult(ctx, Event{Result: economy.Result{Action: storage.ActionRob, OK: true, NothingToSteal: true}, Actor: 1, Target: 2})
	n.HandleResult(ctx, Event{Result: economy.Result{Action: storage.ActionRevive, OK: true}, Actor: 2, Target: 2})
	n.HandleResult(ctx, Event{Result: economy.Result{Action: storage.ActionDaily, OK: true}, Actor: 1, Target: 2})

	require.Empty(t, sender.sent)
}

func TestBlockedRecipientIsOptedOut(t *testing.T) {
	sender := &fakeSender{err: fmt.Errorf("send message: %w", ErrBlocked)}
	n, store, obs := setup(t, sender, true)
	ctx := context.Background()

	n.HandleResult(ctx, robbed(10))

	a, err := store.Get(ctx, 2)
	require.NoError(t, err)
	require.False(t, a.DMEnabled)
	require.Equal(t, 1, obs["blocked"])
}

func TestTransientFailureKeepsOptIn(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection reset")}
	n, store, obs := setup(t, sender, true)
	ctx := context.Background()

	n.HandleResult(ctx, robbed(10))

	a, err := store.Get(ctx, 2)
	require.NoError(t, err)
	require.True(t, a.DMEnabled)
	require.Equal(t, 1, obs["failed"])
}

func TestFormatNumber(t *testing.T) {
	require.Equal(t, "950", formatNumber(950))
	require.Equal(t, "9999", formatNumber(9_999))
	require.Equal(t, "12.5K", formatNumber(12_500))
	require.Equal(t, "3.40M", formatNumber(3_400_000))
	require.Equal(t, "1.00B", formatNumber(1_000_000_000))
}
