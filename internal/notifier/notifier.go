package notifier

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/suspectuso/econ-bot/internal/economy"
	"github.com/suspectuso/econ-bot/internal/storage"
)

// ErrBlocked is returned by a Sender when the recipient cannot be messaged:
// the user blocked the bot or never opened a private chat with it
var ErrBlocked = errors.New("recipient unreachable")

// Sender delivers a private message
type Sender interface {
	SendNotification(ctx context.Context, chatID int64, text string) error
}

// Accounts is the ledger access the notifier needs
type Accounts interface {
	Get(ctx context.Context, id int64) (*storage.Account, error)
	SetDMEnabled(ctx context.Context, id int64, enabled bool) error
}

// Observer counts delivery outcomes
type Observer interface {
	ObserveNotification(outcome string)
}

// Notifier tells the passive side of an action what happened to them
type Notifier struct {
	store    Accounts
	sender   Sender
	observer Observer
	log      *slog.Logger
}

// New creates a new Notifier; observer may be nil
func New(store Accounts, sender Sender, observer Observer, log *slog.Logger) *Notifier {
	return &Notifier{
		store:    store,
		sender:   sender,
		observer: observer,
		log:      log,
	}
}

// Event is a finished action seen from its target
type Event struct {
	Result    economy.Result
	Actor     int64
	ActorName string
	Target    int64
}

// HandleResult sends a DM to the target if the action touched them and they
// accept DMs. Delivery problems are logged, never returned.
func (n *Notifier) HandleResult(ctx context.Context, ev Event) {
	text, ok := n.format(ev)
	if !ok {
		return
	}

	target, err := n.store.Get(ctx, ev.Target)
	if err != nil {
		n.log.Error("load notification target", "target", ev.Target, "error", err)
		return
	}
	if !target.DMEnabled {
		n.observe("skipped")
		return
	}

	err = n.sender.SendNotification(ctx, ev.Target, text)
	switch {
	case err == nil:
		n.observe("sent")
	case errors.Is(err, ErrBlocked):
		n.observe("blocked")
		n.log.Info("disabling notifications for unreachable user", "user_id", ev.Target)
		if err := n.store.SetDMEnabled(ctx, ev.Target, false); err != nil {
			n.log.Error("disable notifications", "user_id", ev.Target, "error", err)
		}
	default:
		n.observe("failed")
		n.log.Error("send notification", "action", ev.Result.Action, "user_id", ev.Target, "error", err)
	}
}

func (n *Notifier) observe(outcome string) {
	if n.observer != nil {
		n.observer.ObserveNotification(outcome)
	}
}

func (n *Notifier) format(ev Event) (string, bool) {
	r := ev.Result
	if !r.OK || ev.Target == 0 || ev.Target == ev.Actor || r.NothingToSteal || r.AlreadyAlive {
		return "", false
	}

	who := html.EscapeString(ev.ActorName)
	if who == "" {
		who = fmt.Sprintf("User %d", ev.Actor)
	}

	switch r.Action {
	case storage.ActionRob:
		return fmt.Sprintf("🕵️ <b>%s</b> robbed you of <b>%s</b> coins.\nBalance left: %s",
			who, formatNumber(r.Amount), formatNumber(r.TargetBalance)), true
	case storage.ActionKill:
		return fmt.Sprintf("💀 <b>%s</b> killed you.\nAsk someone to /revive you.", who), true
	case storage.ActionGive:
		return fmt.Sprintf("🎁 <b>%s</b> sent you <b>%s</b> coins.\nBalance: %s",
			who, formatNumber(r.Amount), formatNumber(r.TargetBalance)), true
	case storage.ActionRevive:
		return fmt.Sprintf("❤️ <b>%s</b> brought you back to life.", who), true
	}
	return "", false
}

func formatNumber(num int64) string {
	abs := num
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", float64(num)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(num)/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("%.1fK", float64(num)/1_000)
	default:
		return fmt.Sprintf("%d", num)
	}
}
