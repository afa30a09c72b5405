package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/suspectuso/econ-bot/internal/economy"
	"github.com/suspectuso/econ-bot/internal/leaderboard"
	"github.com/suspectuso/econ-bot/internal/storage"
)

// FailureText is the stable user-facing message of a refused action
func FailureText(r economy.Result) string {
	switch r.Failure {
	case economy.CooldownActive:
		if r.Action == storage.ActionDaily {
			return fmt.Sprintf("⏳ Daily reward already claimed. Come back in %s.", formatWait(r.RemainingSeconds))
		}
		return fmt.Sprintf("⏳ Slow down! Try again in %s.", formatWait(r.RemainingSeconds))
	case economy.TargetDead:
		return "💀 That player is already dead."
	case economy.TargetProtected:
		return "🛡 That player is protected right now."
	case economy.SelfTarget:
		return "🙃 You can't do that to yourself."
	case economy.LimitReached:
		return fmt.Sprintf("🚫 You have used up all your %s attempts.", r.Action)
	case economy.InsufficientFunds:
		return fmt.Sprintf("💸 Not enough coins. Your balance: <b>%s</b>", formatCoins(r.Balance))
	case economy.ConcurrentConflict:
		return "🔄 Their balance just changed. Try again."
	case economy.InvalidAmount:
		if r.Action == storage.ActionProtect {
			return "❌ Protection lasts 1 to 3 days. Usage: <code>/protect 2</code>"
		}
		return "❌ Amount must be a positive whole number."
	case economy.PremiumRequired:
		return "⭐ This command is for premium players."
	}
	return "❌ Something went wrong."
}

// ResultText renders a successful action for the chat it was issued in
func ResultText(r economy.Result, actor, target string) string {
	if !r.OK {
		return FailureText(r)
	}

	actor = mention(actor)
	target = mention(target)

	switch r.Action {
	case storage.ActionDaily:
		return fmt.Sprintf("🎁 %s claimed <b>%s</b> coins!\nBalance: <b>%s</b>",
			actor, formatCoins(r.Amount), formatCoins(r.Balance))
	case storage.ActionGive:
		return fmt.Sprintf("💸 %s gave <b>%s</b> coins to %s.\nFee burned: %s\nYour balance: <b>%s</b>",
			actor, formatCoins(r.Amount), target, formatCoins(r.Fee), formatCoins(r.Balance))
	case storage.ActionRob:
		if r.NothingToSteal {
			return fmt.Sprintf("🕳 %s has nothing to steal.", target)
		}
		return fmt.Sprintf("🕵️ %s robbed <b>%s</b> coins from %s!\nBalance: <b>%s</b>",
			actor, formatCoins(r.Amount), target, formatCoins(r.Balance))
	case storage.ActionKill:
		return fmt.Sprintf("🔪 %s killed %s and earned <b>%s</b> coins.",
			actor, target, formatCoins(r.Amount))
	case storage.ActionRevive:
		if r.AlreadyAlive {
			return fmt.Sprintf("❤️ %s is already alive.", target)
		}
		return fmt.Sprintf("✨ %s revived %s.", actor, target)
	case storage.ActionProtect:
		return fmt.Sprintf("🛡 %s is protected for %d day(s), until %s.",
			actor, r.Days, formatTime(*r.ProtectedUntil))
	}
	return "✅ Done."
}

// ProtectionText renders a /check result
func ProtectionText(r economy.Result, target string) string {
	if !r.OK {
		return FailureText(r)
	}
	if r.ProtectedUntil == nil {
		return fmt.Sprintf("🔓 %s is not protected.", mention(target))
	}
	return fmt.Sprintf("🛡 %s is protected until %s.", mention(target), formatTime(*r.ProtectedUntil))
}

// ProfileText renders /bal
func ProfileText(a *storage.Account, name string, rules economy.TierRules, now time.Time) string {
	state := "alive ❤️"
	if a.IsDead {
		state = "dead 💀"
	}

	lines := []string{
		fmt.Sprintf("👤 <b>%s</b>", html.EscapeString(name)),
		"",
		fmt.Sprintf("💰 Balance: <b>%s</b>", formatCoins(a.Balance)),
		fmt.Sprintf("Tier: <b>%s</b>", a.Tier),
		fmt.Sprintf("Status: %s", state),
		fmt.Sprintf("Robs: %d/%d · Kills used: %d/%d", a.RobUses, rules.RobLimit, a.KillUses, rules.KillLimit),
		fmt.Sprintf("Kills: %d · Deaths: %d", a.Kills, a.Deaths),
	}
	if a.ProtectedAt(now) {
		lines = append(lines, fmt.Sprintf("🛡 Protected until %s", formatTime(*a.ProtectedUntil)))
	}
	return strings.Join(lines, "\n")
}

// BoardText renders a leaderboard
func BoardText(title, unit string, entries []leaderboard.Entry) string {
	if len(entries) == 0 {
		return title + "\n\nNobody here yet."
	}

	lines := []string{title, ""}
	for _, e := range entries {
		star := ""
		if e.Premium {
			star = " ⭐"
		}
		lines = append(lines, fmt.Sprintf("%d. <a href='tg://user?id=%d'>%d</a>%s — %s %s",
			e.Rank, e.AccountID, e.AccountID, star, formatCoins(e.Value), unit))
	}
	return strings.Join(lines, "\n")
}

// HistoryText renders the latest transactions of id
func HistoryText(id int64, txs []storage.Transaction) string {
	if len(txs) == 0 {
		return "📜 No transactions yet."
	}

	lines := []string{"📜 <b>Recent activity</b>", ""}
	for _, tx := range txs {
		sign := "+"
		if tx.FromID != nil && *tx.FromID == id {
			sign = "-"
		}
		lines = append(lines, fmt.Sprintf("%s · %s %s%s",
			tx.CreatedAt.UTC().Format("01-02 15:04"), tx.Kind, sign, formatCoins(tx.Amount)))
	}
	return strings.Join(lines, "\n")
}

func mention(name string) string {
	return "<b>" + html.EscapeString(name) + "</b>"
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

// formatWait renders seconds as "45s", "2m 5s" or "3h 20m"
func formatWait(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, seconds%3600/60)
	}
}

// formatCoins groups digits by thousands: 1234567 -> 1,234,567
func formatCoins(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
