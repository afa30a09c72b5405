package storage

import "time"

// Tier classifies an account for reward ranges, fee rates and usage limits
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Action names a throttled or counted economy action
type Action string

const (
	ActionDaily   Action = "daily"
	ActionGive    Action = "give"
	ActionRob     Action = "rob"
	ActionKill    Action = "kill"
	ActionRevive  Action = "revive"
	ActionProtect Action = "protect"
	// ActionCheck is the premium protection lookup. It is neither throttled
	// nor counted.
	ActionCheck Action = "check"
)

// Account is the ledger entry of one Telegram user
type Account struct {
	ID             int64
	Balance        int64
	Tier           Tier
	IsDead         bool
	ProtectedUntil *time.Time
	DailyClaimedAt *time.Time
	RobUses        int
	KillUses       int
	Kills          int
	Deaths         int
	RobbedCount    int
	DMEnabled      bool
	CreatedAt      time.Time
}

// IsPremium reports whether the account has the premium tier
func (a *Account) IsPremium() bool {
	return a.Tier == TierPremium
}

// ProtectedAt reports whether the protection window covers t
func (a *Account) ProtectedAt(t time.Time) bool {
	return a.ProtectedUntil != nil && t.Before(*a.ProtectedUntil)
}

// Defaults are the initial values of a lazily created account
type Defaults struct {
	Tier      Tier
	DMEnabled bool
}

// Transaction is an append-only audit record of a completed action
type Transaction struct {
	ID        string
	FromID    *int64
	ToID      *int64
	Amount    int64
	Kind      Action
	Context   string
	CreatedAt time.Time
}

// AdjustResult is the outcome of a conditional balance update
type AdjustResult struct {
	Applied    bool
	NewBalance int64
}
