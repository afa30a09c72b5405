package economy

import (
	"time"

	"github.com/suspectuso/econ-bot/internal/storage"
)

// TierRules are the economy parameters that differ between tiers
type TierRules struct {
	DailyMultiplier int64
	FeeBasisPoints  int64
	RobMax          int64
	RobLimit        int
	KillLimit       int
	KillRewardMin   int64
	KillRewardMax   int64
}

// Policy holds every tunable of the engine
type Policy struct {
	DailyReward int64
	Standard    TierRules
	Premium     TierRules
	Cooldowns   map[storage.Action]time.Duration
}

// DefaultPolicy returns the stock economy
func DefaultPolicy() Policy {
	return Policy{
		DailyReward: 1000,
		Standard: TierRules{
			DailyMultiplier: 1,
			FeeBasisPoints:  1000,
			RobMax:          10_000,
			RobLimit:        100,
			KillLimit:       100,
			KillRewardMin:   100,
			KillRewardMax:   200,
		},
		Premium: TierRules{
			DailyMultiplier: 2,
			FeeBasisPoints:  500,
			RobMax:          100_000,
			RobLimit:        200,
			KillLimit:       200,
			KillRewardMin:   200,
			KillRewardMax:   400,
		},
		Cooldowns: map[storage.Action]time.Duration{
			storage.ActionGive:    30 * time.Second,
			storage.ActionRob:     2 * time.Minute,
			storage.ActionKill:    3 * time.Minute,
			storage.ActionRevive:  time.Minute,
			storage.ActionProtect: 5 * time.Minute,
		},
	}
}

// Rules returns the parameters of a tier
func (p Policy) Rules(tier storage.Tier) TierRules {
	if tier == storage.TierPremium {
		return p.Premium
	}
	return p.Standard
}

// Cooldown returns the window of an action, zero when unthrottled
func (p Policy) Cooldown(action storage.Action) time.Duration {
	return p.Cooldowns[action]
}

// maxTransfer keeps amount*FeeBasisPoints inside int64
const maxTransfer = int64(1) << 48

// Fee is ceil(amount × rate) for the given rules
func (r TierRules) Fee(amount int64) int64 {
	return (amount*r.FeeBasisPoints + 9_999) / 10_000
}
