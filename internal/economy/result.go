package economy

import (
	"time"

	"github.com/suspectuso/econ-bot/internal/storage"
)

// FailureKind is an expected business outcome that stopped an action
type FailureKind string

const (
	CooldownActive     FailureKind = "cooldown_active"
	TargetDead         FailureKind = "target_dead"
	TargetProtected    FailureKind = "target_protected"
	SelfTarget         FailureKind = "self_target"
	LimitReached       FailureKind = "limit_reached"
	InsufficientFunds  FailureKind = "insufficient_funds"
	ConcurrentConflict FailureKind = "concurrent_conflict"
	InvalidAmount      FailureKind = "invalid_amount"
	PremiumRequired    FailureKind = "premium_required"
)

// Transient reports whether retrying the same request may succeed without
// anything else changing first
func (k FailureKind) Transient() bool {
	return k == ConcurrentConflict
}

// Result is the outcome of one engine operation: either OK with the details
// of what happened, or a Failure kind. Only storage failures are returned as
// errors alongside it.
type Result struct {
	Action  storage.Action
	OK      bool
	Failure FailureKind

	// RemainingSeconds is set for CooldownActive, including a refused daily claim
	RemainingSeconds int64

	// Amount is what moved: reward, gift, loot. Fee is what was burned.
	Amount int64
	Fee    int64

	// Balance is the actor's balance after the action; TargetBalance the
	// other party's, when one was touched
	Balance       int64
	TargetBalance int64

	NothingToSteal bool
	AlreadyAlive   bool

	Days           int
	ProtectedUntil *time.Time

	TransactionID string
}

// Outcome is the metric/log label of the result
func (r Result) Outcome() string {
	if r.OK {
		return "success"
	}
	return string(r.Failure)
}

func succeeded(action storage.Action) Result {
	return Result{Action: action, OK: true}
}

func failed(action storage.Action, kind FailureKind) Result {
	return Result{Action: action, Failure: kind}
}
