package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/suspectuso/econ-bot/internal/status"
	"github.com/suspectuso/econ-bot/internal/storage"
)

// --- Daily ---

// Daily credits the daily reward, doubled for premium accounts, at most once
// per status.DailyWindow
func (e *Engine) Daily(ctx context.Context, actor int64) (Result, error) {
	a, err := e.ensure(ctx, actor)
	if err != nil {
		return Result{}, err
	}

	reward := e.policy.DailyReward * e.policy.Rules(a.Tier).DailyMultiplier
	claim, err := e.status.ClaimDaily(ctx, actor, reward)
	if err != nil {
		return Result{}, fmt.Errorf("claim daily: %w", err)
	}
	if !claim.Allowed {
		r := failed(storage.ActionDaily, CooldownActive)
		r.RemainingSeconds = claim.SecondsUntilNext
		r.Balance = claim.NewBalance
		return e.finish(r, actor)
	}

	r := succeeded(storage.ActionDaily)
	r.Amount = reward
	r.Balance = claim.NewBalance
	e.record(ctx, &r, nil, ptr(actor), "")
	return e.finish(r, actor)
}

// --- Give ---

// Give transfers amount to target and burns the tier fee on top of it
func (e *Engine) Give(ctx context.Context, actor, target, amount int64) (Result, error) {
	if amount <= 0 || amount > maxTransfer {
		return e.finish(failed(storage.ActionGive, InvalidAmount), actor)
	}
	if actor == target {
		return e.finish(failed(storage.ActionGive, SelfTarget), actor)
	}

	a, err := e.ensure(ctx, actor)
	if err != nil {
		return Result{}, err
	}
	if _, err := e.ensure(ctx, target); err != nil {
		return Result{}, err
	}

	if r, err := e.consume(ctx, actor, storage.ActionGive); err != nil || r != nil {
		return e.refused(r, actor, err)
	}

	fee := e.policy.Rules(a.Tier).Fee(amount)
	total := amount + fee

	debit, err := e.ledger.ConditionalAdjust(ctx, actor, -total, storage.AtLeast(total))
	if err != nil {
		return Result{}, fmt.Errorf("debit giver: %w", err)
	}
	if !debit.Applied {
		r := failed(storage.ActionGive, InsufficientFunds)
		r.Balance = debit.NewBalance
		return e.finish(r, actor)
	}

	credit, err := e.ledger.ConditionalAdjust(ctx, target, amount, storage.Always())
	if err != nil {
		e.log.Error("credit after debit failed", "action", storage.ActionGive, "from", actor, "to", target, "amount", amount, "error", err)
		return Result{}, fmt.Errorf("credit receiver: %w", err)
	}

	r := succeeded(storage.ActionGive)
	r.Amount = amount
	r.Fee = fee
	r.Balance = debit.NewBalance
	r.TargetBalance = credit.NewBalance
	e.record(ctx, &r, ptr(actor), ptr(target), fmt.Sprintf("fee=%d", fee))
	return e.finish(r, actor)
}

// --- Rob ---

// Rob steals a random amount, capped by the victim's balance and the actor's
// tier, from an alive and unprotected target
func (e *Engine) Rob(ctx context.Context, actor, target int64) (Result, error) {
	if actor == target {
		return e.finish(failed(storage.ActionRob, SelfTarget), actor)
	}

	a, err := e.ensure(ctx, actor)
	if err != nil {
		return Result{}, err
	}
	if _, err := e.ensure(ctx, target); err != nil {
		return Result{}, err
	}

	if r, err := e.consume(ctx, actor, storage.ActionRob); err != nil || r != nil {
		return e.refused(r, actor, err)
	}

	victim, err := e.ledger.Get(ctx, target)
	if err != nil {
		return Result{}, err
	}
	if kind, blocked := e.robBlocked(victim); blocked {
		return e.finish(failed(storage.ActionRob, kind), actor)
	}

	rules := e.policy.Rules(a.Tier)
	if a.RobUses >= rules.RobLimit {
		return e.finish(failed(storage.ActionRob, LimitReached), actor)
	}
	if victim.Balance <= 0 {
		r := succeeded(storage.ActionRob)
		r.NothingToSteal = true
		r.Balance = a.Balance
		return e.finish(r, actor)
	}

	reserved, err := e.ledger.ReserveUse(ctx, actor, storage.ActionRob, rules.RobLimit)
	if err != nil {
		return Result{}, fmt.Errorf("reserve rob: %w", err)
	}
	if !reserved {
		return e.finish(failed(storage.ActionRob, LimitReached), actor)
	}

	steal := min(victim.Balance, e.rand(1, rules.RobMax))

	debit, err := e.ledger.ConditionalRobDebit(ctx, target, steal, e.now())
	if err != nil {
		e.release(ctx, actor, storage.ActionRob)
		return Result{}, fmt.Errorf("debit victim: %w", err)
	}
	if !debit.Applied {
		e.release(ctx, actor, storage.ActionRob)
		kind, err := e.classifyRobConflict(ctx, target)
		if err != nil {
			return Result{}, err
		}
		return e.finish(failed(storage.ActionRob, kind), actor)
	}

	balance, err := e.ledger.CreditWithStats(ctx, actor, steal, 0, 1)
	if err != nil {
		e.log.Error("credit after debit failed", "action", storage.ActionRob, "from", target, "to", actor, "amount", steal, "error", err)
		return Result{}, fmt.Errorf("credit robber: %w", err)
	}

	r := succeeded(storage.ActionRob)
	r.Amount = steal
	r.Balance = balance
	r.TargetBalance = debit.NewBalance
	e.record(ctx, &r, ptr(target), ptr(actor), "")
	return e.finish(r, actor)
}

func (e *Engine) robBlocked(victim *storage.Account) (FailureKind, bool) {
	switch {
	case victim.IsDead:
		return TargetDead, true
	case victim.ProtectedAt(e.now()):
		return TargetProtected, true
	}
	return "", false
}

// classifyRobConflict explains why the victim debit was declined after the
// snapshot looked fine
func (e *Engine) classifyRobConflict(ctx context.Context, target int64) (FailureKind, error) {
	victim, err := e.ledger.Get(ctx, target)
	if err != nil {
		return "", err
	}
	if kind, blocked := e.robBlocked(victim); blocked {
		return kind, nil
	}
	return ConcurrentConflict, nil
}

// --- Kill ---

// Kill marks an alive target dead and pays the actor a tier reward
func (e *Engine) Kill(ctx context.Context, actor, target int64) (Result, error) {
	if actor == target {
		return e.finish(failed(storage.ActionKill, SelfTarget), actor)
	}

	a, err := e.ensure(ctx, actor)
	if err != nil {
		return Result{}, err
	}
	if _, err := e.ensure(ctx, target); err != nil {
		return Result{}, err
	}

	if r, err := e.consume(ctx, actor, storage.ActionKill); err != nil || r != nil {
		return e.refused(r, actor, err)
	}

	victim, err := e.ledger.Get(ctx, target)
	if err != nil {
		return Result{}, err
	}
	if victim.IsDead {
		return e.finish(failed(storage.ActionKill, TargetDead), actor)
	}

	rules := e.policy.Rules(a.Tier)
	if a.KillUses >= rules.KillLimit {
		return e.finish(failed(storage.ActionKill, LimitReached), actor)
	}
	reserved, err := e.ledger.ReserveUse(ctx, actor, storage.ActionKill, rules.KillLimit)
	if err != nil {
		return Result{}, fmt.Errorf("reserve kill: %w", err)
	}
	if !reserved {
		return e.finish(failed(storage.ActionKill, LimitReached), actor)
	}

	killed, err := e.status.MarkDead(ctx, target)
	if err != nil {
		e.release(ctx, actor, storage.ActionKill)
		return Result{}, fmt.Errorf("mark dead: %w", err)
	}
	if !killed {
		e.release(ctx, actor, storage.ActionKill)
		return e.finish(failed(storage.ActionKill, TargetDead), actor)
	}

	reward := e.rand(rules.KillRewardMin, rules.KillRewardMax)
	balance, err := e.ledger.CreditWithStats(ctx, actor, reward, 1, 0)
	if err != nil {
		e.log.Error("credit after debit failed", "action", storage.ActionKill, "from", target, "to", actor, "amount", reward, "error", err)
		return Result{}, fmt.Errorf("credit killer: %w", err)
	}

	r := succeeded(storage.ActionKill)
	r.Amount = reward
	r.Balance = balance
	e.record(ctx, &r, ptr(target), ptr(actor), "")
	return e.finish(r, actor)
}

// --- Revive ---

// Revive brings a dead target back. An alive target is reported as such
// without touching the cooldown.
func (e *Engine) Revive(ctx context.Context, actor, target int64) (Result, error) {
	a, err := e.ensure(ctx, actor)
	if err != nil {
		return Result{}, err
	}
	t := a
	if target != actor {
		if t, err = e.ensure(ctx, target); err != nil {
			return Result{}, err
		}
	}

	alive := succeeded(storage.ActionRevive)
	alive.AlreadyAlive = true
	alive.Balance = a.Balance
	if !t.IsDead {
		return e.finish(alive, actor)
	}

	if r, err := e.consume(ctx, actor, storage.ActionRevive); err != nil || r != nil {
		return e.refused(r, actor, err)
	}

	revived, err := e.status.Revive(ctx, target)
	if err != nil {
		return Result{}, fmt.Errorf("revive: %w", err)
	}
	if !revived {
		return e.finish(alive, actor)
	}

	r := succeeded(storage.ActionRevive)
	r.Balance = a.Balance
	e.record(ctx, &r, ptr(actor), ptr(target), "")
	return e.finish(r, actor)
}

// --- Protect ---

// Protect shields the actor from rob for days (1 to 3; standard accounts get 1)
func (e *Engine) Protect(ctx context.Context, actor int64, days int) (Result, error) {
	if days < 1 || days > status.MaxProtectionDays {
		return e.finish(failed(storage.ActionProtect, InvalidAmount), actor)
	}

	a, err := e.ensure(ctx, actor)
	if err != nil {
		return Result{}, err
	}

	if r, err := e.consume(ctx, actor, storage.ActionProtect); err != nil || r != nil {
		return e.refused(r, actor, err)
	}

	p, err := e.status.ExtendProtection(ctx, actor, days)
	if errors.Is(err, status.ErrInvalidDuration) {
		return e.finish(failed(storage.ActionProtect, InvalidAmount), actor)
	}
	if err != nil {
		return Result{}, fmt.Errorf("extend protection: %w", err)
	}

	r := succeeded(storage.ActionProtect)
	r.Days = p.Days
	r.ProtectedUntil = &p.Until
	r.Balance = a.Balance
	e.record(ctx, &r, nil, ptr(actor), fmt.Sprintf("days=%d", p.Days))
	return e.finish(r, actor)
}

// --- Lookups ---

// Profile returns the account, creating it on first sight
func (e *Engine) Profile(ctx context.Context, id int64) (*storage.Account, error) {
	return e.ensure(ctx, id)
}

// CheckProtection reports the target's active protection expiry. Only premium
// accounts may look.
func (e *Engine) CheckProtection(ctx context.Context, actor, target int64) (Result, error) {
	a, err := e.ensure(ctx, actor)
	if err != nil {
		return Result{}, err
	}
	if !a.IsPremium() {
		return e.finish(failed(storage.ActionCheck, PremiumRequired), actor)
	}

	t, err := e.ensure(ctx, target)
	if err != nil {
		return Result{}, err
	}

	r := succeeded(storage.ActionCheck)
	r.Balance = a.Balance
	r.TargetBalance = t.Balance
	if t.ProtectedAt(e.now()) {
		until := *t.ProtectedUntil
		r.ProtectedUntil = &until
	}
	return e.finish(r, actor)
}

func (e *Engine) refused(r *Result, actor int64, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return e.finish(*r, actor)
}
