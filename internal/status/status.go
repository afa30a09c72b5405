// Package status derives and mutates the per-account status flags: alive or
// dead, the protection window and the daily-claim window.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/suspectuso/econ-bot/internal/storage"
)

// DailyWindow is the minimum time between two daily claims
const DailyWindow = 24 * time.Hour

// MaxProtectionDays bounds a single protection purchase
const MaxProtectionDays = 3

var ErrInvalidDuration = errors.New("protection must be 1 to 3 days")

// Store is the slice of the ledger the status engine needs
type Store interface {
	Get(ctx context.Context, id int64) (*storage.Account, error)
	SetDead(ctx context.Context, id int64) (bool, error)
	SetAlive(ctx context.Context, id int64) (bool, error)
	SetProtection(ctx context.Context, id int64, until time.Time) error
	ClaimDaily(ctx context.Context, id, reward int64, now time.Time, window time.Duration) (storage.AdjustResult, error)
}

// Engine applies status rules on top of the ledger
type Engine struct {
	store Store
	now   func() time.Time
}

// Option configures the engine
type Option func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates a status engine
func New(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine's current time
func (e *Engine) Now() time.Time {
	return e.now()
}

// IsActionable reports whether the account can be targeted. Dead accounts are
// never actionable; protected accounts are not actionable for rob.
func (e *Engine) IsActionable(ctx context.Context, id int64, forRob bool) (bool, error) {
	a, err := e.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if a.IsDead {
		return false, nil
	}
	if forRob && a.ProtectedAt(e.now()) {
		return false, nil
	}
	return true, nil
}

// MarkDead kills the account. It reports false if it was already dead.
func (e *Engine) MarkDead(ctx context.Context, id int64) (bool, error) {
	return e.store.SetDead(ctx, id)
}

// Revive brings the account back. Reviving a living account is a no-op that
// reports revived=false without an error.
func (e *Engine) Revive(ctx context.Context, id int64) (revived bool, err error) {
	return e.store.SetAlive(ctx, id)
}

// Protection is a granted protection window
type Protection struct {
	Days  int
	Until time.Time
}

// ExtendProtection protects the owner's own account for days from now. Only
// premium accounts get more than one day; a standard account asking for more
// is granted one.
func (e *Engine) ExtendProtection(ctx context.Context, owner int64, days int) (Protection, error) {
	if days < 1 || days > MaxProtectionDays {
		return Protection{}, ErrInvalidDuration
	}

	a, err := e.store.Get(ctx, owner)
	if err != nil {
		return Protection{}, err
	}
	if !a.IsPremium() {
		days = 1
	}

	until := e.now().Add(time.Duration(days) * 24 * time.Hour)
	if err := e.store.SetProtection(ctx, owner, until); err != nil {
		return Protection{}, err
	}

	return Protection{Days: days, Until: until}, nil
}

// Claim is the outcome of a daily claim
type Claim struct {
	Allowed          bool
	SecondsUntilNext int64
	NewBalance       int64
}

// ClaimDaily credits reward and stamps the claim in one write if the last
// claim is at least DailyWindow old
func (e *Engine) ClaimDaily(ctx context.Context, id, reward int64) (Claim, error) {
	now := e.now()

	res, err := e.store.ClaimDaily(ctx, id, reward, now, DailyWindow)
	if err != nil {
		return Claim{}, err
	}
	if res.Applied {
		return Claim{Allowed: true, NewBalance: res.NewBalance}, nil
	}

	a, err := e.store.Get(ctx, id)
	if err != nil {
		return Claim{}, err
	}

	wait := int64(DailyWindow / time.Second)
	if a.DailyClaimedAt != nil {
		left := a.DailyClaimedAt.Add(DailyWindow).Sub(now)
		wait = int64((left + time.Second - 1) / time.Second)
		if wait < 1 {
			wait = 1
		}
	}
	return Claim{Allowed: false, SecondsUntilNext: wait, NewBalance: a.Balance}, nil
}
