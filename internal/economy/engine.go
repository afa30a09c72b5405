// Package economy runs the player actions against the ledger: daily, give,
// rob, kill, revive and protect.
//
// Every action follows the same order: argument checks, cooldown consumption,
// account state checks, then conditional writes. Balances only change through
// single-statement conditional updates, so concurrent actions can fail but
// never overdraw an account or move coins twice.
package economy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/suspectuso/econ-bot/internal/cooldown"
	"github.com/suspectuso/econ-bot/internal/status"
	"github.com/suspectuso/econ-bot/internal/storage"
)

// Ledger is the account store the engine drives
type Ledger interface {
	status.Store
	CreateIfMissing(ctx context.Context, id int64, defaults storage.Defaults) (*storage.Account, error)
	ConditionalAdjust(ctx context.Context, id, delta int64, pre storage.Precondition) (storage.AdjustResult, error)
	ConditionalRobDebit(ctx context.Context, id, amount int64, now time.Time) (storage.AdjustResult, error)
	CreditWithStats(ctx context.Context, id, amount int64, kills, robbed int) (int64, error)
	ReserveUse(ctx context.Context, id int64, action storage.Action, limit int) (bool, error)
	ReleaseUse(ctx context.Context, id int64, action storage.Action) error
	AppendTransaction(ctx context.Context, tx *storage.Transaction) error
}

// Recorder observes finished actions
type Recorder interface {
	ObserveResult(r Result)
}

// RandFunc returns a uniform integer in [min, max]
type RandFunc func(min, max int64) int64

func uniform(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + rand.Int63n(max-min+1)
}

// Engine executes economy actions
type Engine struct {
	ledger   Ledger
	tracker  cooldown.Tracker
	status   *status.Engine
	policy   Policy
	now      func() time.Time
	rand     RandFunc
	recorder Recorder
	log      *slog.Logger
}

// Option configures the engine
type Option func(*Engine)

// WithPolicy replaces the default economy parameters
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand overrides the random source used for loot and kill rewards
func WithRand(fn RandFunc) Option {
	return func(e *Engine) { e.rand = fn }
}

// WithRecorder reports every result to r
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an engine on top of the ledger and the cooldown tracker
func New(ledger Ledger, tracker cooldown.Tracker, opts ...Option) *Engine {
	e := &Engine{
		ledger:  ledger,
		tracker: tracker,
		policy:  DefaultPolicy(),
		now:     time.Now,
		rand:    uniform,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.status = status.New(ledger, status.WithClock(e.now))
	return e
}

// Policy returns the parameters in effect
func (e *Engine) Policy() Policy {
	return e.policy
}

type chatKey struct{}

// WithChat tags ctx with the chat an action was issued from; it ends up in
// the transaction record
func WithChat(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, chatKey{}, chatID)
}

func chatFrom(ctx context.Context) string {
	if id, ok := ctx.Value(chatKey{}).(int64); ok {
		return fmt.Sprintf("chat=%d", id)
	}
	return ""
}

func (e *Engine) ensure(ctx context.Context, id int64) (*storage.Account, error) {
	return e.ledger.CreateIfMissing(ctx, id, storage.Defaults{})
}

// consume spends the cooldown of action for actor. A nil result means the
// action may proceed.
func (e *Engine) consume(ctx context.Context, actor int64, action storage.Action) (*Result, error) {
	d, err := e.tracker.TryConsume(ctx, actor, action, e.policy.Cooldown(action))
	if err != nil {
		return nil, fmt.Errorf("cooldown %s: %w", action, err)
	}
	if d.Allowed {
		return nil, nil
	}
	r := failed(action, CooldownActive)
	r.RemainingSeconds = d.RemainingSeconds()
	return &r, nil
}

func (e *Engine) record(ctx context.Context, r *Result, from, to *int64, extra string) {
	note := chatFrom(ctx)
	if extra != "" {
		if note != "" {
			note += " "
		}
		note += extra
	}

	tx := &storage.Transaction{
		FromID:    from,
		ToID:      to,
		Amount:    r.Amount,
		Kind:      r.Action,
		Context:   note,
		CreatedAt: e.now(),
	}
	// the coins already moved; a lost audit row must not turn into a retry
	if err := e.ledger.AppendTransaction(ctx, tx); err != nil {
		e.log.Error("failed to record transaction", "action", r.Action, "error", err)
		return
	}
	r.TransactionID = tx.ID
}

func (e *Engine) release(ctx context.Context, actor int64, action storage.Action) {
	if err := e.ledger.ReleaseUse(ctx, actor, action); err != nil {
		e.log.Error("failed to release usage", "account", actor, "action", action, "error", err)
	}
}

func (e *Engine) finish(r Result, actor int64) (Result, error) {
	if e.recorder != nil {
		e.recorder.ObserveResult(r)
	}
	if r.OK {
		e.log.Info("action applied", "action", r.Action, "account", actor, "amount", r.Amount, "balance", r.Balance)
	} else {
		e.log.Debug("action refused", "action", r.Action, "account", actor, "reason", r.Failure)
	}
	return r, nil
}

func ptr(id int64) *int64 {
	return &id
}
