// Package cooldown throttles repeated economy actions per account.
//
// A Tracker answers "may this account perform this action now" and, when the
// answer is yes, records the usage in the same atomic step. Two concurrent
// calls for the same (account, action) can never both be allowed inside one
// window.
package cooldown

import (
	"context"
	"time"

	"github.com/suspectuso/econ-bot/internal/storage"
)

// Decision is the outcome of TryConsume
type Decision struct {
	Allowed   bool
	Remaining time.Duration
}

// RemainingSeconds rounds the wait up to whole seconds
func (d Decision) RemainingSeconds() int64 {
	if d.Allowed || d.Remaining <= 0 {
		return 0
	}
	return int64((d.Remaining + time.Second - 1) / time.Second)
}

// Tracker is an atomic check-and-set over the last usage of an action
type Tracker interface {
	TryConsume(ctx context.Context, accountID int64, action storage.Action, window time.Duration) (Decision, error)
}

// Option configures a tracker
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
