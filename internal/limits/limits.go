// Package limits resets the per-account rob and kill usage counters on a
// configurable schedule.
package limits

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

// Policy says when usage counters go back to zero. An empty Schedule means
// never: the limits are lifetime caps.
type Policy struct {
	Name     string
	Schedule string
}

// Never keeps usage counters forever
var Never = Policy{Name: "never"}

// ParsePolicy reads never, daily, weekly or a five-field cron expression
func ParsePolicy(s string) (Policy, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "never":
		return Never, nil
	case "daily":
		return Policy{Name: v, Schedule: "@daily"}, nil
	case "weekly":
		return Policy{Name: v, Schedule: "@weekly"}, nil
	}

	if _, err := cron.ParseStandard(s); err != nil {
		return Policy{}, fmt.Errorf("invalid limit reset %q: %w", s, err)
	}
	return Policy{Name: "cron", Schedule: strings.TrimSpace(s)}, nil
}

// Enabled reports whether counters are ever reset
func (p Policy) Enabled() bool {
	return p.Schedule != ""
}

// Resetter zeroes every usage counter and reports how many accounts changed
type Resetter interface {
	ResetUsage(ctx context.Context) (int64, error)
}

// Observer is told about each completed reset
type Observer interface {
	ObserveUsageReset(accounts int64)
}

// Scheduler runs resets according to a Policy
type Scheduler struct {
	store    Resetter
	policy   Policy
	observer Observer
	log      *slog.Logger
}

// NewScheduler creates a scheduler; observer may be nil
func NewScheduler(store Resetter, policy Policy, observer Observer, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		policy:   policy,
		observer: observer,
		log:      log,
	}
}

// Start blocks until ctx is done, resetting on every scheduled tick
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.policy.Enabled() {
		s.log.Info("usage reset disabled", "policy", s.policy.Name)
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.policy.Schedule, func() {
		if err := s.Reset(ctx); err != nil {
			s.log.Error("reset usage", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule usage reset: %w", err)
	}

	s.log.Info("usage reset scheduled", "policy", s.policy.Name, "schedule", s.policy.Schedule)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Reset zeroes the counters now
func (s *Scheduler) Reset(ctx context.Context) error {
	n, err := s.store.ResetUsage(ctx)
	if err != nil {
		return err
	}

	s.log.Info("usage limits reset", "accounts", n)
	if s.observer != nil {
		s.observer.ObserveUsageReset(n)
	}
	return nil
}
