package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/suspectuso/econ-bot/internal/economy"
)

type EconomyMetrics struct {
	actions       *prometheus.CounterVec
	coinsMoved    *prometheus.CounterVec
	feesBurned    prometheus.Counter
	usageResets   prometheus.Counter
	notifications *prometheus.CounterVec
}

var (
	economyOnce     sync.Once
	economyRegistry *EconomyMetrics
)

// Economy returns the process-wide collectors, registering them on first use
func Economy() *EconomyMetrics {
	economyOnce.Do(func() {
		economyRegistry = &EconomyMetrics{
			actions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "economy_actions_total",
				Help: "Economy actions by action and outcome.",
			}, []string{"action", "outcome"}),
			coinsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "economy_coins_moved_total",
				Help: "Coins minted or transferred by successful actions.",
			}, []string{"action"}),
			feesBurned: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "economy_fees_burned_total",
				Help: "Coins destroyed as transfer fees.",
			}),
			usageResets: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "economy_usage_resets_total",
				Help: "Accounts whose rob and kill counters were reset.",
			}),
			notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "economy_notifications_total",
				Help: "Direct messages to affected players by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			economyRegistry.actions,
			economyRegistry.coinsMoved,
			economyRegistry.feesBurned,
			economyRegistry.usageResets,
			economyRegistry.notifications,
		)
	})
	return economyRegistry
}

func (m *EconomyMetrics) ObserveResult(r economy.Result) {
	if m == nil {
		return
	}
	action := string(r.Action)
	if action == "" {
		action = "unknown"
	}
	m.actions.WithLabelValues(action, r.Outcome()).Inc()
	if !r.OK {
		return
	}
	if r.Amount > 0 {
		m.coinsMoved.WithLabelValues(action).Add(float64(r.Amount))
	}
	if r.Fee > 0 {
		m.feesBurned.Add(float64(r.Fee))
	}
}

func (m *EconomyMetrics) ObserveUsageReset(accounts int64) {
	if m == nil || accounts <= 0 {
		return
	}
	m.usageResets.Add(float64(accounts))
}

func (m *EconomyMetrics) ObserveNotification(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.notifications.WithLabelValues(outcome).Inc()
}
