package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/econ-bot/internal/economy"
	"github.com/suspectuso/econ-bot/internal/storage"
)

func TestObserveResult(t *testing.T) {
	m := Economy()
	require.Same(t, m, Economy())

	success := m.actions.WithLabelValues("give", "success")
	refused := m.actions.WithLabelValues("give", "insufficient_funds")
	moved := m.coinsMoved.WithLabelValues("give")

	beforeSuccess := testutil.ToFloat64(success)
	beforeRefused := testutil.ToFloat64(refused)
	beforeMoved := testutil.ToFloat64(moved)
	beforeFees := testutil.ToFloat64(m.feesBurned)

	m.ObserveResult(economy.Result{Action: storage.ActionGive, OK: true, Amount: 100, Fee: 10})
	m.ObserveResult(economy.Result{Action: storage.ActionGive, Failure: economy.InsufficientFunds, Amount: 50})

	require.Equal(t, beforeSuccess+1, testutil.ToFloat64(success))
	require.Equal(t, beforeRefused+1, testutil.ToFloat64(refused))
	require.Equal(t, beforeMoved+100, testutil.ToFloat64(moved))
	require.Equal(t, beforeFees+10, testutil.ToFloat64(m.feesBurned))
}

func TestObserveUsageReset(t *testing.T) {
	m := Economy()
	before := testutil.ToFloat64(m.usageResets)

	m.ObserveUsageReset(3)
	m.ObserveUsageReset(0)

	require.Equal(t, before+3, testutil.ToFloat64(m.usageResets))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *EconomyMetrics
	require.NotPanics(t, func() {
		m.ObserveResult(economy.Result{OK: true})
		m.ObserveUsageReset(1)
		m.ObserveNotification("sent")
	})
}
