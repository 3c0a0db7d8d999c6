package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"spot-trading-engine/pkg/types"
)

type MetricsTestSuite struct {
	suite.Suite
	reg     *prometheus.Registry
	metrics *Metrics
}

func TestMetricsTestSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (s *MetricsTestSuite) SetupTest() {
	s.reg = prometheus.NewRegistry()
	s.metrics = New(s.reg)
}

func (s *MetricsTestSuite) TestOrdersBySide() {
	s.metrics.OrderSubmitted(types.SideBuy)
	s.metrics.OrderSubmitted(types.SideBuy)
	s.metrics.OrderFailed(types.SideSell)

	s.Equal(2.0, testutil.ToFloat64(s.metrics.OrdersSubmitted.WithLabelValues("BUY")))
	s.Equal(0.0, testutil.ToFloat64(s.metrics.OrdersSubmitted.WithLabelValues("SELL")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.OrdersFailed.WithLabelValues("SELL")))
}

func (s *MetricsTestSuite) TestTradeClosedLabels() {
	s.metrics.TradeClosed(types.TradeOutcome{Strategy: types.StrategyTrend, Reason: types.ExitTrailingStop})

	s.Equal(1.0, testutil.ToFloat64(s.metrics.TradesClosed.WithLabelValues("trend", "trailing_stop")))
}

func (s *MetricsTestSuite) TestObserveRisk() {
	s.metrics.ObserveRisk(types.RiskState{Halted: true, DailyPnLPct: -0.025})
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RiskHalted))
	s.Equal(-0.025, testutil.ToFloat64(s.metrics.DailyPnL))

	s.metrics.ObserveRisk(types.RiskState{})
	s.Equal(0.0, testutil.ToFloat64(s.metrics.RiskHalted))
}

func (s *MetricsTestSuite) TestRegisteredOnRegistry() {
	s.metrics.EntrySignal(types.StrategyReversal)
	s.metrics.ObserveMarket(true)

	families, err := s.reg.Gather()
	s.Require().NoError(err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	s.Contains(names, "spot_engine_entry_signals_total")
	s.Contains(names, "spot_engine_market_safe")
	s.Contains(names, "spot_engine_positions_open")
}

func (s *MetricsTestSuite) TestNilRegistry() {
	s.NotPanics(func() {
		m := New(nil)
		m.OrderSubmitted(types.SideBuy)
	})
}
