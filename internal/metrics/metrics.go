// Package metrics holds the Prometheus collectors of the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"spot-trading-engine/pkg/types"
)

const namespace = "spot_engine"

type Metrics struct {
	OrdersSubmitted *prometheus.CounterVec
	OrdersFailed    *prometheus.CounterVec
	EntrySignals    *prometheus.CounterVec
	TradesClosed    *prometheus.CounterVec
	PositionsOpen   prometheus.Gauge
	RiskHalted      prometheus.Gauge
	DailyPnL        prometheus.Gauge
	Equity          prometheus.Gauge
	MarketSafe      prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Orders accepted by the gateway, by side.",
		}, []string{"side"}),
		OrdersFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_failed_total",
			Help:      "Orders the gateway failed or rejected, by side.",
		}, []string{"side"}),
		EntrySignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_signals_total",
			Help:      "Entry signals raised, by strategy.",
		}, []string{"strategy"}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_closed_total",
			Help:      "Closed trades, by strategy and exit reason.",
		}, []string{"strategy", "reason"}),
		PositionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "positions_open",
			Help:      "Symbols currently holding a position.",
		}),
		RiskHalted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risk_halted",
			Help:      "1 while new entries are halted.",
		}),
		DailyPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_pnl_ratio",
			Help:      "Equity change since the session baseline.",
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "equity",
			Help:      "Quote balance plus open positions at last price.",
		}),
		MarketSafe: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "market_safe",
			Help:      "1 while the reference market allows entries.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.OrdersSubmitted, m.OrdersFailed, m.EntrySignals, m.TradesClosed,
			m.PositionsOpen, m.RiskHalted, m.DailyPnL, m.Equity, m.MarketSafe,
		)
	}
	return m
}

func (m *Metrics) OrderSubmitted(side types.OrderSide) {
	m.OrdersSubmitted.WithLabelValues(string(side)).Inc()
}

func (m *Metrics) OrderFailed(side types.OrderSide) {
	m.OrdersFailed.WithLabelValues(string(side)).Inc()
}

func (m *Metrics) EntrySignal(kind types.StrategyKind) {
	m.EntrySignals.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) TradeClosed(outcome types.TradeOutcome) {
	m.TradesClosed.WithLabelValues(string(outcome.Strategy), string(outcome.Reason)).Inc()
}

// ObserveRisk mirrors the governor state.
func (m *Metrics) ObserveRisk(state types.RiskState) {
	m.RiskHalted.Set(boolGauge(state.Halted))
	m.DailyPnL.Set(state.DailyPnLPct)
}

func (m *Metrics) ObserveMarket(safe bool) {
	m.MarketSafe.Set(boolGauge(safe))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
