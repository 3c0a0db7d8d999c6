package types

import "time"

type StrategyKind string

const (
	StrategyTrend    StrategyKind = "trend"
	StrategyReversal StrategyKind = "reversal"
)

type PositionState int

const (
	PositionEmpty PositionState = iota
	PositionEntering
	PositionOpen
	PositionExiting
)

func (s PositionState) String() string {
	switch s {
	case PositionEmpty:
		return "EMPTY"
	case PositionEntering:
		return "ENTERING"
	case PositionOpen:
		return "OPEN"
	case PositionExiting:
		return "EXITING"
	}
	return "UNKNOWN"
}

type ExitReason string

const (
	ExitNone         ExitReason = ""
	ExitMaxHold      ExitReason = "max_hold"
	ExitStopLoss     ExitReason = "stop_loss"
	ExitBreakeven    ExitReason = "breakeven"
	ExitTrailingStop ExitReason = "trailing_stop"
	ExitMeanTarget   ExitReason = "mean_target"
)

type Position struct {
	Symbol     Symbol
	Strategy   StrategyKind
	State      PositionState
	EntryPrice float64
	Quantity   float64
	Notional   float64
	EntryTime  time.Time

	// Risk bands fixed at entry.
	StopLossPct   float64
	TakeProfitPct float64

	// Trailing state, updated on every exit check.
	HighWater     float64
	PeakPnL       float64
	TrailingArmed bool

	Confidence  float64
	EntryReason string
	OrderID     string
}

// GrossPnLPct is the price move since entry as a fraction, before fees.
func (p Position) GrossPnLPct(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice
}
