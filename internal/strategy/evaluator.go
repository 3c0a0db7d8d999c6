package strategy

import (
	"math"
	"sync"
	"time"

	"spot-trading-engine/pkg/types"
)

// Evaluator is one strategy variant bound to one symbol. It owns the
// indicator state of that symbol and decides entries and exits from it.
type Evaluator interface {
	Kind() types.StrategyKind
	Defaults() types.TradeParams
	Refresh(bars, higher []types.Kline, now time.Time) bool
	Snapshot() (types.IndicatorSnapshot, bool)

	// EvaluateEntry reports whether tick is an entry. Fields set in override
	// replace the defaults for this call only.
	EvaluateEntry(tick types.Ticker, override *types.ParamOverride) bool

	// EvaluateExit updates the trailing state of pos and returns the exit
	// reason, ExitNone to keep holding.
	EvaluateExit(pos *types.Position, price float64, now time.Time) types.ExitReason

	RiskBands(entryPrice float64, params types.TradeParams) (stopLoss, takeProfit float64)
	Size(budget, price float64) float64
	Confidence(tick types.Ticker) float64
	LastReason() string
}

// ExitPolicy is the exit ladder shared by every variant.
type ExitPolicy struct {
	FeePct           float64
	BreakevenTrigger float64
	BreakevenFloor   float64
	TrailingCallback float64
	MaxHold          time.Duration
}

func NewExitPolicy(cfg types.ExitConfig) ExitPolicy {
	return ExitPolicy{
		FeePct:           cfg.FeePct,
		BreakevenTrigger: cfg.BreakevenTrigger,
		BreakevenFloor:   cfg.BreakevenFloor,
		TrailingCallback: cfg.TrailingCallback,
		MaxHold:          cfg.MaxHold,
	}
}

// NetPnL is the return of pos at price after the round trip fee.
func (p ExitPolicy) NetPnL(pos *types.Position, price float64) float64 {
	return pos.GrossPnLPct(price) - p.FeePct
}

// Evaluate runs the ladder in order: max hold, stop loss, breakeven,
// trailing arm, trailing stop. It mutates the trailing fields of pos.
func (p ExitPolicy) Evaluate(pos *types.Position, price float64, now time.Time) types.ExitReason {
	if pos == nil || pos.EntryPrice <= 0 || price <= 0 {
		return types.ExitNone
	}

	net := p.NetPnL(pos, price)
	pos.HighWater = math.Max(pos.HighWater, price)
	pos.PeakPnL = math.Max(pos.PeakPnL, net)

	if p.MaxHold > 0 && !pos.EntryTime.IsZero() && now.Sub(pos.EntryTime) >= p.MaxHold {
		return types.ExitMaxHold
	}
	if net <= -pos.StopLossPct {
		return types.ExitStopLoss
	}
	if p.BreakevenTrigger > 0 && pos.PeakPnL >= p.BreakevenTrigger && net <= p.BreakevenFloor {
		return types.ExitBreakeven
	}
	if net >= pos.TakeProfitPct {
		pos.TrailingArmed = true
	}
	if pos.TrailingArmed && price <= pos.HighWater*(1-p.TrailingCallback) {
		return types.ExitTrailingStop
	}
	return types.ExitNone
}

// evaluator carries the state every variant shares.
type evaluator struct {
	kind       types.StrategyKind
	defaults   types.TradeParams
	indicators *IndicatorEngine
	exits      ExitPolicy

	mu         sync.Mutex
	lastReason string
}

func (e *evaluator) Kind() types.StrategyKind { return e.kind }

func (e *evaluator) Defaults() types.TradeParams { return e.defaults }

func (e *evaluator) Refresh(bars, higher []types.Kline, now time.Time) bool {
	if !e.indicators.Refresh(bars, higher, now) {
		e.setReason("collecting data")
		return false
	}
	return true
}

func (e *evaluator) Snapshot() (types.IndicatorSnapshot, bool) {
	return e.indicators.Snapshot()
}

// Size converts a quote budget into a base quantity.
func (e *evaluator) Size(budget, price float64) float64 {
	if budget <= 0 || price <= 0 {
		return 0
	}
	return budget / price
}

func (e *evaluator) LastReason() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastReason
}

func (e *evaluator) setReason(reason string) {
	e.mu.Lock()
	e.lastReason = reason
	e.mu.Unlock()
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
