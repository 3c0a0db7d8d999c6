package strategy

import (
	"fmt"
	"time"

	"spot-trading-engine/pkg/types"
)

// ReversalEvaluator buys oversold dips under the lower Bollinger band once
// RSI turns up, and takes profit back at the band middle.
type ReversalEvaluator struct {
	evaluator
	cfg types.ReversalConfig
}

func NewReversalEvaluator(cfg types.ReversalConfig, exits types.ExitConfig, loc *time.Location) *ReversalEvaluator {
	return &ReversalEvaluator{
		evaluator: evaluator{
			kind:     types.StrategyReversal,
			defaults: cfg.Params,
			exits:    NewExitPolicy(exits),
			indicators: NewIndicatorEngine(IndicatorSettings{
				ShortWindow:  5,
				LongWindow:   cfg.BandWindow,
				BandWindow:   cfg.BandWindow,
				BandK:        cfg.BandK,
				VolumeWindow: cfg.VolumeWindow,
				ATRPeriod:    cfg.ATRPeriod,
				Location:     loc,
			}),
		},
		cfg: cfg,
	}
}

func (r *ReversalEvaluator) EvaluateEntry(tick types.Ticker, override *types.ParamOverride) bool {
	snap, ok := r.indicators.Snapshot()
	if !ok {
		r.setReason("collecting data")
		return false
	}

	params := r.defaults.Apply(override)
	price := tick.LastPrice
	limit := snap.LowerBand * (1 + r.cfg.BandTolerance)

	switch {
	case price <= 0:
		r.setReason("no price")
	case price > limit:
		r.setReason(fmt.Sprintf("above lower band %.6g (now %.6g)", limit, price))
	case snap.RSI > params.RSIBuyThreshold:
		r.setReason(fmt.Sprintf("RSI %.1f not oversold (%.1f)", snap.RSI, params.RSIBuyThreshold))
	case snap.RSI <= snap.PrevRSI:
		r.setReason(fmt.Sprintf("RSI still falling %.1f <= %.1f", snap.RSI, snap.PrevRSI))
	default:
		r.setReason(fmt.Sprintf("oversold bounce at %.6g, RSI %.1f > %.1f", price, snap.RSI, snap.PrevRSI))
		return true
	}
	return false
}

// EvaluateExit runs the shared ladder, then exits in profit once price is
// back at the band middle.
func (r *ReversalEvaluator) EvaluateExit(pos *types.Position, price float64, now time.Time) types.ExitReason {
	if reason := r.exits.Evaluate(pos, price, now); reason != types.ExitNone {
		return reason
	}
	if !r.cfg.MeanTargetExit || pos == nil {
		return types.ExitNone
	}

	snap, ok := r.indicators.Snapshot()
	if ok && snap.MiddleBand > 0 && price >= snap.MiddleBand && r.exits.NetPnL(pos, price) > 0 {
		return types.ExitMeanTarget
	}
	return types.ExitNone
}

func (r *ReversalEvaluator) RiskBands(_ float64, params types.TradeParams) (float64, float64) {
	return params.StopLossPct, params.TakeProfitPct
}

// Confidence grows with the depth of the dip.
func (r *ReversalEvaluator) Confidence(tick types.Ticker) float64 {
	snap, ok := r.indicators.Snapshot()
	if !ok {
		return 0.5
	}

	confidence := 0.6
	if snap.RSI <= r.defaults.RSIBuyThreshold-5 {
		confidence += 0.2
	}
	if snap.LowerBand > 0 && tick.LastPrice <= snap.LowerBand {
		confidence += 0.2
	}
	return clamp(confidence, 0, 1)
}
