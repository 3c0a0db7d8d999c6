package strategy

import (
	"fmt"
	"time"

	"spot-trading-engine/pkg/types"
)

// TrendEvaluator enters on a volatility breakout above the previous bar's
// range, confirmed by trend, momentum and volume.
type TrendEvaluator struct {
	evaluator
	cfg types.TrendConfig
}

func NewTrendEvaluator(cfg types.TrendConfig, exits types.ExitConfig, loc *time.Location) *TrendEvaluator {
	return &TrendEvaluator{
		evaluator: evaluator{
			kind:     types.StrategyTrend,
			defaults: cfg.Params,
			exits:    NewExitPolicy(exits),
			indicators: NewIndicatorEngine(IndicatorSettings{
				ShortWindow:  cfg.ShortWindow,
				LongWindow:   cfg.LongWindow,
				BandWindow:   cfg.LongWindow,
				BandK:        cfg.BandK,
				VolumeWindow: cfg.VolumeWindow,
				ATRPeriod:    cfg.ATRPeriod,
				Location:     loc,
			}),
		},
		cfg: cfg,
	}
}

func (t *TrendEvaluator) EvaluateEntry(tick types.Ticker, override *types.ParamOverride) bool {
	snap, ok := t.indicators.Snapshot()
	if !ok {
		t.setReason("collecting data")
		return false
	}

	params := t.defaults.Apply(override)
	price := tick.LastPrice
	target := snap.Open + params.K*snap.PrevRange

	switch {
	case price <= 0:
		t.setReason("no price")
	case price < target:
		t.setReason(fmt.Sprintf("waiting for breakout %.6g (now %.6g)", target, price))
	case price <= snap.LongMA:
		t.setReason(fmt.Sprintf("below MA%d %.6g", t.cfg.LongWindow, snap.LongMA))
	case snap.RSI < params.RSIBuyThreshold:
		t.setReason(fmt.Sprintf("RSI %.1f below %.1f", snap.RSI, params.RSIBuyThreshold))
	case snap.RSI >= t.cfg.RSIOverbought:
		t.setReason(fmt.Sprintf("RSI %.1f overbought", snap.RSI))
	case snap.VolumeRatio < params.VolumeMultiplier:
		t.setReason(fmt.Sprintf("volume x%.2f below x%.2f", snap.VolumeRatio, params.VolumeMultiplier))
	case t.cfg.RequireHigherTrend && !snap.HigherTrendUp:
		t.setReason("higher timeframe not trending up")
	default:
		t.setReason(fmt.Sprintf("breakout %.6g >= %.6g, RSI %.1f, volume x%.2f", price, target, snap.RSI, snap.VolumeRatio))
		return true
	}
	return false
}

func (t *TrendEvaluator) EvaluateExit(pos *types.Position, price float64, now time.Time) types.ExitReason {
	return t.exits.Evaluate(pos, price, now)
}

// RiskBands scales stop and take with ATR when it is known, falling back to
// the fixed params otherwise.
func (t *TrendEvaluator) RiskBands(entryPrice float64, params types.TradeParams) (float64, float64) {
	snap, ok := t.indicators.Snapshot()
	if !ok || snap.ATR <= 0 || entryPrice <= 0 || t.cfg.StopATRMultiple <= 0 || t.cfg.TakeATRMultiple <= 0 {
		return params.StopLossPct, params.TakeProfitPct
	}

	volatility := snap.ATR / entryPrice
	stop := clamp(t.cfg.StopATRMultiple*volatility, t.cfg.StopFloor, t.cfg.StopCeiling)
	take := clamp(t.cfg.TakeATRMultiple*volatility, t.cfg.TakeFloor, t.cfg.TakeCeiling)
	return stop, take
}

// Confidence grows with higher timeframe agreement, price above the session
// VWAP and a strong volume surge.
func (t *TrendEvaluator) Confidence(tick types.Ticker) float64 {
	snap, ok := t.indicators.Snapshot()
	if !ok {
		return 0.5
	}

	confidence := 0.6
	if snap.HigherTrendUp {
		confidence += 0.2
	}
	if snap.VWAP > 0 && tick.LastPrice > snap.VWAP {
		confidence += 0.1
	}
	if snap.VolumeRatio >= 2*t.defaults.VolumeMultiplier {
		confidence += 0.1
	}
	return clamp(confidence, 0, 1)
}
