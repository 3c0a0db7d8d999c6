package tuner

import (
	"sync"

	"go.uber.org/zap"

	"spot-trading-engine/pkg/types"
)

const (
	tightenProfitFactor = 1.1
	loosenProfitFactor  = 1.5
	loosenMinEV         = 0.001
)

// Tuner adapts the entry parameters of one strategy variant from its recent
// realized returns. Adjustments are clamped steps away from the defaults,
// never cumulative, so Suggest depends on the window alone.
type Tuner struct {
	kind     types.StrategyKind
	defaults types.TradeParams
	bounds   types.TunerBounds
	logger   *zap.Logger

	mu     sync.RWMutex
	window *Window
	last   Regime
}

// Regime is the last policy branch taken.
type Regime string

const (
	RegimeDefault Regime = "default"
	RegimeTighten Regime = "tighten"
	RegimeLoosen  Regime = "loosen"
)

func New(kind types.StrategyKind, defaults types.TradeParams, bounds types.TunerBounds, capacity int, logger *zap.Logger) *Tuner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tuner{
		kind:     kind,
		defaults: defaults,
		bounds:   bounds,
		logger:   logger.With(zap.String("strategy", string(kind))),
		window:   NewWindow(capacity),
		last:     RegimeDefault,
	}
}

func (t *Tuner) Kind() types.StrategyKind { return t.kind }

func (t *Tuner) Defaults() types.TradeParams { return t.defaults }

// Feedback records one realized net return.
func (t *Tuner) Feedback(ret float64) {
	t.mu.Lock()
	t.window.Add(ret)
	n := t.window.Len()
	t.mu.Unlock()

	t.logger.Debug("📝 Recorded trade outcome", zap.Float64("net_pct", ret*100), zap.Int("window", n))
}

// Stats summarizes the current window.
func (t *Tuner) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return ComputeStats(t.window.returns)
}

// Suggest returns the parameters to trade with next.
func (t *Tuner) Suggest() types.TradeParams {
	t.mu.RLock()
	stats := ComputeStats(t.window.returns)
	t.mu.RUnlock()

	params, regime := t.adjust(stats)

	t.mu.Lock()
	changed := regime != t.last
	t.last = regime
	t.mu.Unlock()

	if changed {
		t.logger.Info("🎛️ Tuner regime changed",
			zap.String("regime", string(regime)),
			zap.Float64("win_rate", stats.WinRate),
			zap.Float64("profit_factor", stats.ProfitFactor),
			zap.Float64("ev", stats.ExpectedValue),
			zap.Float64("k", params.K),
			zap.Float64("rsi", params.RSIBuyThreshold),
			zap.Float64("volume", params.VolumeMultiplier),
		)
	}
	return params
}

// Override is Suggest as a full ParamOverride, nil while the window is empty.
func (t *Tuner) Override() *types.ParamOverride {
	t.mu.RLock()
	empty := t.window.Len() == 0
	t.mu.RUnlock()
	if empty {
		return nil
	}
	return types.OverrideFrom(t.Suggest())
}

func (t *Tuner) adjust(stats Stats) (types.TradeParams, Regime) {
	params := t.defaults
	if stats.Trades == 0 {
		return params, RegimeDefault
	}

	// A stricter oversold reading is a lower threshold for reversal and a
	// higher momentum floor for trend.
	stricterRSI := func(v, step float64) float64 { return lower(v, step, t.bounds.RSIMin) }
	looserRSI := func(v, step float64) float64 { return raise(v, step, t.bounds.RSIMax) }
	if t.kind == types.StrategyTrend {
		stricterRSI = func(v, step float64) float64 { return raise(v, step, t.bounds.RSIMax) }
		looserRSI = func(v, step float64) float64 { return lower(v, step, t.bounds.RSIMin) }
	}

	switch {
	case stats.ExpectedValue < 0 || stats.ProfitFactor < tightenProfitFactor:
		params.K = raise(params.K, 0.05, t.bounds.KMax)
		params.RSIBuyThreshold = stricterRSI(params.RSIBuyThreshold, 2)
		params.VolumeMultiplier = raise(params.VolumeMultiplier, 0.2, t.bounds.VolMax)
		return params, RegimeTighten
	case stats.ProfitFactor > loosenProfitFactor && stats.ExpectedValue > loosenMinEV:
		params.K = lower(params.K, 0.02, t.bounds.KMin)
		params.RSIBuyThreshold = looserRSI(params.RSIBuyThreshold, 1)
		params.VolumeMultiplier = lower(params.VolumeMultiplier, 0.1, t.bounds.VolMin)
		return params, RegimeLoosen
	}
	return params, RegimeDefault
}

// raise steps v up without passing ceiling, and never moves it down.
func raise(v, step, ceiling float64) float64 {
	if v >= ceiling {
		return v
	}
	if v+step > ceiling {
		return ceiling
	}
	return v + step
}

// lower steps v down without passing floor, and never moves it up.
func lower(v, step, floor float64) float64 {
	if v <= floor {
		return v
	}
	if v-step < floor {
		return floor
	}
	return v - step
}
