package types

import "github.com/moznion/go-optional"

// TradeParams is the tunable parameter bundle of a strategy variant.
type TradeParams struct {
	K                float64 `yaml:"k" json:"k" validate:"gte=0"`
	RSIBuyThreshold  float64 `yaml:"rsi_buy_threshold" json:"rsi_buy_threshold" validate:"gte=0,lte=100"`
	StopLossPct      float64 `yaml:"stop_loss_pct" json:"stop_loss_pct" validate:"gt=0,lt=1"`
	TakeProfitPct    float64 `yaml:"take_profit_pct" json:"take_profit_pct" validate:"gt=0"`
	VolumeMultiplier float64 `yaml:"volume_multiplier" json:"volume_multiplier" validate:"gte=0"`
}

// ParamOverride replaces individual TradeParams fields for a single
// evaluation. Unset fields fall back to the evaluator defaults.
type ParamOverride struct {
	K                optional.Option[float64]
	RSIBuyThreshold  optional.Option[float64]
	StopLossPct      optional.Option[float64]
	TakeProfitPct    optional.Option[float64]
	VolumeMultiplier optional.Option[float64]
}

// OverrideFrom builds an override setting every field of p.
func OverrideFrom(p TradeParams) *ParamOverride {
	return &ParamOverride{
		K:                optional.Some(p.K),
		RSIBuyThreshold:  optional.Some(p.RSIBuyThreshold),
		StopLossPct:      optional.Some(p.StopLossPct),
		TakeProfitPct:    optional.Some(p.TakeProfitPct),
		VolumeMultiplier: optional.Some(p.VolumeMultiplier),
	}
}

// Apply returns a copy of p with the fields set in o replaced. A nil
// override returns p unchanged.
func (p TradeParams) Apply(o *ParamOverride) TradeParams {
	if o == nil {
		return p
	}
	out := p
	if o.K.IsSome() {
		out.K = o.K.Unwrap()
	}
	if o.RSIBuyThreshold.IsSome() {
		out.RSIBuyThreshold = o.RSIBuyThreshold.Unwrap()
	}
	if o.StopLossPct.IsSome() {
		out.StopLossPct = o.StopLossPct.Unwrap()
	}
	if o.TakeProfitPct.IsSome() {
		out.TakeProfitPct = o.TakeProfitPct.Unwrap()
	}
	if o.VolumeMultiplier.IsSome() {
		out.VolumeMultiplier = o.VolumeMultiplier.Unwrap()
	}
	return out
}
