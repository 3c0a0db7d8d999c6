package strategy

import (
	"sync"
	"time"

	"spot-trading-engine/pkg/types"
)

// IndicatorSettings are the window lengths one IndicatorEngine computes with.
type IndicatorSettings struct {
	ShortWindow  int
	LongWindow   int
	RSIPeriod    int
	BandWindow   int
	BandK        float64
	VolumeWindow int
	ATRPeriod    int
	HigherWindow int
	Location     *time.Location
}

// IndicatorEngine keeps the latest indicator snapshot of one symbol. A
// refresh with too few bars leaves the previous snapshot in place.
type IndicatorEngine struct {
	settings IndicatorSettings

	mu       sync.RWMutex
	snapshot types.IndicatorSnapshot
	ready    bool
}

func NewIndicatorEngine(settings IndicatorSettings) *IndicatorEngine {
	if settings.RSIPeriod == 0 {
		settings.RSIPeriod = 14
	}
	if settings.HigherWindow == 0 {
		settings.HigherWindow = 20
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &IndicatorEngine{settings: settings}
}

// Refresh recomputes the snapshot from bars (fine timeframe) and higher
// (coarse timeframe). It reports whether the snapshot was replaced.
func (e *IndicatorEngine) Refresh(bars, higher []types.Kline, now time.Time) bool {
	snapshot, ok := ComputeSnapshot(bars, higher, e.settings)
	if !ok {
		return false
	}
	snapshot.UpdatedAt = now

	e.mu.Lock()
	e.snapshot = snapshot
	e.ready = true
	e.mu.Unlock()
	return true
}

// Snapshot returns the latest snapshot and whether one was ever computed.
func (e *IndicatorEngine) Snapshot() (types.IndicatorSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot, e.ready
}

// ComputeSnapshot derives every indicator from the candle series.
func ComputeSnapshot(bars, higher []types.Kline, s IndicatorSettings) (types.IndicatorSnapshot, bool) {
	if len(bars) < MinBars {
		return types.IndicatorSnapshot{}, false
	}

	closes := Closes(bars)
	last := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	upper, middle, lower := CalculateBollingerBands(closes, s.BandWindow, s.BandK)

	snapshot := types.IndicatorSnapshot{
		ShortMA:     CalculateSMA(closes, s.ShortWindow),
		LongMA:      CalculateSMA(closes, s.LongWindow),
		RSI:         CalculateRSI(closes, s.RSIPeriod),
		PrevRSI:     CalculateRSI(closes[:len(closes)-1], s.RSIPeriod),
		UpperBand:   upper,
		MiddleBand:  middle,
		LowerBand:   lower,
		VolumeRatio: CalculateVolumeRatio(Volumes(bars), s.VolumeWindow),
		ATR:         CalculateATR(bars, s.ATRPeriod),
		VWAP:        CalculateSessionVWAP(bars, s.Location),
		Open:        last.Open,
		PrevRange:   prev.High - prev.Low,
		LastClose:   last.Close,
		Bars:        len(bars),
	}

	if len(higher) >= s.HigherWindow {
		coarse := Closes(higher)
		snapshot.HigherTrendUp = coarse[len(coarse)-1] > CalculateSMA(coarse, s.HigherWindow)
	}
	return snapshot, true
}
