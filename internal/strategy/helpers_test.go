package strategy

import (
	"time"

	"spot-trading-engine/pkg/types"
)

var testStart = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// barsFromCloses builds one minute candles whose open is the previous close.
func barsFromCloses(closes []float64, volume float64) []types.Kline {
	bars := make([]types.Kline, len(closes))
	prev := closes[0]
	for i, c := range closes {
		high, low := prev, c
		if c > prev {
			high, low = c, prev
		}
		bars[i] = types.Kline{
			OpenTime:  testStart.Add(time.Duration(i) * time.Minute),
			Open:      prev,
			High:      high + 0.5,
			Low:       low - 0.5,
			Close:     c,
			Volume:    volume,
			CloseTime: testStart.Add(time.Duration(i+1)*time.Minute - time.Millisecond),
		}
		prev = c
	}
	return bars
}

func flatCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func setSnapshot(e *IndicatorEngine, snapshot types.IndicatorSnapshot) {
	e.mu.Lock()
	e.snapshot = snapshot
	e.ready = true
	e.mu.Unlock()
}
