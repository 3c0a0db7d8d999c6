package strategy

import (
	"math"
	"time"

	"spot-trading-engine/pkg/types"
)

// MinBars is the number of candles an indicator refresh needs.
const MinBars = 30

// Closes extracts the close series of klines.
func Closes(klines []types.Kline) []float64 {
	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}
	return closes
}

// Volumes extracts the volume series of klines.
func Volumes(klines []types.Kline) []float64 {
	volumes := make([]float64, len(klines))
	for i, k := range klines {
		volumes[i] = k.Volume
	}
	return volumes
}

// CalculateSMA - Simple Moving Average of the last period values
func CalculateSMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}

	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

// CalculateEMA - Exponential Moving Average with bias correction, the way
// pandas ewm(span=period).mean() weights the whole series.
func CalculateEMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) == 0 {
		return 0
	}

	alpha := 2.0 / float64(period+1)
	weight := 1.0
	num, den := 0.0, 0.0
	for i := len(prices) - 1; i >= 0; i-- {
		num += weight * prices[i]
		den += weight
		weight *= 1 - alpha
	}
	return num / den
}

// CalculateRSI - Relative Strength Index over the last period deltas.
//
// Gains and losses are plain means of the window, no Wilder smoothing.
// A window without losses reads 100, a flat window reads 50.
func CalculateRSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50.0
	}

	gain, loss := 0.0, 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	if loss == 0 {
		if gain == 0 {
			return 50.0
		}
		return 100.0
	}

	rs := gain / loss
	return 100.0 - (100.0 / (1.0 + rs))
}

// CalculateStdDev - sample standard deviation (n-1) of the last period values
func CalculateStdDev(prices []float64, period int) float64 {
	if period < 2 || len(prices) < period {
		return 0
	}

	mean := CalculateSMA(prices, period)
	variance := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		variance += math.Pow(prices[i]-mean, 2)
	}
	return math.Sqrt(variance / float64(period-1))
}

// CalculateBollingerBands - Returns upper, middle, lower bands
func CalculateBollingerBands(prices []float64, period int, stdDev float64) (upper, middle, lower float64) {
	if len(prices) < period {
		return 0, 0, 0
	}

	middle = CalculateSMA(prices, period)
	deviation := CalculateStdDev(prices, period)

	upper = middle + (stdDev * deviation)
	lower = middle - (stdDev * deviation)
	return upper, middle, lower
}

// CalculateATR - Average True Range (volatility indicator)
func CalculateATR(klines []types.Kline, period int) float64 {
	if period <= 0 || len(klines) < period+1 {
		return 0
	}

	trueRanges := make([]float64, 0, len(klines)-1)
	for i := 1; i < len(klines); i++ {
		highLow := klines[i].High - klines[i].Low
		highClose := math.Abs(klines[i].High - klines[i-1].Close)
		lowClose := math.Abs(klines[i].Low - klines[i-1].Close)

		trueRanges = append(trueRanges, math.Max(highLow, math.Max(highClose, lowClose)))
	}

	return CalculateSMA(trueRanges, period)
}

// CalculateVolumeRatio - last volume over the mean of the window before it
func CalculateVolumeRatio(volumes []float64, window int) float64 {
	if window <= 0 || len(volumes) < window+1 {
		return 0
	}

	avg := CalculateSMA(volumes[:len(volumes)-1], window)
	if avg <= 0 {
		return 0
	}
	return volumes[len(volumes)-1] / avg
}

// CalculateSessionVWAP - Volume Weighted Average Price of the bars that
// share the calendar day (in loc) of the last bar.
func CalculateSessionVWAP(klines []types.Kline, loc *time.Location) float64 {
	if len(klines) == 0 {
		return 0
	}
	if loc == nil {
		loc = time.UTC
	}

	y, m, d := klines[len(klines)-1].OpenTime.In(loc).Date()
	totalVolume := 0.0
	vwap := 0.0
	for _, k := range klines {
		ky, km, kd := k.OpenTime.In(loc).Date()
		if ky != y || km != m || kd != d {
			continue
		}
		typicalPrice := (k.High + k.Low + k.Close) / 3
		totalVolume += k.Volume
		vwap += typicalPrice * k.Volume
	}

	if totalVolume == 0 {
		return 0
	}
	return vwap / totalVolume
}

// CalculateLeaderScore - momentum score used to rank symbols:
// 70% of the percent change over the last lookback bars plus 30% of the
// average volume in millions.
func CalculateLeaderScore(klines []types.Kline, lookback int) (float64, bool) {
	if lookback <= 0 || len(klines) < lookback+1 {
		return 0, false
	}

	closes := Closes(klines)
	base := closes[len(closes)-1-lookback]
	if base <= 0 {
		return 0, false
	}
	change := (closes[len(closes)-1] - base) / base * 100
	avgVolume := CalculateSMA(Volumes(klines), len(klines))

	return change*0.7 + (avgVolume/1e6)*0.3, true
}
