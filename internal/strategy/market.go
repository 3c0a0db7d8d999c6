package strategy

import (
	"fmt"
	"sort"

	"spot-trading-engine/pkg/types"
)

// MarketCondition is the verdict of the reference symbol check.
type MarketCondition struct {
	Safe   bool
	Reason string
}

// CheckMarket decides whether the broad market allows new entries, from the
// 1m candles of the reference symbol. The last close must hold within 0.3%
// of the close five bars back, EMA10 must be above EMA30 and ATR14 relative
// to price must stay under maxVolatility. Too little data counts as safe.
func CheckMarket(klines []types.Kline, maxVolatility float64) MarketCondition {
	if len(klines) < 31 {
		return MarketCondition{Safe: true, Reason: "not enough reference data"}
	}

	closes := Closes(klines)
	last := closes[len(closes)-1]
	earlier := closes[len(closes)-5]

	if last <= earlier*0.997 {
		return MarketCondition{Reason: fmt.Sprintf("reference dropping %.6g -> %.6g", earlier, last)}
	}

	ema10 := CalculateEMA(closes, 10)
	ema30 := CalculateEMA(closes, 30)
	if ema10 <= ema30 {
		return MarketCondition{Reason: fmt.Sprintf("EMA10 %.6g below EMA30 %.6g", ema10, ema30)}
	}

	if maxVolatility > 0 && last > 0 {
		if vol := CalculateATR(klines, 14) / last; vol > maxVolatility {
			return MarketCondition{Reason: fmt.Sprintf("volatility %.2f%% above %.2f%%", vol*100, maxVolatility*100)}
		}
	}
	return MarketCondition{Safe: true, Reason: "market stable"}
}

// LeaderScore is the momentum score of one symbol.
type LeaderScore struct {
	Symbol types.Symbol
	Score  float64
}

// RankLeaders sorts scores best first and keeps the top n. Ties keep their
// input order.
func RankLeaders(scores []LeaderScore, n int) []types.Symbol {
	ranked := make([]LeaderScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	leaders := make([]types.Symbol, len(ranked))
	for i, s := range ranked {
		leaders[i] = s.Symbol
	}
	return leaders
}
