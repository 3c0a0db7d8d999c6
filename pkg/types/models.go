package types

import (
	"strings"
	"time"

	"github.com/moznion/go-optional"
)

// Symbol is a tradable pair written as "BASE/QUOTE", e.g. "BTC/USDT".
type Symbol string

// Base returns the base asset ("BTC" for "BTC/USDT").
func (s Symbol) Base() string {
	base, _, _ := strings.Cut(string(s), "/")
	return base
}

// Quote returns the quote asset ("USDT" for "BTC/USDT").
func (s Symbol) Quote() string {
	_, quote, _ := strings.Cut(string(s), "/")
	return quote
}

// Compact drops the separator, the form exchanges use on the wire.
func (s Symbol) Compact() string {
	return strings.ReplaceAll(string(s), "/", "")
}

func (s Symbol) String() string { return string(s) }

type Ticker struct {
	Symbol             Symbol
	LastPrice          float64
	BaseVolume         float64
	QuoteVolume        float64
	PriceChangePercent float64
	Timestamp          time.Time
}

type Kline struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Balance mirrors the exchange account: free and total amount per asset.
type Balance struct {
	Free  map[string]float64
	Total map[string]float64
}

// FreeOf returns the free amount of asset, zero when absent.
func (b Balance) FreeOf(asset string) float64 {
	return b.Free[asset]
}

// TotalOf returns the total amount of asset, zero when absent.
func (b Balance) TotalOf(asset string) float64 {
	return b.Total[asset]
}

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderRequest describes one order. A market buy is sized by QuoteAmount,
// a sell by Quantity. Setting Price turns it into a limit order.
type OrderRequest struct {
	Symbol        Symbol
	Side          OrderSide
	Quantity      float64
	QuoteAmount   float64
	Price         optional.Option[float64]
	ClientOrderID string
}

// IsLimit reports whether the request carries a limit price.
func (r OrderRequest) IsLimit() bool {
	return r.Price.IsSome()
}

type Order struct {
	ID            string
	ClientOrderID string
	Symbol        Symbol
	Side          OrderSide
	Status        string
	Price         float64 // average fill price
	Quantity      float64 // executed base quantity
	QuoteQuantity float64 // executed quote amount
	Timestamp     time.Time
}

// IndicatorSnapshot is the full indicator set computed for one symbol on one
// refresh. It is always replaced as a whole.
type IndicatorSnapshot struct {
	ShortMA       float64
	LongMA        float64
	RSI           float64
	PrevRSI       float64
	UpperBand     float64
	MiddleBand    float64
	LowerBand     float64
	VolumeRatio   float64
	ATR           float64
	VWAP          float64
	HigherTrendUp bool
	Open          float64 // open of the latest bar
	PrevRange     float64 // high - low of the previous bar
	LastClose     float64
	Bars          int
	UpdatedAt     time.Time
}

// TradeOutcome is a realized trade reported back to the tuner and governor.
type TradeOutcome struct {
	Symbol     Symbol
	Strategy   StrategyKind
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	NetPnLPct  float64 // fraction after fees, 0.01 = 1%
	Reason     ExitReason
	EntryTime  time.Time
	ClosedAt   time.Time
}
