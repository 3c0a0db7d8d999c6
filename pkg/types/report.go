package types

import "time"

// StatusReport is the engine state rendered by the status command, the
// hourly heartbeat and the HTTP status endpoint.
type StatusReport struct {
	Time         time.Time        `json:"time"`
	Daily        bool             `json:"daily"`
	DryRun       bool             `json:"dry_run"`
	QuoteAsset   string           `json:"quote_asset"`
	FreeQuote    float64          `json:"free_quote"`
	Equity       float64          `json:"equity"`
	Risk         RiskState        `json:"risk"`
	MarketSafe   bool             `json:"market_safe"`
	MarketReason string           `json:"market_reason"`
	Positions    []PositionReport `json:"positions"`
	Leaders      []Symbol         `json:"leaders"`
	Watch        []SymbolReason   `json:"watch"`
	Tuners       []TunerReport    `json:"tuners"`
}

type PositionReport struct {
	Symbol      Symbol        `json:"symbol"`
	Strategy    StrategyKind  `json:"strategy"`
	State       string        `json:"state"`
	EntryPrice  float64       `json:"entry_price"`
	LastPrice   float64       `json:"last_price"`
	Quantity    float64       `json:"quantity"`
	PnLPct      float64       `json:"pnl_pct"`
	Trailing    bool          `json:"trailing"`
	EntryReason string        `json:"entry_reason"`
	HeldFor     time.Duration `json:"held_for"`
}

// SymbolReason is why a symbol is not being entered right now.
type SymbolReason struct {
	Symbol   Symbol       `json:"symbol"`
	Strategy StrategyKind `json:"strategy,omitempty"`
	Reason   string       `json:"reason"`
}

type TunerReport struct {
	Strategy      StrategyKind `json:"strategy"`
	Trades        int          `json:"trades"`
	WinRate       float64      `json:"win_rate"`
	ProfitFactor  float64      `json:"profit_factor"`
	ExpectedValue float64      `json:"expected_value"`
	Params        TradeParams  `json:"params"`
}
