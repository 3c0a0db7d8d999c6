package types

// RiskState is a point in time copy of the risk governor.
type RiskState struct {
	SessionStartBalance float64 `json:"session_start_balance"`
	ConsecutiveLosses   int     `json:"consecutive_losses"`
	DailyPnLPct         float64 `json:"daily_pnl_pct"`
	Halted              bool    `json:"halted"`
	HaltReason          string  `json:"halt_reason,omitempty"`
	Day                 string  `json:"day"` // YYYY-MM-DD in the configured zone
	TradesToday         int     `json:"trades_today"`
	WinsToday           int     `json:"wins_today"`
}
