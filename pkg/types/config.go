package types

import "time"

// Config represents the bot configuration
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Telegram TelegramConfig `yaml:"telegram"`
	Engine   EngineConfig   `yaml:"engine"`
	Risk     RiskConfig     `yaml:"risk"`
	Exit     ExitConfig     `yaml:"exit"`
	Strategy StrategyConfig `yaml:"strategy"`
	Tuner    TunerConfig    `yaml:"tuner"`
	Commands CommandConfig  `yaml:"commands"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ExchangeConfig struct {
	ID           string  `yaml:"id" validate:"required"`
	APIKey       string  `yaml:"api_key" validate:"required_if=DryRun false"`
	SecretKey    string  `yaml:"secret_key" validate:"required_if=DryRun false"`
	Testnet      bool    `yaml:"testnet"`
	DryRun       bool    `yaml:"dry_run"`
	QuoteAsset   string  `yaml:"quote_asset" validate:"required"`
	PaperBalance float64 `yaml:"paper_balance" validate:"gte=0"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" validate:"required_if=Enabled true"`
	ChatID   string `yaml:"chat_id" validate:"required_if=Enabled true"`
	Enabled  bool   `yaml:"enabled"`
}

type EngineConfig struct {
	Symbols         []string `yaml:"symbols" validate:"required,min=1,dive,required"`
	MaxPositions    int      `yaml:"max_positions" validate:"gte=1"`
	Timezone        string   `yaml:"timezone" validate:"required"`
	ReferenceSymbol string   `yaml:"reference_symbol" validate:"required"`

	// Leaders limits entry scans to the N best scored symbols, 0 scans all.
	Leaders        int    `yaml:"leaders" validate:"gte=0"`
	LeaderInterval string `yaml:"leader_interval" validate:"required"`

	CandleInterval string `yaml:"candle_interval" validate:"required"`
	CandleLimit    int    `yaml:"candle_limit" validate:"gte=30"`
	HigherInterval string `yaml:"higher_interval" validate:"required"`
	HigherLimit    int    `yaml:"higher_limit" validate:"gte=20"`

	MonitorInterval     time.Duration `yaml:"monitor_interval" validate:"gt=0"`
	ScanInterval        time.Duration `yaml:"scan_interval" validate:"gt=0"`
	SymbolPause         time.Duration `yaml:"symbol_pause" validate:"gte=0"`
	IndicatorRefresh    time.Duration `yaml:"indicator_refresh" validate:"gt=0"`
	MarketCheckInterval time.Duration `yaml:"market_check_interval" validate:"gt=0"`
	ReportInterval      time.Duration `yaml:"report_interval" validate:"gt=0"`
	Cooldown            time.Duration `yaml:"cooldown" validate:"gte=0"`
}

type RiskConfig struct {
	DailyLossPct         float64 `yaml:"daily_loss_pct" validate:"gt=0,lt=1"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses" validate:"gte=1"`
	LossTolerance        float64 `yaml:"loss_tolerance" validate:"gte=0"`
	SafetyMargin         float64 `yaml:"safety_margin" validate:"gt=0,lte=1"`
	MinNotional          float64 `yaml:"min_notional" validate:"gte=0"`
	MaxVolatility        float64 `yaml:"max_volatility" validate:"gt=0"`
}

type ExitConfig struct {
	FeePct           float64       `yaml:"fee_pct" validate:"gte=0"`
	BreakevenTrigger float64       `yaml:"breakeven_trigger" validate:"gte=0"`
	BreakevenFloor   float64       `yaml:"breakeven_floor" validate:"gte=0"`
	TrailingCallback float64       `yaml:"trailing_callback" validate:"gt=0,lt=1"`
	MaxHold          time.Duration `yaml:"max_hold" validate:"gte=0"`
}

type StrategyConfig struct {
	Trend    TrendConfig    `yaml:"trend"`
	Reversal ReversalConfig `yaml:"reversal"`
}

type TrendConfig struct {
	Enabled            bool        `yaml:"enabled"`
	Params             TradeParams `yaml:"params"`
	RSIOverbought      float64     `yaml:"rsi_overbought" validate:"gt=0,lte=100"`
	ShortWindow        int         `yaml:"short_window" validate:"gte=1"`
	LongWindow         int         `yaml:"long_window" validate:"gte=2"`
	BandK              float64     `yaml:"band_k" validate:"gt=0"`
	VolumeWindow       int         `yaml:"volume_window" validate:"gte=1"`
	ATRPeriod          int         `yaml:"atr_period" validate:"gte=1"`
	RequireHigherTrend bool        `yaml:"require_higher_trend"`

	// Volatility scaled risk bands, multiples of ATR/entry.
	StopATRMultiple float64 `yaml:"stop_atr_multiple" validate:"gte=0"`
	TakeATRMultiple float64 `yaml:"take_atr_multiple" validate:"gte=0"`
	StopFloor       float64 `yaml:"stop_floor" validate:"gte=0"`
	StopCeiling     float64 `yaml:"stop_ceiling" validate:"gtefield=StopFloor"`
	TakeFloor       float64 `yaml:"take_floor" validate:"gte=0"`
	TakeCeiling     float64 `yaml:"take_ceiling" validate:"gtefield=TakeFloor"`
}

type ReversalConfig struct {
	Enabled        bool        `yaml:"enabled"`
	Params         TradeParams `yaml:"params"`
	BandK          float64     `yaml:"band_k" validate:"gt=0"`
	BandWindow     int         `yaml:"band_window" validate:"gte=2"`
	BandTolerance  float64     `yaml:"band_tolerance" validate:"gte=0"`
	VolumeWindow   int         `yaml:"volume_window" validate:"gte=1"`
	ATRPeriod      int         `yaml:"atr_period" validate:"gte=1"`
	MeanTargetExit bool        `yaml:"mean_target_exit"`
}

type TunerConfig struct {
	Window   int         `yaml:"window" validate:"gte=1"`
	Trend    TunerBounds `yaml:"trend"`
	Reversal TunerBounds `yaml:"reversal"`
}

// TunerBounds clamps the adaptive adjustments of one strategy variant.
type TunerBounds struct {
	KMin   float64 `yaml:"k_min"`
	KMax   float64 `yaml:"k_max" validate:"gtefield=KMin"`
	RSIMin float64 `yaml:"rsi_min"`
	RSIMax float64 `yaml:"rsi_max" validate:"gtefield=RSIMin"`
	VolMin float64 `yaml:"vol_min"`
	VolMax float64 `yaml:"vol_max" validate:"gtefield=VolMin"`
}

type CommandConfig struct {
	Pause  []string `yaml:"pause"`
	Resume []string `yaml:"resume"`
	Status []string `yaml:"status"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}
