package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"spot-trading-engine/pkg/errors"
	"spot-trading-engine/pkg/types"
)

// SupportedExchanges lists the exchange ids a gateway exists for.
var SupportedExchanges = []string{"binance"}

// Default returns the configuration used for every field the file and the
// environment leave unset.
func Default() types.Config {
	var c types.Config

	c.Exchange.ID = "binance"
	c.Exchange.DryRun = true
	c.Exchange.QuoteAsset = "USDT"
	c.Exchange.PaperBalance = 10000

	c.Engine.Symbols = []string{"BTC/USDT", "ETH/USDT", "XRP/USDT", "SOL/USDT", "DOGE/USDT"}
	c.Engine.MaxPositions = 3
	c.Engine.Timezone = "UTC"
	c.Engine.ReferenceSymbol = "BTC/USDT"
	c.Engine.LeaderInterval = "15m"
	c.Engine.CandleInterval = "1m"
	c.Engine.CandleLimit = 100
	c.Engine.HigherInterval = "15m"
	c.Engine.HigherLimit = 50
	c.Engine.MonitorInterval = time.Second
	c.Engine.ScanInterval = time.Second
	c.Engine.SymbolPause = 200 * time.Millisecond
	c.Engine.IndicatorRefresh = time.Minute
	c.Engine.MarketCheckInterval = 10 * time.Second
	c.Engine.ReportInterval = time.Hour
	c.Engine.Cooldown = 5 * time.Minute

	c.Risk.DailyLossPct = 0.02
	c.Risk.MaxConsecutiveLosses = 5
	c.Risk.LossTolerance = 0.001
	c.Risk.SafetyMargin = 0.95
	c.Risk.MinNotional = 5.05
	c.Risk.MaxVolatility = 0.01

	c.Exit.FeePct = 0.001
	c.Exit.BreakevenTrigger = 0.004
	c.Exit.BreakevenFloor = 0.0005
	c.Exit.TrailingCallback = 0.003

	c.Strategy.Trend = types.TrendConfig{
		Enabled: true,
		Params: types.TradeParams{
			K:                0.4,
			RSIBuyThreshold:  45,
			StopLossPct:      0.008,
			TakeProfitPct:    0.015,
			VolumeMultiplier: 1.2,
		},
		RSIOverbought:   70,
		ShortWindow:     5,
		LongWindow:      20,
		BandK:           2.0,
		VolumeWindow:    20,
		ATRPeriod:       14,
		StopATRMultiple: 1.5,
		TakeATRMultiple: 3.0,
		StopFloor:       0.004,
		StopCeiling:     0.015,
		TakeFloor:       0.008,
		TakeCeiling:     0.03,
	}
	c.Strategy.Reversal = types.ReversalConfig{
		Enabled: true,
		Params: types.TradeParams{
			K:                0.5,
			RSIBuyThreshold:  25,
			StopLossPct:      0.012,
			TakeProfitPct:    0.02,
			VolumeMultiplier: 1.0,
		},
		BandK:          2.5,
		BandWindow:     20,
		BandTolerance:  0.002,
		VolumeWindow:   20,
		ATRPeriod:      14,
		MeanTargetExit: true,
	}

	c.Tuner.Window = 50
	c.Tuner.Trend = types.TunerBounds{KMin: 0.3, KMax: 0.9, RSIMin: 30, RSIMax: 55, VolMin: 1.0, VolMax: 4.0}
	c.Tuner.Reversal = types.TunerBounds{KMin: 0.3, KMax: 0.9, RSIMin: 15, RSIMax: 35, VolMin: 0.8, VolMax: 4.0}

	c.Commands.Pause = []string{"pause", "stop", "종료"}
	c.Commands.Resume = []string{"resume", "start", "시작"}
	c.Commands.Status = []string{"status", "report", "보고"}

	c.Log.Level = "info"
	return c
}

// Load reads the .env file (if any), the YAML file at path (if it exists),
// applies environment overrides and validates the result.
func Load(path, envFile string) (*types.Config, error) {
	if envFile != "" {
		// A missing .env is not an error, the environment may be set directly.
		_ = godotenv.Load(envFile)
	}

	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read config", err)
		}
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}
	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks field constraints and the exchange id.
func Validate(config *types.Config) error {
	supported := false
	for _, id := range SupportedExchanges {
		if strings.EqualFold(config.Exchange.ID, id) {
			supported = true
		}
	}
	if !supported {
		return errors.Newf(errors.ErrCodeUnsupportedExchange, "unsupported exchange: %q", config.Exchange.ID)
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if _, err := time.LoadLocation(config.Engine.Timezone); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid timezone", err)
	}
	for _, s := range config.Engine.Symbols {
		sym := types.Symbol(s)
		if sym.Base() == "" || sym.Quote() == "" {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "symbol %q must look like BASE/QUOTE", s)
		}
	}
	if !config.Strategy.Trend.Enabled && !config.Strategy.Reversal.Enabled {
		return errors.New(errors.ErrCodeInvalidConfiguration, "at least one strategy must be enabled")
	}
	return nil
}

func applyEnv(config *types.Config) error {
	if v := os.Getenv("EXCHANGE_ID"); v != "" {
		config.Exchange.ID = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		config.Exchange.APIKey = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		config.Exchange.SecretKey = v
	}
	if v := os.Getenv("BINANCE_TESTNET"); v != "" {
		config.Exchange.Testnet = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		config.Exchange.DryRun = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SYMBOL_LIST"); v != "" {
		config.Engine.Symbols = SplitSymbols(v)
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		config.Engine.Timezone = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		config.Telegram.BotToken = v
		config.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		config.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		config.Metrics.Addr = v
	}

	if v := os.Getenv("MAX_POSITIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid MAX_POSITIONS", err)
		}
		config.Engine.MaxPositions = n
	}
	if v := os.Getenv("DAILY_MAX_LOSS_PCT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid DAILY_MAX_LOSS_PCT", err)
		}
		config.Risk.DailyLossPct = f
	}
	if v := os.Getenv("MAX_CONSECUTIVE_LOSSES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid MAX_CONSECUTIVE_LOSSES", err)
		}
		config.Risk.MaxConsecutiveLosses = n
	}
	return nil
}

// SplitSymbols parses a comma separated symbol list, trimming blanks.
func SplitSymbols(list string) []string {
	parts := strings.Split(list, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			symbols = append(symbols, strings.ToUpper(p))
		}
	}
	return symbols
}
