package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"spot-trading-engine/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
	for _, key := range []string{
		"EXCHANGE_ID", "API_KEY", "SECRET_KEY", "BINANCE_TESTNET", "DRY_RUN",
		"SYMBOL_LIST", "MAX_POSITIONS", "DAILY_MAX_LOSS_PCT", "MAX_CONSECUTIVE_LOSSES",
		"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "TIMEZONE", "LOG_LEVEL", "METRICS_ADDR",
	} {
		suite.T().Setenv(key, "")
	}
}

func (suite *ConfigTestSuite) write(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (suite *ConfigTestSuite) TestDefaultsAreValid() {
	config := Default()
	suite.NoError(Validate(&config))
	suite.True(config.Exchange.DryRun)
	suite.Equal(5*time.Minute, config.Engine.Cooldown)
	suite.Equal(0.4, config.Strategy.Trend.Params.K)
	suite.Equal(2.5, config.Strategy.Reversal.BandK)
	suite.Equal(50, config.Tuner.Window)
}

func (suite *ConfigTestSuite) TestLoadMissingFileUsesDefaults() {
	config, err := Load(filepath.Join(suite.dir, "absent.yaml"), "")
	suite.Require().NoError(err)
	suite.Equal(Default().Engine.Symbols, config.Engine.Symbols)
}

func (suite *ConfigTestSuite) TestLoadYAML() {
	path := suite.write("config.yaml", `
engine:
  symbols: ["ETH/USDT", "SOL/USDT"]
  max_positions: 2
  cooldown: 90s
risk:
  daily_loss_pct: 0.03
strategy:
  trend:
    params:
      k: 0.5
`)
	config, err := Load(path, "")
	suite.Require().NoError(err)
	suite.Equal([]string{"ETH/USDT", "SOL/USDT"}, config.Engine.Symbols)
	suite.Equal(2, config.Engine.MaxPositions)
	suite.Equal(90*time.Second, config.Engine.Cooldown)
	suite.Equal(0.03, config.Risk.DailyLossPct)
	suite.Equal(0.5, config.Strategy.Trend.Params.K)
	// untouched fields keep their defaults
	suite.Equal(45.0, config.Strategy.Trend.Params.RSIBuyThreshold)
}

func (suite *ConfigTestSuite) TestEnvOverridesFile() {
	path := suite.write("config.yaml", "engine:\n  max_positions: 2\n")
	suite.T().Setenv("MAX_POSITIONS", "4")
	suite.T().Setenv("SYMBOL_LIST", "btc/usdt, eth/usdt ,")
	suite.T().Setenv("DAILY_MAX_LOSS_PCT", "0.05")
	suite.T().Setenv("LOG_LEVEL", "DEBUG")

	config, err := Load(path, "")
	suite.Require().NoError(err)
	suite.Equal(4, config.Engine.MaxPositions)
	suite.Equal([]string{"BTC/USDT", "ETH/USDT"}, config.Engine.Symbols)
	suite.Equal(0.05, config.Risk.DailyLossPct)
	suite.Equal("debug", config.Log.Level)
}

func (suite *ConfigTestSuite) TestEnvFile() {
	env := suite.write(".env", "TELEGRAM_TOKEN=abc\nTELEGRAM_CHAT_ID=42\n")
	// godotenv does not override variables already present, so clear them.
	suite.Require().NoError(os.Unsetenv("TELEGRAM_TOKEN"))
	suite.Require().NoError(os.Unsetenv("TELEGRAM_CHAT_ID"))

	config, err := Load("", env)
	suite.Require().NoError(err)
	suite.True(config.Telegram.Enabled)
	suite.Equal("abc", config.Telegram.BotToken)
	suite.Equal("42", config.Telegram.ChatID)
}

func (suite *ConfigTestSuite) TestUnsupportedExchange() {
	suite.T().Setenv("EXCHANGE_ID", "kraken")
	_, err := Load("", "")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedExchange))
}

func (suite *ConfigTestSuite) TestLiveModeRequiresKeys() {
	suite.T().Setenv("DRY_RUN", "false")
	_, err := Load("", "")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	suite.T().Setenv("API_KEY", "key")
	suite.T().Setenv("SECRET_KEY", "secret")
	config, err := Load("", "")
	suite.Require().NoError(err)
	suite.False(config.Exchange.DryRun)
}

func (suite *ConfigTestSuite) TestInvalidValues() {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "non numeric max positions", env: map[string]string{"MAX_POSITIONS": "many"}},
		{name: "zero max positions", env: map[string]string{"MAX_POSITIONS": "0"}},
		{name: "loss pct above one", env: map[string]string{"DAILY_MAX_LOSS_PCT": "1.5"}},
		{name: "bad timezone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{name: "symbol without quote", env: map[string]string{"SYMBOL_LIST": "BTCUSDT"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			for k, v := range tt.env {
				suite.T().Setenv(k, v)
			}
			_, err := Load("", "")
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}

func (suite *ConfigTestSuite) TestSplitSymbols() {
	suite.Equal([]string{"A/B", "C/D"}, SplitSymbols(" a/b ,,c/d"))
	suite.Empty(SplitSymbols(""))
}
