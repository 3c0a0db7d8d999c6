package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"spot-trading-engine/pkg/errors"
	"spot-trading-engine/pkg/types"
)

type NotifierTestSuite struct {
	suite.Suite
	server   *httptest.Server
	notifier *Notifier

	mu       sync.Mutex
	sent     []string
	offsets  []string
	updates  string
	status   int
	lastPath string
}

func TestNotifierTestSuite(t *testing.T) {
	suite.Run(t, new(NotifierTestSuite))
}

func (s *NotifierTestSuite) SetupTest() {
	s.sent = nil
	s.offsets = nil
	s.updates = `{"ok":true,"result":[]}`
	s.status = http.StatusOK

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lastPath = r.URL.Path

		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			s.Require().NoError(r.ParseForm())
			s.Equal("42", r.PostForm.Get("chat_id"))
			s.Equal("HTML", r.PostForm.Get("parse_mode"))
			s.sent = append(s.sent, r.PostForm.Get("text"))
			w.WriteHeader(s.status)
			_, _ = w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			s.offsets = append(s.offsets, r.URL.Query().Get("offset"))
			w.WriteHeader(s.status)
			_, _ = w.Write([]byte(s.updates))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	cfg := types.TelegramConfig{BotToken: "token", ChatID: "42", Enabled: true}
	s.notifier = NewNotifierWithClient(cfg, s.server.URL, s.server.Client(), zap.NewNop())
}

func (s *NotifierTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *NotifierTestSuite) TestSendPostsMessage() {
	err := s.notifier.Send(context.Background(), "<b>hello</b>")

	s.Require().NoError(err)
	s.Equal([]string{"<b>hello</b>"}, s.sent)
	s.Equal("/bottoken/sendMessage", s.lastPath)
}

func (s *NotifierTestSuite) TestSendReportsAPIError() {
	s.status = http.StatusBadRequest

	err := s.notifier.Send(context.Background(), "hello")

	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeNotifyFailed))
}

func (s *NotifierTestSuite) TestDisabledNotifierDropsMessages() {
	n := NewNotifierWithClient(types.TelegramConfig{}, s.server.URL, s.server.Client(), zap.NewNop())

	s.False(n.Enabled())
	s.NoError(n.Send(context.Background(), "hello"))
	text, err := n.PollCommand(context.Background())
	s.NoError(err)
	s.Empty(text)
	s.Empty(s.sent)
	s.Empty(s.offsets)
}

func (s *NotifierTestSuite) TestPollCommandReturnsLatestTextForChat() {
	s.updates = `{"ok":true,"result":[
		{"update_id":10,"message":{"chat":{"id":42},"text":"status"}},
		{"update_id":11,"message":{"chat":{"id":7},"text":"pause"}},
		{"update_id":12,"message":{"chat":{"id":42},"text":" resume "}}
	]}`

	text, err := s.notifier.PollCommand(context.Background())
	s.Require().NoError(err)
	s.Equal("resume", text)

	s.updates = `{"ok":true,"result":[]}`
	text, err = s.notifier.PollCommand(context.Background())
	s.Require().NoError(err)
	s.Empty(text)

	s.Equal([]string{"", "13"}, s.offsets)
}

func (s *NotifierTestSuite) TestPollCommandIgnoresOtherChats() {
	s.updates = `{"ok":true,"result":[{"update_id":5,"message":{"chat":{"id":99},"text":"pause"}}]}`

	text, err := s.notifier.PollCommand(context.Background())

	s.Require().NoError(err)
	s.Empty(text)
}

func (s *NotifierTestSuite) TestPollCommandRejectsBadPayload() {
	s.updates = `not json`

	_, err := s.notifier.PollCommand(context.Background())

	s.True(errors.HasCode(err, errors.ErrCodeParseFailed))
}

func (s *NotifierTestSuite) TestPollCommandReportsNotOK() {
	s.updates = `{"ok":false,"description":"Unauthorized"}`
	s.status = http.StatusUnauthorized

	_, err := s.notifier.PollCommand(context.Background())

	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeNotifyFailed))
	s.Contains(err.Error(), "Unauthorized")
}

type FormatTestSuite struct {
	suite.Suite
}

func TestFormatTestSuite(t *testing.T) {
	suite.Run(t, new(FormatTestSuite))
}

func (s *FormatTestSuite) TestEntryEscapesReason() {
	msg := FormatEntry(types.Position{
		Symbol:        "BTC/USDT",
		Strategy:      types.StrategyTrend,
		EntryPrice:    1000,
		Quantity:      0.1,
		Notional:      100,
		StopLossPct:   0.008,
		TakeProfitPct: 0.015,
		Confidence:    0.8,
		EntryReason:   "breakout <1000>",
	})

	s.Contains(msg, "BUY BTC/USDT")
	s.Contains(msg, "-0.80%")
	s.Contains(msg, "+1.50%")
	s.Contains(msg, "breakout &lt;1000&gt;")
}

func (s *FormatTestSuite) TestExitMarksLoss() {
	entry := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	msg := FormatExit(types.TradeOutcome{
		Symbol:     "ETH/USDT",
		Strategy:   types.StrategyReversal,
		EntryPrice: 1000,
		ExitPrice:  990,
		NetPnLPct:  -0.011,
		Reason:     types.ExitStopLoss,
		EntryTime:  entry,
		ClosedAt:   entry.Add(90 * time.Second),
	})

	s.True(strings.HasPrefix(msg, "❌"))
	s.Contains(msg, "-1.10%")
	s.Contains(msg, "1m30s")
	s.Contains(msg, "stop_loss")
}

func (s *FormatTestSuite) TestHalt() {
	msg := FormatHalt(types.RiskState{Halted: true, HaltReason: "daily loss 2.50%", DailyPnLPct: -0.025, ConsecutiveLosses: 2})

	s.Contains(msg, "TRADING HALTED")
	s.Contains(msg, "daily loss 2.50%")
	s.Contains(msg, "-2.50%")
}

func (s *FormatTestSuite) TestStatusWithPositions() {
	msg := FormatStatus(types.StatusReport{
		QuoteAsset: "USDT",
		FreeQuote:  900,
		Equity:     1001,
		MarketSafe: true,
		Positions: []types.PositionReport{
			{Symbol: "BTC/USDT", Strategy: types.StrategyTrend, PnLPct: 0.012, Trailing: true, EntryReason: "breakout", HeldFor: 30 * time.Minute},
		},
		Watch:   []types.SymbolReason{{Symbol: "ETH/USDT", Strategy: types.StrategyTrend, Reason: "RSI low"}},
		Leaders: []types.Symbol{"SOL/USDT", "BTC/USDT"},
		Tuners:  []types.TunerReport{{Strategy: types.StrategyTrend, Trades: 3, WinRate: 1, ProfitFactor: 999}},
	})

	s.Contains(msg, "Status Report")
	s.Contains(msg, "Trading active")
	s.Contains(msg, "BTC/USDT +1.20% 🎯")
	s.NotContains(msg, "RSI low")
	s.Contains(msg, "Leaders: SOL, BTC")
	s.Contains(msg, "PF 999.00")
}

func (s *FormatTestSuite) TestStatusWithoutPositionsShowsReasons() {
	msg := FormatStatus(types.StatusReport{
		Daily:        true,
		QuoteAsset:   "USDT",
		MarketSafe:   false,
		MarketReason: "EMA10 below EMA30",
		Watch: []types.SymbolReason{
			{Symbol: "ETH/USDT", Strategy: types.StrategyReversal, Reason: "RSI 40 > 25"},
			{Symbol: "BTC/USDT", Reason: "cooldown after exit (4m0s left)"},
		},
	})

	s.Contains(msg, "Daily Summary")
	s.Contains(msg, "Market caution: EMA10 below EMA30")
	s.Contains(msg, "ETH (reversal): RSI 40 &gt; 25")
	s.Contains(msg, "• BTC: cooldown after exit (4m0s left)")
	s.NotContains(msg, "Leaders")
}

func (s *FormatTestSuite) TestStatusHaltedWins() {
	msg := FormatStatus(types.StatusReport{
		Risk:       types.RiskState{Halted: true, HaltReason: "5 consecutive losses"},
		MarketSafe: false,
	})

	s.Contains(msg, "Halted: 5 consecutive losses")
	s.NotContains(msg, "Market caution")
}
