package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"spot-trading-engine/internal/config"
	"spot-trading-engine/internal/strategy"
	"spot-trading-engine/mocks"
	"spot-trading-engine/pkg/errors"
	"spot-trading-engine/pkg/types"
)

// fakeEvaluator lets a test decide entries and exits directly.
type fakeEvaluator struct {
	kind     types.StrategyKind
	defaults types.TradeParams

	mu           sync.Mutex
	entry        bool
	exit         types.ExitReason
	panics       bool
	reason       string
	refreshed    int
	lastOverride *types.ParamOverride
}

func (f *fakeEvaluator) Kind() types.StrategyKind   { return f.kind }
func (f *fakeEvaluator) Defaults() types.TradeParams { return f.defaults }

func (f *fakeEvaluator) Refresh([]types.Kline, []types.Kline, time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	return true
}

func (f *fakeEvaluator) Snapshot() (types.IndicatorSnapshot, bool) {
	return types.IndicatorSnapshot{}, true
}

func (f *fakeEvaluator) EvaluateEntry(_ types.Ticker, override *types.ParamOverride) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("broken indicator")
	}
	f.lastOverride = override
	if f.entry {
		f.reason = "test entry"
	} else {
		f.reason = "waiting"
	}
	return f.entry
}

func (f *fakeEvaluator) EvaluateExit(pos *types.Position, price float64, _ time.Time) types.ExitReason {
	f.mu.Lock()
	defer f.mu.Unlock()
	if price > pos.HighWater {
		pos.HighWater = price
	}
	return f.exit
}

func (f *fakeEvaluator) RiskBands(_ float64, params types.TradeParams) (float64, float64) {
	return params.StopLossPct, params.TakeProfitPct
}

func (f *fakeEvaluator) Size(budget, price float64) float64 { return budget / price }

func (f *fakeEvaluator) Confidence(types.Ticker) float64 { return 1 }

func (f *fakeEvaluator) LastReason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason
}

func (f *fakeEvaluator) set(entry bool, exit types.ExitReason) {
	f.mu.Lock()
	f.entry, f.exit = entry, exit
	f.mu.Unlock()
}

type EngineTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	gateway  *mocks.MockGateway
	notifier *mocks.MockNotifier
	cfg      types.Config
	now      time.Time
	btc      *fakeEvaluator
	eth      *fakeEvaluator
	engine   *Engine

	mu   sync.Mutex
	sent []string
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gateway = mocks.NewMockGateway(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.sent = nil

	s.cfg = config.Default()
	s.cfg.Engine.Symbols = []string{"BTC/USDT", "ETH/USDT"}
	s.cfg.Engine.MaxPositions = 2
	s.newEngine()
}

func (s *EngineTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *EngineTestSuite) newEngine() {
	s.btc = &fakeEvaluator{kind: types.StrategyTrend, defaults: s.cfg.Strategy.Trend.Params}
	s.eth = &fakeEvaluator{kind: types.StrategyTrend, defaults: s.cfg.Strategy.Trend.Params}

	e, err := New(&s.cfg, s.gateway, s.notifier, zap.NewNop(),
		WithClock(func() time.Time { return s.now }),
		WithEvaluators(map[types.Symbol][]strategy.Evaluator{
			"BTC/USDT": {s.btc},
			"ETH/USDT": {s.eth},
		}),
	)
	s.Require().NoError(err)
	s.engine = e
}

func (s *EngineTestSuite) captureSends() {
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, text string) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sent = append(s.sent, text)
		return nil
	}).AnyTimes()
}

func (s *EngineTestSuite) messages(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.sent {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}

func (s *EngineTestSuite) quoteBalance(free, total float64) types.Balance {
	return types.Balance{
		Free:  map[string]float64{"USDT": free},
		Total: map[string]float64{"USDT": total},
	}
}

func (s *EngineTestSuite) openPosition(symbol types.Symbol, entry, qty float64) {
	s.Require().NoError(s.engine.book.BeginEntry(symbol, s.now, nil))
	s.Require().NoError(s.engine.book.CompleteEntry(symbol, types.Position{
		Strategy:      types.StrategyTrend,
		EntryPrice:    entry,
		Quantity:      qty,
		EntryTime:     s.now,
		StopLossPct:   0.008,
		TakeProfitPct: 0.015,
		HighWater:     entry,
		EntryReason:   "breakout",
	}))
}

func (s *EngineTestSuite) expectTicker(symbol string, price float64) {
	s.gateway.EXPECT().Ticker(gomock.Any(), symbol).Return(types.Ticker{Symbol: types.Symbol(symbol), LastPrice: price}, nil)
}

func (s *EngineTestSuite) TestEntryOpensPosition() {
	ctx := context.Background()
	s.btc.set(true, types.ExitNone)
	s.captureSends()

	s.expectTicker("BTC/USDT", 1000)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(1000, 1000), nil)
	s.gateway.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req types.OrderRequest) (types.Order, error) {
		s.Equal(types.SideBuy, req.Side)
		s.Equal(types.Symbol("BTC/USDT"), req.Symbol)
		s.InDelta(475.0, req.QuoteAmount, 1e-9) // 1000 / 2 slots * 0.95
		s.False(req.IsLimit())
		return types.Order{ID: "1", Price: 1000, Quantity: 0.475, QuoteQuantity: 475}, nil
	})

	s.engine.checkEntry(ctx, "BTC/USDT")

	s.Equal(types.PositionOpen, s.engine.book.State("BTC/USDT"))
	views := s.engine.book.Snapshot()
	s.Require().Len(views, 1)
	pos := views[0].Position
	s.Equal(1000.0, pos.EntryPrice)
	s.Equal(0.475, pos.Quantity)
	s.Equal(0.008, pos.StopLossPct)
	s.Equal(0.015, pos.TakeProfitPct)
	s.Equal("test entry", pos.EntryReason)
	s.Equal(1, s.messages("BUY BTC/USDT"))
}

func (s *EngineTestSuite) TestEntryBlockedWhenHalted() {
	s.btc.set(true, types.ExitNone)
	s.engine.governor.Halt("paused by operator")

	s.engine.checkEntry(context.Background(), "BTC/USDT")

	s.Equal(types.PositionEmpty, s.engine.book.State("BTC/USDT"))
}

func (s *EngineTestSuite) TestEntryBlockedWhenMarketUnsafe() {
	s.btc.set(true, types.ExitNone)
	s.engine.market = strategy.MarketCondition{Safe: false, Reason: "EMA10 below EMA30"}

	s.engine.checkEntry(context.Background(), "BTC/USDT")

	s.Equal(types.PositionEmpty, s.engine.book.State("BTC/USDT"))
}

func (s *EngineTestSuite) TestNoEntryWithoutSignal() {
	s.expectTicker("BTC/USDT", 1000)

	s.engine.checkEntry(context.Background(), "BTC/USDT")

	s.Equal(types.PositionEmpty, s.engine.book.State("BTC/USDT"))
	s.Equal("waiting", s.btc.LastReason())
}

func (s *EngineTestSuite) TestBuyFailureReleasesSlot() {
	s.btc.set(true, types.ExitNone)
	s.expectTicker("BTC/USDT", 1000)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(1000, 1000), nil)
	s.gateway.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.Order{}, errors.New(errors.ErrCodeOrderFailed, "timeout"))

	s.engine.checkEntry(context.Background(), "BTC/USDT")

	s.Equal(types.PositionEmpty, s.engine.book.State("BTC/USDT"))
	s.Equal(0, s.engine.book.Active())
}

func (s *EngineTestSuite) TestEntrySkippedBelowMinNotional() {
	s.btc.set(true, types.ExitNone)
	s.expectTicker("BTC/USDT", 1000)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(5, 5), nil)

	s.engine.checkEntry(context.Background(), "BTC/USDT")

	s.Equal(types.PositionEmpty, s.engine.book.State("BTC/USDT"))
}

func (s *EngineTestSuite) TestEntryRespectsMaxPositions() {
	s.cfg.Engine.MaxPositions = 1
	s.newEngine()
	s.openPosition("BTC/USDT", 1000, 0.1)
	s.eth.set(true, types.ExitNone)
	s.expectTicker("ETH/USDT", 100)

	s.engine.checkEntry(context.Background(), "ETH/USDT")

	s.Equal(types.PositionEmpty, s.engine.book.State("ETH/USDT"))
}

func (s *EngineTestSuite) TestOpenSymbolIsNotScanned() {
	s.openPosition("BTC/USDT", 1000, 0.1)
	s.btc.set(true, types.ExitNone)

	s.engine.checkEntry(context.Background(), "BTC/USDT")

	s.Equal(1, s.engine.book.Active())
}

func (s *EngineTestSuite) TestExitSellsAndFeedsBack() {
	ctx := context.Background()
	s.captureSends()
	s.openPosition("BTC/USDT", 1000, 0.5)
	s.btc.set(false, types.ExitStopLoss)

	s.expectTicker("BTC/USDT", 990)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(types.Balance{
		Free:  map[string]float64{"BTC": 0.4, "USDT": 500},
		Total: map[string]float64{"BTC": 0.4, "USDT": 500},
	}, nil)
	s.gateway.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req types.OrderRequest) (types.Order, error) {
		s.Equal(types.SideSell, req.Side)
		s.Equal(0.4, req.Quantity)
		return types.Order{ID: "2", Price: 990, Quantity: 0.4, QuoteQuantity: 396}, nil
	})

	s.engine.checkExit(ctx, "BTC/USDT")

	s.Equal(types.PositionEmpty, s.engine.book.State("BTC/USDT"))

	stats := s.engine.tuners[types.StrategyTrend].Stats()
	s.Equal(1, stats.Trades)
	s.InDelta(0.011, stats.AvgLoss, 1e-9)

	risk := s.engine.governor.State()
	s.Equal(1, risk.TradesToday)
	s.Equal(1, risk.ConsecutiveLosses)
	s.False(risk.Halted)
	s.Equal(1, s.messages("SELL BTC/USDT"))
	s.Equal(0, s.messages("TRADING HALTED"))
}

func (s *EngineTestSuite) TestSellFailureKeepsPositionOpen() {
	s.openPosition("BTC/USDT", 1000, 0.5)
	s.btc.set(false, types.ExitStopLoss)

	s.expectTicker("BTC/USDT", 990)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(types.Balance{}, nil)
	s.gateway.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req types.OrderRequest) (types.Order, error) {
		s.Equal(0.5, req.Quantity)
		return types.Order{}, errors.New(errors.ErrCodeOrderFailed, "rejected")
	})

	s.engine.checkExit(context.Background(), "BTC/USDT")

	s.Equal(types.PositionOpen, s.engine.book.State("BTC/USDT"))
	s.Equal(0, s.engine.tuners[types.StrategyTrend].Stats().Trades)
	s.Equal(0, s.engine.governor.State().TradesToday)
}

func (s *EngineTestSuite) TestHoldUpdatesTrailingState() {
	s.openPosition("BTC/USDT", 1000, 0.5)
	s.expectTicker("BTC/USDT", 1012)

	s.engine.checkExit(context.Background(), "BTC/USDT")

	views := s.engine.book.Snapshot()
	s.Require().Len(views, 1)
	s.Equal(1012.0, views[0].Position.HighWater)
	s.Equal(1012.0, views[0].LastPrice)
}

func (s *EngineTestSuite) TestCooldownAfterExit() {
	s.captureSends()
	s.openPosition("BTC/USDT", 1000, 0.5)
	s.btc.set(false, types.ExitTrailingStop)
	s.expectTicker("BTC/USDT", 1020)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(types.Balance{}, nil)
	s.gateway.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.Order{Price: 1020, Quantity: 0.5}, nil)
	s.engine.checkExit(context.Background(), "BTC/USDT")
	s.Require().Equal(types.PositionEmpty, s.engine.book.State("BTC/USDT"))

	s.btc.set(true, types.ExitNone)
	s.now = s.now.Add(time.Minute)
	for i := 0; i < 3; i++ {
		s.engine.checkEntry(context.Background(), "BTC/USDT")
	}
	s.Equal(types.PositionEmpty, s.engine.book.State("BTC/USDT"))
	s.Equal(0.0, testutil.ToFloat64(s.engine.metrics.EntrySignals.WithLabelValues(string(types.StrategyTrend))))
	s.Equal("cooldown after exit (4m0s left)", s.engine.report(false).Watch[0].Reason)

	s.now = s.now.Add(5 * time.Minute)
	s.expectTicker("BTC/USDT", 1020)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(1000, 1000), nil)
	s.gateway.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.Order{Price: 1020, Quantity: 0.46}, nil)
	s.engine.checkEntry(context.Background(), "BTC/USDT")
	s.Equal(types.PositionOpen, s.engine.book.State("BTC/USDT"))
}

func (s *EngineTestSuite) TestBlockedSymbolReportsWhy() {
	s.btc.set(true, types.ExitNone)
	s.btc.reason = "test entry"
	s.engine.market = strategy.MarketCondition{Safe: false, Reason: "EMA10 below EMA30"}

	s.engine.checkEntry(context.Background(), "BTC/USDT")

	watch := s.engine.report(false).Watch
	s.Require().NotEmpty(watch)
	s.Equal(types.SymbolReason{Symbol: "BTC/USDT", Reason: "market caution: EMA10 below EMA30"}, watch[0])

	s.engine.market = strategy.MarketCondition{Safe: true}
	s.engine.governor.Halt("paused by operator")
	s.engine.checkEntry(context.Background(), "BTC/USDT")
	s.Equal("trading halted", s.engine.report(false).Watch[0].Reason)

	s.engine.governor.Resume(1000)
	s.expectTicker("BTC/USDT", 1000)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(0, 0), nil)
	s.engine.checkEntry(context.Background(), "BTC/USDT")
	s.Equal(types.StrategyTrend, s.engine.report(false).Watch[0].Strategy)
}

func (s *EngineTestSuite) TestRefusedEntryCountsNoSignal() {
	s.cfg.Engine.MaxPositions = 1
	s.newEngine()
	s.openPosition("ETH/USDT", 100, 1)
	s.btc.set(true, types.ExitNone)
	s.expectTicker("BTC/USDT", 1000)

	s.engine.checkEntry(context.Background(), "BTC/USDT")

	s.Equal(types.PositionEmpty, s.engine.book.State("BTC/USDT"))
	s.Equal(0.0, testutil.ToFloat64(s.engine.metrics.EntrySignals.WithLabelValues(string(types.StrategyTrend))))
}

func (s *EngineTestSuite) TestTunerOverrideReachesEvaluator() {
	s.engine.tuners[types.StrategyTrend].Feedback(-0.01)
	s.expectTicker("BTC/USDT", 1000)

	s.engine.checkEntry(context.Background(), "BTC/USDT")

	s.Require().NotNil(s.btc.lastOverride)
	params := s.cfg.Strategy.Trend.Params.Apply(s.btc.lastOverride)
	s.InDelta(0.45, params.K, 1e-9)
}

func (s *EngineTestSuite) TestLossStreakHaltNotifiedOnce() {
	s.cfg.Risk.MaxConsecutiveLosses = 1
	s.newEngine()
	s.captureSends()

	for i := 0; i < 2; i++ {
		symbol := []types.Symbol{"BTC/USDT", "ETH/USDT"}[i]
		s.openPosition(symbol, 1000, 0.1)
		ev := map[types.Symbol]*fakeEvaluator{"BTC/USDT": s.btc, "ETH/USDT": s.eth}[symbol]
		ev.set(false, types.ExitStopLoss)

		s.expectTicker(symbol.String(), 980)
		s.gateway.EXPECT().Balance(gomock.Any()).Return(types.Balance{}, nil)
		s.gateway.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.Order{Price: 980, Quantity: 0.1}, nil)
		s.engine.checkExit(context.Background(), symbol)
	}

	s.True(s.engine.governor.Halted())
	s.Equal(1, s.messages("TRADING HALTED"))
	s.Equal(2, s.messages("SELL"))
}

func (s *EngineTestSuite) TestDailyLossHaltNotifiedOnce() {
	s.captureSends()
	s.engine.governor.Start(s.now, 1000000)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(975000, 975000), nil).Times(2)

	s.engine.checkAccount(context.Background(), s.now)
	s.engine.checkAccount(context.Background(), s.now.Add(time.Second))

	s.True(s.engine.governor.Halted())
	s.Equal(1, s.messages("TRADING HALTED"))
}

func (s *EngineTestSuite) TestEquityIncludesOpenPositions() {
	s.engine.governor.Start(s.now, 1000)
	s.openPosition("BTC/USDT", 100, 1)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(900, 900), nil)

	s.engine.checkAccount(context.Background(), s.now)

	s.False(s.engine.governor.Halted())
	s.InDelta(0.0, s.engine.governor.State().DailyPnLPct, 1e-12)
}

func (s *EngineTestSuite) TestAccountCheckWaitsForSale() {
	s.engine.governor.Start(s.now, 1000)
	s.openPosition("BTC/USDT", 100, 1)
	_, err := s.engine.book.BeginExit("BTC/USDT")
	s.Require().NoError(err)

	s.engine.checkAccount(context.Background(), s.now)

	s.Equal(0.0, s.engine.equity)
	s.False(s.engine.governor.Halted())
}

func (s *EngineTestSuite) TestAccountCheckDiscardsBalanceRacingASale() {
	s.engine.governor.Start(s.now, 1000)
	s.openPosition("BTC/USDT", 100, 1)
	s.gateway.EXPECT().Balance(gomock.Any()).DoAndReturn(func(context.Context) (types.Balance, error) {
		_, err := s.engine.book.BeginExit("BTC/USDT")
		s.Require().NoError(err)
		s.Require().NoError(s.engine.book.CompleteExit("BTC/USDT", s.now))
		return s.quoteBalance(900, 900), nil
	})

	s.engine.checkAccount(context.Background(), s.now)

	s.False(s.engine.governor.Halted())
	s.InDelta(0.0, s.engine.governor.State().DailyPnLPct, 1e-12)
}

func (s *EngineTestSuite) TestDayRollSendsDailySummary() {
	s.captureSends()
	s.engine.governor.Start(s.now, 1000)
	s.engine.governor.RecordTrade(0.01)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(1010, 1010), nil)

	s.now = s.now.Add(24 * time.Hour)
	s.engine.checkAccount(context.Background(), s.now)

	s.Equal(1, s.messages("Daily Summary"))
	s.Equal(1, s.messages("1 trades, 1 wins"))
	state := s.engine.governor.State()
	s.Equal(0, state.TradesToday)
	s.Equal(1010.0, state.SessionStartBalance)
}

func (s *EngineTestSuite) TestCommands() {
	ctx := context.Background()
	s.captureSends()

	s.notifier.EXPECT().PollCommand(gomock.Any()).Return("please PAUSE now", nil)
	s.engine.processCommands(ctx)
	s.True(s.engine.governor.Halted())
	s.Equal(1, s.messages("Trading paused"))

	s.notifier.EXPECT().PollCommand(gomock.Any()).Return("시작", nil)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(1200, 1200), nil)
	s.engine.processCommands(ctx)
	s.False(s.engine.governor.Halted())
	s.Equal(1200.0, s.engine.governor.State().SessionStartBalance)
	s.Equal(1, s.messages("Trading resumed"))

	s.notifier.EXPECT().PollCommand(gomock.Any()).Return("status", nil)
	s.engine.processCommands(ctx)
	s.Equal(1, s.messages("Status Report"))

	s.notifier.EXPECT().PollCommand(gomock.Any()).Return("hello", nil)
	s.engine.processCommands(ctx)
	s.Len(s.sent, 3)
}

func (s *EngineTestSuite) TestCommandPollErrorIsIgnored() {
	s.notifier.EXPECT().PollCommand(gomock.Any()).Return("", errors.New(errors.ErrCodeNotifyFailed, "down"))

	s.NotPanics(func() { s.engine.processCommands(context.Background()) })
	s.False(s.engine.governor.Halted())
}

func (s *EngineTestSuite) TestStatusReport() {
	s.openPosition("BTC/USDT", 1000, 0.5)
	s.engine.book.Inspect("BTC/USDT", 1010, nil)
	s.engine.tuners[types.StrategyTrend].Feedback(0.02)
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(500, 500), nil)

	report, err := s.engine.Status(context.Background())

	s.Require().NoError(err)
	s.Equal(500.0, report.FreeQuote)
	s.InDelta(1005.0, report.Equity, 1e-9)
	s.Require().Len(report.Positions, 1)
	s.InDelta(0.01, report.Positions[0].PnLPct, 1e-12)
	s.Equal("breakout", report.Positions[0].EntryReason)
	s.Empty(report.Watch)
	s.Require().Len(report.Tuners, 2)
	s.Equal(types.StrategyTrend, report.Tuners[0].Strategy)
	s.Equal(float64(maxReportedPF), report.Tuners[0].ProfitFactor)
}

func (s *EngineTestSuite) TestStatusWithoutPositionsListsReasons() {
	s.btc.reason = "RSI 30.0 below 45.0"
	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(500, 500), nil)

	report, err := s.engine.Status(context.Background())

	s.Require().NoError(err)
	s.Require().Len(report.Watch, 1)
	s.Equal(types.Symbol("BTC/USDT"), report.Watch[0].Symbol)
}

func (s *EngineTestSuite) TestMarketFetchFailureCountsAsSafe() {
	s.engine.market = strategy.MarketCondition{Safe: false}
	s.gateway.EXPECT().Candles(gomock.Any(), "BTC/USDT", "1m", 100).Return(nil, errors.New(errors.ErrCodeFetchFailed, "down"))

	s.engine.checkMarket(context.Background(), s.now)

	s.True(s.engine.market.Safe)
}

func (s *EngineTestSuite) TestRefreshRanksLeaders() {
	s.cfg.Engine.Leaders = 1
	s.newEngine()

	s.gateway.EXPECT().Candles(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, symbol, _ string, limit int) ([]types.Kline, error) {
			step := 1.0
			if symbol == "ETH/USDT" {
				step = 5
			}
			bars := make([]types.Kline, limit)
			for i := range bars {
				price := 100 + step*float64(i)
				bars[i] = types.Kline{Open: price, High: price, Low: price, Close: price, Volume: 1000}
			}
			return bars, nil
		}).AnyTimes()

	s.engine.refreshIndicators(context.Background(), s.now)

	s.Equal([]types.Symbol{"ETH/USDT"}, s.engine.leaders)
	s.Equal([]types.Symbol{"ETH/USDT"}, s.engine.scanSymbols())
	s.Equal(1, s.btc.refreshed)
	s.Equal(1, s.eth.refreshed)
}

func (s *EngineTestSuite) TestShortHistoryIsReported() {
	core, logs := observer.New(zap.DebugLevel)
	e, err := New(&s.cfg, s.gateway, s.notifier, zap.New(core),
		WithClock(func() time.Time { return s.now }),
		WithEvaluators(map[types.Symbol][]strategy.Evaluator{"BTC/USDT": {s.btc}, "ETH/USDT": {s.eth}}),
	)
	s.Require().NoError(err)
	s.gateway.EXPECT().Candles(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(make([]types.Kline, 10), nil).AnyTimes()

	e.refreshIndicators(context.Background(), s.now)

	kept := logs.FilterMessage("Snapshot kept").All()
	s.Require().Len(kept, 2)
	s.Contains(kept[0].ContextMap()["error"], "[202]")
}

func (s *EngineTestSuite) TestPanicInOneSymbolIsRecovered() {
	s.btc.panics = true
	s.expectTicker("BTC/USDT", 1000)

	s.NotPanics(func() {
		s.engine.guard("BTC/USDT", "entry", func() { s.engine.checkEntry(context.Background(), "BTC/USDT") })
	})
	s.Equal(types.PositionEmpty, s.engine.book.State("BTC/USDT"))
}

func (s *EngineTestSuite) TestRunStopsOnCancel() {
	s.cfg.Engine.MonitorInterval = time.Millisecond
	s.cfg.Engine.ScanInterval = time.Millisecond
	s.cfg.Engine.SymbolPause = 0
	s.newEngine()

	s.gateway.EXPECT().Balance(gomock.Any()).Return(s.quoteBalance(1000, 1000), nil).AnyTimes()
	s.gateway.EXPECT().Candles(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New(errors.ErrCodeFetchFailed, "down")).AnyTimes()
	s.gateway.EXPECT().Ticker(gomock.Any(), gomock.Any()).Return(types.Ticker{LastPrice: 1000}, nil).AnyTimes()
	s.notifier.EXPECT().PollCommand(gomock.Any()).Return("", nil).AnyTimes()
	s.captureSends()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s.NoError(s.engine.Run(ctx))
	s.Equal(1, s.messages("Trading Engine Started"))
	s.Equal(1000.0, s.engine.governor.State().SessionStartBalance)
}

func (s *EngineTestSuite) TestRunFailsWithoutStartingBalance() {
	s.gateway.EXPECT().Balance(gomock.Any()).Return(types.Balance{}, errors.New(errors.ErrCodeFetchFailed, "down"))

	err := s.engine.Run(context.Background())

	s.True(errors.HasCode(err, errors.ErrCodeFetchFailed))
}
