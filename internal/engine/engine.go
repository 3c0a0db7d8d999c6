// Package engine runs the trading loops: entries on the scan loop, exits on
// the monitor loop, with account safety, market safety and operator commands
// handled in between.
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"spot-trading-engine/internal/metrics"
	"spot-trading-engine/internal/risk"
	"spot-trading-engine/internal/strategy"
	"spot-trading-engine/internal/telegram"
	"spot-trading-engine/internal/tuner"
	"spot-trading-engine/pkg/errors"
	"spot-trading-engine/pkg/types"
)

const (
	leaderBars     = 5
	leaderLookback = 3
	reportLeaders  = 5
	watchSymbols   = 3
	maxReportedPF  = 999
)

// Engine is the trading context shared by both loops.
type Engine struct {
	cfg      *types.Config
	gateway  Gateway
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
	loc      *time.Location

	symbols    []types.Symbol
	reference  types.Symbol
	evaluators map[types.Symbol][]strategy.Evaluator
	tuners     map[types.StrategyKind]*tuner.Tuner
	governor   *risk.Governor
	book       *Book

	mu          sync.RWMutex
	market      strategy.MarketCondition
	leaders     []types.Symbol
	scanSet     []types.Symbol
	holds       map[types.Symbol]string
	freeQuote   float64
	equity      float64
	lastRefresh time.Time
	lastMarket  time.Time
	lastReport  time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithEvaluators replaces the evaluators built from the strategy config.
func WithEvaluators(evaluators map[types.Symbol][]strategy.Evaluator) Option {
	return func(e *Engine) { e.evaluators = evaluators }
}

func New(cfg *types.Config, gateway Gateway, notifier Notifier, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %q", cfg.Engine.Timezone)
	}

	symbols := make([]types.Symbol, len(cfg.Engine.Symbols))
	for i, s := range cfg.Engine.Symbols {
		symbols[i] = types.Symbol(s)
	}

	e := &Engine{
		cfg:       cfg,
		gateway:   gateway,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		loc:       loc,
		symbols:   symbols,
		reference: types.Symbol(cfg.Engine.ReferenceSymbol),
		governor:  risk.NewGovernor(cfg.Risk, loc, logger.Named("risk")),
		book:      NewBook(symbols, cfg.Engine.Cooldown),
		market:    strategy.MarketCondition{Safe: true, Reason: "not checked yet"},
		scanSet:   symbols,
		holds:     make(map[types.Symbol]string),
		tuners:    make(map[types.StrategyKind]*tuner.Tuner),
	}

	if cfg.Strategy.Trend.Enabled {
		e.tuners[types.StrategyTrend] = tuner.New(types.StrategyTrend, cfg.Strategy.Trend.Params, cfg.Tuner.Trend, cfg.Tuner.Window, logger.Named("tuner"))
	}
	if cfg.Strategy.Reversal.Enabled {
		e.tuners[types.StrategyReversal] = tuner.New(types.StrategyReversal, cfg.Strategy.Reversal.Params, cfg.Tuner.Reversal, cfg.Tuner.Window, logger.Named("tuner"))
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.evaluators == nil {
		e.evaluators = make(map[types.Symbol][]strategy.Evaluator, len(symbols))
		for _, s := range symbols {
			var evs []strategy.Evaluator
			if cfg.Strategy.Trend.Enabled {
				evs = append(evs, strategy.NewTrendEvaluator(cfg.Strategy.Trend, cfg.Exit, loc))
			}
			if cfg.Strategy.Reversal.Enabled {
				evs = append(evs, strategy.NewReversalEvaluator(cfg.Strategy.Reversal, cfg.Exit, loc))
			}
			e.evaluators[s] = evs
		}
	}
	if e.metrics == nil {
		e.metrics = metrics.New(nil)
	}
	return e, nil
}

// Governor exposes the risk state holder.
func (e *Engine) Governor() *risk.Governor { return e.governor }

// Book exposes the position book.
func (e *Engine) Book() *Book { return e.book }

// Run starts the session and blocks until ctx is cancelled. Orders already
// sent when ctx is cancelled still complete.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.monitorLoop(ctx) })
	g.Go(func() error { return e.scanLoop(ctx) })
	err := g.Wait()

	e.logger.Info("🛑 Engine stopped", zap.Int("open_positions", e.book.Active()))
	return err
}

// Start takes the session baseline and primes indicators, market state and
// leaders before the loops run.
func (e *Engine) Start(ctx context.Context) error {
	balance, err := e.gateway.Balance(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFetchFailed, "failed to fetch starting balance", err)
	}
	now := e.now()
	equity := e.markEquity(balance)
	e.governor.Start(now, equity)

	e.refreshIndicators(ctx, now)
	e.checkMarket(ctx, now)

	e.mu.Lock()
	e.lastReport = now
	e.mu.Unlock()

	e.logger.Info("🚀 Engine started",
		zap.Int("symbols", len(e.symbols)),
		zap.Bool("dry_run", e.cfg.Exchange.DryRun),
		zap.Float64("equity", equity),
	)
	e.notify(ctx, telegram.FormatStart(e.cfg.Engine.Symbols, e.cfg.Exchange.DryRun))
	return nil
}

func (e *Engine) monitorLoop(ctx context.Context) error {
	for {
		for _, v := range e.book.Snapshot() {
			if ctx.Err() != nil {
				return nil
			}
			if v.State == types.PositionOpen {
				e.guard(v.Symbol, "exit", func() { e.checkExit(ctx, v.Symbol) })
			}
		}
		if !sleep(ctx, e.cfg.Engine.MonitorInterval) {
			return nil
		}
	}
}

func (e *Engine) scanLoop(ctx context.Context) error {
	for {
		e.cycle(ctx)

		for _, symbol := range e.scanSymbols() {
			if ctx.Err() != nil {
				return nil
			}
			e.guard(symbol, "entry", func() { e.checkEntry(ctx, symbol) })
			if !sleep(ctx, e.cfg.Engine.SymbolPause) {
				return nil
			}
		}
		if !sleep(ctx, e.cfg.Engine.ScanInterval) {
			return nil
		}
	}
}

// cycle runs the housekeeping steps of one scan iteration.
func (e *Engine) cycle(ctx context.Context) {
	now := e.now()
	e.processCommands(ctx)
	e.checkAccount(ctx, now)

	e.mu.RLock()
	marketDue := now.Sub(e.lastMarket) >= e.cfg.Engine.MarketCheckInterval
	refreshDue := now.Sub(e.lastRefresh) >= e.cfg.Engine.IndicatorRefresh
	reportDue := now.Sub(e.lastReport) >= e.cfg.Engine.ReportInterval
	e.mu.RUnlock()

	if marketDue {
		e.checkMarket(ctx, now)
	}
	if refreshDue {
		e.refreshIndicators(ctx, now)
	}
	if reportDue {
		e.mu.Lock()
		e.lastReport = now
		e.mu.Unlock()
		e.notify(ctx, telegram.FormatStatus(e.report(false)))
	}
}

// checkEntry evaluates every variant of symbol and opens a position on the
// first entry signal.
func (e *Engine) checkEntry(ctx context.Context, symbol types.Symbol) {
	if e.book.State(symbol) != types.PositionEmpty {
		e.hold(symbol, "")
		return
	}
	if reason := e.blocked(symbol); reason != "" {
		e.hold(symbol, reason)
		return
	}
	e.hold(symbol, "")

	tick, err := e.gateway.Ticker(ctx, symbol.String())
	if err != nil {
		e.logger.Debug("Ticker unavailable", zap.String("symbol", symbol.String()), zap.Error(err))
		return
	}

	for _, ev := range e.evaluators[symbol] {
		override := e.override(ev.Kind())
		if ev.EvaluateEntry(tick, override) {
			e.enter(ctx, symbol, ev, tick, override)
			return
		}
	}
}

// blocked returns why symbol may not be evaluated for entry right now.
func (e *Engine) blocked(symbol types.Symbol) string {
	if e.governor.Halted() {
		return "trading halted"
	}
	e.mu.RLock()
	market := e.market
	e.mu.RUnlock()
	if !market.Safe {
		return "market caution: " + market.Reason
	}
	if left := e.book.Cooldown(symbol, e.now()); left > 0 {
		return fmt.Sprintf("cooldown after exit (%s left)", left.Round(time.Second))
	}
	return ""
}

func (e *Engine) hold(symbol types.Symbol, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if reason == "" {
		delete(e.holds, symbol)
		return
	}
	e.holds[symbol] = reason
}

func (e *Engine) enter(ctx context.Context, symbol types.Symbol, ev strategy.Evaluator, tick types.Ticker, override *types.ParamOverride) {
	log := e.logger.With(zap.String("symbol", symbol.String()), zap.String("strategy", string(ev.Kind())))
	maxPositions := e.cfg.Engine.MaxPositions

	err := e.book.BeginEntry(symbol, e.now(), func(active int) error {
		return e.governor.CanOpen(active, maxPositions)
	})
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeMaxPositions) || errors.HasCode(err, errors.ErrCodeCooldown) {
			log.Debug("Entry skipped", zap.Error(err))
		} else {
			log.Info("Entry skipped", zap.Error(err))
		}
		return
	}
	e.metrics.EntrySignal(ev.Kind())

	orderCtx := context.WithoutCancel(ctx)
	balance, err := e.gateway.Balance(orderCtx)
	if err != nil {
		log.Warn("Balance unavailable, entry aborted", zap.Error(err))
		e.abortEntry(symbol)
		return
	}

	confidence := ev.Confidence(tick)
	budget, err := e.governor.PositionBudget(balance.FreeOf(e.cfg.Exchange.QuoteAsset), e.book.Active()-1, maxPositions, confidence)
	if err != nil {
		log.Info("Entry skipped", zap.Error(err))
		e.abortEntry(symbol)
		return
	}

	order, err := e.gateway.PlaceOrder(orderCtx, types.OrderRequest{
		Symbol:      symbol,
		Side:        types.SideBuy,
		QuoteAmount: budget,
	})
	if err != nil {
		e.metrics.OrderFailed(types.SideBuy)
		log.Error("❌ Buy failed", zap.Float64("budget", budget), zap.Error(err))
		e.abortEntry(symbol)
		return
	}
	e.metrics.OrderSubmitted(types.SideBuy)

	price := order.Price
	if price <= 0 {
		price = tick.LastPrice
	}
	quantity := order.Quantity
	if quantity <= 0 {
		quantity = ev.Size(budget, price)
	}
	notional := order.QuoteQuantity
	if notional <= 0 {
		notional = quantity * price
	}
	stop, take := ev.RiskBands(price, ev.Defaults().Apply(override))

	pos := types.Position{
		Symbol:        symbol,
		Strategy:      ev.Kind(),
		EntryPrice:    price,
		Quantity:      quantity,
		Notional:      notional,
		EntryTime:     e.now(),
		StopLossPct:   stop,
		TakeProfitPct: take,
		HighWater:     price,
		Confidence:    confidence,
		EntryReason:   ev.LastReason(),
		OrderID:       order.ID,
	}
	if err := e.book.CompleteEntry(symbol, pos); err != nil {
		log.Error("Position not recorded", zap.Error(err))
		return
	}
	e.metrics.PositionsOpen.Set(float64(e.book.Active()))

	log.Info("🚀 Position opened",
		zap.Float64("price", price),
		zap.Float64("quantity", quantity),
		zap.Float64("stop_loss", stop),
		zap.Float64("take_profit", take),
		zap.String("reason", pos.EntryReason),
	)
	e.notify(ctx, telegram.FormatEntry(pos))
}

func (e *Engine) abortEntry(symbol types.Symbol) {
	if err := e.book.AbortEntry(symbol); err != nil {
		e.logger.Error("Entry release failed", zap.String("symbol", symbol.String()), zap.Error(err))
	}
}

// checkExit updates the trailing state of the open position of symbol and
// sells it when its evaluator calls an exit.
func (e *Engine) checkExit(ctx context.Context, symbol types.Symbol) {
	tick, err := e.gateway.Ticker(ctx, symbol.String())
	if err != nil {
		e.logger.Debug("Ticker unavailable", zap.String("symbol", symbol.String()), zap.Error(err))
		return
	}

	now := e.now()
	reason := types.ExitNone
	_, open := e.book.Inspect(symbol, tick.LastPrice, func(pos *types.Position) {
		if ev := e.evaluator(symbol, pos.Strategy); ev != nil {
			reason = ev.EvaluateExit(pos, tick.LastPrice, now)
		}
	})
	if !open || reason == types.ExitNone {
		return
	}

	pos, err := e.book.BeginExit(symbol)
	if err != nil {
		return
	}
	log := e.logger.With(zap.String("symbol", symbol.String()), zap.String("reason", string(reason)))

	orderCtx := context.WithoutCancel(ctx)
	quantity := pos.Quantity
	if balance, err := e.gateway.Balance(orderCtx); err == nil {
		if free := balance.FreeOf(symbol.Base()); free > 0 && free < quantity {
			quantity = free
		}
	}

	order, err := e.gateway.PlaceOrder(orderCtx, types.OrderRequest{
		Symbol:   symbol,
		Side:     types.SideSell,
		Quantity: quantity,
	})
	if err != nil {
		e.metrics.OrderFailed(types.SideSell)
		log.Error("❌ Sell failed, retrying next cycle", zap.Error(err))
		if err := e.book.AbortExit(symbol); err != nil {
			log.Error("Exit release failed", zap.Error(err))
		}
		return
	}
	e.metrics.OrderSubmitted(types.SideSell)

	exitPrice := order.Price
	if exitPrice <= 0 {
		exitPrice = tick.LastPrice
	}
	outcome := types.TradeOutcome{
		Symbol:     symbol,
		Strategy:   pos.Strategy,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   quantity,
		NetPnLPct:  pos.GrossPnLPct(exitPrice) - e.cfg.Exit.FeePct,
		Reason:     reason,
		EntryTime:  pos.EntryTime,
		ClosedAt:   now,
	}

	if t, ok := e.tuners[pos.Strategy]; ok {
		t.Feedback(outcome.NetPnLPct)
	}
	halted := e.governor.RecordTrade(outcome.NetPnLPct)
	if err := e.book.CompleteExit(symbol, now); err != nil {
		log.Error("Position not cleared", zap.Error(err))
	}

	e.metrics.TradeClosed(outcome)
	e.metrics.PositionsOpen.Set(float64(e.book.Active()))
	e.metrics.ObserveRisk(e.governor.State())

	log.Info("💰 Position closed",
		zap.Float64("entry", outcome.EntryPrice),
		zap.Float64("exit", outcome.ExitPrice),
		zap.Float64("net_pnl", outcome.NetPnLPct),
	)
	e.notify(ctx, telegram.FormatExit(outcome))
	if halted {
		e.notify(ctx, telegram.FormatHalt(e.governor.State()))
	}
}

// checkAccount rolls the trading day and enforces the daily loss ceiling
// against the current equity.
func (e *Engine) checkAccount(ctx context.Context, now time.Time) {
	seq, idle := e.book.Settlement()
	if !idle {
		e.logger.Debug("Sale in flight, account check deferred")
		return
	}
	balance, err := e.gateway.Balance(ctx)
	if err != nil {
		e.logger.Warn("Balance unavailable", zap.Error(err))
		return
	}
	equity := e.markEquity(balance)
	if after, idle := e.book.Settlement(); !idle || after != seq {
		e.logger.Debug("Sale during balance fetch, account check deferred")
		return
	}

	previous := e.governor.State()
	if e.governor.RollDay(now, equity) {
		summary := e.report(true)
		summary.Risk = previous
		e.notify(ctx, telegram.FormatStatus(summary))
	}

	if e.governor.CheckDailyLoss(equity) {
		e.notify(ctx, telegram.FormatHalt(e.governor.State()))
	}
	e.metrics.ObserveRisk(e.governor.State())
}

// markEquity caches the free quote and the equity derived from balance.
func (e *Engine) markEquity(balance types.Balance) float64 {
	quote := e.cfg.Exchange.QuoteAsset
	equity := balance.TotalOf(quote) + e.book.HeldValue()

	e.mu.Lock()
	e.freeQuote = balance.FreeOf(quote)
	e.equity = equity
	e.mu.Unlock()

	e.metrics.Equity.Set(equity)
	return equity
}

func (e *Engine) checkMarket(ctx context.Context, now time.Time) {
	condition := strategy.MarketCondition{Safe: true, Reason: "reference data unavailable"}
	klines, err := e.gateway.Candles(ctx, e.reference.String(), e.cfg.Engine.CandleInterval, e.cfg.Engine.CandleLimit)
	if err != nil {
		e.logger.Debug("Reference candles unavailable", zap.Error(err))
	} else {
		condition = strategy.CheckMarket(klines, e.cfg.Risk.MaxVolatility)
	}

	e.mu.Lock()
	changed := condition.Safe != e.market.Safe
	e.market = condition
	e.lastMarket = now
	e.mu.Unlock()

	if changed {
		if condition.Safe {
			e.logger.Info("✅ Market stable again", zap.String("reason", condition.Reason))
		} else {
			e.logger.Warn("⚠️ Market unsafe, entries paused", zap.String("reason", condition.Reason))
		}
	}
	e.metrics.ObserveMarket(condition.Safe)
}

// refreshIndicators recomputes every evaluator snapshot and the leader
// ranking.
func (e *Engine) refreshIndicators(ctx context.Context, now time.Time) {
	scores := make([]strategy.LeaderScore, 0, len(e.symbols))
	for _, symbol := range e.symbols {
		if ctx.Err() != nil {
			return
		}
		e.guard(symbol, "refresh", func() {
			bars, err := e.gateway.Candles(ctx, symbol.String(), e.cfg.Engine.CandleInterval, e.cfg.Engine.CandleLimit)
			if err != nil {
				e.logger.Debug("Candles unavailable", zap.String("symbol", symbol.String()), zap.Error(err))
				return
			}
			if len(bars) < strategy.MinBars {
				err := errors.Newf(errors.ErrCodeInsufficientData, "%s has %d bars, need %d", symbol, len(bars), strategy.MinBars)
				e.logger.Debug("Snapshot kept", zap.Error(err))
			}
			higher, err := e.gateway.Candles(ctx, symbol.String(), e.cfg.Engine.HigherInterval, e.cfg.Engine.HigherLimit)
			if err != nil {
				higher = nil
			}
			for _, ev := range e.evaluators[symbol] {
				ev.Refresh(bars, higher, now)
			}

			leader, err := e.gateway.Candles(ctx, symbol.String(), e.cfg.Engine.LeaderInterval, leaderBars)
			if err != nil {
				return
			}
			if score, ok := strategy.CalculateLeaderScore(leader, leaderLookback); ok {
				scores = append(scores, strategy.LeaderScore{Symbol: symbol, Score: score})
			}
		})
	}

	n := e.cfg.Engine.Leaders
	if n <= 0 {
		n = reportLeaders
	}
	leaders := strategy.RankLeaders(scores, n)

	scanSet := e.symbols
	if e.cfg.Engine.Leaders > 0 && len(leaders) > 0 {
		scanSet = leaders
	}

	e.mu.Lock()
	e.leaders = leaders
	e.scanSet = scanSet
	e.lastRefresh = now
	e.mu.Unlock()

	e.logger.Debug("Indicators refreshed", zap.Any("leaders", leaders))
}

func (e *Engine) processCommands(ctx context.Context) {
	text, err := e.notifier.PollCommand(ctx)
	if err != nil {
		e.logger.Debug("Command poll failed", zap.Error(err))
		return
	}
	if text == "" {
		return
	}

	command := strings.ToLower(text)
	switch {
	case matches(command, e.cfg.Commands.Pause):
		e.governor.Halt("paused by operator")
		e.metrics.ObserveRisk(e.governor.State())
		e.notify(ctx, telegram.FormatPause())
	case matches(command, e.cfg.Commands.Resume):
		e.mu.RLock()
		equity := e.equity
		e.mu.RUnlock()
		if balance, err := e.gateway.Balance(ctx); err == nil {
			equity = e.markEquity(balance)
		}
		e.governor.Resume(equity)
		e.metrics.ObserveRisk(e.governor.State())
		e.notify(ctx, telegram.FormatResume(equity, e.cfg.Exchange.QuoteAsset))
	case matches(command, e.cfg.Commands.Status):
		e.notify(ctx, telegram.FormatStatus(e.report(false)))
	default:
		e.logger.Debug("Unknown command", zap.String("text", text))
	}
}

// Status refreshes the balance and returns the current report.
func (e *Engine) Status(ctx context.Context) (types.StatusReport, error) {
	balance, err := e.gateway.Balance(ctx)
	if err != nil {
		return types.StatusReport{}, err
	}
	e.markEquity(balance)
	return e.report(false), nil
}

// report builds a status report from cached state only.
func (e *Engine) report(daily bool) types.StatusReport {
	e.mu.RLock()
	r := types.StatusReport{
		Time:         e.now(),
		Daily:        daily,
		DryRun:       e.cfg.Exchange.DryRun,
		QuoteAsset:   e.cfg.Exchange.QuoteAsset,
		FreeQuote:    e.freeQuote,
		Equity:       e.equity,
		MarketSafe:   e.market.Safe,
		MarketReason: e.market.Reason,
		Leaders:      append([]types.Symbol(nil), e.leaders...),
	}
	holds := make(map[types.Symbol]string, len(e.holds))
	for symbol, reason := range e.holds {
		holds[symbol] = reason
	}
	e.mu.RUnlock()
	r.Risk = e.governor.State()

	for _, v := range e.book.Snapshot() {
		r.Positions = append(r.Positions, types.PositionReport{
			Symbol:      v.Symbol,
			Strategy:    v.Position.Strategy,
			State:       v.State.String(),
			EntryPrice:  v.Position.EntryPrice,
			LastPrice:   v.LastPrice,
			Quantity:    v.Position.Quantity,
			PnLPct:      v.Position.GrossPnLPct(v.LastPrice),
			Trailing:    v.Position.TrailingArmed,
			EntryReason: v.Position.EntryReason,
			HeldFor:     r.Time.Sub(v.Position.EntryTime),
		})
	}

	if len(r.Positions) == 0 {
		watch := e.symbols
		if len(r.Leaders) > 0 {
			watch = r.Leaders[:1]
		} else if len(watch) > watchSymbols {
			watch = watch[:watchSymbols]
		}
		for _, symbol := range watch {
			if reason, ok := holds[symbol]; ok {
				r.Watch = append(r.Watch, types.SymbolReason{Symbol: symbol, Reason: reason})
				continue
			}
			for _, ev := range e.evaluators[symbol] {
				if reason := ev.LastReason(); reason != "" {
					r.Watch = append(r.Watch, types.SymbolReason{Symbol: symbol, Strategy: ev.Kind(), Reason: reason})
				}
			}
		}
	}

	for _, kind := range []types.StrategyKind{types.StrategyTrend, types.StrategyReversal} {
		t, ok := e.tuners[kind]
		if !ok {
			continue
		}
		stats := t.Stats()
		r.Tuners = append(r.Tuners, types.TunerReport{
			Strategy:      kind,
			Trades:        stats.Trades,
			WinRate:       stats.WinRate,
			ProfitFactor:  math.Min(stats.ProfitFactor, maxReportedPF),
			ExpectedValue: stats.ExpectedValue,
			Params:        t.Suggest(),
		})
	}
	return r
}

func (e *Engine) override(kind types.StrategyKind) *types.ParamOverride {
	if t, ok := e.tuners[kind]; ok {
		return t.Override()
	}
	return nil
}

func (e *Engine) evaluator(symbol types.Symbol, kind types.StrategyKind) strategy.Evaluator {
	for _, ev := range e.evaluators[symbol] {
		if ev.Kind() == kind {
			return ev
		}
	}
	return nil
}

func (e *Engine) scanSymbols() []types.Symbol {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scanSet
}

func (e *Engine) notify(ctx context.Context, text string) {
	if err := e.notifier.Send(context.WithoutCancel(ctx), text); err != nil {
		e.logger.Warn("Notification failed", zap.Error(err))
	}
}

// guard keeps a panic in one symbol from aborting the loop.
func (e *Engine) guard(symbol types.Symbol, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Recovered from panic",
				zap.String("symbol", symbol.String()),
				zap.String("stage", stage),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	fn()
}

func matches(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
