package risk

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"spot-trading-engine/pkg/errors"
	"spot-trading-engine/pkg/types"
)

// Governor is the account level circuit breaker. It is SAFE until a loss
// streak or the daily loss ceiling halts it, and stays HALTED until Resume.
// Halting blocks new entries only.
type Governor struct {
	cfg    types.RiskConfig
	loc    *time.Location
	logger *zap.Logger

	mu           sync.Mutex
	startBalance float64
	consecutive  int
	dailyPnL     float64
	halted       bool
	haltReason   string
	day          string
	trades       int
	wins         int
}

func NewGovernor(cfg types.RiskConfig, loc *time.Location, logger *zap.Logger) *Governor {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Governor{cfg: cfg, loc: loc, logger: logger}
}

// Start sets the session baseline.
func (g *Governor) Start(now time.Time, total float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetDay(now, total)
}

// RecordTrade counts a closed trade. A return below the loss tolerance
// extends the losing streak, anything else resets it. It reports true only
// when this trade halted the governor.
func (g *Governor) RecordTrade(netPct float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.trades++
	if netPct < -g.cfg.LossTolerance {
		g.consecutive++
	} else {
		g.consecutive = 0
	}
	if netPct > 0 {
		g.wins++
	}

	if g.consecutive >= g.cfg.MaxConsecutiveLosses {
		return g.halt(fmt.Sprintf("%d consecutive losses", g.consecutive))
	}
	return false
}

// CheckDailyLoss updates the daily P&L from the current total balance and
// reports true only when it halted the governor.
func (g *Governor) CheckDailyLoss(total float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.startBalance <= 0 {
		return false
	}
	g.dailyPnL = (total - g.startBalance) / g.startBalance
	if g.dailyPnL <= -g.cfg.DailyLossPct {
		return g.halt(fmt.Sprintf("daily loss %.2f%% beyond %.2f%%", g.dailyPnL*100, g.cfg.DailyLossPct*100))
	}
	return false
}

// Halt stops new entries on operator request.
func (g *Governor) Halt(reason string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.halt(reason)
}

// Resume clears the halt, the losing streak and rebases the daily P&L on
// total.
func (g *Governor) Resume(total float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.halted = false
	g.haltReason = ""
	g.consecutive = 0
	g.dailyPnL = 0
	if total > 0 {
		g.startBalance = total
	}
	g.logger.Info("▶️ Risk governor resumed", zap.Float64("baseline", g.startBalance))
}

// RollDay resets the daily counters the first time it sees a new calendar
// day. A halt survives the roll.
func (g *Governor) RollDay(now time.Time, total float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if dayKey(now, g.loc) == g.day {
		return false
	}
	g.resetDay(now, total)
	g.logger.Info("📅 New trading day", zap.String("day", g.day), zap.Float64("baseline", total))
	return true
}

func (g *Governor) Halted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.halted
}

func (g *Governor) State() types.RiskState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return types.RiskState{
		SessionStartBalance: g.startBalance,
		ConsecutiveLosses:   g.consecutive,
		DailyPnLPct:         g.dailyPnL,
		Halted:              g.halted,
		HaltReason:          g.haltReason,
		Day:                 g.day,
		TradesToday:         g.trades,
		WinsToday:           g.wins,
	}
}

// CanOpen gates a new position on the halt state and the position cap.
func (g *Governor) CanOpen(active, maxPositions int) error {
	g.mu.Lock()
	halted, reason := g.halted, g.haltReason
	g.mu.Unlock()

	if halted {
		return errors.Newf(errors.ErrCodeRiskHalted, "trading halted: %s", reason)
	}
	if active >= maxPositions {
		return errors.Newf(errors.ErrCodeMaxPositions, "maximum positions reached (%d/%d)", active, maxPositions)
	}
	return nil
}

// PositionBudget splits the free quote balance over the remaining slots,
// scaled by the safety margin and the evaluator confidence.
func (g *Governor) PositionBudget(free float64, active, maxPositions int, confidence float64) (float64, error) {
	remaining := maxPositions - active
	if remaining <= 0 {
		return 0, errors.Newf(errors.ErrCodeMaxPositions, "no free position slot (%d/%d)", active, maxPositions)
	}
	if confidence <= 0 || confidence > 1 {
		confidence = 1
	}

	budget := free / float64(remaining) * g.cfg.SafetyMargin * confidence
	if budget < g.cfg.MinNotional {
		return budget, errors.Newf(errors.ErrCodeBelowMinNotional, "budget %.2f below minimum %.2f", budget, g.cfg.MinNotional)
	}
	return budget, nil
}

func (g *Governor) halt(reason string) bool {
	if g.halted {
		return false
	}
	g.halted = true
	g.haltReason = reason
	g.logger.Warn("🚨 Trading halted", zap.String("reason", reason))
	return true
}

func (g *Governor) resetDay(now time.Time, total float64) {
	g.day = dayKey(now, g.loc)
	g.startBalance = total
	g.consecutive = 0
	g.dailyPnL = 0
	g.trades = 0
	g.wins = 0
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}
