package telegram

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"spot-trading-engine/pkg/types"
)

var divider = strings.Repeat("━", 24)

// FormatStart announces the engine start.
func FormatStart(symbols []string, dryRun bool) string {
	mode := "LIVE"
	if dryRun {
		mode = "DRY RUN"
	}
	msg := "🤖 <b>Trading Engine Started</b>\n\n"
	msg += fmt.Sprintf("⚙️ Mode: <b>%s</b>\n", mode)
	msg += fmt.Sprintf("📊 Watching: %s\n", html.EscapeString(strings.Join(symbols, ", ")))
	return msg
}

// FormatEntry reports a filled buy.
func FormatEntry(pos types.Position) string {
	msg := fmt.Sprintf("🚀 <b>BUY %s</b> (%s)\n", html.EscapeString(pos.Symbol.String()), pos.Strategy)
	msg += divider + "\n"
	msg += fmt.Sprintf("💰 Entry: <code>%s</code>\n", price(pos.EntryPrice))
	msg += fmt.Sprintf("📦 Quantity: <code>%.8g</code> (~%.2f)\n", pos.Quantity, pos.Notional)
	msg += fmt.Sprintf("🛑 Stop Loss: -%.2f%%\n", pos.StopLossPct*100)
	msg += fmt.Sprintf("🎯 Take Profit: +%.2f%% (then trailing)\n", pos.TakeProfitPct*100)
	msg += fmt.Sprintf("📈 Confidence: %.0f%%\n", pos.Confidence*100)
	msg += fmt.Sprintf("\n💡 Reason: %s", html.EscapeString(pos.EntryReason))
	return msg
}

// FormatExit reports a filled sell.
func FormatExit(outcome types.TradeOutcome) string {
	emoji := "✅"
	if outcome.NetPnLPct < 0 {
		emoji = "❌"
	}
	msg := fmt.Sprintf("%s <b>SELL %s</b> (%s)\n", emoji, html.EscapeString(outcome.Symbol.String()), outcome.Strategy)
	msg += divider + "\n"
	msg += fmt.Sprintf("💵 %s → %s\n", price(outcome.EntryPrice), price(outcome.ExitPrice))
	msg += fmt.Sprintf("📊 Net PnL: <b>%+.2f%%</b>\n", outcome.NetPnLPct*100)
	msg += fmt.Sprintf("⏱️ Held: %s\n", outcome.ClosedAt.Sub(outcome.EntryTime).Round(time.Second))
	msg += fmt.Sprintf("\n💡 Exit: %s", outcome.Reason)
	return msg
}

// FormatHalt reports a risk halt.
func FormatHalt(state types.RiskState) string {
	msg := "🚨 <b>TRADING HALTED</b>\n\n"
	msg += fmt.Sprintf("Reason: %s\n", html.EscapeString(state.HaltReason))
	msg += fmt.Sprintf("Daily PnL: %+.2f%%\n", state.DailyPnLPct*100)
	msg += fmt.Sprintf("Loss streak: %d\n", state.ConsecutiveLosses)
	msg += "\nOpen positions are still managed. Send a resume command to trade again."
	return msg
}

// FormatResume confirms a resume command.
func FormatResume(baseline float64, quote string) string {
	return fmt.Sprintf("▶️ <b>Trading resumed</b>\nNew baseline: %.2f %s", baseline, html.EscapeString(quote))
}

// FormatPause confirms a pause command.
func FormatPause() string {
	return "⏸️ <b>Trading paused</b>\nNo new entries until resumed. Open positions are still managed."
}

// FormatStatus renders a status report or the daily summary.
func FormatStatus(r types.StatusReport) string {
	title := "📊 <b>Status Report</b>"
	if r.Daily {
		title = "📅 <b>Daily Summary</b>"
	}

	var b strings.Builder
	b.WriteString(title + "\n" + divider + "\n")
	fmt.Fprintf(&b, "💰 Free: %.2f %s | Equity: %.2f\n", r.FreeQuote, html.EscapeString(r.QuoteAsset), r.Equity)
	fmt.Fprintf(&b, "📈 Daily PnL: %+.2f%% (%d trades, %d wins)\n", r.Risk.DailyPnLPct*100, r.Risk.TradesToday, r.Risk.WinsToday)

	switch {
	case r.Risk.Halted:
		fmt.Fprintf(&b, "🚨 Halted: %s\n", html.EscapeString(r.Risk.HaltReason))
	case !r.MarketSafe:
		fmt.Fprintf(&b, "⚠️ Market caution: %s\n", html.EscapeString(r.MarketReason))
	default:
		b.WriteString("✅ Trading active\n")
	}

	if len(r.Positions) > 0 {
		b.WriteString("\n<b>Open positions</b>\n")
		for _, p := range r.Positions {
			trailing := ""
			if p.Trailing {
				trailing = " 🎯"
			}
			fmt.Fprintf(&b, "• %s %+.2f%%%s (%s, %s)\n", html.EscapeString(p.Symbol.String()), p.PnLPct*100, trailing, p.Strategy, p.HeldFor.Round(time.Minute))
			fmt.Fprintf(&b, "  └ %s\n", html.EscapeString(p.EntryReason))
		}
	} else if len(r.Watch) > 0 {
		b.WriteString("\n<b>Waiting</b>\n")
		for _, w := range r.Watch {
			if w.Strategy == "" {
				fmt.Fprintf(&b, "• %s: %s\n", html.EscapeString(w.Symbol.Base()), html.EscapeString(w.Reason))
				continue
			}
			fmt.Fprintf(&b, "• %s (%s): %s\n", html.EscapeString(w.Symbol.Base()), w.Strategy, html.EscapeString(w.Reason))
		}
	}

	if len(r.Tuners) > 0 {
		b.WriteString("\n<b>Tuning</b>\n")
		for _, t := range r.Tuners {
			fmt.Fprintf(&b, "• %s: %d trades, win %.0f%%, PF %s, k %.2f, RSI %.0f, vol x%.1f\n",
				t.Strategy, t.Trades, t.WinRate*100, profitFactor(t.ProfitFactor), t.Params.K, t.Params.RSIBuyThreshold, t.Params.VolumeMultiplier)
		}
	}

	if len(r.Leaders) > 0 {
		names := make([]string, len(r.Leaders))
		for i, s := range r.Leaders {
			names[i] = s.Base()
		}
		fmt.Fprintf(&b, "\n🔥 Leaders: %s", html.EscapeString(strings.Join(names, ", ")))
	}
	return strings.TrimRight(b.String(), "\n")
}

func price(p float64) string {
	return fmt.Sprintf("%.8g", p)
}

func profitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", pf)
}
