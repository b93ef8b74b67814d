package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"SharpeSentinel/internal/model"
	"SharpeSentinel/internal/recorder"
)

const dateLayout = "2006-01-02"

// FormatReport formats an optimisation report into a Telegram message.
func FormatReport(rep *model.Report) string {
	var b strings.Builder
	best := rep.Best

	b.WriteString(fmt.Sprintf("📊 <b>SharpeSentinel</b> | %s → %s\n\n",
		rep.Start.Format(dateLayout), rep.End.Format(dateLayout)))

	if best.IsSentinel() {
		b.WriteString("⚠️ No allocation produced a positive Sharpe ratio; holding nothing.\n")
	} else {
		b.WriteString("💼 <b>Best allocation:</b>\n")
		for i, sym := range rep.Symbols {
			b.WriteString(fmt.Sprintf("  %s: %.0f%%\n", html.EscapeString(sym), best.Allocation[i]*100))
		}
	}

	b.WriteString("\n📈 <b>Statistics:</b>\n")
	b.WriteString(fmt.Sprintf("  Sharpe: %.4f\n", best.SharpeRatio))
	b.WriteString(fmt.Sprintf("  Daily std dev: %.6f\n", best.Volatility))
	b.WriteString(fmt.Sprintf("  Avg daily return: %.6f\n", best.MeanDailyReturn))
	b.WriteString(fmt.Sprintf("  Cumulative return: %.4f\n", best.CumulativeReturn))
	b.WriteString(fmt.Sprintf("  Compound return: %+.2f%%\n", rep.CompoundReturn*100))
	b.WriteString(fmt.Sprintf("  Max drawdown: %.2f%%\n", rep.MaxDrawdown*100))

	b.WriteString(fmt.Sprintf("\n%d days · %d candidates (%d degenerate) · %s\n",
		rep.TradingDays, best.Evaluated, best.Skipped, rep.Elapsed.Round(time.Millisecond)))
	return b.String()
}

// FormatDrift lists weight changes versus the previous run. Unchanged
// weights are omitted.
func FormatDrift(drift []model.Drift) string {
	var b strings.Builder
	for _, d := range drift {
		if d.Change > -1e-9 && d.Change < 1e-9 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: %.0f%% → %.0f%% (%+.0f)\n",
			html.EscapeString(d.Symbol), d.Previous*100, d.Current*100, d.Change*100))
	}
	if b.Len() == 0 {
		return "🔁 Allocation unchanged since the last run.\n"
	}
	return "🔁 <b>Rebalance:</b>\n" + b.String()
}

// FormatPlan formats a capital plan for display.
func FormatPlan(plan *model.Plan) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>Capital plan</b> | $%.0f\n", plan.Capital))
	if !plan.PriceDate.IsZero() {
		b.WriteString(fmt.Sprintf("Prices as of %s\n", plan.PriceDate.Format(dateLayout)))
	}
	b.WriteString("\n")
	for _, p := range plan.Positions {
		if p.Weight == 0 {
			continue
		}
		if p.Price > 0 {
			b.WriteString(fmt.Sprintf("  %s %.0f%%: $%.2f → %d × $%.2f\n",
				html.EscapeString(p.Symbol), p.Weight*100, p.Amount, p.Shares, p.Price))
		} else {
			b.WriteString(fmt.Sprintf("  %s %.0f%%: $%.2f\n", html.EscapeString(p.Symbol), p.Weight*100, p.Amount))
		}
	}
	b.WriteString(fmt.Sprintf("\nInvested: $%.2f | Cash: $%.2f\n", plan.Invested, plan.Cash))
	return b.String()
}

// FormatRun formats a recorded run for the /last command.
func FormatRun(rec *recorder.RunRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>Last run</b> | %s (%s)\n\n",
		rec.CreatedAt.Format("2006-01-02 15:04"), html.EscapeString(rec.Trigger)))
	b.WriteString(fmt.Sprintf("Window: %s → %s\n", rec.Start, rec.End))
	for i, sym := range rec.Symbols {
		if i < len(rec.Allocation) {
			b.WriteString(fmt.Sprintf("  %s: %.0f%%\n", html.EscapeString(sym), rec.Allocation[i]*100))
		}
	}
	b.WriteString(fmt.Sprintf("Sharpe: %.4f | Cum: %.4f | MaxDD: %.2f%%\n",
		rec.Sharpe, rec.Cumulative, rec.MaxDrawdown*100))
	return b.String()
}

// FormatError formats an error alert.
func FormatError(context string, err error) string {
	return fmt.Sprintf("❌ <b>%s</b>\n%s", html.EscapeString(context), html.EscapeString(err.Error()))
}

// HelpText lists the bot commands.
const HelpText = `🤖 <b>SharpeSentinel commands</b>

/optimize - run the allocation search now
/last - show the last recorded run
/plan - show the capital plan for the current allocation
/capital [amount] - show or change the planned capital
/help - show this message`
