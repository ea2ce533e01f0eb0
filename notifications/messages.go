package notifications

import (
	"fmt"
	"strings"

	"tradescout/database/types"
	"tradescout/helpers"
)

// OpportunitySubject is the headline used by every channel
func OpportunitySubject(opp types.Opportunity) string {
	return fmt.Sprintf("🎯 OPPORTUNITY: %s (%.0f%% confidence)", opp.Signal.Symbol, opp.Signal.Confidence)
}

// ReportSubject is the headline for a period report
func ReportSubject(report types.PeriodReport) string {
	m := report.Metrics
	return fmt.Sprintf("📊 TradeScout %s Report - %s to %s",
		periodTitle(string(m.PeriodType)),
		m.PeriodStart.Format("2006-01-02"),
		m.PeriodEnd.Format("2006-01-02"))
}

func periodTitle(p string) string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
}

// OpportunityText renders a plain-text alert body
func OpportunityText(opp types.Opportunity) string {
	s := opp.Setup
	var b strings.Builder
	fmt.Fprintln(&b, OpportunitySubject(opp))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Entry:  %s x %d shares\n", helpers.FormatUSD(s.EntryPrice), s.PositionSize)
	fmt.Fprintf(&b, "Target: %s (+%s)\n", helpers.FormatUSD(s.TargetPrice), helpers.FormatUSD(s.ProfitTarget))
	fmt.Fprintf(&b, "Stop:   %s (-%s)\n", helpers.FormatUSD(s.StopPrice), helpers.FormatUSD(s.RiskAmount))
	fmt.Fprintln(&b)
	b.WriteString(strings.TrimSpace(s.Reasoning))
	return b.String()
}

// ReportText renders a plain-text period report
func ReportText(report types.PeriodReport) string {
	m := report.Metrics
	var b strings.Builder
	fmt.Fprintln(&b, ReportSubject(report))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Trades: %d (%d W / %d L), win rate %.1f%%\n", m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRate)
	fmt.Fprintf(&b, "P&L: %s, return %s%%\n", helpers.FormatUSD(m.TotalPnl), m.ReturnPercent.StringFixed(2))
	if m.ProfitFactor != nil {
		fmt.Fprintf(&b, "Profit factor: %s\n", m.ProfitFactor.StringFixed(2))
	}
	fmt.Fprintf(&b, "Projected annual: %s%%\n", m.ProjectedAnnualReturn.StringFixed(2))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, report.TargetAnalysis.Assessment)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Recommendations:")
	for _, r := range report.Recommendations {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}
