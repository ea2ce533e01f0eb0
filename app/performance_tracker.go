package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	models "tradescout/database/models_pkg"
	"tradescout/database/types"
	"tradescout/helpers"
	"tradescout/stats"
)

// Snapshot status labels
const (
	StatusExcellent        = "Excellent - On target with strong win rate"
	StatusGood             = "Good - On pace for annual target"
	StatusFair             = "Fair - Profitable but below target"
	StatusNeedsImprovement = "Needs Improvement - Below expectations"
)

// Recommendation thresholds
const (
	minWinRate          = 55.0
	strongWinRate       = 70.0
	excellentWinRate    = 60.0
	minProfitFactor     = 1.5
	strongProfitFactor  = 2.0
	minTradesPerQuarter = 8
	maxTradesPerQuarter = 25
	minWinLossRatio     = 1.1
)

var hundred = decimal.NewFromInt(100)

// PerformanceTargets are the account's capital base and return goals
type PerformanceTargets struct {
	InitialCapital         decimal.Decimal
	AnnualTargetPercent    float64
	QuarterlyTargetPercent float64
}

// PerformanceTracker aggregates closed trades into snapshots and period reports
type PerformanceTracker struct {
	trades   TradeStore
	store    PerformanceStore
	notifier Notifier
	targets  PerformanceTargets
	loc      *time.Location
	now      Clock
	logger   zerolog.Logger
}

// NewPerformanceTracker creates a tracker. notifier may be nil.
func NewPerformanceTracker(trades TradeStore, store PerformanceStore, notifier Notifier, targets PerformanceTargets, loc *time.Location, now Clock) *PerformanceTracker {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PerformanceTracker{
		trades:   trades,
		store:    store,
		notifier: notifier,
		targets:  targets,
		loc:      loc,
		now:      now,
		logger:   log.With().Str("component", "performance").Logger(),
	}
}

// ProjectAnnualByDayOfYear extrapolates a year-to-date return linearly over 365 days
func ProjectAnnualByDayOfYear(returnPct decimal.Decimal, dayOfYear int) decimal.Decimal {
	if dayOfYear <= 0 {
		return decimal.Zero
	}
	return returnPct.Mul(decimal.NewFromInt(365)).DivRound(decimal.NewFromInt(int64(dayOfYear)), 4)
}

// ProjectAnnualFromQuarter extrapolates one quarter's return to a year
func ProjectAnnualFromQuarter(quarterReturnPct decimal.Decimal) decimal.Decimal {
	return quarterReturnPct.Mul(decimal.NewFromInt(4))
}

// returnPercent is pnl over the initial capital, rounded to 4 places as a
// ratio and then scaled to percent.
func (pt *PerformanceTracker) returnPercent(pnl decimal.Decimal) decimal.Decimal {
	if pt.targets.InitialCapital.IsZero() {
		return decimal.Zero
	}
	return pnl.DivRound(pt.targets.InitialCapital, 4).Mul(hundred)
}

// Snapshot summarises every closed trade to date
func (pt *PerformanceTracker) Snapshot(ctx context.Context) (*types.PerformanceSnapshot, error) {
	closed, err := pt.trades.AllClosed(ctx)
	if err != nil {
		return nil, fmt.Errorf("load closed trades: %w", err)
	}
	open, err := pt.trades.CountOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("count open trades: %w", err)
	}

	today := helpers.DateOnly(pt.now().In(pt.loc))

	totalPnl := decimal.Zero
	winners := 0
	for i := range closed {
		totalPnl = totalPnl.Add(closed[i].PnlOrZero())
		if closed[i].IsWinner() {
			winners++
		}
	}

	winRate := 0.0
	if len(closed) > 0 {
		winRate = float64(winners) / float64(len(closed)) * 100
	}

	returnPct := pt.returnPercent(totalPnl)
	dayOfYear := today.YearDay()
	expected := pt.targets.AnnualTargetPercent / 365 * float64(dayOfYear)
	onPace := returnPct.InexactFloat64() >= expected

	return &types.PerformanceSnapshot{
		AsOf:            today,
		TotalPnl:        totalPnl,
		CurrentCapital:  pt.targets.InitialCapital.Add(totalPnl),
		ReturnPercent:   returnPct,
		WinRate:         winRate,
		ClosedTrades:    len(closed),
		OpenTrades:      open,
		OnPaceForTarget: onPace,
		ProjectedAnnual: ProjectAnnualByDayOfYear(returnPct, dayOfYear),
		Status:          snapshotStatus(returnPct, winRate, onPace),
	}, nil
}

func snapshotStatus(returnPct decimal.Decimal, winRate float64, onPace bool) string {
	switch {
	case onPace && winRate >= excellentWinRate:
		return StatusExcellent
	case onPace:
		return StatusGood
	case returnPct.IsPositive():
		return StatusFair
	default:
		return StatusNeedsImprovement
	}
}

// periodWindow returns the bounds of the period containing asOf and how many
// such periods make a year.
func periodWindow(periodType models.PeriodType, asOf time.Time) (start, end time.Time, perYear int64, err error) {
	switch periodType {
	case models.PeriodWeekly:
		start, end = helpers.WeekBounds(asOf)
		return start, end, 52, nil
	case models.PeriodMonthly:
		start, end = helpers.MonthBounds(asOf)
		return start, end, 12, nil
	case models.PeriodQuarterly:
		start, end = helpers.QuarterBounds(asOf)
		return start, end, 4, nil
	case models.PeriodAnnual:
		start, end = helpers.YearBounds(asOf)
		return start, end, 1, nil
	}
	return time.Time{}, time.Time{}, 0, fmt.Errorf("unknown period type %q", periodType)
}

// periodTarget is the return goal for one period. Quarters use the configured
// quarterly target; other periods split the annual target evenly.
func (pt *PerformanceTracker) periodTarget(periodType models.PeriodType, perYear int64) float64 {
	if periodType == models.PeriodQuarterly {
		return pt.targets.QuarterlyTargetPercent
	}
	return pt.targets.AnnualTargetPercent / float64(perYear)
}

// BuildPeriodMetrics aggregates the trades closed in [start, end]. An empty
// set yields zeroed metrics.
func (pt *PerformanceTracker) BuildPeriodMetrics(periodType models.PeriodType, start, end time.Time, closed []models.Trade) (*models.PerformanceMetrics, error) {
	_, _, perYear, err := periodWindow(periodType, start)
	if err != nil {
		return nil, err
	}

	m := &models.PerformanceMetrics{
		PeriodType:      periodType,
		PeriodStart:     start,
		PeriodEnd:       end,
		TotalTrades:     len(closed),
		StartingCapital: pt.targets.InitialCapital,
	}

	totalPnl := decimal.Zero
	totalWins := decimal.Zero
	totalLosses := decimal.Zero
	var largestWin, largestLoss *decimal.Decimal
	var returns []float64

	for i := range closed {
		t := &closed[i]
		pnl := t.PnlOrZero()
		totalPnl = totalPnl.Add(pnl)
		if t.PnlPercent != nil {
			returns = append(returns, t.PnlPercent.InexactFloat64()/100)
		}

		switch {
		case t.IsWinner():
			m.WinningTrades++
			totalWins = totalWins.Add(pnl)
			if largestWin == nil || pnl.GreaterThan(*largestWin) {
				v := pnl
				largestWin = &v
			}
		case t.IsLoser():
			m.LosingTrades++
			totalLosses = totalLosses.Add(pnl)
			if largestLoss == nil || pnl.LessThan(*largestLoss) {
				v := pnl
				largestLoss = &v
			}
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	m.TotalPnl = totalPnl
	m.EndingCapital = pt.targets.InitialCapital.Add(totalPnl)
	m.ReturnPercent = pt.returnPercent(totalPnl)

	if m.WinningTrades > 0 {
		avg := totalWins.DivRound(decimal.NewFromInt(int64(m.WinningTrades)), 2)
		m.AvgWin = &avg
		m.LargestWin = largestWin
	}
	if m.LosingTrades > 0 {
		avg := totalLosses.DivRound(decimal.NewFromInt(int64(m.LosingTrades)), 2)
		m.AvgLoss = &avg
		m.LargestLoss = largestLoss
	}
	if absLosses := totalLosses.Abs(); absLosses.IsPositive() {
		pf := totalWins.DivRound(absLosses, 2)
		m.ProfitFactor = &pf
	}
	// per-trade returns; left unset below two samples
	if len(returns) >= 2 {
		sharpe := stats.SharpeRatio(returns)
		m.SharpeRatio = &sharpe
	}

	m.OnPaceForAnnualTarget = m.ReturnPercent.InexactFloat64() >= pt.periodTarget(periodType, perYear)
	if periodType == models.PeriodQuarterly {
		m.ProjectedAnnualReturn = ProjectAnnualFromQuarter(m.ReturnPercent)
	} else {
		m.ProjectedAnnualReturn = m.ReturnPercent.Mul(decimal.NewFromInt(perYear))
	}

	return m, nil
}

// Recommendations derives advice from a period's metrics. Rules are checked
// in a fixed order and each adds at most one message.
func (pt *PerformanceTracker) Recommendations(m *models.PerformanceMetrics) []string {
	var recs []string

	if m.WinRate < minWinRate {
		recs = append(recs, "Win rate below target (55%). Review entry criteria for quality improvement.")
	} else if m.WinRate > strongWinRate {
		recs = append(recs, "Excellent win rate! Consider increasing position size if risk allows.")
	}

	if m.ProfitFactor != nil {
		pf := m.ProfitFactor.InexactFloat64()
		if pf < minProfitFactor {
			recs = append(recs, "Profit factor below 1.5. Focus on letting winners run longer.")
		} else if pf > strongProfitFactor {
			recs = append(recs, "Strong profit factor! Current risk/reward strategy is working well.")
		}
	}

	// Trade frequency bounds are per quarter; shorter periods skip the rule
	if quarters := quartersCovered(m.PeriodType); quarters > 0 {
		if m.TotalTrades < minTradesPerQuarter*quarters {
			recs = append(recs, "Below minimum trade frequency. Consider loosening filters slightly.")
		} else if m.TotalTrades > maxTradesPerQuarter*quarters {
			recs = append(recs, "High trade frequency. Ensure quality over quantity.")
		}
	}

	_, _, perYear, err := periodWindow(m.PeriodType, m.PeriodStart)
	if err == nil {
		target := pt.periodTarget(m.PeriodType, perYear)
		if ret := m.ReturnPercent.InexactFloat64(); ret < target {
			recs = append(recs, fmt.Sprintf("Behind %s target by %.1f%%. Increase position size or trade frequency.",
				strings.ToLower(string(m.PeriodType)), target-ret))
		}
	}

	if m.AvgWin != nil && m.AvgLoss != nil && !m.AvgLoss.IsZero() {
		ratio := m.AvgWin.DivRound(m.AvgLoss.Abs(), 2)
		if ratio.InexactFloat64() < minWinLossRatio {
			recs = append(recs, "Average winner barely exceeds average loser. Tighten stops or widen targets.")
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "Performance is solid. Continue current strategy.")
	}
	return recs
}

func quartersCovered(p models.PeriodType) int {
	switch p {
	case models.PeriodQuarterly:
		return 1
	case models.PeriodAnnual:
		return 4
	}
	return 0
}

// AnalyzeTarget compares a period's projection with the annual target as of asOf
func (pt *PerformanceTracker) AnalyzeTarget(m *models.PerformanceMetrics, asOf time.Time) types.TargetAnalysis {
	annual := pt.targets.AnnualTargetPercent
	current := m.ReturnPercent.InexactFloat64()
	projected := m.ProjectedAnnualReturn.InexactFloat64()
	onPace := projected >= annual

	remaining := 4 - helpers.QuarterIndex(asOf) - 1
	needed := 0.0
	if remaining > 0 {
		needed = (annual - current) / float64(remaining*3)
	}

	assessment := fmt.Sprintf("⚠️ Behind pace. Need %.2f%% monthly to hit %.1f%% target", needed, annual)
	if onPace {
		assessment = fmt.Sprintf("✅ On pace! Projected annual return: %.1f%%", projected)
	}

	return types.TargetAnalysis{
		CurrentReturnPct:       m.ReturnPercent,
		AnnualTargetPct:        annual,
		ProjectedAnnualPct:     m.ProjectedAnnualReturn,
		OnPace:                 onPace,
		RemainingQuarters:      remaining,
		NeededMonthlyReturnPct: needed,
		Assessment:             assessment,
	}
}

// GeneratePeriodReport aggregates the period containing asOf, stores it and
// returns it with recommendations and a target analysis.
func (pt *PerformanceTracker) GeneratePeriodReport(ctx context.Context, periodType models.PeriodType, asOf time.Time) (*types.PeriodReport, error) {
	asOf = helpers.DateOnly(asOf.In(pt.loc))
	start, end, _, err := periodWindow(periodType, asOf)
	if err != nil {
		return nil, err
	}

	pt.logger.Info().
		Str("period", string(periodType)).
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Msg("📊 Generating performance report")

	closed, err := pt.trades.ClosedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load closed trades: %w", err)
	}

	m, err := pt.BuildPeriodMetrics(periodType, start, end, closed)
	if err != nil {
		return nil, err
	}
	m.GeneratedAt = pt.now()
	if err := pt.store.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save %s metrics: %w", strings.ToLower(string(periodType)), err)
	}

	return &types.PeriodReport{
		Metrics:         *m,
		Recommendations: pt.Recommendations(m),
		TargetAnalysis:  pt.AnalyzeTarget(m, asOf),
	}, nil
}

// GenerateQuarterlyReport reports on the quarter containing today
func (pt *PerformanceTracker) GenerateQuarterlyReport(ctx context.Context) (*types.PeriodReport, error) {
	return pt.GeneratePeriodReport(ctx, models.PeriodQuarterly, pt.now())
}

// RunPeriodReport generates the quarterly report for asOf and sends it. A
// delivery failure is logged; the stored report stands.
func (pt *PerformanceTracker) RunPeriodReport(ctx context.Context, asOf time.Time) (*types.PeriodReport, error) {
	report, err := pt.GeneratePeriodReport(ctx, models.PeriodQuarterly, asOf)
	if err != nil {
		return nil, err
	}

	m := report.Metrics
	pt.logger.Info().
		Int("trades", m.TotalTrades).
		Float64("win_rate", m.WinRate).
		Str("pnl", helpers.FormatUSD(m.TotalPnl)).
		Str("return_pct", m.ReturnPercent.StringFixed(2)).
		Msg("📊 Quarterly report summary")

	if pt.notifier != nil {
		if err := pt.notifier.SendPeriodReport(ctx, *report); err != nil {
			pt.logger.Error().Err(err).Msg("❌ Failed to send quarterly report")
		}
	}
	return report, nil
}

// History lists stored reports of one type, newest period first
func (pt *PerformanceTracker) History(ctx context.Context, periodType models.PeriodType, limit int) ([]models.PerformanceMetrics, error) {
	return pt.store.ListByType(ctx, periodType, limit)
}
