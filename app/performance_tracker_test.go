package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	models "tradescout/database/models_pkg"
	"tradescout/stats"
)

func testTargets() PerformanceTargets {
	return PerformanceTargets{
		InitialCapital:         dec("10000"),
		AnnualTargetPercent:    40,
		QuarterlyTargetPercent: 10,
	}
}

func closedTrade(exit time.Time, pnl string) models.Trade {
	p := dec(pnl)
	return models.Trade{Symbol: "ACME", EntryDate: exit, Status: models.TradeStatusClosed, ExitDate: &exit, Pnl: &p}
}

func TestProjections(t *testing.T) {
	if got := ProjectAnnualByDayOfYear(dec("2"), 292); !got.Equal(dec("2.5")) {
		t.Errorf("ProjectAnnualByDayOfYear(2, 292) = %s, want 2.5", got)
	}
	if got := ProjectAnnualByDayOfYear(dec("1"), 3); !got.Equal(dec("121.6667")) {
		t.Errorf("ProjectAnnualByDayOfYear(1, 3) = %s, want 121.6667", got)
	}
	if got := ProjectAnnualByDayOfYear(dec("5"), 0); !got.IsZero() {
		t.Errorf("day zero should project 0, got %s", got)
	}
	if got := ProjectAnnualFromQuarter(dec("2.5")); !got.Equal(dec("10")) {
		t.Errorf("ProjectAnnualFromQuarter(2.5) = %s, want 10", got)
	}
}

func TestSnapshot(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		pnls       []string
		wantPnl    string
		wantReturn string
		wantWin    float64
		onPace     bool
		status     string
	}{
		{
			name: "profitable but behind", now: time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC),
			pnls: []string{"300", "-100"}, wantPnl: "200", wantReturn: "2", wantWin: 50,
			status: StatusFair,
		},
		{
			name: "early in the year on pace", now: time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC),
			pnls: []string{"300", "-100"}, wantPnl: "200", wantReturn: "2", wantWin: 50,
			onPace: true, status: StatusGood,
		},
		{
			name: "on pace with strong win rate", now: time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC),
			pnls: []string{"100", "100", "100", "-50"}, wantPnl: "250", wantReturn: "2.5", wantWin: 75,
			onPace: true, status: StatusExcellent,
		},
		{
			name: "losing", now: time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC),
			pnls: []string{"-100"}, wantPnl: "-100", wantReturn: "-1", wantWin: 0,
			status: StatusNeedsImprovement,
		},
		{
			name: "no trades", now: time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC),
			wantPnl: "0", wantReturn: "0", status: StatusNeedsImprovement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades := &memTrades{}
			for i, p := range tt.pnls {
				trades.addClosed(day(2026, time.January, 5+i), day(2026, time.January, 6+i), p)
			}
			trades.addOpen(day(2026, time.February, 2))

			pt := NewPerformanceTracker(trades, &memPerformance{}, nil, testTargets(), time.UTC, fixedClock(tt.now))
			s, err := pt.Snapshot(context.Background())
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}

			if !s.TotalPnl.Equal(dec(tt.wantPnl)) {
				t.Errorf("TotalPnl = %s, want %s", s.TotalPnl, tt.wantPnl)
			}
			if !s.ReturnPercent.Equal(dec(tt.wantReturn)) {
				t.Errorf("ReturnPercent = %s, want %s", s.ReturnPercent, tt.wantReturn)
			}
			if !s.CurrentCapital.Equal(dec("10000").Add(dec(tt.wantPnl))) {
				t.Errorf("CurrentCapital = %s", s.CurrentCapital)
			}
			if !approx(s.WinRate, tt.wantWin) {
				t.Errorf("WinRate = %v, want %v", s.WinRate, tt.wantWin)
			}
			if s.OnPaceForTarget != tt.onPace || s.Status != tt.status {
				t.Errorf("pace/status = %v %q, want %v %q", s.OnPaceForTarget, s.Status, tt.onPace, tt.status)
			}
			if s.OpenTrades != 1 || s.ClosedTrades != len(tt.pnls) {
				t.Errorf("open/closed = %d/%d", s.OpenTrades, s.ClosedTrades)
			}
		})
	}
}

func TestSnapshotProjection(t *testing.T) {
	trades := &memTrades{}
	trades.addClosed(day(2026, time.March, 1), day(2026, time.March, 2), "300")
	trades.addClosed(day(2026, time.March, 1), day(2026, time.March, 3), "-100")

	pt := NewPerformanceTracker(trades, &memPerformance{}, nil, testTargets(), time.UTC, fixedClock(time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)))
	s, err := pt.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	// 2% by day 292
	if !s.ProjectedAnnual.Equal(dec("2.5")) {
		t.Errorf("ProjectedAnnual = %s, want 2.5", s.ProjectedAnnual)
	}
}

func TestBuildPeriodMetrics(t *testing.T) {
	pt := NewPerformanceTracker(&memTrades{}, &memPerformance{}, nil, testTargets(), time.UTC, nil)
	start, end := day(2026, time.October, 1), day(2026, time.December, 31)
	closed := []models.Trade{
		closedTrade(day(2026, time.October, 5), "300"),
		closedTrade(day(2026, time.October, 6), "-100"),
		closedTrade(day(2026, time.October, 7), "200"),
		closedTrade(day(2026, time.October, 8), "-150"),
		closedTrade(day(2026, time.October, 9), "0"),
	}

	m, err := pt.BuildPeriodMetrics(models.PeriodQuarterly, start, end, closed)
	if err != nil {
		t.Fatalf("BuildPeriodMetrics: %v", err)
	}

	if m.TotalTrades != 5 || m.WinningTrades != 2 || m.LosingTrades != 2 {
		t.Errorf("counts = %d/%d/%d, want 5/2/2", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	}
	if !approx(m.WinRate, 40) {
		t.Errorf("WinRate = %v, want 40", m.WinRate)
	}

	checks := []struct {
		name string
		got  *decimal.Decimal
		want string
	}{
		{"total pnl", &m.TotalPnl, "250"},
		{"starting capital", &m.StartingCapital, "10000"},
		{"ending capital", &m.EndingCapital, "10250"},
		{"return", &m.ReturnPercent, "2.5"},
		{"avg win", m.AvgWin, "250"},
		{"avg loss", m.AvgLoss, "-125"},
		{"largest win", m.LargestWin, "300"},
		{"largest loss", m.LargestLoss, "-150"},
		{"profit factor", m.ProfitFactor, "2"},
		{"projected annual", &m.ProjectedAnnualReturn, "10"},
	}
	for _, c := range checks {
		if c.got == nil {
			t.Errorf("%s is nil, want %s", c.name, c.want)
			continue
		}
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if m.OnPaceForAnnualTarget {
		t.Error("2.5% is below the 10% quarterly target")
	}
}

func TestBuildPeriodMetricsSharpe(t *testing.T) {
	pt := NewPerformanceTracker(&memTrades{}, &memPerformance{}, nil, testTargets(), time.UTC, nil)
	start, end := day(2026, time.October, 1), day(2026, time.December, 31)

	withReturn := func(exit time.Time, pnl, pct string) models.Trade {
		tr := closedTrade(exit, pnl)
		p := dec(pct)
		tr.PnlPercent = &p
		return tr
	}

	m, err := pt.BuildPeriodMetrics(models.PeriodQuarterly, start, end, []models.Trade{
		withReturn(day(2026, time.October, 5), "100", "1"),
		withReturn(day(2026, time.October, 6), "300", "3"),
	})
	if err != nil {
		t.Fatalf("BuildPeriodMetrics: %v", err)
	}
	// returns 0.01 and 0.03: mean 0.02, stddev 0.01
	want := (0.02 - stats.RiskFreeRate/stats.TradingDaysPerYear) / 0.01
	if m.SharpeRatio == nil || !approx(*m.SharpeRatio, want) {
		t.Errorf("SharpeRatio = %v, want %v", m.SharpeRatio, want)
	}

	single, _ := pt.BuildPeriodMetrics(models.PeriodQuarterly, start, end, []models.Trade{
		withReturn(day(2026, time.October, 5), "100", "1"),
	})
	if single.SharpeRatio != nil {
		t.Errorf("single trade SharpeRatio = %v, want unset", *single.SharpeRatio)
	}
}

func TestBuildPeriodMetricsEmpty(t *testing.T) {
	pt := NewPerformanceTracker(&memTrades{}, &memPerformance{}, nil, testTargets(), time.UTC, nil)

	m, err := pt.BuildPeriodMetrics(models.PeriodMonthly, day(2026, time.October, 1), day(2026, time.October, 31), nil)
	if err != nil {
		t.Fatalf("BuildPeriodMetrics: %v", err)
	}
	if m.TotalTrades != 0 || m.WinRate != 0 || !m.TotalPnl.IsZero() || !m.ReturnPercent.IsZero() {
		t.Errorf("expected zeroed metrics, got %+v", m)
	}
	if m.AvgWin != nil || m.AvgLoss != nil || m.ProfitFactor != nil || m.LargestWin != nil {
		t.Error("optional fields should be unset without trades")
	}
	if !m.EndingCapital.Equal(m.StartingCapital) {
		t.Errorf("capital changed: %s -> %s", m.StartingCapital, m.EndingCapital)
	}
}

func TestBuildPeriodMetricsNonQuarterly(t *testing.T) {
	pt := NewPerformanceTracker(&memTrades{}, &memPerformance{}, nil, testTargets(), time.UTC, nil)
	closed := []models.Trade{closedTrade(day(2026, time.October, 20), "100")}

	weekly, err := pt.BuildPeriodMetrics(models.PeriodWeekly, day(2026, time.October, 19), day(2026, time.October, 25), closed)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	// 1% per week extrapolates over 52 weeks and clears 40/52
	if !weekly.ProjectedAnnualReturn.Equal(dec("52")) || !weekly.OnPaceForAnnualTarget {
		t.Errorf("weekly projection = %s on pace %v", weekly.ProjectedAnnualReturn, weekly.OnPaceForAnnualTarget)
	}

	annual, _ := pt.BuildPeriodMetrics(models.PeriodAnnual, day(2026, time.January, 1), day(2026, time.December, 31), closed)
	if !annual.ProjectedAnnualReturn.Equal(dec("1")) || annual.OnPaceForAnnualTarget {
		t.Errorf("annual projection = %s on pace %v", annual.ProjectedAnnualReturn, annual.OnPaceForAnnualTarget)
	}

	if _, err := pt.BuildPeriodMetrics(models.PeriodType("DAILY"), day(2026, time.October, 1), day(2026, time.October, 1), nil); err == nil {
		t.Error("unknown period type should fail")
	}
}

func TestRecommendations(t *testing.T) {
	pt := NewPerformanceTracker(&memTrades{}, &memPerformance{}, nil, testTargets(), time.UTC, nil)
	q := func(pnls ...string) *models.PerformanceMetrics {
		closed := make([]models.Trade, len(pnls))
		for i, p := range pnls {
			closed[i] = closedTrade(day(2026, time.October, 5), p)
		}
		m, err := pt.BuildPeriodMetrics(models.PeriodQuarterly, day(2026, time.October, 1), day(2026, time.December, 31), closed)
		if err != nil {
			t.Fatalf("BuildPeriodMetrics: %v", err)
		}
		return m
	}
	monthly := func(pnls ...string) *models.PerformanceMetrics {
		closed := make([]models.Trade, len(pnls))
		for i, p := range pnls {
			closed[i] = closedTrade(day(2026, time.October, 5), p)
		}
		m, _ := pt.BuildPeriodMetrics(models.PeriodMonthly, day(2026, time.October, 1), day(2026, time.October, 31), closed)
		return m
	}
	many := func(n int, pnl string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = pnl
		}
		return out
	}

	tests := []struct {
		name string
		m    *models.PerformanceMetrics
		want []string
	}{
		{
			name: "weak quarter",
			m:    q("300", "-100", "200", "-150"),
			want: []string{"Win rate below target", "Below minimum trade frequency", "Behind quarterly target by 7.5%"},
		},
		{
			name: "empty quarter",
			m:    q(),
			want: []string{"Win rate below target", "Below minimum trade frequency", "Behind quarterly target by 10.0%"},
		},
		{
			name: "thin edge",
			m:    q(append(many(6, "200"), many(4, "-250")...)...),
			want: []string{"Profit factor below 1.5", "Behind quarterly target by 8.0%", "Average winner barely exceeds"},
		},
		{
			name: "busy and excellent",
			m:    q(append(many(26, "100"), "-50")...),
			want: []string{"Excellent win rate", "Strong profit factor", "High trade frequency"},
		},
		{
			name: "solid month",
			m:    monthly("600", "600", "600", "-500", "-500"),
			want: []string{"Performance is solid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pt.Recommendations(tt.m)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d recommendations %q, want %d", len(got), got, len(tt.want))
			}
			for i, prefix := range tt.want {
				if !strings.HasPrefix(got[i], prefix) {
					t.Errorf("rec[%d] = %q, want prefix %q", i, got[i], prefix)
				}
			}
		})
	}
}

func TestAnalyzeTarget(t *testing.T) {
	pt := NewPerformanceTracker(&memTrades{}, &memPerformance{}, nil, testTargets(), time.UTC, nil)

	behind := &models.PerformanceMetrics{ReturnPercent: dec("2.5"), ProjectedAnnualReturn: dec("10")}
	a := pt.AnalyzeTarget(behind, day(2026, time.February, 10))
	if a.OnPace || a.RemainingQuarters != 3 {
		t.Errorf("analysis = %+v", a)
	}
	if !approx(a.NeededMonthlyReturnPct, 37.5/9) {
		t.Errorf("NeededMonthlyReturnPct = %v, want %v", a.NeededMonthlyReturnPct, 37.5/9)
	}
	if a.Assessment != "⚠️ Behind pace. Need 4.17% monthly to hit 40.0% target" {
		t.Errorf("Assessment = %q", a.Assessment)
	}

	last := pt.AnalyzeTarget(behind, day(2026, time.October, 19))
	if last.RemainingQuarters != 0 || last.NeededMonthlyReturnPct != 0 {
		t.Errorf("final quarter analysis = %+v", last)
	}

	ahead := &models.PerformanceMetrics{ReturnPercent: dec("12"), ProjectedAnnualReturn: dec("48")}
	a = pt.AnalyzeTarget(ahead, day(2026, time.April, 1))
	if !a.OnPace || a.Assessment != "✅ On pace! Projected annual return: 48.0%" {
		t.Errorf("analysis = %+v", a)
	}
}

func TestGeneratePeriodReport(t *testing.T) {
	ctx := context.Background()
	trades := &memTrades{}
	trades.addClosed(day(2026, time.October, 1), day(2026, time.October, 5), "300")
	trades.addClosed(day(2026, time.October, 1), day(2026, time.October, 6), "-100")
	trades.addClosed(day(2026, time.September, 1), day(2026, time.September, 30), "999") // previous quarter
	store := &memPerformance{}

	pt := NewPerformanceTracker(trades, store, nil, testTargets(), time.UTC, fixedClock(time.Date(2026, time.October, 19, 17, 0, 0, 0, time.UTC)))

	report, err := pt.GenerateQuarterlyReport(ctx)
	if err != nil {
		t.Fatalf("GenerateQuarterlyReport: %v", err)
	}
	m := report.Metrics
	if !m.PeriodStart.Equal(day(2026, time.October, 1)) || !m.PeriodEnd.Equal(day(2026, time.December, 31)) {
		t.Errorf("window = %v..%v", m.PeriodStart, m.PeriodEnd)
	}
	if m.TotalTrades != 2 || !m.TotalPnl.Equal(dec("200")) {
		t.Errorf("metrics = %+v", m)
	}
	if !m.GeneratedAt.Equal(time.Date(2026, time.October, 19, 17, 0, 0, 0, time.UTC)) || m.IsFinal() {
		t.Errorf("generated at %v, final %v; want mid-quarter stamp", m.GeneratedAt, m.IsFinal())
	}
	if len(report.Recommendations) == 0 || report.TargetAnalysis.RemainingQuarters != 0 {
		t.Errorf("report = %+v", report)
	}

	// regenerating replaces the stored row
	trades.addClosed(day(2026, time.October, 1), day(2026, time.October, 7), "50")
	if _, err := pt.GenerateQuarterlyReport(ctx); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	history, err := pt.History(ctx, models.PeriodQuarterly, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].TotalTrades != 3 {
		t.Errorf("history = %+v", history)
	}

	if _, err := pt.GeneratePeriodReport(ctx, models.PeriodType("HOURLY"), time.Now()); err == nil {
		t.Error("unknown period should fail")
	}
}

func TestRunPeriodReport(t *testing.T) {
	ctx := context.Background()
	trades := &memTrades{}
	trades.addClosed(day(2026, time.September, 1), day(2026, time.September, 30), "400")
	notifier := &fakeNotifier{}

	pt := NewPerformanceTracker(trades, &memPerformance{}, notifier, testTargets(), time.UTC, nil)

	report, err := pt.RunPeriodReport(ctx, day(2026, time.September, 30))
	if err != nil {
		t.Fatalf("RunPeriodReport: %v", err)
	}
	if report.Metrics.TotalTrades != 1 || len(notifier.reports) != 1 {
		t.Errorf("report trades %d, sent %d", report.Metrics.TotalTrades, len(notifier.reports))
	}

	notifier.err = errors.New("smtp down")
	if _, err := pt.RunPeriodReport(ctx, day(2026, time.September, 30)); err != nil {
		t.Errorf("delivery failure should not fail the report: %v", err)
	}
}
