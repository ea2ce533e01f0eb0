package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testLimits() RiskLimits {
	return RiskLimits{
		MaxTradesPerWeek:     5,
		MaxTradesPerMonth:    20,
		MaxDailyLoss:         dec("500"),
		MaxMonthlyLoss:       dec("1500"),
		MaxConsecutiveLosses: 3,
	}
}

// Wednesday 2026-10-14; the week runs Oct 12..18
var riskNow = time.Date(2026, time.October, 14, 11, 0, 0, 0, time.UTC)

func TestRiskManagerEvaluate(t *testing.T) {
	wed := day(2026, time.October, 14)
	lastWeek := day(2026, time.October, 6)
	sept := day(2026, time.September, 10)

	tests := []struct {
		name    string
		setup   func(m *memTrades)
		allowed bool
		reasons []string
	}{
		{
			name:    "empty journal",
			setup:   func(m *memTrades) {},
			allowed: true,
		},
		{
			name: "four trades this week",
			setup: func(m *memTrades) {
				for i := 0; i < 4; i++ {
					m.addOpen(wed)
				}
			},
			allowed: true,
		},
		{
			name: "fifth trade this week reaches the limit",
			setup: func(m *memTrades) {
				for i := 0; i < 5; i++ {
					m.addOpen(day(2026, time.October, 12).AddDate(0, 0, i%3))
				}
			},
			reasons: []string{ReasonWeeklyLimit},
		},
		{
			name: "last week's trades do not count toward the week",
			setup: func(m *memTrades) {
				for i := 0; i < 6; i++ {
					m.addOpen(lastWeek)
				}
			},
			allowed: true,
		},
		{
			name: "monthly count",
			setup: func(m *memTrades) {
				for i := 0; i < 20; i++ {
					m.addClosed(day(2026, time.October, 1+i%9), day(2026, time.October, 1+i%9), "10")
				}
			},
			reasons: []string{ReasonMonthlyLimit},
		},
		{
			name: "daily loss reached exactly",
			setup: func(m *memTrades) {
				m.addClosed(sept, wed, "-300")
				m.addClosed(sept, wed, "-200")
				m.addClosed(sept, day(2026, time.October, 13), "50")
			},
			reasons: []string{ReasonDailyLoss},
		},
		{
			name: "daily loss just inside the limit",
			setup: func(m *memTrades) {
				m.addClosed(sept, wed, "-499.99")
				m.addClosed(sept, day(2026, time.October, 13), "25")
			},
			allowed: true,
		},
		{
			name: "monthly loss",
			setup: func(m *memTrades) {
				m.addClosed(sept, day(2026, time.October, 2), "-800")
				m.addClosed(sept, day(2026, time.October, 5), "100")
				m.addClosed(sept, day(2026, time.October, 9), "-800")
			},
			reasons: []string{ReasonMonthlyLoss},
		},
		{
			name: "three consecutive losses",
			setup: func(m *memTrades) {
				m.addClosed(sept, day(2026, time.September, 20), "100")
				m.addClosed(sept, day(2026, time.September, 21), "-10")
				m.addClosed(sept, day(2026, time.September, 22), "-10")
				m.addClosed(sept, day(2026, time.September, 23), "-10")
			},
			reasons: []string{ReasonConsecutiveLosses},
		},
		{
			name: "a win breaks the streak",
			setup: func(m *memTrades) {
				m.addClosed(sept, day(2026, time.September, 20), "-10")
				m.addClosed(sept, day(2026, time.September, 21), "-10")
				m.addClosed(sept, day(2026, time.September, 22), "5")
				m.addClosed(sept, day(2026, time.September, 23), "-10")
				m.addClosed(sept, day(2026, time.September, 24), "-10")
			},
			allowed: true,
		},
		{
			name: "breakeven breaks the streak",
			setup: func(m *memTrades) {
				m.addClosed(sept, day(2026, time.September, 20), "-10")
				m.addClosed(sept, day(2026, time.September, 21), "-10")
				m.addClosed(sept, day(2026, time.September, 22), "0")
				m.addClosed(sept, day(2026, time.September, 23), "-10")
			},
			allowed: true,
		},
		{
			name: "open trades carry no loss",
			setup: func(m *memTrades) {
				m.addOpen(day(2026, time.September, 30))
				m.addOpen(day(2026, time.September, 30))
				m.addClosed(sept, day(2026, time.September, 20), "-10")
				m.addClosed(sept, day(2026, time.September, 21), "-10")
			},
			allowed: true,
		},
		{
			name: "every failing reason is reported",
			setup: func(m *memTrades) {
				for i := 0; i < 5; i++ {
					m.addClosed(wed, wed, "-400")
				}
			},
			reasons: []string{ReasonWeeklyLimit, ReasonDailyLoss, ReasonMonthlyLoss, ReasonConsecutiveLosses},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades := &memTrades{}
			tt.setup(trades)
			rm := NewRiskManager(trades, testLimits(), time.UTC, fixedClock(riskNow))

			got, err := rm.Evaluate(context.Background())
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got.Allowed != tt.allowed {
				t.Errorf("Allowed = %v, want %v (reasons %v)", got.Allowed, tt.allowed, got.Reasons)
			}
			if len(got.Reasons) != len(tt.reasons) {
				t.Fatalf("Reasons = %v, want %v", got.Reasons, tt.reasons)
			}
			for i := range tt.reasons {
				if got.Reasons[i] != tt.reasons[i] {
					t.Errorf("Reasons[%d] = %q, want %q", i, got.Reasons[i], tt.reasons[i])
				}
			}
		})
	}
}

func TestRiskManagerStatus(t *testing.T) {
	trades := &memTrades{}
	wed := day(2026, time.October, 14)
	trades.addOpen(wed)
	trades.addClosed(day(2026, time.October, 13), wed, "-120.50")
	trades.addClosed(day(2026, time.October, 1), day(2026, time.October, 2), "300")

	rm := NewRiskManager(trades, testLimits(), time.UTC, fixedClock(riskNow))
	status, err := rm.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	if status.WeeklyTrades != 2 || status.MonthlyTrades != 3 {
		t.Errorf("counts = %d/%d, want 2/3", status.WeeklyTrades, status.MonthlyTrades)
	}
	if !status.DailyPnl.Equal(dec("-120.50")) {
		t.Errorf("DailyPnl = %s, want -120.50", status.DailyPnl)
	}
	if !status.MonthlyPnl.Equal(dec("179.50")) {
		t.Errorf("MonthlyPnl = %s, want 179.50", status.MonthlyPnl)
	}
	if status.ConsecutiveLosses != 1 || !status.CanTrade {
		t.Errorf("status = %+v", status)
	}

	ok, err := rm.CanTakeNewTrade(context.Background())
	if err != nil || !ok {
		t.Errorf("CanTakeNewTrade = %v, %v", ok, err)
	}
}

func TestRiskManagerStoreError(t *testing.T) {
	trades := &memTrades{err: errors.New("db down")}
	rm := NewRiskManager(trades, testLimits(), time.UTC, fixedClock(riskNow))

	if _, err := rm.Evaluate(context.Background()); err == nil {
		t.Fatal("expected store error")
	}
	if ok, err := rm.CanTakeNewTrade(context.Background()); ok || err == nil {
		t.Errorf("CanTakeNewTrade = %v, %v; want false with error", ok, err)
	}
}
