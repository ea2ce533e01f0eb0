package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tradescout/database/types"
	"tradescout/helpers"
)

// Denial reasons
const (
	ReasonWeeklyLimit       = "Weekly trade limit reached"
	ReasonMonthlyLimit      = "Monthly trade limit reached"
	ReasonDailyLoss         = "Daily loss limit reached"
	ReasonMonthlyLoss       = "Monthly loss limit reached"
	ReasonConsecutiveLosses = "Too many consecutive losses"
)

// RiskLimits bound how much new exposure may be taken. Loss limits are
// positive amounts.
type RiskLimits struct {
	MaxTradesPerWeek     int
	MaxTradesPerMonth    int
	MaxDailyLoss         decimal.Decimal
	MaxMonthlyLoss       decimal.Decimal
	MaxConsecutiveLosses int
}

// RiskDecision is the gate's verdict
type RiskDecision struct {
	Allowed bool
	Reasons []string
}

// RiskManager decides whether a new trade may be opened. It only reads.
type RiskManager struct {
	trades TradeStore
	limits RiskLimits
	loc    *time.Location
	now    Clock
	logger zerolog.Logger
}

// NewRiskManager creates a risk gate over the trade journal
func NewRiskManager(trades TradeStore, limits RiskLimits, loc *time.Location, now Clock) *RiskManager {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RiskManager{
		trades: trades,
		limits: limits,
		loc:    loc,
		now:    now,
		logger: log.With().Str("component", "risk").Logger(),
	}
}

// Status computes every input of the gate and the resulting verdict
func (rm *RiskManager) Status(ctx context.Context) (types.RiskStatus, error) {
	today := helpers.DateOnly(rm.now().In(rm.loc))
	weekStart, weekEnd := helpers.WeekBounds(today)
	monthStart, monthEnd := helpers.MonthBounds(today)

	status := types.RiskStatus{
		MaxWeeklyTrades:  rm.limits.MaxTradesPerWeek,
		MaxMonthlyTrades: rm.limits.MaxTradesPerMonth,
		MaxDailyLoss:     rm.limits.MaxDailyLoss,
		MaxMonthlyLoss:   rm.limits.MaxMonthlyLoss,
		MaxConsecutive:   rm.limits.MaxConsecutiveLosses,
	}

	var err error
	if status.WeeklyTrades, err = rm.trades.CountEnteredBetween(ctx, weekStart, weekEnd); err != nil {
		return status, fmt.Errorf("count weekly trades: %w", err)
	}
	if status.MonthlyTrades, err = rm.trades.CountEnteredBetween(ctx, monthStart, monthEnd); err != nil {
		return status, fmt.Errorf("count monthly trades: %w", err)
	}
	if status.DailyPnl, err = rm.closedPnl(ctx, today, today); err != nil {
		return status, fmt.Errorf("daily pnl: %w", err)
	}
	if status.MonthlyPnl, err = rm.closedPnl(ctx, monthStart, monthEnd); err != nil {
		return status, fmt.Errorf("monthly pnl: %w", err)
	}
	if status.ConsecutiveLosses, err = rm.consecutiveLosses(ctx); err != nil {
		return status, fmt.Errorf("consecutive losses: %w", err)
	}

	if status.WeeklyTrades >= int64(rm.limits.MaxTradesPerWeek) {
		status.Reasons = append(status.Reasons, ReasonWeeklyLimit)
	}
	if status.MonthlyTrades >= int64(rm.limits.MaxTradesPerMonth) {
		status.Reasons = append(status.Reasons, ReasonMonthlyLimit)
	}
	// Loss limits deny when reached exactly
	if !status.DailyPnl.GreaterThan(rm.limits.MaxDailyLoss.Neg()) {
		status.Reasons = append(status.Reasons, ReasonDailyLoss)
	}
	if !status.MonthlyPnl.GreaterThan(rm.limits.MaxMonthlyLoss.Neg()) {
		status.Reasons = append(status.Reasons, ReasonMonthlyLoss)
	}
	if status.ConsecutiveLosses >= rm.limits.MaxConsecutiveLosses {
		status.Reasons = append(status.Reasons, ReasonConsecutiveLosses)
	}

	status.CanTrade = len(status.Reasons) == 0
	return status, nil
}

// Evaluate runs the five checks and returns the decision with every failing reason
func (rm *RiskManager) Evaluate(ctx context.Context) (RiskDecision, error) {
	status, err := rm.Status(ctx)
	if err != nil {
		return RiskDecision{}, err
	}
	if !status.CanTrade {
		rm.logger.Warn().Strs("reasons", status.Reasons).Msg("🛑 Risk limits block new trades")
	}
	return RiskDecision{Allowed: status.CanTrade, Reasons: status.Reasons}, nil
}

// CanTakeNewTrade reports whether every risk check passes
func (rm *RiskManager) CanTakeNewTrade(ctx context.Context) (bool, error) {
	decision, err := rm.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// closedPnl sums realised pnl of CLOSED trades exited in [start, end].
// Open positions carry no realised pnl and are not counted.
func (rm *RiskManager) closedPnl(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	closed, err := rm.trades.ClosedBetween(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range closed {
		total = total.Add(closed[i].PnlOrZero())
	}
	return total, nil
}

// consecutiveLosses counts losers from the most recent exit backwards until
// the first non-loser.
func (rm *RiskManager) consecutiveLosses(ctx context.Context) (int, error) {
	limit := rm.limits.MaxConsecutiveLosses
	if limit < 1 {
		limit = 1
	}
	recent, err := rm.trades.RecentClosed(ctx, limit)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range recent {
		if !recent[i].IsLoser() {
			break
		}
		count++
	}
	return count, nil
}
