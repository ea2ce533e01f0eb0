package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus is the lifecycle state of a Trade
type TradeStatus string

const (
	TradeStatusOpen      TradeStatus = "OPEN"
	TradeStatusClosed    TradeStatus = "CLOSED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
)

// ExitReason records why a trade left the OPEN state
type ExitReason string

const (
	ExitReasonTargetHit  ExitReason = "TARGET_HIT"
	ExitReasonStopHit    ExitReason = "STOP_HIT"
	ExitReasonTimeExit   ExitReason = "TIME_EXIT"
	ExitReasonManualExit ExitReason = "MANUAL_EXIT"
	ExitReasonCancelled  ExitReason = "CANCELLED"
)

// ParseExitReason validates a closing reason supplied by a caller.
// CANCELLED is not a closing reason; use Trade.Cancel.
func ParseExitReason(s string) (ExitReason, bool) {
	switch r := ExitReason(s); r {
	case ExitReasonTargetHit, ExitReasonStopHit, ExitReasonTimeExit, ExitReasonManualExit:
		return r, true
	}
	return "", false
}

// PeriodType is the window a PerformanceMetrics row covers
type PeriodType string

const (
	PeriodWeekly    PeriodType = "WEEKLY"
	PeriodMonthly   PeriodType = "MONTHLY"
	PeriodQuarterly PeriodType = "QUARTERLY"
	PeriodAnnual    PeriodType = "ANNUAL"
)

// ParsePeriodType accepts the upper-case period names
func ParsePeriodType(s string) (PeriodType, bool) {
	switch p := PeriodType(s); p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodAnnual:
		return p, true
	}
	return "", false
}

var (
	ErrTradeNotOpen      = errors.New("trade is not open")
	ErrInvalidExitPrice  = errors.New("exit price must be positive")
	ErrInvalidEntryPrice = errors.New("entry price must be positive")
	ErrInvalidSize       = errors.New("position size must be positive")
	ErrRiskLimitReached  = errors.New("risk limits block new trades")
)

// DailyBar is one day of OHLCV data for a symbol.
// (Symbol, TradeDate) is unique.
type DailyBar struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol    string    `gorm:"size:10;not null;uniqueIndex:idx_daily_bars_symbol_date" json:"symbol"`
	TradeDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_bars_symbol_date;index" json:"trade_date"`
	Open      float64   `gorm:"type:decimal(12,4);not null" json:"open"`
	High      float64   `gorm:"type:decimal(12,4);not null" json:"high"`
	Low       float64   `gorm:"type:decimal(12,4);not null" json:"low"`
	Close     float64   `gorm:"type:decimal(12,4);not null" json:"close"`
	Volume    int64     `gorm:"not null" json:"volume"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for DailyBar
func (DailyBar) TableName() string {
	return "daily_bars"
}

// RangePct is (high-low)/open as a percentage, 0 when open is 0
func (b DailyBar) RangePct() float64 {
	if b.Open == 0 {
		return 0
	}
	return (b.High - b.Low) / b.Open * 100
}

// MaxDropPct is (low-open)/open as a percentage; never positive for valid bars
func (b DailyBar) MaxDropPct() float64 {
	if b.Open == 0 {
		return 0
	}
	return (b.Low - b.Open) / b.Open * 100
}

// ChangePct is (close-open)/open as a percentage
func (b DailyBar) ChangePct() float64 {
	if b.Open == 0 {
		return 0
	}
	return (b.Close - b.Open) / b.Open * 100
}

// VolatilityMetrics summarises a lookback window of DailyBars for one symbol.
// (Symbol, CalculationDate, LookbackDays) is unique; the detector only reads
// the latest row per symbol.
type VolatilityMetrics struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol               string    `gorm:"size:10;not null;uniqueIndex:idx_volatility_symbol_date_lookback" json:"symbol"`
	CalculationDate      time.Time `gorm:"type:date;not null;uniqueIndex:idx_volatility_symbol_date_lookback" json:"calculation_date"`
	LookbackDays         int       `gorm:"not null;uniqueIndex:idx_volatility_symbol_date_lookback" json:"lookback_days"`
	AvgDailyRangePct     float64   `gorm:"type:double precision" json:"avg_daily_range_pct"`
	StddevDailyRangePct  float64   `gorm:"type:double precision" json:"stddev_daily_range_pct"`
	AvgMaxDropPct        float64   `gorm:"type:double precision" json:"avg_max_drop_pct"`
	StddevMaxDropPct     float64   `gorm:"type:double precision" json:"stddev_max_drop_pct"`
	AvgDailyChangePct    float64   `gorm:"type:double precision" json:"avg_daily_change_pct"`
	StddevDailyChangePct float64   `gorm:"type:double precision" json:"stddev_daily_change_pct"`
	AvgVolume            int64     `json:"avg_volume"`
	StddevVolume         int64     `json:"stddev_volume"`
	SampleSize           int       `json:"sample_size"`
	CreatedAt            time.Time `json:"created_at"`
}

// TableName specifies the table name for VolatilityMetrics
func (VolatilityMetrics) TableName() string {
	return "volatility_metrics"
}

// Trade is a position taken on an opportunity.
// Pnl, PnlPercent, ExitPrice and ExitDate are set if and only if the status
// is CLOSED. Trades are never deleted.
type Trade struct {
	ID              int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol          string           `gorm:"size:10;not null;index" json:"symbol"`
	EntryDate       time.Time        `gorm:"type:date;not null;index" json:"entry_date"`
	EntryPrice      decimal.Decimal  `gorm:"type:numeric(12,4);not null" json:"entry_price"`
	TargetPrice     decimal.Decimal  `gorm:"type:numeric(12,4);not null" json:"target_price"`
	StopPrice       decimal.Decimal  `gorm:"type:numeric(12,4);not null" json:"stop_price"`
	PositionSize    int              `gorm:"not null" json:"position_size"`
	Status          TradeStatus      `gorm:"size:20;not null;index" json:"status"`
	ExitDate        *time.Time       `gorm:"type:date;index" json:"exit_date,omitempty"`
	ExitPrice       *decimal.Decimal `gorm:"type:numeric(12,4)" json:"exit_price,omitempty"`
	ExitReason      ExitReason       `gorm:"size:20" json:"exit_reason,omitempty"`
	Pnl             *decimal.Decimal `gorm:"type:numeric(12,2)" json:"pnl,omitempty"`
	PnlPercent      *decimal.Decimal `gorm:"type:numeric(8,4)" json:"pnl_percent,omitempty"`
	EntryReasoning  string           `gorm:"type:text" json:"entry_reasoning,omitempty"`
	ConfidenceScore *float64         `gorm:"type:decimal(5,2)" json:"confidence_score,omitempty"`
	LessonsLearned  string           `gorm:"type:text" json:"lessons_learned,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName specifies the table name for Trade
func (Trade) TableName() string {
	return "trades"
}

// NewTrade builds an OPEN trade. The entry date is truncated to the day.
func NewTrade(symbol string, entryDate time.Time, entryPrice, targetPrice, stopPrice decimal.Decimal, positionSize int) (*Trade, error) {
	if !entryPrice.IsPositive() {
		return nil, ErrInvalidEntryPrice
	}
	if positionSize <= 0 {
		return nil, ErrInvalidSize
	}
	y, m, d := entryDate.Date()
	return &Trade{
		Symbol:       symbol,
		EntryDate:    time.Date(y, m, d, 0, 0, 0, 0, entryDate.Location()),
		EntryPrice:   entryPrice,
		TargetPrice:  targetPrice,
		StopPrice:    stopPrice,
		PositionSize: positionSize,
		Status:       TradeStatusOpen,
	}, nil
}

// Close exits an OPEN trade and derives pnl in the same step.
//
//	pnl        = (exit - entry) * shares
//	pnlPercent = round((exit - entry) / entry, 4) * 100
func (t *Trade) Close(exitPrice decimal.Decimal, reason ExitReason, exitDate time.Time) error {
	if t.Status != TradeStatusOpen {
		return ErrTradeNotOpen
	}
	if !exitPrice.IsPositive() {
		return ErrInvalidExitPrice
	}

	diff := exitPrice.Sub(t.EntryPrice)
	pnl := diff.Mul(decimal.NewFromInt(int64(t.PositionSize)))
	pnlPct := diff.DivRound(t.EntryPrice, 4).Mul(decimal.NewFromInt(100))

	y, m, d := exitDate.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, exitDate.Location())

	t.ExitPrice = &exitPrice
	t.ExitDate = &day
	t.ExitReason = reason
	t.Pnl = &pnl
	t.PnlPercent = &pnlPct
	t.Status = TradeStatusClosed
	return nil
}

// Cancel abandons an OPEN trade; no pnl is recorded
func (t *Trade) Cancel() error {
	if t.Status != TradeStatusOpen {
		return ErrTradeNotOpen
	}
	t.Status = TradeStatusCancelled
	t.ExitReason = ExitReasonCancelled
	return nil
}

// PnlOrZero returns the realised pnl, zero for trades that are not closed
func (t *Trade) PnlOrZero() decimal.Decimal {
	if t.Pnl == nil {
		return decimal.Zero
	}
	return *t.Pnl
}

// IsWinner reports pnl > 0
func (t *Trade) IsWinner() bool {
	return t.Pnl != nil && t.Pnl.IsPositive()
}

// IsLoser reports pnl < 0
func (t *Trade) IsLoser() bool {
	return t.Pnl != nil && t.Pnl.IsNegative()
}

// PerformanceMetrics is a stored period report.
// One row per (PeriodType, PeriodEnd); regenerating a period replaces it.
type PerformanceMetrics struct {
	ID                    int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	PeriodType            PeriodType       `gorm:"size:20;not null;uniqueIndex:idx_performance_period" json:"period_type"`
	PeriodStart           time.Time        `gorm:"type:date;not null" json:"period_start"`
	PeriodEnd             time.Time        `gorm:"type:date;not null;uniqueIndex:idx_performance_period" json:"period_end"`
	TotalTrades           int              `json:"total_trades"`
	WinningTrades         int              `json:"winning_trades"`
	LosingTrades          int              `json:"losing_trades"`
	WinRate               float64          `gorm:"type:decimal(5,2)" json:"win_rate"`
	TotalPnl              decimal.Decimal  `gorm:"type:numeric(12,2)" json:"total_pnl"`
	StartingCapital       decimal.Decimal  `gorm:"type:numeric(12,2)" json:"starting_capital"`
	EndingCapital         decimal.Decimal  `gorm:"type:numeric(12,2)" json:"ending_capital"`
	ReturnPercent         decimal.Decimal  `gorm:"type:numeric(8,4)" json:"return_percent"`
	AvgWin                *decimal.Decimal `gorm:"type:numeric(12,2)" json:"avg_win,omitempty"`
	AvgLoss               *decimal.Decimal `gorm:"type:numeric(12,2)" json:"avg_loss,omitempty"`
	LargestWin            *decimal.Decimal `gorm:"type:numeric(12,2)" json:"largest_win,omitempty"`
	LargestLoss           *decimal.Decimal `gorm:"type:numeric(12,2)" json:"largest_loss,omitempty"`
	ProfitFactor          *decimal.Decimal `gorm:"type:numeric(8,2)" json:"profit_factor,omitempty"`
	SharpeRatio           *float64         `gorm:"type:double precision" json:"sharpe_ratio,omitempty"`
	OnPaceForAnnualTarget bool             `json:"on_pace_for_annual_target"`
	ProjectedAnnualReturn decimal.Decimal  `gorm:"type:numeric(8,4)" json:"projected_annual_return"`
	GeneratedAt           time.Time        `json:"generated_at"` // refreshed on every regeneration
	CreatedAt             time.Time        `json:"created_at"`
}

// TableName specifies the table name for PerformanceMetrics
func (PerformanceMetrics) TableName() string {
	return "performance_metrics"
}

// IsFinal reports whether the report was generated after its period ended
func (p *PerformanceMetrics) IsFinal() bool {
	return !p.GeneratedAt.Before(p.PeriodEnd.AddDate(0, 0, 1))
}
