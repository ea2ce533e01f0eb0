package types

import (
	"time"

	"github.com/shopspring/decimal"

	models "tradescout/database/models_pkg"
)

// HistoricalContext is the slice of VolatilityMetrics a signal was scored against
type HistoricalContext struct {
	AvgMaxDropPct     float64 `json:"avg_max_drop_pct"`
	StddevMaxDropPct  float64 `json:"stddev_max_drop_pct"`
	AvgVolume         int64   `json:"avg_volume"`
	StddevVolume      int64   `json:"stddev_volume"`
	AvgDailyChangePct float64 `json:"avg_daily_change_pct"`
}

// OpportunitySignal is the detector's assessment of one symbol at scan time
type OpportunitySignal struct {
	Symbol            string            `json:"symbol"`
	CurrentPrice      float64           `json:"current_price"`
	TodayOpen         float64           `json:"today_open"`
	TodayHigh         float64           `json:"today_high"`
	TodayLow          float64           `json:"today_low"`
	CurrentVolume     int64             `json:"current_volume"`
	CurrentDropPct    float64           `json:"current_drop_pct"`
	PriceZScore       float64           `json:"price_z_score"`
	VolumeZScore      float64           `json:"volume_z_score"`
	Confidence        float64           `json:"confidence"`
	IsOpportunity     bool              `json:"is_opportunity"`
	Reason            string            `json:"reason"`
	HistoricalContext HistoricalContext `json:"historical_context"`
	Timestamp         time.Time         `json:"timestamp"`
}

// TradeSetup is a concrete, sized trade proposal derived from a signal
type TradeSetup struct {
	Symbol       string          `json:"symbol"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	TargetPrice  decimal.Decimal `json:"target_price"`
	StopPrice    decimal.Decimal `json:"stop_price"`
	PositionSize int             `json:"position_size"`
	RiskAmount   decimal.Decimal `json:"risk_amount"`
	ProfitTarget decimal.Decimal `json:"profit_target"`
	Confidence   float64         `json:"confidence"`
	Reasoning    string          `json:"reasoning"`
}

// Opportunity pairs an admitted signal with its setup
type Opportunity struct {
	Signal OpportunitySignal `json:"signal"`
	Setup  TradeSetup        `json:"setup"`
}

// RiskStatus summarises the risk gate's inputs and verdict
type RiskStatus struct {
	WeeklyTrades      int64           `json:"weekly_trades"`
	MaxWeeklyTrades   int             `json:"max_weekly_trades"`
	MonthlyTrades     int64           `json:"monthly_trades"`
	MaxMonthlyTrades  int             `json:"max_monthly_trades"`
	DailyPnl          decimal.Decimal `json:"daily_pnl"`
	MaxDailyLoss      decimal.Decimal `json:"max_daily_loss"`
	MonthlyPnl        decimal.Decimal `json:"monthly_pnl"`
	MaxMonthlyLoss    decimal.Decimal `json:"max_monthly_loss"`
	ConsecutiveLosses int             `json:"consecutive_losses"`
	MaxConsecutive    int             `json:"max_consecutive_losses"`
	CanTrade          bool            `json:"can_trade"`
	Reasons           []string        `json:"reasons,omitempty"`
}

// PerformanceSnapshot is the all-time view over closed trades
type PerformanceSnapshot struct {
	AsOf            time.Time       `json:"as_of"`
	TotalPnl        decimal.Decimal `json:"total_pnl"`
	CurrentCapital  decimal.Decimal `json:"current_capital"`
	ReturnPercent   decimal.Decimal `json:"return_percent"`
	WinRate         float64         `json:"win_rate"`
	ClosedTrades    int             `json:"closed_trades"`
	OpenTrades      int64           `json:"open_trades"`
	OnPaceForTarget bool            `json:"on_pace_for_target"`
	ProjectedAnnual decimal.Decimal `json:"projected_annual"`
	Status          string          `json:"status"`
}

// TargetAnalysis compares progress with the annual target
type TargetAnalysis struct {
	CurrentReturnPct       decimal.Decimal `json:"current_return_pct"`
	AnnualTargetPct        float64         `json:"annual_target_pct"`
	ProjectedAnnualPct     decimal.Decimal `json:"projected_annual_pct"`
	OnPace                 bool            `json:"on_pace"`
	RemainingQuarters      int             `json:"remaining_quarters"`
	NeededMonthlyReturnPct float64         `json:"needed_monthly_return_pct"`
	Assessment             string          `json:"assessment"`
}

// PeriodReport is a stored period's metrics plus the derived advice
type PeriodReport struct {
	Metrics         models.PerformanceMetrics `json:"metrics"`
	Recommendations []string                  `json:"recommendations"`
	TargetAnalysis  TargetAnalysis            `json:"target_analysis"`
}

// OpenTradeRequest records a manually confirmed entry
type OpenTradeRequest struct {
	Symbol       string          `json:"symbol"`
	EntryDate    *time.Time      `json:"entry_date,omitempty"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	TargetPrice  decimal.Decimal `json:"target_price"`
	StopPrice    decimal.Decimal `json:"stop_price"`
	PositionSize int             `json:"position_size"`
	Reasoning    string          `json:"reasoning,omitempty"`
	Confidence   *float64        `json:"confidence,omitempty"`
}

// MaintenanceResult summarises one daily maintenance run
type MaintenanceResult struct {
	BarsUpdated    int           `json:"bars_updated"`
	BarsSkipped    int           `json:"bars_skipped"`
	MetricsUpdated int           `json:"metrics_updated"`
	BarsPurged     int64         `json:"bars_purged"`
	MetricsPurged  int64         `json:"metrics_purged"`
	Duration       time.Duration `json:"duration"`
}

// InitialLoadResult summarises a history backfill
type InitialLoadResult struct {
	Loaded         int           `json:"loaded"`
	Failed         int           `json:"failed"`
	BarsInserted   int           `json:"bars_inserted"`
	MetricsUpdated int           `json:"metrics_updated"`
	Duration       time.Duration `json:"duration"`
}
