package app

import (
	"context"
	"time"

	models "tradescout/database/models_pkg"
	"tradescout/database/types"
	"tradescout/marketdata"
)

// Clock returns the current instant; tests inject fixed clocks
type Clock func() time.Time

// MarketDataProvider supplies quotes and daily history
type MarketDataProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*marketdata.Quote, error)
	FetchHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error)
}

// BarStore persists daily bars
type BarStore interface {
	UpsertBar(ctx context.Context, bar *models.DailyBar) error
	// InsertMissing writes only bars not already stored and returns the count
	InsertMissing(ctx context.Context, bars []models.DailyBar) (int, error)
	// FindRecent returns bars with trade_date >= since, oldest first
	FindRecent(ctx context.Context, symbol string, since time.Time) ([]models.DailyBar, error)
	CountTracked(ctx context.Context, symbols []string) (int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MetricsStore persists volatility metrics
type MetricsStore interface {
	// Upsert atomically replaces the (symbol, date, lookback) row
	Upsert(ctx context.Context, m *models.VolatilityMetrics) error
	// Latest returns the newest row for symbol, nil when none exist
	Latest(ctx context.Context, symbol string) (*models.VolatilityMetrics, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TradeStore persists the trade journal
type TradeStore interface {
	Create(ctx context.Context, trade *models.Trade) error
	// UpdateIfOpen persists a status change only while the stored row is OPEN,
	// returning models.ErrTradeNotOpen when another writer got there first
	UpdateIfOpen(ctx context.Context, trade *models.Trade) error
	// GetByID returns nil when the trade does not exist
	GetByID(ctx context.Context, id int64) (*models.Trade, error)
	// List returns trades newest entry first; an empty status matches all
	List(ctx context.Context, status models.TradeStatus, limit int) ([]models.Trade, error)
	// CountEnteredBetween counts trades of any status by entry date, inclusive
	CountEnteredBetween(ctx context.Context, start, end time.Time) (int64, error)
	CountOpen(ctx context.Context) (int64, error)
	// ClosedBetween returns CLOSED trades by exit date, inclusive, most recent exit first
	ClosedBetween(ctx context.Context, start, end time.Time) ([]models.Trade, error)
	// RecentClosed returns CLOSED trades most recent exit first (exit date, then id)
	RecentClosed(ctx context.Context, limit int) ([]models.Trade, error)
	AllClosed(ctx context.Context) ([]models.Trade, error)
}

// PerformanceStore persists period reports
type PerformanceStore interface {
	// Save replaces any report with the same period type and end
	Save(ctx context.Context, m *models.PerformanceMetrics) error
	// ListByType returns reports newest period first
	ListByType(ctx context.Context, periodType models.PeriodType, limit int) ([]models.PerformanceMetrics, error)
}

// Notifier delivers alerts to the user
type Notifier interface {
	SendOpportunityAlert(ctx context.Context, opp types.Opportunity) error
	SendPeriodReport(ctx context.Context, report types.PeriodReport) error
}

// MetricsCache is an optional read-through cache for the latest metrics
type MetricsCache interface {
	GetMetrics(ctx context.Context, symbol string) (*models.VolatilityMetrics, bool)
	SetMetrics(ctx context.Context, m *models.VolatilityMetrics)
	InvalidateMetrics(ctx context.Context, symbol string)
}

// EventSink receives live events for connected dashboards
type EventSink interface {
	Broadcast(event string, payload interface{})
}

// OpportunityPublisher forwards admitted opportunities to other processes
type OpportunityPublisher interface {
	PublishOpportunity(ctx context.Context, payload interface{}) error
}
