package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tradescout/database"
	models "tradescout/database/models_pkg"
	"tradescout/database/types"
	"tradescout/helpers"
	"tradescout/marketdata"
)

// MarketDataService keeps stored bars and metrics current for the watchlist
type MarketDataService struct {
	provider      MarketDataProvider
	bars          BarStore
	metrics       MetricsStore
	volatility    *VolatilityCalculator
	watchlist     []string
	lookbackDays  int
	retentionDays int
	loc           *time.Location
	now           Clock
	logger        zerolog.Logger
}

// NewMarketDataService creates the maintenance service
func NewMarketDataService(provider MarketDataProvider, bars BarStore, metrics MetricsStore, volatility *VolatilityCalculator, watchlist []string, lookbackDays, retentionDays int, loc *time.Location, now Clock) *MarketDataService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	if retentionDays <= 0 {
		retentionDays = database.DefaultRetentionDays
	}
	return &MarketDataService{
		provider:      provider,
		bars:          bars,
		metrics:       metrics,
		volatility:    volatility,
		watchlist:     watchlist,
		lookbackDays:  lookbackDays,
		retentionDays: retentionDays,
		loc:           loc,
		now:           now,
		logger:        log.With().Str("component", "maintenance").Logger(),
	}
}

func (s *MarketDataService) today() time.Time {
	return helpers.DateOnly(s.now().In(s.loc))
}

// LoadInitialData backfills the lookback window for every symbol, then
// computes metrics. Existing bars are left untouched.
func (s *MarketDataService) LoadInitialData(ctx context.Context) (*types.InitialLoadResult, error) {
	start := time.Now()
	result := &types.InitialLoadResult{}

	to := s.now().In(s.loc)
	from := to.AddDate(0, 0, -s.lookbackDays)

	s.logger.Info().Int("symbols", len(s.watchlist)).Int("days", s.lookbackDays).Msg("📥 Loading initial history...")

	for i, symbol := range s.watchlist {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.logger.Info().Msgf("[%d/%d] Loading %s", i+1, len(s.watchlist), symbol)

		inserted, err := s.loadHistory(ctx, symbol, from, to)
		if err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("❌ History load failed")
			result.Failed++
			continue
		}
		result.Loaded++
		result.BarsInserted += inserted
	}

	result.MetricsUpdated = s.volatility.CalculateAll(ctx, s.watchlist)
	result.Duration = time.Since(start)

	s.logger.Info().
		Int("loaded", result.Loaded).
		Int("failed", result.Failed).
		Int("bars", result.BarsInserted).
		Dur("duration", result.Duration).
		Msg("✅ Initial data load complete")
	return result, nil
}

func (s *MarketDataService) loadHistory(ctx context.Context, symbol string, from, to time.Time) (int, error) {
	bars, err := s.provider.FetchHistory(ctx, symbol, from, to)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no data returned for %s", symbol)
	}
	return s.bars.InsertMissing(ctx, bars)
}

// UpdateTodaysData writes today's bar for each symbol from its live quote.
// Symbols without a valid price are skipped.
func (s *MarketDataService) UpdateTodaysData(ctx context.Context) (updated, skipped int) {
	today := s.today()
	s.logger.Info().Int("symbols", len(s.watchlist)).Msg("Updating today's data...")

	for _, symbol := range s.watchlist {
		if ctx.Err() != nil {
			break
		}

		q, err := s.provider.FetchQuote(ctx, symbol)
		if errors.Is(err, marketdata.ErrNoQuote) || (err == nil && (q == nil || q.Price == 0)) {
			s.logger.Debug().Str("symbol", symbol).Msg("no valid price data, skipping")
			skipped++
			continue
		}
		if err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("❌ Failed to update today's data")
			continue
		}

		bar := &models.DailyBar{
			Symbol:    symbol,
			TradeDate: today,
			Open:      q.Open,
			High:      q.High,
			Low:       q.Low,
			Close:     q.Price,
			Volume:    q.Volume,
		}
		if err := s.bars.UpsertBar(ctx, bar); err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("❌ Failed to save today's bar")
			continue
		}
		updated++
	}

	s.logger.Info().Int("updated", updated).Int("skipped", skipped).Msg("Today's data update complete")
	return updated, skipped
}

// CleanupOldData drops bars older than the retention window and metrics
// older than a further MetricsRetentionExtraDays.
func (s *MarketDataService) CleanupOldData(ctx context.Context) (barsPurged, metricsPurged int64, err error) {
	cutoff := s.today().AddDate(0, 0, -s.retentionDays)
	s.logger.Info().Str("cutoff", cutoff.Format("2006-01-02")).Msg("🧹 Cleaning up old data")

	if barsPurged, err = s.bars.DeleteBefore(ctx, cutoff); err != nil {
		return 0, 0, fmt.Errorf("purge bars: %w", err)
	}
	metricsCutoff := cutoff.AddDate(0, 0, -database.MetricsRetentionExtraDays)
	if metricsPurged, err = s.metrics.DeleteBefore(ctx, metricsCutoff); err != nil {
		return barsPurged, 0, fmt.Errorf("purge metrics: %w", err)
	}
	return barsPurged, metricsPurged, nil
}

// RunDailyMaintenance refreshes today's bars, recomputes metrics and purges
// expired rows.
func (s *MarketDataService) RunDailyMaintenance(ctx context.Context) (*types.MaintenanceResult, error) {
	start := time.Now()
	result := &types.MaintenanceResult{}
	s.logger.Info().Msg("🔧 Starting daily maintenance")

	result.BarsUpdated, result.BarsSkipped = s.UpdateTodaysData(ctx)
	result.MetricsUpdated = s.volatility.CalculateAll(ctx, s.watchlist)

	var err error
	result.BarsPurged, result.MetricsPurged, err = s.CleanupOldData(ctx)
	result.Duration = time.Since(start)
	if err != nil {
		s.logger.Error().Err(err).Msg("❌ Cleanup failed")
		return result, err
	}

	s.logger.Info().
		Int("bars_updated", result.BarsUpdated).
		Int("metrics_updated", result.MetricsUpdated).
		Int64("bars_purged", result.BarsPurged).
		Int64("metrics_purged", result.MetricsPurged).
		Dur("duration", result.Duration).
		Msg("✅ Daily maintenance complete")
	return result, nil
}

// StocksTracked counts watchlist symbols with stored history
func (s *MarketDataService) StocksTracked(ctx context.Context) (int64, error) {
	return s.bars.CountTracked(ctx, s.watchlist)
}
