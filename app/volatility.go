package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	models "tradescout/database/models_pkg"
	"tradescout/helpers"
	"tradescout/stats"
)

// BuildMetrics summarises a window of bars. It returns nil for an empty window.
// Volume mean and stddev are truncated to whole shares.
func BuildMetrics(symbol string, calculationDate time.Time, lookbackDays int, bars []models.DailyBar) *models.VolatilityMetrics {
	if len(bars) == 0 {
		return nil
	}

	ranges := make([]float64, len(bars))
	drops := make([]float64, len(bars))
	changes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		ranges[i] = bar.RangePct()
		drops[i] = bar.MaxDropPct()
		changes[i] = bar.ChangePct()
		volumes[i] = float64(bar.Volume)
	}

	return &models.VolatilityMetrics{
		Symbol:               symbol,
		CalculationDate:      helpers.DateOnly(calculationDate),
		LookbackDays:         lookbackDays,
		AvgDailyRangePct:     stats.Mean(ranges),
		StddevDailyRangePct:  stats.StdDev(ranges),
		AvgMaxDropPct:        stats.Mean(drops),
		StddevMaxDropPct:     stats.StdDev(drops),
		AvgDailyChangePct:    stats.Mean(changes),
		StddevDailyChangePct: stats.StdDev(changes),
		AvgVolume:            int64(stats.Mean(volumes)),
		StddevVolume:         int64(stats.StdDev(volumes)),
		SampleSize:           len(bars),
	}
}

// VolatilityCalculator recomputes and stores VolatilityMetrics from stored bars
type VolatilityCalculator struct {
	bars         BarStore
	metrics      MetricsStore
	cache        MetricsCache
	lookbackDays int
	loc          *time.Location
	now          Clock
	logger       zerolog.Logger
}

// NewVolatilityCalculator creates a calculator over the given stores.
// cache may be nil.
func NewVolatilityCalculator(bars BarStore, metrics MetricsStore, cache MetricsCache, lookbackDays int, loc *time.Location, now Clock) *VolatilityCalculator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &VolatilityCalculator{
		bars:         bars,
		metrics:      metrics,
		cache:        cache,
		lookbackDays: lookbackDays,
		loc:          loc,
		now:          now,
		logger:       log.With().Str("component", "volatility").Logger(),
	}
}

// CalculateMetrics computes and upserts today's metrics for symbol.
// An empty window logs a warning and returns nil, nil.
func (vc *VolatilityCalculator) CalculateMetrics(ctx context.Context, symbol string) (*models.VolatilityMetrics, error) {
	today := helpers.DateOnly(vc.now().In(vc.loc))
	since := today.AddDate(0, 0, -vc.lookbackDays)

	bars, err := vc.bars.FindRecent(ctx, symbol, since)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", symbol, err)
	}

	m := BuildMetrics(symbol, today, vc.lookbackDays, bars)
	if m == nil {
		vc.logger.Warn().Str("symbol", symbol).Int("lookback_days", vc.lookbackDays).Msg("⚠️ No history in lookback window, skipping metrics")
		return nil, nil
	}

	if err := vc.metrics.Upsert(ctx, m); err != nil {
		return nil, fmt.Errorf("save metrics for %s: %w", symbol, err)
	}
	if vc.cache != nil {
		vc.cache.InvalidateMetrics(ctx, symbol)
	}

	vc.logger.Debug().
		Str("symbol", symbol).
		Int("samples", m.SampleSize).
		Float64("avg_max_drop_pct", m.AvgMaxDropPct).
		Float64("stddev_max_drop_pct", m.StddevMaxDropPct).
		Msg("metrics updated")
	return m, nil
}

// CalculateAll recomputes metrics for every symbol. A failing symbol is
// logged and skipped. It returns the number of symbols updated.
func (vc *VolatilityCalculator) CalculateAll(ctx context.Context, symbols []string) int {
	vc.logger.Info().Int("symbols", len(symbols)).Msg("📊 Calculating volatility metrics...")

	updated := 0
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		m, err := vc.CalculateMetrics(ctx, symbol)
		if err != nil {
			vc.logger.Error().Err(err).Str("symbol", symbol).Msg("❌ Metrics calculation failed")
			continue
		}
		if m != nil {
			updated++
		}
	}

	vc.logger.Info().Int("updated", updated).Msg("✅ Volatility metrics calculation complete")
	return updated
}
