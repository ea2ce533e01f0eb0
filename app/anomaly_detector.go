package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	models "tradescout/database/models_pkg"
	"tradescout/database/types"
	"tradescout/marketdata"
	"tradescout/stats"
)

// Confidence score weights
const (
	priceZFloor      = 2.0
	priceTermWeight  = 25.0
	priceTermCap     = 50.0
	volumeTermWeight = 10.0
	volumeTermCap    = 30.0
	trendBonusWeight = 2.0
	trendBonusCap    = 20.0
)

// DetectionThresholds are the three gates a signal must clear
type DetectionThresholds struct {
	MinConfidence   float64
	MinPriceZscore  float64
	MinVolumeZscore float64
}

// ConfidenceScore combines the price, volume and trend terms into 0..100.
// Each term is clamped before summing.
func ConfidenceScore(priceZ, volumeZ, avgDailyChangePct float64) float64 {
	score := stats.Clamp((math.Abs(priceZ)-priceZFloor)*priceTermWeight, 0, priceTermCap)

	if volumeZ < 0 {
		score += stats.Clamp(math.Abs(volumeZ)*volumeTermWeight, 0, volumeTermCap)
	}
	if avgDailyChangePct > 0 {
		score += math.Min(trendBonusCap, avgDailyChangePct*trendBonusWeight)
	}

	return stats.Clamp(score, 0, 100)
}

// EvaluateSignal scores a quote against a symbol's metrics. It is pure; the
// caller supplies the timestamp.
func EvaluateSignal(q *marketdata.Quote, m *models.VolatilityMetrics, th DetectionThresholds, at time.Time) types.OpportunitySignal {
	dropPct := 0.0
	if q.Open != 0 {
		dropPct = (q.Price - q.Open) / q.Open * 100
	}

	priceZ := stats.ZScore(dropPct, m.AvgMaxDropPct, m.StddevMaxDropPct)
	volumeZ := stats.ZScore(float64(q.Volume), float64(m.AvgVolume), float64(m.StddevVolume))
	confidence := ConfidenceScore(priceZ, volumeZ, m.AvgDailyChangePct)

	return types.OpportunitySignal{
		Symbol:         q.Symbol,
		CurrentPrice:   q.Price,
		TodayOpen:      q.Open,
		TodayHigh:      q.High,
		TodayLow:       q.Low,
		CurrentVolume:  q.Volume,
		CurrentDropPct: dropPct,
		PriceZScore:    priceZ,
		VolumeZScore:   volumeZ,
		Confidence:     confidence,
		IsOpportunity:  priceZ < th.MinPriceZscore && volumeZ < th.MinVolumeZscore && confidence >= th.MinConfidence,
		Reason:         signalReason(dropPct, priceZ, volumeZ, m),
		HistoricalContext: types.HistoricalContext{
			AvgMaxDropPct:     m.AvgMaxDropPct,
			StddevMaxDropPct:  m.StddevMaxDropPct,
			AvgVolume:         m.AvgVolume,
			StddevVolume:      m.StddevVolume,
			AvgDailyChangePct: m.AvgDailyChangePct,
		},
		Timestamp: at,
	}
}

func signalReason(dropPct, priceZ, volumeZ float64, m *models.VolatilityMetrics) string {
	direction := "above"
	note := ""
	if volumeZ < 0 {
		direction = "below"
		note = "Low volume suggests overreaction, not fundamental issue"
	}
	return fmt.Sprintf("Drop: %.2f%% from open\nHistorical avg: %.2f%% ± %.2f%%\nPrice Z-Score: %.2fσ below normal\nVolume Z-Score: %.2fσ %s average\n%s",
		dropPct, m.AvgMaxDropPct, m.StddevMaxDropPct, math.Abs(priceZ), math.Abs(volumeZ), direction, note)
}

// AnomalyDetector compares live quotes with stored volatility metrics
type AnomalyDetector struct {
	quotes       MarketDataProvider
	metrics      MetricsStore
	cache        MetricsCache
	thresholds   DetectionThresholds
	workers      int
	fetchTimeout time.Duration
	now          Clock
	logger       zerolog.Logger
}

// NewAnomalyDetector creates a detector. cache may be nil; workers bounds the
// number of symbols fetched concurrently.
func NewAnomalyDetector(quotes MarketDataProvider, metrics MetricsStore, cache MetricsCache, th DetectionThresholds, workers int, fetchTimeout time.Duration, now Clock) *AnomalyDetector {
	if workers <= 0 {
		workers = 1
	}
	if now == nil {
		now = time.Now
	}
	return &AnomalyDetector{
		quotes:       quotes,
		metrics:      metrics,
		cache:        cache,
		thresholds:   th,
		workers:      workers,
		fetchTimeout: fetchTimeout,
		now:          now,
		logger:       log.With().Str("component", "detector").Logger(),
	}
}

// AnalyzeSymbol returns the signal for one symbol, or nil when the symbol has
// no usable quote or no stored metrics.
func (d *AnomalyDetector) AnalyzeSymbol(ctx context.Context, symbol string) (*types.OpportunitySignal, error) {
	if d.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.fetchTimeout)
		defer cancel()
	}

	m, err := d.latestMetrics(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if m == nil {
		d.logger.Debug().Str("symbol", symbol).Msg("no volatility metrics, skipping")
		return nil, nil
	}

	q, err := d.quotes.FetchQuote(ctx, symbol)
	if errors.Is(err, marketdata.ErrNoQuote) || (err == nil && (q == nil || q.Price == 0 || q.Open == 0)) {
		d.logger.Debug().Str("symbol", symbol).Msg("no quote, skipping")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}

	signal := EvaluateSignal(q, m, d.thresholds, d.now())
	return &signal, nil
}

func (d *AnomalyDetector) latestMetrics(ctx context.Context, symbol string) (*models.VolatilityMetrics, error) {
	if d.cache != nil {
		if m, ok := d.cache.GetMetrics(ctx, symbol); ok {
			return m, nil
		}
	}

	m, err := d.metrics.Latest(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load metrics for %s: %w", symbol, err)
	}
	if m != nil && d.cache != nil {
		d.cache.SetMetrics(ctx, m)
	}
	return m, nil
}

// ScanForOpportunities analyzes every symbol and returns the flagged signals
// in watchlist order. A failing symbol is logged and left out.
func (d *AnomalyDetector) ScanForOpportunities(ctx context.Context, watchlist []string) []types.OpportunitySignal {
	d.logger.Info().Int("symbols", len(watchlist)).Msg("🔍 Scanning watchlist for opportunities...")

	results := make([]*types.OpportunitySignal, len(watchlist))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, symbol := range watchlist {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			signal, err := d.AnalyzeSymbol(ctx, symbol)
			if err != nil {
				d.logger.Error().Err(err).Str("symbol", symbol).Msg("❌ Symbol analysis failed")
				return nil
			}
			if signal == nil {
				return nil
			}
			if signal.IsOpportunity {
				d.logger.Info().
					Str("symbol", symbol).
					Float64("drop_pct", signal.CurrentDropPct).
					Float64("price_z", signal.PriceZScore).
					Float64("volume_z", signal.VolumeZScore).
					Float64("confidence", signal.Confidence).
					Msg("🎯 Anomaly detected")
				results[i] = signal
			}
			return nil
		})
	}
	_ = g.Wait()

	found := make([]types.OpportunitySignal, 0)
	for _, s := range results {
		if s != nil {
			found = append(found, *s)
		}
	}

	d.logger.Info().Int("opportunities", len(found)).Msg("✅ Scan complete")
	return found
}
