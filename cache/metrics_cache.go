package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	models "tradescout/database/models_pkg"
)

const (
	metricsKeyPrefix = "tradescout:metrics:latest:"

	// MetricsTTL bounds staleness if an invalidation is lost; metrics only
	// change during daily maintenance.
	MetricsTTL = 12 * time.Hour

	// OpportunityChannel carries every admitted opportunity as JSON
	OpportunityChannel = "tradescout:opportunities"
)

func metricsKey(symbol string) string {
	return metricsKeyPrefix + symbol
}

// GetMetrics returns the cached latest metrics for symbol
func (r *RedisClient) GetMetrics(ctx context.Context, symbol string) (*models.VolatilityMetrics, bool) {
	if r.ready() != nil {
		return nil, false
	}

	var m models.VolatilityMetrics
	if err := r.Get(ctx, metricsKey(symbol), &m); err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debug().Err(err).Str("symbol", symbol).Msg("metrics cache read failed")
		}
		return nil, false
	}
	return &m, true
}

// SetMetrics caches m as the latest metrics for its symbol
func (r *RedisClient) SetMetrics(ctx context.Context, m *models.VolatilityMetrics) {
	if r.ready() != nil || m == nil {
		return
	}
	if err := r.Set(ctx, metricsKey(m.Symbol), m, MetricsTTL); err != nil {
		log.Debug().Err(err).Str("symbol", m.Symbol).Msg("metrics cache write failed")
	}
}

// InvalidateMetrics drops the cached metrics for symbol
func (r *RedisClient) InvalidateMetrics(ctx context.Context, symbol string) {
	if r.ready() != nil {
		return
	}
	if err := r.Delete(ctx, metricsKey(symbol)); err != nil {
		log.Debug().Err(err).Str("symbol", symbol).Msg("metrics cache invalidation failed")
	}
}

// PublishOpportunity publishes an admitted opportunity on OpportunityChannel
func (r *RedisClient) PublishOpportunity(ctx context.Context, payload interface{}) error {
	return r.Publish(ctx, OpportunityChannel, payload)
}
