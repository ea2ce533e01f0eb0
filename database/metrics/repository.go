package metrics

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "tradescout/database/models_pkg"
)

// Repository handles database operations for volatility metrics
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new metrics repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var upsertColumns = []string{
	"avg_daily_range_pct", "stddev_daily_range_pct",
	"avg_max_drop_pct", "stddev_max_drop_pct",
	"avg_daily_change_pct", "stddev_daily_change_pct",
	"avg_volume", "stddev_volume", "sample_size",
}

// Upsert replaces the (symbol, calculation_date, lookback_days) row inside a
// transaction so readers see either the old or the new row.
func (r *Repository) Upsert(ctx context.Context, m *models.VolatilityMetrics) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "symbol"}, {Name: "calculation_date"}, {Name: "lookback_days"},
			},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).Create(m).Error
	})
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

// Latest returns the newest metrics row for symbol, nil if none exist
func (r *Repository) Latest(ctx context.Context, symbol string) (*models.VolatilityMetrics, error) {
	var m models.VolatilityMetrics
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("calculation_date DESC, id DESC").
		First(&m).Error

	if err == nil {
		return &m, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("Latest: %w", err)
	}
	return nil, nil
}

// DeleteBefore removes metrics calculated before cutoff
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("calculation_date < ?", cutoff).
		Delete(&models.VolatilityMetrics{})
	if result.Error != nil {
		return 0, fmt.Errorf("DeleteBefore: %w", result.Error)
	}
	return result.RowsAffected, nil
}
