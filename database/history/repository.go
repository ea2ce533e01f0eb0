package history

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "tradescout/database/models_pkg"
)

// Repository handles database operations for daily bars
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new history repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertBar writes a bar, replacing the prices and volume of an existing
// (symbol, trade_date) row. Used for today's bar, which changes intraday.
func (r *Repository) UpsertBar(ctx context.Context, bar *models.DailyBar) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "trade_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
		}).
		Create(bar).Error
	if err != nil {
		return fmt.Errorf("UpsertBar: %w", err)
	}
	return nil
}

// InsertMissing inserts bars whose (symbol, trade_date) is not stored yet and
// returns how many rows were written. Existing bars are left untouched.
func (r *Repository) InsertMissing(ctx context.Context, bars []models.DailyBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(bars, 100)
	if result.Error != nil {
		return 0, fmt.Errorf("InsertMissing: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// FindRecent returns bars for symbol with trade_date >= since, oldest first
func (r *Repository) FindRecent(ctx context.Context, symbol string, since time.Time) ([]models.DailyBar, error) {
	var bars []models.DailyBar
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND trade_date >= ?", symbol, since).
		Order("trade_date ASC").
		Find(&bars).Error
	if err != nil {
		return nil, fmt.Errorf("FindRecent: %w", err)
	}
	return bars, nil
}

// CountTracked counts how many of the given symbols have at least one bar
func (r *Repository) CountTracked(ctx context.Context, symbols []string) (int64, error) {
	if len(symbols) == 0 {
		return 0, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DailyBar{}).
		Where("symbol = ANY(?)", pq.Array(symbols)).
		Distinct("symbol").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("CountTracked: %w", err)
	}
	return count, nil
}

// DeleteBefore removes bars older than cutoff
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("trade_date < ?", cutoff).
		Delete(&models.DailyBar{})
	if result.Error != nil {
		return 0, fmt.Errorf("DeleteBefore: %w", result.Error)
	}
	return result.RowsAffected, nil
}
