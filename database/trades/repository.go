package trades

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	models "tradescout/database/models_pkg"
)

// Repository handles database operations for the trade journal.
// Trades are never deleted.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new trades repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new trade and fills in its ID
func (r *Repository) Create(ctx context.Context, trade *models.Trade) error {
	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// UpdateIfOpen writes the exit fields of trade only while the stored row is
// still OPEN. A row that has already left OPEN yields models.ErrTradeNotOpen.
func (r *Repository) UpdateIfOpen(ctx context.Context, trade *models.Trade) error {
	result := r.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ? AND status = ?", trade.ID, models.TradeStatusOpen).
		Updates(map[string]interface{}{
			"status":          trade.Status,
			"exit_price":      trade.ExitPrice,
			"exit_date":       trade.ExitDate,
			"exit_reason":     trade.ExitReason,
			"pnl":             trade.Pnl,
			"pnl_percent":     trade.PnlPercent,
			"lessons_learned": trade.LessonsLearned,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("UpdateIfOpen: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrTradeNotOpen
	}
	return nil
}

// GetByID returns a trade, nil if it does not exist
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Trade, error) {
	var trade models.Trade
	err := r.db.WithContext(ctx).First(&trade, id).Error

	if err == nil {
		return &trade, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return nil, nil
}

// List returns trades newest entry first; an empty status matches all
func (r *Repository) List(ctx context.Context, status models.TradeStatus, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	query := r.db.WithContext(ctx).Order("entry_date DESC, id DESC")

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return trades, nil
}

// CountEnteredBetween counts trades of any status with entry_date in [start, end]
func (r *Repository) CountEnteredBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("entry_date BETWEEN ? AND ?", start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("CountEnteredBetween: %w", err)
	}
	return count, nil
}

// CountOpen counts trades in the OPEN state
func (r *Repository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("status = ?", models.TradeStatusOpen).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("CountOpen: %w", err)
	}
	return count, nil
}

// ClosedBetween returns CLOSED trades with exit_date in [start, end],
// most recent exit first
func (r *Repository) ClosedBetween(ctx context.Context, start, end time.Time) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.db.WithContext(ctx).
		Where("status = ? AND exit_date BETWEEN ? AND ?", models.TradeStatusClosed, start, end).
		Order("exit_date DESC, id DESC").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("ClosedBetween: %w", err)
	}
	return trades, nil
}

// RecentClosed returns up to limit CLOSED trades, most recent exit first
func (r *Repository) RecentClosed(ctx context.Context, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	query := r.db.WithContext(ctx).
		Where("status = ?", models.TradeStatusClosed).
		Order("exit_date DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("RecentClosed: %w", err)
	}
	return trades, nil
}

// AllClosed returns every CLOSED trade, most recent exit first
func (r *Repository) AllClosed(ctx context.Context) ([]models.Trade, error) {
	return r.RecentClosed(ctx, 0)
}
