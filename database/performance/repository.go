package performance

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "tradescout/database/models_pkg"
)

// Repository stores period performance reports
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new performance repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save writes a report, replacing any earlier report for the same
// (period_type, period_end)
func (r *Repository) Save(ctx context.Context, m *models.PerformanceMetrics) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "period_type"}, {Name: "period_end"}},
			UpdateAll: true,
		}).
		Create(m).Error
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// ListByType returns reports of one period type, newest period first
func (r *Repository) ListByType(ctx context.Context, periodType models.PeriodType, limit int) ([]models.PerformanceMetrics, error) {
	var rows []models.PerformanceMetrics
	query := r.db.WithContext(ctx).
		Where("period_type = ?", periodType).
		Order("period_end DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListByType: %w", err)
	}
	return rows, nil
}

