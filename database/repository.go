package database

import (
	"github.com/rs/zerolog/log"

	"tradescout/database/history"
	"tradescout/database/metrics"
	"tradescout/database/performance"
	"tradescout/database/trades"
)

// Store groups the per-table repositories over one connection
type Store struct {
	db          *Database
	Bars        *history.Repository
	Metrics     *metrics.Repository
	Trades      *trades.Repository
	Performance *performance.Repository
}

// NewStore creates the repositories for db
func NewStore(db *Database) *Store {
	return &Store{
		db:          db,
		Bars:        history.NewRepository(db.db),
		Metrics:     metrics.NewRepository(db.db),
		Trades:      trades.NewRepository(db.db),
		Performance: performance.NewRepository(db.db),
	}
}

// InitSchema runs AutoMigrate and creates the query indexes
func (s *Store) InitSchema() error {
	log.Info().Msg("🔄 Starting database schema initialization...")

	err := s.db.db.AutoMigrate(
		&DailyBar{},
		&VolatilityMetrics{},
		&Trade{},
		&PerformanceMetrics{},
	)
	if err != nil {
		return WrapDBError("AutoMigrate", err)
	}

	// Indexes for the risk gate and report queries
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_trades_status_exit_date ON trades (status, exit_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_volatility_symbol_calc_date ON volatility_metrics (symbol, calculation_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_performance_type_end ON performance_metrics (period_type, period_end DESC)`,
	}
	for _, stmt := range indexes {
		if err := s.db.db.Exec(stmt).Error; err != nil {
			log.Warn().Err(err).Str("statement", stmt).Msg("⚠️ Failed to create index")
		}
	}

	log.Info().Msg("✅ Database schema ready")
	return nil
}
