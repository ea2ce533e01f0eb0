// Package database provides the PostgreSQL store for tradescout.
//
// The package owns the connection and schema; queries live in one
// sub-package per table:
//   - history: daily OHLCV bars
//   - metrics: volatility metrics per (symbol, date, lookback)
//   - trades: trade journal
//   - performance: stored period reports
//
// Data models are defined in the models_pkg package so the sub-packages can
// share them without import cycles.
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "tradescout/database/models_pkg"
)

// Database holds the GORM connection shared by every repository
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM instance
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect opens the PostgreSQL connection and sizes the pool
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// Ping checks the connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Type aliases so callers can stay on the database package
type DailyBar = models.DailyBar
type VolatilityMetrics = models.VolatilityMetrics
type Trade = models.Trade
type PerformanceMetrics = models.PerformanceMetrics
