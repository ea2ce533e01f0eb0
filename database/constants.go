package database

// Connection pool sizing
const (
	MaxOpenConns = 20
	MaxIdleConns = 10
)

// Data retention
const (
	// DefaultRetentionDays is how long daily bars are kept
	DefaultRetentionDays = 365

	// MetricsRetentionExtraDays keeps metrics a little longer than the bars
	// they were computed from
	MetricsRetentionExtraDays = 30
)

// Query limits
const (
	DefaultLimit = 50
	MaxLimit     = 500
)
