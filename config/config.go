package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // embedded zone database for TRADING_TIMEZONE

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Database     DatabaseConfig
	Redis        RedisConfig
	Server       ServerConfig
	Log          LogConfig
	MarketData   MarketDataConfig
	Trading      TradingConfig
	Detection    DetectionConfig
	Risk         RiskConfig
	Rules        RulesConfig
	Schedule     ScheduleConfig
	Notification NotificationConfig

	// required keys that were not set in the environment
	missing []string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// RedisConfig holds Redis connection settings. Redis is optional.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Port int
}

// LogConfig controls zerolog output
type LogConfig struct {
	Level  string
	Format string // console or json
}

// MarketDataConfig configures the quote/history provider
type MarketDataConfig struct {
	BaseURL         string
	RequestInterval time.Duration // minimum delay between upstream requests
	Timeout         time.Duration
}

// TradingConfig holds account and sizing parameters
type TradingConfig struct {
	InitialCapital         decimal.Decimal
	PositionSize           decimal.Decimal // dollars committed per trade
	TargetProfitPerTrade   decimal.Decimal
	StopLossPerTrade       decimal.Decimal
	AnnualTargetPercent    float64
	QuarterlyTargetPercent float64
	Watchlist              []string
}

// DetectionConfig holds anomaly thresholds
type DetectionConfig struct {
	MinConfidence   float64
	MinPriceZscore  float64
	MinVolumeZscore float64
	LookbackDays    int
	ScanWorkers     int
	FetchTimeout    time.Duration
}

// RiskConfig holds the admission limits of the risk gate
type RiskConfig struct {
	MaxTradesPerWeek     int
	MaxTradesPerMonth    int
	MaxDailyLoss         decimal.Decimal // positive amount
	MaxMonthlyLoss       decimal.Decimal // positive amount
	MaxConsecutiveLosses int
}

// RulesConfig holds calendar rules
type RulesConfig struct {
	NoFridayEntries bool
	Timezone        string
	Location        *time.Location
}

// ScheduleConfig controls the background jobs
type ScheduleConfig struct {
	DailyMaintenanceTime   string // HH:MM in the trading timezone
	ScanIntervalMinutes    int    // 0 disables intraday scans
	QuarterlyReportEnabled bool
	RetentionDays          int
}

// NotificationConfig holds alert channel settings
type NotificationConfig struct {
	Enabled              bool
	AlertCooldownMinutes int
	Email                EmailConfig
	Webhook              WebhookConfig
	Telegram             TelegramConfig
}

// EmailConfig holds SMTP settings
type EmailConfig struct {
	Enabled  bool
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	To       []string
}

// WebhookConfig holds outbound webhook settings
type WebhookConfig struct {
	URLs       []string
	AuthHeader string
	AuthValue  string
	RetryCount int
	RetryDelay time.Duration
}

// TelegramConfig holds bot settings
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{}

	cfg.Database = DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		Name:     getEnvOrDefault("DB_NAME", "tradescout"),
		User:     getEnvOrDefault("DB_USER", "tradescout"),
		Password: getEnvOrDefault("DB_PASSWORD", "tradescout"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", true),
		Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
		Port:     getEnvOrDefault("REDIS_PORT", "6379"),
		Password: getEnvOrDefault("REDIS_PASSWORD", ""),
	}

	cfg.Server = ServerConfig{Port: getEnvInt("SERVER_PORT", 8080)}

	cfg.Log = LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "console"),
	}

	cfg.MarketData = MarketDataConfig{
		BaseURL:         getEnvOrDefault("MARKET_DATA_BASE_URL", "https://query1.finance.yahoo.com"),
		RequestInterval: time.Duration(getEnvInt("MARKET_DATA_REQUEST_INTERVAL_MS", 250)) * time.Millisecond,
		Timeout:         time.Duration(getEnvInt("MARKET_DATA_TIMEOUT_SECONDS", 15)) * time.Second,
	}

	cfg.Trading = TradingConfig{
		InitialCapital:         getEnvDecimal("TRADING_INITIAL_CAPITAL", "10000"),
		PositionSize:           getEnvDecimal("TRADING_POSITION_SIZE", "2000"),
		TargetProfitPerTrade:   getEnvDecimal("TRADING_TARGET_PROFIT_PER_TRADE", "100"),
		StopLossPerTrade:       getEnvDecimal("TRADING_STOP_LOSS_PER_TRADE", "50"),
		AnnualTargetPercent:    getEnvFloat("TRADING_ANNUAL_TARGET_PERCENT", 20),
		QuarterlyTargetPercent: getEnvFloat("TRADING_QUARTERLY_TARGET_PERCENT", 5),
		Watchlist:              getEnvList("TRADING_WATCHLIST", "AAPL,MSFT,GOOGL,AMZN,NVDA,META,JPM,V,JNJ,PG"),
	}

	// Thresholds and limits have no defaults; Validate reports them when unset.
	cfg.Detection = DetectionConfig{
		MinConfidence:   cfg.requiredFloat("DETECTION_MIN_CONFIDENCE"),
		MinPriceZscore:  cfg.requiredFloat("DETECTION_MIN_PRICE_ZSCORE"),
		MinVolumeZscore: cfg.requiredFloat("DETECTION_MIN_VOLUME_ZSCORE"),
		LookbackDays:    getEnvInt("DETECTION_LOOKBACK_DAYS", 90),
		ScanWorkers:     getEnvInt("DETECTION_SCAN_WORKERS", 4),
		FetchTimeout:    time.Duration(getEnvInt("DETECTION_FETCH_TIMEOUT_SECONDS", 20)) * time.Second,
	}

	cfg.Risk = RiskConfig{
		MaxTradesPerWeek:     cfg.requiredInt("RISK_MAX_TRADES_PER_WEEK"),
		MaxTradesPerMonth:    cfg.requiredInt("RISK_MAX_TRADES_PER_MONTH"),
		MaxDailyLoss:         cfg.requiredDecimal("RISK_MAX_DAILY_LOSS"),
		MaxMonthlyLoss:       cfg.requiredDecimal("RISK_MAX_MONTHLY_LOSS"),
		MaxConsecutiveLosses: cfg.requiredInt("RISK_MAX_CONSECUTIVE_LOSSES"),
	}

	cfg.Rules = RulesConfig{
		NoFridayEntries: getEnvBool("RULES_NO_FRIDAY_ENTRIES", true),
		Timezone:        getEnvOrDefault("TRADING_TIMEZONE", "America/New_York"),
	}

	cfg.Schedule = ScheduleConfig{
		DailyMaintenanceTime:   getEnvOrDefault("SCHEDULE_DAILY_MAINTENANCE_TIME", "17:30"),
		ScanIntervalMinutes:    getEnvInt("SCHEDULE_SCAN_INTERVAL_MINUTES", 15),
		QuarterlyReportEnabled: getEnvBool("SCHEDULE_QUARTERLY_REPORT_ENABLED", true),
		RetentionDays:          getEnvInt("DATA_RETENTION_DAYS", 365),
	}

	cfg.Notification = NotificationConfig{
		Enabled:              getEnvBool("NOTIFY_ENABLED", true),
		AlertCooldownMinutes: getEnvInt("NOTIFY_ALERT_COOLDOWN_MINUTES", 60),
		Email: EmailConfig{
			Enabled:  getEnvBool("EMAIL_ENABLED", false),
			SMTPHost: getEnvOrDefault("SMTP_HOST", "localhost"),
			SMTPPort: getEnvInt("SMTP_PORT", 587),
			Username: getEnvOrDefault("SMTP_USERNAME", ""),
			Password: getEnvOrDefault("SMTP_PASSWORD", ""),
			From:     getEnvOrDefault("EMAIL_FROM", "tradescout@localhost"),
			To:       getEnvList("EMAIL_TO", ""),
		},
		Webhook: WebhookConfig{
			URLs:       getEnvList("WEBHOOK_URLS", ""),
			AuthHeader: getEnvOrDefault("WEBHOOK_AUTH_HEADER", ""),
			AuthValue:  getEnvOrDefault("WEBHOOK_AUTH_VALUE", ""),
			RetryCount: getEnvInt("WEBHOOK_RETRY_COUNT", 3),
			RetryDelay: time.Duration(getEnvInt("WEBHOOK_RETRY_DELAY_SECONDS", 2)) * time.Second,
		},
		Telegram: TelegramConfig{
			BotToken: getEnvOrDefault("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   int64(getEnvInt("TELEGRAM_CHAT_ID", 0)),
		},
	}

	return cfg
}

// Validate reports every missing or invalid setting. A config that fails
// validation must not be used to run scans.
func (c *Config) Validate() error {
	var errs []error

	for _, key := range c.missing {
		errs = append(errs, fmt.Errorf("%s is required", key))
	}

	loc, err := time.LoadLocation(c.Rules.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("TRADING_TIMEZONE %q: %w", c.Rules.Timezone, err))
	} else {
		c.Rules.Location = loc
	}

	if len(c.Trading.Watchlist) == 0 {
		errs = append(errs, errors.New("TRADING_WATCHLIST must list at least one symbol"))
	}
	if !c.Trading.PositionSize.IsPositive() {
		errs = append(errs, errors.New("TRADING_POSITION_SIZE must be positive"))
	}
	if !c.Trading.InitialCapital.IsPositive() {
		errs = append(errs, errors.New("TRADING_INITIAL_CAPITAL must be positive"))
	}
	if c.Detection.LookbackDays <= 0 {
		errs = append(errs, errors.New("DETECTION_LOOKBACK_DAYS must be positive"))
	}
	if c.Detection.ScanWorkers <= 0 {
		errs = append(errs, errors.New("DETECTION_SCAN_WORKERS must be positive"))
	}
	if c.Risk.MaxDailyLoss.IsNegative() || c.Risk.MaxMonthlyLoss.IsNegative() {
		errs = append(errs, errors.New("loss limits are positive amounts"))
	}
	if _, _, err := ParseClock(c.Schedule.DailyMaintenanceTime); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULE_DAILY_MAINTENANCE_TIME: %w", err))
	}

	return errors.Join(errs...)
}

// ParseClock parses an HH:MM time of day
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

func (c *Config) requiredFloat(key string) float64 {
	value := os.Getenv(key)
	f, err := strconv.ParseFloat(value, 64)
	if value == "" || err != nil {
		c.missing = append(c.missing, key)
		return 0
	}
	return f
}

func (c *Config) requiredInt(key string) int {
	value := os.Getenv(key)
	i, err := strconv.Atoi(value)
	if value == "" || err != nil {
		c.missing = append(c.missing, key)
		return 0
	}
	return i
}

func (c *Config) requiredDecimal(key string) decimal.Decimal {
	d, err := decimal.NewFromString(os.Getenv(key))
	if err != nil {
		c.missing = append(c.missing, key)
		return decimal.Zero
	}
	return d
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if d, err := decimal.NewFromString(os.Getenv(key)); err == nil {
		return d
	}
	return decimal.RequireFromString(defaultValue)
}

// getEnvList splits a comma separated variable and drops blank entries
func getEnvList(key, defaultValue string) []string {
	raw := getEnvOrDefault(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
