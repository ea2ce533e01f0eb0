package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tradescout/api"
	"tradescout/cache"
	"tradescout/config"
	"tradescout/database"
	"tradescout/marketdata"
	"tradescout/notifications"
	"tradescout/realtime"
)

// App represents the main application
type App struct {
	config *config.Config
	db     *database.Database
	store  *database.Store
	redis  *cache.RedisClient
	broker *realtime.Broker
	logger zerolog.Logger

	Volatility    *VolatilityCalculator
	Detector      *AnomalyDetector
	Risk          *RiskManager
	Cooldown      *CooldownTracker
	Opportunities *OpportunityService
	Performance   *PerformanceTracker
	MarketData    *MarketDataService
	scheduler     *Scheduler
}

// New creates a new application instance. cfg must have passed Validate.
func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
		logger: log.With().Str("component", "app").Logger(),
	}
}

// Init connects to storage and builds every service. The CLI's one-shot
// commands stop here; Start adds the HTTP server and scheduler.
func (a *App) Init() error {
	// 1. Database Connection
	a.logger.Info().Msg("🗄️  Connecting to database...")
	db, err := database.Connect(
		a.config.Database.Host,
		a.config.Database.Port,
		a.config.Database.Name,
		a.config.Database.User,
		a.config.Database.Password,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	a.store = database.NewStore(a.db)
	if err := a.store.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	// 2. Redis Connection
	var metricsCache MetricsCache
	if a.config.Redis.Enabled {
		a.logger.Info().Msg("🧠 Connecting to Redis...")
		a.redis = cache.NewRedisClient(a.config.Redis.Host, a.config.Redis.Port, a.config.Redis.Password)
		if a.redis == nil {
			a.logger.Warn().Msg("⚠️  Redis connection failed. Caching disabled.")
		} else {
			metricsCache = a.redis
		}
	}

	// 3. Market data
	provider := marketdata.NewClient(marketdata.Options{
		BaseURL:         a.config.MarketData.BaseURL,
		RequestInterval: a.config.MarketData.RequestInterval,
		Timeout:         a.config.MarketData.Timeout,
	})

	// 4. Notifications and realtime
	dispatcher := a.buildDispatcher()
	a.broker = realtime.NewBroker()

	// 5. Engine
	loc := a.config.Rules.Location
	trading := a.config.Trading

	a.Volatility = NewVolatilityCalculator(a.store.Bars, a.store.Metrics, metricsCache, a.config.Detection.LookbackDays, loc, nil)
	a.Detector = NewAnomalyDetector(provider, a.store.Metrics, metricsCache, DetectionThresholds{
		MinConfidence:   a.config.Detection.MinConfidence,
		MinPriceZscore:  a.config.Detection.MinPriceZscore,
		MinVolumeZscore: a.config.Detection.MinVolumeZscore,
	}, a.config.Detection.ScanWorkers, a.config.Detection.FetchTimeout, nil)

	a.Risk = NewRiskManager(a.store.Trades, RiskLimits{
		MaxTradesPerWeek:     a.config.Risk.MaxTradesPerWeek,
		MaxTradesPerMonth:    a.config.Risk.MaxTradesPerMonth,
		MaxDailyLoss:         a.config.Risk.MaxDailyLoss,
		MaxMonthlyLoss:       a.config.Risk.MaxMonthlyLoss,
		MaxConsecutiveLosses: a.config.Risk.MaxConsecutiveLosses,
	}, loc, nil)

	a.Cooldown = NewCooldownTracker(a.config.Notification.AlertCooldownMinutes, nil)

	a.Opportunities = NewOpportunityService(a.Detector, a.Risk, a.Cooldown, a.store.Trades, trading.Watchlist, SizingRules{
		PositionSize:         trading.PositionSize,
		TargetProfitPerTrade: trading.TargetProfitPerTrade,
		StopLossPerTrade:     trading.StopLossPerTrade,
	}, EntryRules{
		NoFridayEntries:      a.config.Rules.NoFridayEntries,
		NotificationsEnabled: a.config.Notification.Enabled,
		Location:             loc,
	}, nil)
	a.Opportunities.SetEventSink(a.broker)
	if dispatcher != nil {
		a.Opportunities.SetNotifier(dispatcher)
	}
	if a.redis != nil {
		a.Opportunities.SetPublisher(a.redis)
	}

	var reportNotifier Notifier
	if dispatcher != nil && a.config.Notification.Enabled {
		reportNotifier = dispatcher
	}
	a.Performance = NewPerformanceTracker(a.store.Trades, a.store.Performance, reportNotifier, PerformanceTargets{
		InitialCapital:         trading.InitialCapital,
		AnnualTargetPercent:    trading.AnnualTargetPercent,
		QuarterlyTargetPercent: trading.QuarterlyTargetPercent,
	}, loc, nil)

	a.MarketData = NewMarketDataService(provider, a.store.Bars, a.store.Metrics, a.Volatility,
		trading.Watchlist, a.config.Detection.LookbackDays, a.config.Schedule.RetentionDays, loc, nil)

	return nil
}

// buildDispatcher returns nil when no channel is configured
func (a *App) buildDispatcher() *notifications.Dispatcher {
	n := a.config.Notification
	var channels []notifications.Channel

	if n.Email.Enabled {
		channels = append(channels, notifications.NewEmailNotifier(
			n.Email.SMTPHost, n.Email.SMTPPort, n.Email.Username, n.Email.Password, n.Email.From, n.Email.To))
	}
	if len(n.Webhook.URLs) > 0 {
		channels = append(channels, notifications.NewWebhookManager(
			n.Webhook.URLs, n.Webhook.AuthHeader, n.Webhook.AuthValue, n.Webhook.RetryCount, n.Webhook.RetryDelay))
	}
	if n.Telegram.BotToken != "" && n.Telegram.ChatID != 0 {
		tg, err := notifications.NewTelegramNotifier(n.Telegram.BotToken, n.Telegram.ChatID)
		if err != nil {
			a.logger.Warn().Err(err).Msg("⚠️  Telegram disabled")
		} else {
			channels = append(channels, tg)
		}
	}

	if len(channels) == 0 {
		a.logger.Info().Msg("ℹ️  No notification channels configured")
		return nil
	}
	d := notifications.NewDispatcher(channels...)
	a.logger.Info().Strs("channels", d.Channels()).Msg("✅ Notifications enabled")
	return d
}

// Start runs the API server and scheduler until SIGINT or SIGTERM
func (a *App) Start() error {
	if a.store == nil {
		if err := a.Init(); err != nil {
			return err
		}
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.broker.Run(ctx)
	}()

	hour, minute, err := config.ParseClock(a.config.Schedule.DailyMaintenanceTime)
	if err != nil {
		return err
	}
	a.scheduler = NewScheduler(a.MarketData, a.Opportunities, a.Performance, ScheduleOptions{
		MaintenanceHour:        hour,
		MaintenanceMinute:      minute,
		ScanInterval:           time.Duration(a.config.Schedule.ScanIntervalMinutes) * time.Minute,
		QuarterlyReportEnabled: a.config.Schedule.QuarterlyReportEnabled,
		Location:               a.config.Rules.Location,
	}, nil)

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.scheduler.Start(ctx)
	}()

	apiServer := api.NewServer(a.Opportunities, a.Performance, a.Risk, a.MarketData, a.broker, a.config.Rules.Location)
	go func() {
		if err := apiServer.Start(a.config.Server.Port); err != nil {
			a.logger.Error().Err(err).Msg("⚠️  API Server failed")
		}
	}()

	err = a.gracefulShutdown(cancel, apiServer)
	wg.Wait()
	return err
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown(cancel context.CancelFunc, apiServer *api.Server) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	a.logger.Info().Msg("🛑 Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownComplete := make(chan struct{})
	go func() {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Error stopping API server")
		}

		// Stops the scheduler and the broker
		cancel()

		a.Close()
		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		a.logger.Info().Msg("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		a.logger.Warn().Msg("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}

// Close releases the database and Redis connections
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Error closing database")
		} else {
			a.logger.Info().Msg("✅ Database connection closed")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Error closing redis")
		} else {
			a.logger.Info().Msg("✅ Redis connection closed")
		}
	}
}
