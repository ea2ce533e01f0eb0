package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tradescout/app"
	"tradescout/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tradescout",
	Short: "Intraday overreaction scanner and trade journal",
	Long: `TradeScout scans a watchlist for statistically unusual intraday drops on
thin volume, sizes a trade for each admitted signal, gates new trades on
account risk limits and tracks performance against an annual target.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// setupLogging configures the global zerolog logger from LOG_LEVEL and LOG_FORMAT
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// loadConfig reads and validates the environment; invalid settings are fatal
func loadConfig() *config.Config {
	cfg := config.LoadFromEnv()
	setupLogging(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("❌ Invalid configuration")
	}
	return cfg
}

// initApp loads config and connects every service
func initApp() *app.App {
	application := app.New(loadConfig())
	if err := application.Init(); err != nil {
		log.Fatal().Err(err).Msg("❌ Startup failed")
	}
	return application
}
