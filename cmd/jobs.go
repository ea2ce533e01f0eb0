package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	models "tradescout/database/models_pkg"
)

var reportPeriod string

var initializeCmd = &cobra.Command{
	Use:   "initialize",
	Short: "Backfill history for the watchlist and compute metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		application := initApp()
		defer application.Close()

		result, err := application.MarketData.LoadInitialData(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Refresh today's bars, recompute metrics and purge old data",
	RunE: func(cmd *cobra.Command, args []string) error {
		application := initApp()
		defer application.Close()

		result, err := application.MarketData.RunDailyMaintenance(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a performance report for the current period",
	RunE: func(cmd *cobra.Command, args []string) error {
		period, ok := models.ParsePeriodType(strings.ToUpper(reportPeriod))
		if !ok {
			return fmt.Errorf("unknown period %q: use WEEKLY, MONTHLY, QUARTERLY or ANNUAL", reportPeriod)
		}

		application := initApp()
		defer application.Close()

		report, err := application.Performance.GeneratePeriodReport(cmd.Context(), period, time.Now())
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one opportunity scan and send alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		application := initApp()
		defer application.Close()

		signals, err := application.Opportunities.ScanAndAlert(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(signals)
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	reportCmd.Flags().StringVarP(&reportPeriod, "period", "p", string(models.PeriodQuarterly), "WEEKLY, MONTHLY, QUARTERLY or ANNUAL")

	rootCmd.AddCommand(initializeCmd, maintenanceCmd, reportCmd, scanCmd)
}
