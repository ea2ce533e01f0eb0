package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and scheduled jobs",
	Run: func(cmd *cobra.Command, args []string) {
		application := initApp()
		if err := application.Start(); err != nil {
			log.Fatal().Err(err).Msg("❌ Server stopped with error")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
