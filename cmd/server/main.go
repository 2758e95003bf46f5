package main // Entry point package

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/config"
)

func main() {
	config.LoadDotEnv()

	root := &cobra.Command{
		Use:   "smartpark",
		Short: "SmartPark realtime parking server",
		Long: `SmartPark serves the parking apps: live spot occupancy, driver/guard
chat and presence over websockets, monthly spot rentals with card
payments, receipts and the contact form.

Running without a subcommand starts the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := serveCmd()
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, tokenCmd(), hashPasscodeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

// newLogger builds a development logger for APP_ENV=dev and a production
// JSON logger otherwise.
func newLogger(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
