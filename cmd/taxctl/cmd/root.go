// Package cmd provides the taxctl commands.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"taxdesk/pkg/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "taxctl",
	Short: "Resolve PPh and PPN and administer the taxdesk database",
	Long: `taxctl resolves withholding tax (PPh) and value added tax (PPN) for
institutional payments and prepares the taxdesk database.

Examples:
  taxctl calc --type "Pembelian Barang" --category BUSINESS --value 3000000
  taxctl rules --category INDIVIDUAL
  taxctl seed --admin-email admin@example.go.id --admin-password secret123`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(seedCmd)
}

func newLogger() zerolog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Env: "development", Level: level})
}
