// edgar: command line access to the SEC EDGAR structured data API
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ryan-d-young/edgar/internal/config"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("edgar failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "edgar",
		Short: "Programmatic access to the SEC EDGAR API",
		Long: `edgar fetches company submissions, XBRL concepts, company facts and
frames from data.sec.gov and prints them as flat records.

Examples:
  edgar submissions --args AAPL
  edgar concept --args MSFT,Revenues,us-gaap --output revenues.csv
  edgar frame AccountsPayableCurrent CY2019Q1I
  edgar facts AAPL --output facts.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			var err error
			configFile, _ := cmd.Flags().GetString("config")
			if configFile != "" {
				cfg, err = config.LoadFromFile(configFile)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			levelName := cfg.Logging.Level
			if override, _ := cmd.Flags().GetString("log-level"); override != "" {
				levelName = override
			}
			return setupLogging(levelName, cfg.Logging.Format)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./edgar.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	for _, cmd := range endpointCommands() {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newTickersCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func setupLogging(levelName, format string) error {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	zerolog.SetGlobalLevel(level)

	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}

// --- Version Command ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "edgar %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit:  %s\n", commit)
		},
	}
}
