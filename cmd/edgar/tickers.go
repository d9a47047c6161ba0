package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ryan-d-young/edgar/internal/tickers"
)

// --- Tickers Command ---

func newTickersCmd() *cobra.Command {
	tickersCmd := &cobra.Command{
		Use:   "tickers",
		Short: "Manage the ticker to CIK mapping",
	}

	tickersCmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Download the SEC ticker lists and save the mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping, err := tickers.Build(cmd.Context(), newClient(cfg))
			if err != nil {
				return err
			}
			if err := mapping.Save(cfg.TickersFile); err != nil {
				return err
			}
			log.Info().Int("tickers", len(mapping)).Str("path", cfg.TickersFile).Msg("ticker mapping saved")
			return nil
		},
	})

	tickersCmd.AddCommand(&cobra.Command{
		Use:   "lookup [ticker]",
		Short: "Print the CIK of a ticker and the other tickers sharing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping, err := tickers.Load(cfg.TickersFile)
			if err != nil {
				return err
			}
			cik, err := tickers.NewResolver(mapping).Resolve(args[0])
			if err != nil {
				return err
			}

			raw := strings.TrimLeft(cik, "0")
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", cik, strings.Join(mapping.ByCIK()[raw], ","))
			return nil
		},
	})

	return tickersCmd
}
