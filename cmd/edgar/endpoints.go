package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ryan-d-young/edgar"
	"github.com/ryan-d-young/edgar/internal/config"
	"github.com/ryan-d-young/edgar/internal/output"
	"github.com/ryan-d-young/edgar/internal/tickers"
)

type endpointDef struct {
	kind  edgar.Kind
	usage string
	short string
	// maxValues is the number of positional values the endpoint accepts
	maxValues int
}

var endpoints = []endpointDef{
	{edgar.KindFacts, "facts [ticker]", "All XBRL facts for a company", 1},
	{edgar.KindConcept, "concept [ticker [tag [taxonomy]]]", "One XBRL concept for a company", 3},
	{edgar.KindFrame, "frame [tag [period [taxonomy [unit]]]]", "One XBRL concept across all companies for a period", 4},
	{edgar.KindSubmissions, "submissions [ticker]", "Annual and quarterly report filings of a company", 1},
}

func endpointCommands() []*cobra.Command {
	commands := make([]*cobra.Command, 0, len(endpoints))
	for _, def := range endpoints {
		cmd := &cobra.Command{
			Use:   def.usage,
			Short: def.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				extra, _ := cmd.Flags().GetStringSlice("args")
				dest, _ := cmd.Flags().GetString("output")
				format, _ := cmd.Flags().GetString("format")

				values, err := endpointValues(args, extra, cmd.Flags().Changed("args"))
				if err != nil {
					return err
				}
				if len(values) > def.maxValues {
					return fmt.Errorf("%s accepts at most %d values, got %d", def.kind, def.maxValues, len(values))
				}

				return runEndpoint(cmd.Context(), newClient(cfg), resolveTicker, def.kind, values, cmd.OutOrStdout(), dest, format)
			},
		}
		cmd.Flags().StringSlice("args", nil, "comma separated values forwarded to the endpoint; the first is a ticker when the endpoint needs a CIK")
		cmd.Flags().String("output", "", "write records to this path (must not exist)")
		cmd.Flags().String("format", "", "output format: json, yaml, csv (default: from extension)")
		commands = append(commands, cmd)
	}
	return commands
}

// endpointValues takes the values either positionally or from --args.
// pflag does not keep the order of flags relative to positionals, so mixing
// the two would silently reorder them.
func endpointValues(positional, flagged []string, flagSet bool) ([]string, error) {
	if flagSet && len(positional) > 0 {
		return nil, fmt.Errorf("got --args %s and positional values %s: pass values positionally or as --args v1,v2,... but not both",
			strings.Join(flagged, ","), strings.Join(positional, " "))
	}
	if flagSet {
		return flagged, nil
	}
	return positional, nil
}

func newClient(cfg *config.Config) *edgar.Client {
	var limiter edgar.Limiter
	switch cfg.Limiter {
	case config.LimiterToken:
		limiter = edgar.NewTokenBucket(cfg.RequestsPerSecond)
	default:
		limiter = edgar.NewSlidingWindow(cfg.RequestsPerSecond, edgar.WithBuffer(cfg.Buffer()))
	}

	return edgar.NewClient(
		edgar.WithUserAgent(cfg.UserAgent),
		edgar.WithBaseURL(cfg.BaseURL),
		edgar.WithTimeout(cfg.Timeout),
		edgar.WithRateLimiter(limiter),
		edgar.WithLogger(log.Logger),
	)
}

// resolveTicker loads the mapping file only when a real ticker needs it
func resolveTicker(ticker string) (string, error) {
	if cik, err := edgar.NormalizeCIK(ticker); err == nil {
		return cik, nil
	}
	mapping, err := tickers.Load(cfg.TickersFile)
	if err != nil {
		return "", fmt.Errorf("loading ticker mapping (run `edgar tickers build`): %w", err)
	}
	return tickers.NewResolver(mapping).Resolve(ticker)
}

// buildRequest maps positional values onto the endpoint request
func buildRequest(kind edgar.Kind, values []string, resolve func(string) (string, error)) (edgar.Request, error) {
	at := func(i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}

	var cik string
	if kind != edgar.KindFrame && len(values) > 0 {
		var err error
		if cik, err = resolve(values[0]); err != nil {
			return nil, err
		}
	}

	switch kind {
	case edgar.KindSubmissions:
		return edgar.SubmissionsRequest{CIK: cik}, nil
	case edgar.KindConcept:
		return edgar.ConceptRequest{CIK: cik, Tag: at(1), Taxonomy: at(2)}, nil
	case edgar.KindFacts:
		return edgar.FactsRequest{CIK: cik}, nil
	case edgar.KindFrame:
		return edgar.FrameRequest{Tag: at(0), Period: at(1), Taxonomy: at(2), Unit: at(3)}, nil
	}
	return nil, fmt.Errorf("unsupported endpoint %s", kind)
}

func runEndpoint(ctx context.Context, client *edgar.Client, resolve func(string) (string, error), kind edgar.Kind, values []string, stdout io.Writer, dest, format string) error {
	req, err := buildRequest(kind, values, resolve)
	if err != nil {
		return err
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.CheckStatus(); err != nil {
		return err
	}

	result, err := edgar.Parse(resp)
	if err != nil {
		return err
	}
	log.Info().Str("endpoint", kind.String()).Int("records", len(result.Records)).Msg("parsed response")

	if err := output.Table(stdout, result); err != nil {
		return fmt.Errorf("printing records: %w", err)
	}

	if dest != "" {
		if err := output.Write(dest, result, format); err != nil {
			return err
		}
		log.Info().Str("path", dest).Msg("records written")
	}
	return nil
}
