// Package tickers builds and queries the ticker to CIK mapping.
//
// The mapping is assembled from two SEC sources, company_tickers.json and
// ticker.txt, and saved as {"aapl": ["320193"]} keyed by lowercase ticker.
package tickers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ryan-d-young/edgar"
)

const (
	CompanyTickersURL = "https://www.sec.gov/files/company_tickers.json"
	TickerTextURL     = "https://www.sec.gov/include/ticker.txt"
)

// ErrUnknownTicker is returned when a ticker is not in the mapping
var ErrUnknownTicker = errors.New("unknown ticker")

// Mapping maps a lowercase ticker to the raw (unpadded) CIKs that use it
type Mapping map[string][]string

// Fetcher downloads a file; *edgar.Client satisfies it
type Fetcher interface {
	FileContents(ctx context.Context, url string) ([]byte, error)
}

type companyTicker struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// ProcessJSON builds a mapping from the company_tickers.json document
func ProcessJSON(raw []byte) (Mapping, error) {
	var entries map[string]companyTicker
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decoding company tickers: %w", err)
	}

	// keys are "0", "1", ... and give the SEC's ranking
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})

	mapping := make(Mapping, len(entries))
	for _, key := range keys {
		entry := entries[key]
		if entry.Ticker == "" {
			continue
		}
		mapping.add(entry.Ticker, strconv.FormatInt(entry.CIK, 10))
	}
	return mapping, nil
}

// ProcessTXT builds a mapping from the tab separated ticker.txt document
func ProcessTXT(raw []byte) (Mapping, error) {
	mapping := make(Mapping)
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		ticker, cik, ok := strings.Cut(text, "\t")
		if !ok {
			return nil, fmt.Errorf("ticker.txt line %d: expected ticker<TAB>cik, got %q", line, text)
		}
		mapping.add(ticker, strings.TrimSpace(cik))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ticker.txt: %w", err)
	}
	return mapping, nil
}

// Build downloads both SEC sources and merges them. company_tickers.json wins on ordering.
func Build(ctx context.Context, fetcher Fetcher) (Mapping, error) {
	var fromJSON, fromTXT Mapping

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := fetcher.FileContents(ctx, CompanyTickersURL)
		if err != nil {
			return fmt.Errorf("fetching company tickers: %w", err)
		}
		fromJSON, err = ProcessJSON(raw)
		return err
	})
	g.Go(func() error {
		raw, err := fetcher.FileContents(ctx, TickerTextURL)
		if err != nil {
			return fmt.Errorf("fetching ticker.txt: %w", err)
		}
		fromTXT, err = ProcessTXT(raw)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fromJSON.Merge(fromTXT)
	return fromJSON, nil
}

func (m Mapping) add(ticker, cik string) {
	ticker = strings.ToLower(strings.TrimSpace(ticker))
	if !slices.Contains(m[ticker], cik) {
		m[ticker] = append(m[ticker], cik)
	}
}

// Merge adds every ticker and CIK of other that m does not already have
func (m Mapping) Merge(other Mapping) {
	for ticker, ciks := range other {
		for _, cik := range ciks {
			m.add(ticker, cik)
		}
	}
}

// ByCIK returns the inverse index: raw CIK to lowercase tickers, sorted
func (m Mapping) ByCIK() map[string][]string {
	index := make(map[string][]string)
	for ticker, ciks := range m {
		for _, cik := range ciks {
			if !slices.Contains(index[cik], ticker) {
				index[cik] = append(index[cik], ticker)
			}
		}
	}
	for cik := range index {
		sort.Strings(index[cik])
	}
	return index
}

// Save writes the mapping as JSON, creating parent directories as needed
func (m Mapping) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating mapping directory: %w", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding mapping: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing mapping: %w", err)
	}
	return nil
}

// Load reads a mapping saved by Save. A .txt file is read in ticker.txt format.
func Load(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return ProcessTXT(data)
	}

	var mapping Mapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("decoding mapping %s: %w", path, err)
	}
	return mapping, nil
}

// Resolver turns tickers into normalized CIKs
type Resolver struct {
	mapping Mapping
}

// NewResolver creates a resolver over mapping
func NewResolver(mapping Mapping) *Resolver {
	return &Resolver{mapping: mapping}
}

// Resolve returns the ten digit CIK for a ticker. Numeric input is taken as a CIK.
func (r *Resolver) Resolve(ticker string) (string, error) {
	ticker = strings.TrimSpace(ticker)
	if isNumeric(ticker) {
		return edgar.NormalizeCIK(ticker)
	}

	ciks := r.mapping[strings.ToLower(ticker)]
	if len(ciks) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	return edgar.NormalizeCIK(ciks[0])
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
