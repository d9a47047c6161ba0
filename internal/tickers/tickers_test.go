package tickers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ryan-d-young/edgar"
)

const companyTickersJSON = `{
  "0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
  "1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"},
  "2": {"cik_str": 1652044, "ticker": "GOOGL", "title": "Alphabet Inc."},
  "10": {"cik_str": 1652044, "ticker": "GOOG", "title": "Alphabet Inc."}
}`

const tickerTXT = "aapl\t320193\nmsft\t789019\nbrk-b\t1067983\n\nbrk-a\t1067983\n"

func TestProcessJSON(t *testing.T) {
	mapping, err := ProcessJSON([]byte(companyTickersJSON))
	if err != nil {
		t.Fatal(err)
	}
	if len(mapping) != 4 {
		t.Fatalf("expected 4 tickers, got %d", len(mapping))
	}
	if got := mapping["aapl"]; !reflect.DeepEqual(got, []string{"320193"}) {
		t.Errorf("expected aapl -> 320193, got %v", got)
	}
	if got := mapping["goog"]; !reflect.DeepEqual(got, []string{"1652044"}) {
		t.Errorf("expected goog -> 1652044, got %v", got)
	}
}

func TestProcessJSONInvalid(t *testing.T) {
	if _, err := ProcessJSON([]byte(`[1,2]`)); err == nil {
		t.Error("expected error for non-object document")
	}
}

func TestProcessTXT(t *testing.T) {
	mapping, err := ProcessTXT([]byte(tickerTXT))
	if err != nil {
		t.Fatal(err)
	}
	if len(mapping) != 4 {
		t.Fatalf("expected 4 tickers, got %d", len(mapping))
	}
	if got := mapping["brk-b"]; !reflect.DeepEqual(got, []string{"1067983"}) {
		t.Errorf("unexpected brk-b %v", got)
	}

	byCIK := mapping.ByCIK()
	if got := byCIK["1067983"]; !reflect.DeepEqual(got, []string{"brk-a", "brk-b"}) {
		t.Errorf("expected both berkshire classes, got %v", got)
	}
}

func TestProcessTXTMalformed(t *testing.T) {
	if _, err := ProcessTXT([]byte("aapl 320193\n")); err == nil {
		t.Error("expected error for line without tab")
	}
}

func TestMerge(t *testing.T) {
	a := Mapping{"aapl": {"320193"}}
	a.Merge(Mapping{"aapl": {"320193"}, "msft": {"789019"}, "dup": {"1", "2"}})

	want := Mapping{"aapl": {"320193"}, "msft": {"789019"}, "dup": {"1", "2"}}
	if !reflect.DeepEqual(a, want) {
		t.Errorf("expected %v, got %v", want, a)
	}
}

type fakeFetcher struct {
	files map[string][]byte
}

func (f *fakeFetcher) FileContents(ctx context.Context, url string) ([]byte, error) {
	data, ok := f.files[url]
	if !ok {
		return nil, &edgar.StatusError{URL: url, StatusCode: 404}
	}
	return data, nil
}

func TestBuild(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string][]byte{
		CompanyTickersURL: []byte(companyTickersJSON),
		TickerTextURL:     []byte(tickerTXT),
	}}

	mapping, err := Build(context.Background(), fetcher)
	if err != nil {
		t.Fatal(err)
	}
	for _, ticker := range []string{"aapl", "msft", "googl", "goog", "brk-a", "brk-b"} {
		if len(mapping[ticker]) != 1 {
			t.Errorf("expected one CIK for %s, got %v", ticker, mapping[ticker])
		}
	}
}

func TestBuildFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string][]byte{CompanyTickersURL: []byte(companyTickersJSON)}}

	_, err := Build(context.Background(), fetcher)
	var statusErr *edgar.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings", "ticker_to_cik.json")
	mapping := Mapping{"aapl": {"320193"}, "msft": {"789019"}}

	if err := mapping.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, mapping) {
		t.Errorf("expected %v, got %v", mapping, loaded)
	}
}

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticker.txt")
	if err := os.WriteFile(path, []byte(tickerTXT), 0o644); err != nil {
		t.Fatal(err)
	}
	mapping, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := mapping["msft"]; !reflect.DeepEqual(got, []string{"789019"}) {
		t.Errorf("unexpected msft %v", got)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist error, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	resolver := NewResolver(Mapping{"aapl": {"320193"}, "brk-b": {"1067983"}})

	tests := []struct {
		in   string
		want string
	}{
		{"AAPL", "0000320193"},
		{"aapl", "0000320193"},
		{"BRK-B", "0001067983"},
		{"789019", "0000789019"},
		{"0000320193", "0000320193"},
	}
	for _, tt := range tests {
		got, err := resolver.Resolve(tt.in)
		if err != nil {
			t.Errorf("Resolve(%s): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := resolver.Resolve("ZZZZ"); !errors.Is(err, ErrUnknownTicker) {
		t.Errorf("expected ErrUnknownTicker, got %v", err)
	}
}
