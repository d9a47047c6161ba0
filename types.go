package edgar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the layout of every date field in the XBRL and submissions APIs
const DateLayout = "2006-01-02"

// Date is a calendar date encoded as YYYY-MM-DD
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return errors.New("date is null")
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

// entry is one key of a JSON object, kept in document order
type entry[T any] struct {
	Key   string
	Value T
}

// object decodes a JSON object into a slice so iteration follows the document.
// A nil object means the key was absent or null.
type object[T any] []entry[T]

func (o *object[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	entries := object[T]{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var value T
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		entries = append(entries, entry[T]{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = entries
	return nil
}

type submissionsResponse struct {
	Filings struct {
		Recent *filingsData `json:"recent"`
	} `json:"filings"`
}

type filingsData struct {
	AccessionNumbers []string `json:"accessionNumber"`
	Forms            []string `json:"form"`
	FilingDates      []string `json:"filingDate"`
	ReportDates      []string `json:"reportDate"`
	FileNumbers      []string `json:"fileNumber"`
	FilmNumbers      []string `json:"filmNumber"`
	PrimaryDoc       []string `json:"primaryDocument"`
	IsXBRL           []int    `json:"isXBRL"`
}

type conceptResponse struct {
	Units object[[]conceptValue] `json:"units"`
}

type conceptValue struct {
	FiscalYear      int             `json:"fy"`
	FiscalPeriod    string          `json:"fp"`
	Form            string          `json:"form"`
	Value           decimal.Decimal `json:"val"`
	AccessionNumber string          `json:"accn"`
}

type factsResponse struct {
	Facts object[object[lineItem]] `json:"facts"`
}

type lineItem struct {
	Label       string              `json:"label"`
	Description string              `json:"description"`
	Units       object[[]factValue] `json:"units"`
}

type factValue struct {
	End             Date   `json:"end"`
	AccessionNumber string `json:"accn"`
	FiscalYear      int    `json:"fy"`
	FiscalPeriod    string `json:"fp"`
	Form            string `json:"form"`
	Filed           string `json:"filed"`
}

type frameResponse struct {
	Taxonomy    string       `json:"taxonomy"`
	Tag         string       `json:"tag"`
	CCP         string       `json:"ccp"`
	UOM         string       `json:"uom"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Data        []frameValue `json:"data"`
}

type frameValue struct {
	AccessionNumber string          `json:"accn"`
	CIK             int64           `json:"cik"`
	EntityName      string          `json:"entityName"`
	Location        string          `json:"loc"`
	End             Date            `json:"end"`
	Value           decimal.Decimal `json:"val"`
}
