package edgar

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Record is one flattened row. Values are string, int, int64, bool, Date or decimal.Decimal.
type Record map[string]any

// Result holds the records of one response; every record carries exactly Fields
type Result struct {
	Kind    Kind
	Fields  []string
	Records []Record
}

var (
	submissionsFields = []string{"form", "accession_number", "filing_date", "report_date", "file_number", "film_number", "primary_document", "is_xbrl"}
	conceptFields     = []string{"unit", "fiscal_year", "fiscal_quarter", "form", "value", "accession_number"}
	factsFields       = []string{"taxonomy", "line_item", "unit", "label", "description", "end", "accession_number", "fiscal_year", "fiscal_period", "form", "filed"}
	frameFields       = []string{"taxonomy", "line_item", "frame", "unit", "label", "description", "accession_number", "cik", "entity_name", "location", "end", "value"}
)

// Fields returns the column order of the records produced for kind
func Fields(kind Kind) []string {
	switch kind {
	case KindSubmissions:
		return submissionsFields
	case KindConcept:
		return conceptFields
	case KindFacts:
		return factsFields
	case KindFrame:
		return frameFields
	}
	return nil
}

// reportForms are the only submissions kept
var reportForms = map[string]bool{"10-K": true, "10-Q": true}

// Parse flattens a response into records. Any malformed field aborts the whole parse.
func Parse(resp *Response) (*Result, error) {
	kind := resp.Kind
	if kind == KindUnknown {
		kind = KindFromURL(resp.URL)
	}

	var (
		records []Record
		err     error
	)
	switch kind {
	case KindSubmissions:
		records, err = parseSubmissions(resp.Body)
	case KindConcept:
		records, err = parseConcept(resp.Body)
	case KindFacts:
		records, err = parseFacts(resp.Body)
	case KindFrame:
		records, err = parseFrame(resp.Body)
	default:
		return nil, &UnrecognizedFormatError{URL: resp.URL}
	}
	if err != nil {
		return nil, &ParseError{Kind: kind, URL: resp.URL, Err: err}
	}

	return &Result{Kind: kind, Fields: Fields(kind), Records: records}, nil
}

func parseSubmissions(body []byte) ([]Record, error) {
	var submissions submissionsResponse
	if err := json.Unmarshal(body, &submissions); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	recent := submissions.Filings.Recent
	if recent == nil {
		return nil, errors.New("missing filings.recent")
	}

	filingCount := len(recent.Forms)
	columns := []struct {
		name string
		n    int
	}{
		{"accessionNumber", len(recent.AccessionNumbers)},
		{"filingDate", len(recent.FilingDates)},
		{"reportDate", len(recent.ReportDates)},
		{"fileNumber", len(recent.FileNumbers)},
		{"filmNumber", len(recent.FilmNumbers)},
		{"primaryDocument", len(recent.PrimaryDoc)},
		{"isXBRL", len(recent.IsXBRL)},
	}
	for _, column := range columns {
		if column.n < filingCount {
			return nil, fmt.Errorf("filings.recent.%s has %d entries, want %d", column.name, column.n, filingCount)
		}
	}

	records := make([]Record, 0)
	for i := 0; i < filingCount; i++ {
		if !reportForms[recent.Forms[i]] {
			continue
		}

		filingDate, err := ParseDate(recent.FilingDates[i])
		if err != nil {
			return nil, fmt.Errorf("parsing filing date: %w", err)
		}
		reportDate, err := ParseDate(recent.ReportDates[i])
		if err != nil {
			return nil, fmt.Errorf("parsing report date: %w", err)
		}

		records = append(records, Record{
			"form":             recent.Forms[i],
			"accession_number": recent.AccessionNumbers[i],
			"filing_date":      filingDate,
			"report_date":      reportDate,
			"file_number":      recent.FileNumbers[i],
			"film_number":      recent.FilmNumbers[i],
			"primary_document": recent.PrimaryDoc[i],
			"is_xbrl":          recent.IsXBRL[i] != 0,
		})
	}
	return records, nil
}

func parseConcept(body []byte) ([]Record, error) {
	var concept conceptResponse
	if err := json.Unmarshal(body, &concept); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if concept.Units == nil {
		return nil, errors.New("missing units")
	}

	records := make([]Record, 0)
	for _, unit := range concept.Units {
		for _, value := range unit.Value {
			records = append(records, Record{
				"unit":             unit.Key,
				"fiscal_year":      value.FiscalYear,
				"fiscal_quarter":   value.FiscalPeriod,
				"form":             value.Form,
				"value":            value.Value,
				"accession_number": value.AccessionNumber,
			})
		}
	}
	return records, nil
}

func parseFacts(body []byte) ([]Record, error) {
	var facts factsResponse
	if err := json.Unmarshal(body, &facts); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if facts.Facts == nil {
		return nil, errors.New("missing facts")
	}

	records := make([]Record, 0)
	for _, taxonomy := range facts.Facts {
		for _, item := range taxonomy.Value {
			if item.Value.Units == nil {
				return nil, fmt.Errorf("facts.%s.%s: missing units", taxonomy.Key, item.Key)
			}
			for _, unit := range item.Value.Units {
				for _, fact := range unit.Value {
					records = append(records, Record{
						"taxonomy":         taxonomy.Key,
						"line_item":        item.Key,
						"unit":             unit.Key,
						"label":            item.Value.Label,
						"description":      item.Value.Description,
						"end":              fact.End,
						"accession_number": fact.AccessionNumber,
						"fiscal_year":      fact.FiscalYear,
						"fiscal_period":    fact.FiscalPeriod,
						"form":             fact.Form,
						"filed":            fact.Filed,
					})
				}
			}
		}
	}
	return records, nil
}

func parseFrame(body []byte) ([]Record, error) {
	var frame frameResponse
	if err := json.Unmarshal(body, &frame); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if frame.Data == nil {
		return nil, errors.New("missing data")
	}

	records := make([]Record, 0, len(frame.Data))
	for _, value := range frame.Data {
		records = append(records, Record{
			"taxonomy":         frame.Taxonomy,
			"line_item":        frame.Tag,
			"frame":            frame.CCP,
			"unit":             frame.UOM,
			"label":            frame.Label,
			"description":      frame.Description,
			"accession_number": value.AccessionNumber,
			"cik":              value.CIK,
			"entity_name":      value.EntityName,
			"location":         value.Location,
			"end":              value.End,
			"value":            value.Value,
		})
	}
	return records, nil
}
