package edgar

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultCIK is Apple Inc.
	DefaultCIK      = "0000320193"
	DefaultTag      = "Assets"
	DefaultTaxonomy = "us-gaap"
	DefaultUnit     = "USD"
)

// Kind identifies which endpoint produced a response
type Kind int

const (
	KindUnknown Kind = iota
	KindSubmissions
	KindConcept
	KindFacts
	KindFrame
)

var kindNames = map[Kind]string{
	KindUnknown:     "unknown",
	KindSubmissions: "submissions",
	KindConcept:     "concept",
	KindFacts:       "facts",
	KindFrame:       "frame",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps an endpoint name such as "facts" to its Kind
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if k != KindUnknown && n == strings.ToLower(name) {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown endpoint %q", name)
}

// pathMarkers are checked in order; the first path segment match wins
var pathMarkers = []struct {
	segment string
	kind    Kind
}{
	{"submissions", KindSubmissions},
	{"companyconcept", KindConcept},
	{"companyfacts", KindFacts},
	{"frames", KindFrame},
}

// KindFromURL infers the endpoint from the path segments of a response URL
func KindFromURL(rawURL string) Kind {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	segments := strings.Split(path, "/")
	for _, marker := range pathMarkers {
		for _, segment := range segments {
			if segment == marker.segment {
				return marker.kind
			}
		}
	}
	return KindUnknown
}

// Request is one of the four data.sec.gov endpoint requests
type Request interface {
	Kind() Kind
	Path() (string, error)
}

// SubmissionsRequest fetches a filer's submission history
type SubmissionsRequest struct {
	CIK string
}

func (r SubmissionsRequest) Kind() Kind { return KindSubmissions }

func (r SubmissionsRequest) Path() (string, error) {
	cik, err := NormalizeCIK(orDefault(r.CIK, DefaultCIK))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/submissions/CIK%s.json", cik), nil
}

// ConceptRequest fetches every disclosure of one XBRL concept for one company
type ConceptRequest struct {
	CIK      string
	Tag      string
	Taxonomy string
}

func (r ConceptRequest) Kind() Kind { return KindConcept }

func (r ConceptRequest) Path() (string, error) {
	cik, err := NormalizeCIK(orDefault(r.CIK, DefaultCIK))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/api/xbrl/companyconcept/CIK%s/%s/%s.json",
		cik,
		url.PathEscape(orDefault(r.Taxonomy, DefaultTaxonomy)),
		url.PathEscape(orDefault(r.Tag, DefaultTag)),
	), nil
}

// FactsRequest fetches all XBRL facts for one company
type FactsRequest struct {
	CIK string
}

func (r FactsRequest) Kind() Kind { return KindFacts }

func (r FactsRequest) Path() (string, error) {
	cik, err := NormalizeCIK(orDefault(r.CIK, DefaultCIK))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/api/xbrl/companyfacts/CIK%s.json", cik), nil
}

// FrameRequest fetches one concept for every reporting entity in one period.
// An empty Period means the last completed calendar quarter at call time.
type FrameRequest struct {
	Tag      string
	Period   string
	Taxonomy string
	Unit     string
}

func (r FrameRequest) Kind() Kind { return KindFrame }

func (r FrameRequest) Path() (string, error) {
	period := r.Period
	if period == "" {
		period = LastPeriod(time.Now())
	}
	return fmt.Sprintf("/api/xbrl/frames/%s/%s/%s/%s.json",
		url.PathEscape(orDefault(r.Taxonomy, DefaultTaxonomy)),
		url.PathEscape(orDefault(r.Tag, DefaultTag)),
		url.PathEscape(orDefault(r.Unit, DefaultUnit)),
		url.PathEscape(period),
	), nil
}

// LastPeriod returns the instantaneous frame period of the most recently completed quarter
func LastPeriod(today time.Time) string {
	month := int(today.Month())
	if month < 3 {
		return fmt.Sprintf("CY%dQ4I", today.Year()-1)
	}
	quarter := (month + 2) / 3
	return fmt.Sprintf("CY%dQ%dI", today.Year(), quarter)
}

// NormalizeCIK left pads a numeric CIK with zeros to ten digits
func NormalizeCIK(cik string) (string, error) {
	cik = strings.TrimSpace(cik)
	if cik == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCIK)
	}
	for _, r := range cik {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q is not numeric", ErrInvalidCIK, cik)
		}
	}

	digits := strings.TrimLeft(cik, "0")
	if len(digits) > 10 {
		return "", fmt.Errorf("%w: %q has more than ten digits", ErrInvalidCIK, cik)
	}
	return strings.Repeat("0", 10-len(digits)) + digits, nil
}

// FormatCIK pads an integer CIK to ten digits
func FormatCIK(cik int64) (string, error) {
	if cik < 0 {
		return "", fmt.Errorf("%w: %d is negative", ErrInvalidCIK, cik)
	}
	return NormalizeCIK(strconv.FormatInt(cik, 10))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
