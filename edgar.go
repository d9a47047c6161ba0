package edgar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the host of the structured data API
	DefaultBaseURL = "https://data.sec.gov"
	// DefaultTimeout bounds every request including reading the body
	DefaultTimeout = 5 * time.Second
)

// ErrMissingUserAgent is returned when a request is attempted without an identifying user agent
var ErrMissingUserAgent = errors.New("user agent is required by SEC fair access policy")

// Client is a http client for interacting with EDGAR
type Client struct {
	userAgent   string
	baseURL     string
	timeout     time.Duration
	httpClient  *http.Client
	rateLimiter Limiter
	logger      zerolog.Logger
	waitLog     rate.Sometimes
}

// ClientOption allows for customization of the client
type ClientOption func(*Client)

// NewClient creates a new EDGAR client
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		baseURL:     DefaultBaseURL,
		timeout:     DefaultTimeout,
		httpClient:  &http.Client{},
		rateLimiter: NewSlidingWindow(DefaultRequestsPerSecond),
		logger:      zerolog.Nop(),
		waitLog:     rate.Sometimes{Interval: time.Second},
	}

	for _, option := range options {
		option(client)
	}
	return client
}

// WithHTTPClient allows custom HTTP client configuration
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets a custom user agent string
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRateLimiter replaces the default sliding window limiter
func WithRateLimiter(limiter Limiter) ClientOption {
	return func(c *Client) {
		c.rateLimiter = limiter
	}
}

// WithBaseURL points the endpoint requests at another host
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the per request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Response is a completed response. Non-200 status codes are not errors at this level.
type Response struct {
	Kind       Kind
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// CheckStatus returns a StatusError unless the response status is 200
func (r *Response) CheckStatus() error {
	if r.StatusCode != http.StatusOK {
		return &StatusError{URL: r.URL, StatusCode: r.StatusCode, Body: r.Body}
	}
	return nil
}

// Do sends an endpoint request and returns the raw response
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	path, err := req.Path()
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", req.Kind(), err)
	}

	resp, err := c.get(ctx, c.baseURL+path)
	if err != nil {
		return nil, err
	}
	resp.Kind = req.Kind()
	return resp, nil
}

// Submissions retrieves the submission history of a filer
func (c *Client) Submissions(ctx context.Context, cik string) (*Response, error) {
	return c.Do(ctx, SubmissionsRequest{CIK: cik})
}

// Concept retrieves all disclosures of one concept for a company
func (c *Client) Concept(ctx context.Context, cik, tag, taxonomy string) (*Response, error) {
	return c.Do(ctx, ConceptRequest{CIK: cik, Tag: tag, Taxonomy: taxonomy})
}

// Facts retrieves all XBRL facts for a company
func (c *Client) Facts(ctx context.Context, cik string) (*Response, error) {
	return c.Do(ctx, FactsRequest{CIK: cik})
}

// Frame retrieves one concept across all entities for a period
func (c *Client) Frame(ctx context.Context, tag, period, taxonomy, unit string) (*Response, error) {
	return c.Do(ctx, FrameRequest{Tag: tag, Period: period, Taxonomy: taxonomy, Unit: unit})
}

// FileContents retrieves the contents of a file at the specified URL
func (c *Client) FileContents(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := resp.CheckStatus(); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) get(ctx context.Context, url string) (*Response, error) {
	if c.userAgent == "" {
		return nil, ErrMissingUserAgent
	}

	started := time.Now()
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	if waited := time.Since(started); waited > time.Millisecond {
		c.waitLog.Do(func() {
			c.logger.Debug().Dur("waited", waited).Str("url", url).Msg("rate limited")
		})
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	sent := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	c.logger.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("took", time.Since(sent)).
		Msg("request complete")

	return &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// readBody reads the full body, undoing the content encodings we asked for
func readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("opening gzip body: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "deflate":
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			// some servers send raw deflate without the zlib wrapper
			fr := flate.NewReader(bytes.NewReader(raw))
			defer fr.Close()
			return io.ReadAll(fr)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return raw, nil
	}
}
