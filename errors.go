package edgar

import (
	"errors"
	"fmt"
)

// ErrInvalidCIK is returned when a CIK is not numeric or longer than ten digits
var ErrInvalidCIK = errors.New("invalid CIK")

// TransportError wraps a network failure (timeout, DNS, connection reset) for a request
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("requesting %s: %T: %v", e.URL, rootCause(e.Err), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is returned for a response whose status code is not 200
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, url: %s, body: %s", e.StatusCode, e.URL, string(e.Body))
}

// UnrecognizedFormatError is returned when a response cannot be matched to an endpoint
type UnrecognizedFormatError struct {
	URL string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("unrecognized response format, url: %s", e.URL)
}

// ParseError wraps any failure while flattening a response into records
type ParseError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s response from %s: %T: %v", e.Kind, e.URL, rootCause(e.Err), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// rootCause returns the innermost error so messages name the original failure type
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
