package domain

import (
	"errors"
	"fmt"
)

// ErrParse marks malformed numeric text. *ParseError matches it with errors.Is.
var ErrParse = errors.New("malformed number")

// ParseError reports text that could not be converted to a decimal
type ParseError struct {
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as a number", e.Text)
}

// Is lets errors.Is(err, ErrParse) match any *ParseError
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ExtractionError reports that no extraction strategy found a distribution
type ExtractionError struct {
	Ticker string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("latest distribution not found for %s", e.Ticker)
}

// FetchError reports a timeout, transport failure or non-success status
type FetchError struct {
	Ticker     string
	URL        string
	StatusCode int // Zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (%s): unexpected status %d", e.Ticker, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Ticker, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StorageError reports an unexpected persistence failure for one record
type StorageError struct {
	Op     string
	Ticker string
	Err    error
}

func (e *StorageError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("storage %s for %s: %v", e.Op, e.Ticker, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
