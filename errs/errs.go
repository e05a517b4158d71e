// Package errs defines the error kinds surfaced by the public API.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates malformed input (not a video ID/url).
	ErrInvalidInput = errors.New("invalid input")
	// ErrVideoUnavailable indicates that the video is unavailable (deleted, private, etc.).
	ErrVideoUnavailable = errors.New("video unavailable")
	// ErrNoClientsAvailable indicates that no clients were configured for the request.
	ErrNoClientsAvailable = errors.New("no clients available")
)

// UnrecoverableError is a terminal provider-classified condition. Retrying
// the same request cannot succeed.
type UnrecoverableError struct {
	Reason string
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("unrecoverable: %s", e.Reason)
}

// RequestError carries the HTTP status code of a failed request.
type RequestError struct {
	URL        string
	StatusCode int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed: status=%d url=%s", e.StatusCode, e.URL)
}

// Transient reports whether the status code is a candidate for caller-level retry.
func (e *RequestError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ExtractionError indicates the player script or a transform function inside
// it could not be located.
type ExtractionError struct {
	What string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.What)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NoMatchingFormatError indicates format selection found nothing matching the
// filter or quality hint.
type NoMatchingFormatError struct {
	Quality string
	Filter  string
}

func (e *NoMatchingFormatError) Error() string {
	return fmt.Sprintf("no matching format: quality=%q filter=%q", e.Quality, e.Filter)
}
