package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork matches any *NetworkError via errors.Is.
	ErrNetwork = errors.New("catalog: network error")
	// ErrPageOutOfRange is returned for pages outside 1..MaxPage; no request is made.
	ErrPageOutOfRange = errors.New("catalog: page out of range")
	ErrNotConfigured  = errors.New("catalog: api key not configured")
)

// NetworkError is a transient failure talking to the catalog API. Callers may
// retry by issuing the same request again.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// retryable reports whether a failed attempt is worth repeating.
func (e *NetworkError) retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}
