package domain

import (
	"errors"
	"fmt"
)

// ErrNoResults indicates a provider returned a well-formed but empty result
// set (for example, zero place candidates). Retryable inside a fetcher,
// terminal for the request if it persists.
var ErrNoResults = errors.New("provider returned no results")

// UpstreamError reports a non-2xx response from an upstream provider.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Status, e.Body)
}
