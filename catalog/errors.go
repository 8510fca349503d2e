package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError wraps any adapter call failure: network, auth, rate
// limit, malformed response. It is always recoverable at the transition
// boundary; session state is left unchanged and the caller decides
// whether to retry.
type ProviderError struct {
	Provider   string // "spotify", "youtube", "ticketing"
	Op         string // operation that failed, e.g. "top-tracks"
	StatusCode int    // HTTP status, 0 for transport errors
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the request is worth retrying. Rate limits
// and server-side failures are temporary; auth and client errors are not.
func (e *ProviderError) Temporary() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500
}

// ErrUnsupported marks a capability the provider does not offer, e.g.
// playlist creation on the video-search provider.
var ErrUnsupported = errors.New("operation not supported by provider")

// Unsupported builds the ProviderError for a missing capability.
func Unsupported(provider, op string) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: ErrUnsupported}
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
