package xauth

import (
	"errors"
	"fmt"
	"strings"
)

// The bookmark access layer maps every upstream outcome into this
// taxonomy. Layers above treat it as exhaustive and never add their own
// retries on top of the built-in refresh-retry.
var (
	// ErrUnauthenticated means no usable credential exists and none can
	// be obtained (absent or exhausted refresh token). The user must
	// reconnect.
	ErrUnauthenticated = errors.New("not connected to X")

	// ErrUnauthorized means the credential was refreshed but the
	// provider still rejects it. Reconnecting is the only way out;
	// refreshing again must not be attempted.
	ErrUnauthorized = errors.New("X connection revoked")

	// errRefreshDenied is the token endpoint's non-success answer to a
	// refresh. Expected and recoverable; callers surface it as
	// ErrUnauthenticated.
	errRefreshDenied = errors.New("refresh token rejected")
)

// ConfigError reports missing application identifiers. Fatal, never
// retried.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing X OAuth configuration: " + strings.Join(e.Missing, ", ")
}

// UpstreamError is any other non-success provider outcome, carrying
// the response body for diagnostics. StatusCode is zero when no
// response arrived at all (transport failure).
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return "X API unreachable: " + e.Body
	}
	return fmt.Sprintf("X API returned status %d", e.StatusCode)
}
