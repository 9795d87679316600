package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors for relay failures. They are wrapped in *RelayError and
// should be checked with errors.Is.
var (
	// ErrRedirectLoop means the redirect hop budget was exhausted.
	ErrRedirectLoop = errors.New("redirect hop budget exhausted")

	// ErrMissingLocation means a redirect status arrived without a usable Location.
	ErrMissingLocation = errors.New("redirect without location")

	// ErrUpstreamStall means no upstream data arrived within the stall timeout
	// and the reconnect budget is spent.
	ErrUpstreamStall = errors.New("upstream stalled")

	// ErrClientStall means the client did not drain a write within the idle timeout.
	ErrClientStall = errors.New("client stalled")

	// ErrSessionExpired means the maximum session duration was reached.
	ErrSessionExpired = errors.New("session duration exceeded")

	// ErrClientGone means the client disconnected.
	ErrClientGone = errors.New("client disconnected")
)

// ErrorKind classifies relay failures.
type ErrorKind string

const (
	KindRedirect ErrorKind = "redirect"
	KindUpstream ErrorKind = "upstream"
	KindTimeout  ErrorKind = "timeout"
	KindStall    ErrorKind = "stall"
	KindClient   ErrorKind = "client"
	KindExpired  ErrorKind = "expired"
)

// RelayError describes a failed relay attempt.
type RelayError struct {
	Kind ErrorKind
	Hop  int
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *RelayError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error at hop %d (%s): %v", e.Kind, e.Hop, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *RelayError) Unwrap() error {
	return e.Err
}

// StatusFor returns the status a client receives for err when nothing has
// been written yet. Client-side failures return 0: there is nobody to tell.
func StatusFor(err error) int {
	var re *RelayError
	if errors.As(err, &re) {
		switch re.Kind {
		case KindClient:
			return 0
		case KindTimeout, KindExpired:
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	if isTimeout(err) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// classifyTransportError wraps a RoundTrip failure.
func classifyTransportError(err error, hop int, url string) *RelayError {
	kind := KindUpstream
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &RelayError{Kind: kind, Hop: hop, URL: url, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
