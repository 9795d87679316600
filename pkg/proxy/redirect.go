package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Action is the decision taken for one upstream response while resolving.
type Action int

const (
	// ActionStream means the response is final and its body is relayed.
	ActionStream Action = iota

	// ActionFollow means the response is a redirect to Next.
	ActionFollow

	// ActionFail means resolution stops with an error.
	ActionFail
)

// String returns the lowercase action name.
func (a Action) String() string {
	switch a {
	case ActionStream:
		return "stream"
	case ActionFollow:
		return "follow"
	case ActionFail:
		return "fail"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// HopDecision is the result of NextHop.
type HopDecision struct {
	Action Action
	Next   *url.URL
	Err    error
}

// IsRedirect reports whether status is one of the redirect statuses the
// relay follows.
func IsRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// NextHop decides what to do with an upstream response during resolution.
// current is the URL that produced the response and hopsLeft the number of
// redirects that may still be followed.
//
// Non-redirect statuses are final. A redirect with hops remaining is followed
// to its Location, resolved against current. A redirect with no hops left, or
// without a usable Location, fails.
func NextHop(current *url.URL, status int, location string, hopsLeft int) HopDecision {
	if !IsRedirect(status) {
		return HopDecision{Action: ActionStream}
	}

	location = strings.TrimSpace(location)
	if location == "" {
		return HopDecision{Action: ActionFail, Err: ErrMissingLocation}
	}
	if hopsLeft <= 0 {
		return HopDecision{Action: ActionFail, Err: ErrRedirectLoop}
	}

	ref, err := url.Parse(location)
	if err != nil {
		return HopDecision{Action: ActionFail, Err: fmt.Errorf("%w: %v", ErrMissingLocation, err)}
	}
	next := current.ResolveReference(ref)
	if next.Scheme != "http" && next.Scheme != "https" {
		return HopDecision{Action: ActionFail, Err: fmt.Errorf("%w: unsupported scheme %q", ErrMissingLocation, next.Scheme)}
	}
	if next.Host == "" {
		return HopDecision{Action: ActionFail, Err: fmt.Errorf("%w: no host", ErrMissingLocation)}
	}
	next.Fragment = ""

	return HopDecision{Action: ActionFollow, Next: next}
}
