package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const (
	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"

	// AccelBufferingHeader disables response buffering in nginx-style intermediaries.
	AccelBufferingHeader = "X-Accel-Buffering"
)

// hopHeaders are connection-scoped and never forwarded in either direction.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// clientAddressHeaders reveal the client's address to the origin.
var clientAddressHeaders = []string{
	"Forwarded",
	"X-Real-Ip",
	"X-Client-Ip",
	"True-Client-Ip",
	"Cf-Connecting-Ip",
}

// credentialHeaders are dropped when a redirect leaves the original host.
var credentialHeaders = []string{
	"Authorization",
	"Cookie",
}

// videoPath matches HLS playlists and MPEG-TS segments.
var videoPath = regexp.MustCompile(`(?i)\.(m3u8|ts)$`)

// IsVideoPath reports whether path names a playlist or a transport-stream
// segment. The query string must already be removed.
func IsVideoPath(path string) bool {
	return videoPath.MatchString(path)
}

// ExtractRequestID extracts the request ID from the X-Request-ID header.
// Returns an empty string if no request ID is provided.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

// TargetURL maps an inbound request onto the origin: the origin's scheme and
// host, the origin's base path joined with the inbound path, and the inbound
// query.
func TargetURL(base *url.URL, in *url.URL) *url.URL {
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + in.Path
	if in.RawPath != "" {
		u.RawPath = strings.TrimSuffix(base.EscapedPath(), "/") + in.RawPath
	} else {
		u.RawPath = ""
	}
	u.RawQuery = in.RawQuery
	u.Fragment = ""
	u.User = nil
	return &u
}

// BuildUpstreamRequest builds the request sent to target using the inbound
// request as a template.
//
// The outbound headers are the inbound headers minus hop-by-hop headers,
// X-Forwarded-*, X-Real-IP and similar client-address headers. Host is the
// target's host, Accept-Encoding is forced to identity so the body can be
// relayed verbatim, and Range is carried through unchanged. Video requests
// are sent with Connection: close.
//
// When withBody is false the request carries no body; redirect hops and
// reconnects use that form.
func BuildUpstreamRequest(ctx context.Context, in *http.Request, target *url.URL, video, withBody bool) (*http.Request, error) {
	method := in.Method
	if !withBody && method != http.MethodHead {
		method = http.MethodGet
	}

	out, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}

	if withBody && in.Body != nil && in.Body != http.NoBody && in.ContentLength != 0 {
		out.Body = in.Body
		out.ContentLength = in.ContentLength
	}

	out.Header = upstreamHeaders(in.Header)
	if !withBody {
		out.Header.Del("Content-Length")
		out.Header.Del("Content-Type")
	}
	out.Host = target.Host
	out.Close = video

	return out, nil
}

// StripCrossOriginCredentials removes credential headers when next is on a
// different host than prev.
func StripCrossOriginCredentials(h http.Header, prev, next *url.URL) {
	if strings.EqualFold(prev.Host, next.Host) {
		return
	}
	for _, name := range credentialHeaders {
		h.Del(name)
	}
}

// upstreamHeaders returns a sanitized copy of the inbound headers.
func upstreamHeaders(in http.Header) http.Header {
	h := in.Clone()
	if h == nil {
		h = make(http.Header)
	}

	removeHopHeaders(h)
	for name := range h {
		if strings.HasPrefix(http.CanonicalHeaderKey(name), "X-Forwarded-") {
			delete(h, name)
		}
	}
	for _, name := range clientAddressHeaders {
		h.Del(name)
	}
	h.Del("Host")

	h.Set("Accept-Encoding", "identity")
	h.Set(AccelBufferingHeader, "no")

	// Leave User-Agent empty rather than let net/http insert its own.
	if _, ok := h["User-Agent"]; !ok {
		h.Set("User-Agent", "")
	}
	return h
}

// removeHopHeaders deletes hop-by-hop headers, including any named by the
// Connection header.
func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
