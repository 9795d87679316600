package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"mercator-hq/iptvrelay/pkg/proxy/types"
)

const (
	// DefaultContentType is used for relayed bodies without a Content-Type.
	DefaultContentType = "video/mp2t"

	// PlaylistContentType is used for .m3u8 bodies without a Content-Type.
	PlaylistContentType = "application/vnd.apple.mpegurl"

	// CacheControlNoStore is the Cache-Control default for relayed bodies.
	CacheControlNoStore = "no-store, no-transform"

	// ProxyErrorBody is the body of a relay failure sent before streaming.
	ProxyErrorBody = "Proxy error"
)

// CopyResponseHeaders copies upstream response headers to dst without
// hop-by-hop headers. Location is dropped unless keepLocation is set.
func CopyResponseHeaders(dst, src http.Header, keepLocation bool) {
	h := src.Clone()
	removeHopHeaders(h)
	if !keepLocation {
		h.Del("Location")
		h.Del("Content-Location")
	}
	for name, values := range h {
		dst[name] = values
	}
}

// ApplyStreamDefaults fills the headers every relayed stream carries:
// a Content-Type, Accept-Ranges, Cache-Control and X-Accel-Buffering.
// Values already set by the origin win, except X-Accel-Buffering and the
// Connection header for video paths.
func ApplyStreamDefaults(h http.Header, path string, video bool) {
	if h.Get("Content-Type") == "" {
		if strings.HasSuffix(strings.ToLower(path), ".m3u8") {
			h.Set("Content-Type", PlaylistContentType)
		} else {
			h.Set("Content-Type", DefaultContentType)
		}
	}
	if h.Get("Accept-Ranges") == "" {
		h.Set("Accept-Ranges", "bytes")
	}
	if h.Get("Cache-Control") == "" {
		h.Set("Cache-Control", CacheControlNoStore)
	}
	h.Set(AccelBufferingHeader, "no")
	if video {
		h.Set("Connection", "close")
	}
}

// WriteProxyError writes the plain-text relay failure body. Headers copied
// from the origin are discarded; the request ID is kept.
func WriteProxyError(w http.ResponseWriter, status int) {
	h := w.Header()
	for name := range h {
		if name != RequestIDHeader {
			delete(h, name)
		}
	}
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", CacheControlNoStore)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(ProxyErrorBody))
}

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the appropriate content-type header and handles marshaling errors.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes a JSON error response.
// It extracts the appropriate HTTP status code from the error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	statusCode := errResp.Error.HTTPStatusCode()
	return WriteJSONResponse(w, statusCode, errResp)
}
