package proxy

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"mercator-hq/iptvrelay/pkg/config"
)

// apiIdleConnTimeout bounds how long an idle pooled API connection is kept.
const apiIdleConnTimeout = 15 * time.Second

// Transports holds one round tripper per traffic class. Video traffic never
// reuses connections; API traffic uses a keep-alive pool.
type Transports struct {
	Video http.RoundTripper
	API   http.RoundTripper
}

// For returns the round tripper for the traffic class.
func (t *Transports) For(video bool) http.RoundTripper {
	if video {
		return t.Video
	}
	return t.API
}

// NewTransports builds the upstream transports from configuration.
// Redirects are never followed here; the relay resolves them itself.
func NewTransports(cfg *config.Config) *Transports {
	up := cfg.Upstream
	dialer := &net.Dialer{
		Timeout:   up.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify(), //nolint:gosec // origins commonly serve self-signed certificates
	}

	video := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            dialer.DialContext,
		TLSClientConfig:        tlsConfig,
		TLSHandshakeTimeout:    up.DialTimeout,
		ResponseHeaderTimeout:  up.VideoHeaderTimeout,
		DisableKeepAlives:      true,
		DisableCompression:     true,
		MaxResponseHeaderBytes: 64 << 10,
	}

	api := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            dialer.DialContext,
		TLSClientConfig:        tlsConfig.Clone(),
		TLSHandshakeTimeout:    up.DialTimeout,
		ResponseHeaderTimeout:  up.APIHeaderTimeout,
		DisableCompression:     true,
		MaxIdleConns:           up.MaxIdleConns,
		MaxIdleConnsPerHost:    10,
		IdleConnTimeout:        apiIdleConnTimeout,
		MaxResponseHeaderBytes: 64 << 10,
	}

	return &Transports{Video: video, API: api}
}

// CloseIdleConnections closes idle pooled connections on both transports.
func (t *Transports) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	for _, rt := range []http.RoundTripper{t.Video, t.API} {
		if c, ok := rt.(closeIdler); ok {
			c.CloseIdleConnections()
		}
	}
}
