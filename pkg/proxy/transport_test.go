package proxy

import (
	"net/http"
	"testing"

	"mercator-hq/iptvrelay/pkg/config"
)

func TestNewTransports(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	trs := NewTransports(cfg)
	video, ok := trs.For(true).(*http.Transport)
	if !ok {
		t.Fatalf("video transport is %T", trs.For(true))
	}
	api, ok := trs.For(false).(*http.Transport)
	if !ok {
		t.Fatalf("api transport is %T", trs.For(false))
	}

	if !video.DisableKeepAlives {
		t.Error("video transport must not reuse connections")
	}
	if api.DisableKeepAlives {
		t.Error("api transport should pool connections")
	}
	for name, tr := range map[string]*http.Transport{"video": video, "api": api} {
		if tr.ForceAttemptHTTP2 {
			t.Errorf("%s transport negotiates HTTP/2; upstreams are spoken to over HTTP/1.1", name)
		}
		if !tr.DisableCompression {
			t.Errorf("%s transport asks for compressed bodies", name)
		}
	}
}
