package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/iptvrelay/pkg/config"
	"mercator-hq/iptvrelay/pkg/journal/storage"
	"mercator-hq/iptvrelay/pkg/proxy"
	"mercator-hq/iptvrelay/pkg/proxy/handlers"
)

func testConfig(t *testing.T, target string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Upstream.Target = target
	cfg.Limits.MaxStreamsPerIdentity = 1
	config.ApplyDefaults(cfg)
	cfg.Proxy.ListenAddress = "127.0.0.1:0"
	cfg.Proxy.ShutdownTimeout = 2 * time.Second
	return cfg
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/live/"):
			w.Header().Set("Content-Type", "video/mp2t")
			_, _ = w.Write([]byte("segment"))
		case r.URL.Path == "/player_api.php":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"user_info":{}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(origin.Close)

	cfg := testConfig(t, origin.URL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	components, err := NewComponents(cfg, logger)
	if err != nil {
		t.Fatalf("NewComponents: %v", err)
	}
	components.WithJournal(storage.NewMemoryStorage(), nil)
	return NewServer(cfg, components, BuildInfo{Version: "test"}), origin
}

func TestRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	front := httptest.NewServer(srv.Handler())
	defer front.Close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
		wantType   string
	}{
		{"liveness", "/healthz", http.StatusOK, "ok", "text/plain"},
		{"readiness", "/readyz", http.StatusOK, `"status":"ready"`, "application/json"},
		{"version", "/version", http.StatusOK, `"version":"test"`, "application/json"},
		{"stats", "/metrics", http.StatusOK, `"total_sessions"`, "application/json"},
		{"sessions", "/sessions", http.StatusOK, `"sessions"`, "application/json"},
		{"prometheus", "/metrics/prometheus", http.StatusOK, "iptvrelay_", ""},
		{"live stream", "/live/alice/pw/1.ts", http.StatusOK, "segment", "video/mp2t"},
		{"passthrough", "/player_api.php?username=alice", http.StatusOK, "user_info", "application/json"},
		{"passthrough not found", "/nope", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(front.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, tt.wantStatus, body)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body %q does not contain %q", body, tt.wantBody)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.wantType) {
				t.Errorf("Content-Type = %q, want prefix %q", ct, tt.wantType)
			}
			if resp.Header.Get(proxy.RequestIDHeader) == "" {
				t.Error("missing request ID header")
			}
		})
	}
}

func TestStreamsAppearInStats(t *testing.T) {
	srv, _ := newTestServer(t)
	front := httptest.NewServer(srv.Handler())
	defer front.Close()

	for _, user := range []string{"alice", "bob", "carol"} {
		resp, err := http.Get(front.URL + "/live/" + user + "/pw/1.ts")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	// The client can see EOF before the handler has closed the session.
	var stats handlers.StatsResponse
	deadline := time.Now().Add(2 * time.Second)
	for {
		stats = fetchStats(t, front.URL+"/metrics")
		if stats.TotalSessions == 3 && stats.Active == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sessions never settled: %+v", stats.Stats)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if stats.TotalBytes != int64(3*len("segment")) {
		t.Errorf("stats = %+v", stats.Stats)
	}
	if stats.Outcomes["completed"] != 3 {
		t.Errorf("outcomes = %v", stats.Outcomes)
	}
	if stats.Admission.Active != 0 || stats.Admission.MaxStreamsPerIdentity != 1 {
		t.Errorf("admission = %+v", stats.Admission)
	}
}

func fetchStats(t *testing.T, url string) handlers.StatsResponse {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats handlers.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	return stats
}

func TestServeAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestNewComponentsRejectsBadTarget(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Upstream.Target = "not a url"
	if _, err := NewComponents(cfg, nil); err == nil {
		t.Error("NewComponents accepted a target without a host")
	}
}
