package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mercator-hq/iptvrelay/pkg/limits"
	"mercator-hq/iptvrelay/pkg/session"
)

func TestStatsHandler(t *testing.T) {
	registry := session.NewRegistry(session.Options{})
	ctrl := limits.NewController(10, 2)
	slot, _ := ctrl.TryAcquire("alice")
	defer slot.Release()

	s := registry.Open(session.OpenParams{Identity: "alice", RemoteAddr: "10.1.2.3:5000", Video: true})
	s.AddBytes(2048)

	rec := httptest.NewRecorder()
	NewStatsHandler(registry, ctrl).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Active != 1 || body.TotalSessions != 1 || body.TotalBytes != 2048 {
		t.Errorf("stats = %+v", body.Stats)
	}
	if body.Admission.Active != 1 || body.Admission.MaxStreams != 10 || body.Admission.MaxStreamsPerIdentity != 2 {
		t.Errorf("admission = %+v", body.Admission)
	}
}

func TestSessionsHandler(t *testing.T) {
	registry := session.NewRegistry(session.Options{MaskClientAddress: true})
	registry.Open(session.OpenParams{Identity: "alice", RemoteAddr: "198.51.100.7:1000"})
	newest := registry.Open(session.OpenParams{Identity: "bob", RemoteAddr: "198.51.100.8:1000"})

	rec := httptest.NewRecorder()
	NewSessionsHandler(registry, 1).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))

	var body SessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || len(body.Sessions) != 1 || body.Sessions[0].ID != newest.ID {
		t.Fatalf("sessions = %+v", body)
	}
	if strings.Contains(body.Sessions[0].Client, "198.51.100.8") {
		t.Errorf("client address not masked: %q", body.Sessions[0].Client)
	}
}

func TestDiagnosticsRejectWrites(t *testing.T) {
	registry := session.NewRegistry(session.Options{})
	for name, h := range map[string]http.Handler{
		"stats":    NewStatsHandler(registry, nil),
		"sessions": NewSessionsHandler(registry, 10),
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", rec.Code)
			}
			if rec.Header().Get("Allow") == "" {
				t.Error("missing Allow header")
			}
		})
	}
}

func TestFeedHandler(t *testing.T) {
	registry := session.NewRegistry(session.Options{})
	s := registry.Open(session.OpenParams{Identity: "alice", RemoteAddr: "10.0.0.1:1"})

	srv := httptest.NewServer(NewFeedHandler(registry, 20*time.Millisecond, 10, discardLogger()))
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("handshake status = %d", resp.StatusCode)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg FeedMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "snapshot" || msg.Stats.Active != 1 || len(msg.Sessions) != 1 || msg.Sessions[0].Identity != "alice" {
		t.Fatalf("first message = %+v", msg)
	}

	registry.Close(s, session.OutcomeCompleted)
	for {
		var next FeedMessage
		if err := conn.ReadJSON(&next); err != nil {
			t.Fatalf("no snapshot without the closed session: %v", err)
		}
		if next.Stats.Active == 0 && len(next.Sessions) == 0 {
			if next.Stats.TotalSessions != 1 {
				t.Errorf("TotalSessions = %d", next.Stats.TotalSessions)
			}
			return
		}
	}
}

func TestFeedHandlerRequiresUpgrade(t *testing.T) {
	h := NewFeedHandler(session.NewRegistry(session.Options{}), time.Second, 10, discardLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/feed", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
