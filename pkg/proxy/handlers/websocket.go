package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mercator-hq/iptvrelay/pkg/session"
)

const (
	// feedWriteWait bounds one snapshot write to a feed client.
	feedWriteWait = 5 * time.Second

	// feedReadLimit caps inbound frames; the feed is push only.
	feedReadLimit = 512
)

// FeedMessage is one snapshot pushed to feed clients.
type FeedMessage struct {
	Type     string         `json:"type"`
	Time     time.Time      `json:"time"`
	Stats    session.Stats  `json:"stats"`
	Sessions []session.View `json:"sessions"`
}

// FeedHandler upgrades to a websocket and pushes a registry snapshot
// immediately and then every interval until the client goes away.
type FeedHandler struct {
	registry  *session.Registry
	interval  time.Duration
	maxListed int
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewFeedHandler creates a live session feed.
func NewFeedHandler(registry *session.Registry, interval time.Duration, maxListed int, logger *slog.Logger) *FeedHandler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandler{
		registry:  registry,
		interval:  interval,
		maxListed: maxListed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error.
		h.logger.DebugContext(r.Context(), "feed upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	h.logger.DebugContext(ctx, "feed client connected", "remote_addr", r.RemoteAddr)

	// Reading is required to process control frames and notice a close.
	gone := make(chan struct{})
	conn.SetReadLimit(feedReadLimit)
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.push(conn); err != nil {
			h.logger.DebugContext(ctx, "feed client write failed", "error", err)
			return
		}
		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (h *FeedHandler) push(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return conn.WriteJSON(FeedMessage{
		Type:     "snapshot",
		Time:     time.Now().UTC(),
		Stats:    h.registry.Snapshot(),
		Sessions: h.registry.Active(h.maxListed),
	})
}
