package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Outcome is the terminal state of a session.
type Outcome string

const (
	// OutcomeCompleted means the upstream body ended normally.
	OutcomeCompleted Outcome = "completed"

	// OutcomeClientGone means the client disconnected or a write failed.
	OutcomeClientGone Outcome = "client_gone"

	// OutcomeUpstreamError means the upstream failed to connect or broke mid-body.
	OutcomeUpstreamError Outcome = "upstream_error"

	// OutcomeRedirectError means the redirect chain could not be resolved.
	OutcomeRedirectError Outcome = "redirect_error"

	// OutcomeClientStall means the client stopped draining for too long.
	OutcomeClientStall Outcome = "client_stall"

	// OutcomeUpstreamStall means the upstream went silent and the reconnect budget ran out.
	OutcomeUpstreamStall Outcome = "upstream_stall"

	// OutcomeExpired means the maximum session duration was reached.
	OutcomeExpired Outcome = "expired"
)

// IsError reports whether the outcome counts toward the global error total.
func (o Outcome) IsError() bool {
	switch o {
	case OutcomeUpstreamError, OutcomeRedirectError, OutcomeUpstreamStall:
		return true
	}
	return false
}

// Session is one client-initiated stream. It is created by Registry.Open and
// owned by the relay until Registry.Close. Counters may be updated from any
// goroutine.
type Session struct {
	ID        uint64
	RequestID string
	Identity  string
	Client    string
	Path      string
	Video     bool
	StartedAt time.Time

	bytes          atomic.Int64
	lastWrite      atomic.Int64 // unix nanos
	firstByte      atomic.Int64 // unix nanos, 0 until the first write
	upstreamStatus atomic.Int32
	redirects      atomic.Int32
	reconnects     atomic.Int32

	registry  *Registry
	closeOnce sync.Once
	summary   Summary
}

// AddBytes records n bytes written to the client.
func (s *Session) AddBytes(n int) {
	if n <= 0 {
		return
	}
	now := s.registry.now().UnixNano()
	s.bytes.Add(int64(n))
	s.lastWrite.Store(now)
	s.firstByte.CompareAndSwap(0, now)
	s.registry.addBytes(int64(n))
}

// SetUpstreamStatus records the most recent upstream status code.
func (s *Session) SetUpstreamStatus(code int) {
	s.upstreamStatus.Store(int32(code))
}

// AddRedirect records one followed redirect hop.
func (s *Session) AddRedirect() {
	s.redirects.Add(1)
}

// AddReconnect records one stall reconnect.
func (s *Session) AddReconnect() {
	s.reconnects.Add(1)
}

// Bytes returns the bytes written to the client so far.
func (s *Session) Bytes() int64 {
	return s.bytes.Load()
}

// Reconnects returns the number of stall reconnects so far.
func (s *Session) Reconnects() int {
	return int(s.reconnects.Load())
}

// Summary is the immutable record of a closed session.
type Summary struct {
	ID             uint64        `json:"id"`
	RequestID      string        `json:"request_id,omitempty"`
	Identity       string        `json:"identity,omitempty"`
	Client         string        `json:"client"`
	Path           string        `json:"path"`
	Video          bool          `json:"video"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        time.Time     `json:"ended_at"`
	Duration       time.Duration `json:"duration"`
	TimeToFirst    time.Duration `json:"time_to_first_byte"`
	Bytes          int64         `json:"bytes"`
	UpstreamStatus int           `json:"upstream_status"`
	Redirects      int           `json:"redirects"`
	Reconnects     int           `json:"reconnects"`
	Outcome        Outcome       `json:"outcome"`
}

// View is a point-in-time snapshot of an active session.
type View struct {
	ID             uint64    `json:"id"`
	Identity       string    `json:"identity,omitempty"`
	Client         string    `json:"client"`
	Path           string    `json:"path"`
	StartedAt      time.Time `json:"started_at"`
	AgeSeconds     float64   `json:"age_seconds"`
	IdleSeconds    float64   `json:"idle_seconds"`
	Bytes          int64     `json:"bytes"`
	UpstreamStatus int       `json:"upstream_status"`
	Redirects      int       `json:"redirects"`
	Reconnects     int       `json:"reconnects"`
}

func (s *Session) view(now time.Time) View {
	last := s.lastWrite.Load()
	idleSince := s.StartedAt
	if last != 0 {
		idleSince = time.Unix(0, last)
	}
	return View{
		ID:             s.ID,
		Identity:       s.Identity,
		Client:         s.Client,
		Path:           s.Path,
		StartedAt:      s.StartedAt,
		AgeSeconds:     now.Sub(s.StartedAt).Seconds(),
		IdleSeconds:    now.Sub(idleSince).Seconds(),
		Bytes:          s.bytes.Load(),
		UpstreamStatus: int(s.upstreamStatus.Load()),
		Redirects:      int(s.redirects.Load()),
		Reconnects:     int(s.reconnects.Load()),
	}
}
