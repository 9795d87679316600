package session

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures a Registry.
type Options struct {
	// MaskClientAddress hides the host part of client addresses.
	MaskClientAddress bool

	// LatencySamples bounds the rolling latency ring.
	LatencySamples int

	// BandwidthWindow is the EWMA decay window.
	BandwidthWindow time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// OpenParams describes a session at admission time.
type OpenParams struct {
	RequestID  string
	Identity   string
	RemoteAddr string
	Path       string
	Video      bool
}

// Registry tracks live sessions and process-wide counters.
// Mutation happens only through session lifecycle calls: Open, the
// Session counters, and Close.
type Registry struct {
	opts      Options
	now       func() time.Time
	startedAt time.Time

	nextID    atomic.Uint64
	total     atomic.Int64
	errors    atomic.Int64
	bytes     atomic.Int64
	bandwidth *EWMA
	latency   *LatencyRing
	byOutcome sync.Map // Outcome -> *atomic.Int64

	mu       sync.RWMutex
	sessions map[uint64]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return newRegistry(opts, now)
}

func newRegistry(opts Options, now func() time.Time) *Registry {
	if opts.LatencySamples <= 0 {
		opts.LatencySamples = 1000
	}
	if opts.BandwidthWindow <= 0 {
		opts.BandwidthWindow = time.Minute
	}
	return &Registry{
		opts:      opts,
		now:       now,
		startedAt: now(),
		bandwidth: newEWMA(opts.BandwidthWindow, now),
		latency:   NewLatencyRing(opts.LatencySamples),
		sessions:  make(map[uint64]*Session),
	}
}

// Open registers a new session and returns it. Session ids are monotonic
// and never reused.
func (r *Registry) Open(p OpenParams) *Session {
	s := &Session{
		ID:        r.nextID.Add(1),
		RequestID: p.RequestID,
		Identity:  p.Identity,
		Client:    MaskAddr(p.RemoteAddr, r.opts.MaskClientAddress),
		Path:      p.Path,
		Video:     p.Video,
		StartedAt: r.now(),
		registry:  r,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.total.Add(1)
	return s
}

// Close deregisters s with the given outcome and returns its summary.
// Only the first call has any effect; later calls return the same summary.
func (r *Registry) Close(s *Session, outcome Outcome) Summary {
	s.closeOnce.Do(func() {
		now := r.now()

		r.mu.Lock()
		delete(r.sessions, s.ID)
		r.mu.Unlock()

		var ttfb time.Duration
		if fb := s.firstByte.Load(); fb != 0 {
			ttfb = time.Unix(0, fb).Sub(s.StartedAt)
		}
		s.summary = Summary{
			ID:             s.ID,
			RequestID:      s.RequestID,
			Identity:       s.Identity,
			Client:         s.Client,
			Path:           s.Path,
			Video:          s.Video,
			StartedAt:      s.StartedAt,
			EndedAt:        now,
			Duration:       now.Sub(s.StartedAt),
			TimeToFirst:    ttfb,
			Bytes:          s.bytes.Load(),
			UpstreamStatus: int(s.upstreamStatus.Load()),
			Redirects:      int(s.redirects.Load()),
			Reconnects:     int(s.reconnects.Load()),
			Outcome:        outcome,
		}

		if outcome.IsError() {
			r.errors.Add(1)
		}
		if ttfb > 0 {
			r.latency.Add(ttfb)
		}
		r.outcomeCounter(outcome).Add(1)
	})
	return s.summary
}

func (r *Registry) addBytes(n int64) {
	r.bytes.Add(n)
	r.bandwidth.Add(n)
}

func (r *Registry) outcomeCounter(o Outcome) *atomic.Int64 {
	if c, ok := r.byOutcome.Load(o); ok {
		return c.(*atomic.Int64)
	}
	c, _ := r.byOutcome.LoadOrStore(o, new(atomic.Int64))
	return c.(*atomic.Int64)
}

// Stats is the aggregate snapshot exposed by the stats endpoint.
type Stats struct {
	StartedAt     time.Time        `json:"started_at"`
	UptimeSeconds float64          `json:"uptime_seconds"`
	Active        int              `json:"active"`
	TotalSessions int64            `json:"total_sessions"`
	TotalErrors   int64            `json:"total_errors"`
	TotalBytes    int64            `json:"total_bytes"`
	BandwidthBps  float64          `json:"bandwidth_bps"`
	Latency       LatencyStats     `json:"latency"`
	Outcomes      map[string]int64 `json:"outcomes"`
}

// LatencyStats holds time-to-first-byte percentiles over recent sessions.
type LatencyStats struct {
	Samples int     `json:"samples"`
	P50Ms   float64 `json:"p50_ms"`
	P90Ms   float64 `json:"p90_ms"`
	P99Ms   float64 `json:"p99_ms"`
}

// Snapshot returns the aggregate counters.
func (r *Registry) Snapshot() Stats {
	now := r.now()

	r.mu.RLock()
	active := len(r.sessions)
	r.mu.RUnlock()

	pct := r.latency.Percentiles(50, 90, 99)
	outcomes := make(map[string]int64)
	r.byOutcome.Range(func(k, v any) bool {
		outcomes[string(k.(Outcome))] = v.(*atomic.Int64).Load()
		return true
	})

	return Stats{
		StartedAt:     r.startedAt,
		UptimeSeconds: now.Sub(r.startedAt).Seconds(),
		Active:        active,
		TotalSessions: r.total.Load(),
		TotalErrors:   r.errors.Load(),
		TotalBytes:    r.bytes.Load(),
		BandwidthBps:  r.bandwidth.Rate(),
		Latency: LatencyStats{
			Samples: r.latency.Len(),
			P50Ms:   ms(pct[0]),
			P90Ms:   ms(pct[1]),
			P99Ms:   ms(pct[2]),
		},
		Outcomes: outcomes,
	}
}

// Active returns up to n of the most recently opened live sessions,
// newest first. n <= 0 returns all of them.
func (r *Registry) Active(n int) []View {
	now := r.now()

	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	if n > 0 && len(list) > n {
		list = list[:n]
	}

	views := make([]View, len(list))
	for i, s := range list {
		views[i] = s.view(now)
	}
	return views
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Bandwidth returns the current EWMA bandwidth in bytes per second.
func (r *Registry) Bandwidth() float64 {
	return r.bandwidth.Rate()
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
