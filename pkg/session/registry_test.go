package session

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRegistry_Lifecycle(t *testing.T) {
	clock := newFakeClock()
	r := newRegistry(Options{MaskClientAddress: true, LatencySamples: 10, BandwidthWindow: time.Minute}, clock.Now)

	s := r.Open(OpenParams{
		RequestID:  "req-1",
		Identity:   "alice",
		RemoteAddr: "203.0.113.57:51234",
		Path:       "/live/alice/pw/1.ts",
		Video:      true,
	})
	if s.ID != 1 {
		t.Errorf("expected first id 1, got %d", s.ID)
	}
	if s.Client != "203.0.0.0/16" {
		t.Errorf("expected masked client, got %q", s.Client)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", r.Len())
	}

	clock.Advance(200 * time.Millisecond)
	s.SetUpstreamStatus(200)
	s.AddRedirect()
	s.AddBytes(1000)
	s.AddBytes(500)
	clock.Advance(300 * time.Millisecond)

	sum := r.Close(s, OutcomeCompleted)
	if sum.Bytes != 1500 {
		t.Errorf("expected 1500 bytes, got %d", sum.Bytes)
	}
	if sum.Duration != 500*time.Millisecond {
		t.Errorf("expected 500ms duration, got %v", sum.Duration)
	}
	if sum.TimeToFirst != 200*time.Millisecond {
		t.Errorf("expected 200ms to first byte, got %v", sum.TimeToFirst)
	}
	if sum.UpstreamStatus != 200 || sum.Redirects != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if r.Len() != 0 {
		t.Errorf("expected session to be deregistered")
	}

	// Closing again does not mutate anything.
	again := r.Close(s, OutcomeUpstreamError)
	if again.Outcome != OutcomeCompleted {
		t.Errorf("expected original outcome to stick, got %s", again.Outcome)
	}

	stats := r.Snapshot()
	if stats.TotalSessions != 1 || stats.TotalErrors != 0 || stats.TotalBytes != 1500 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Latency.Samples != 1 || stats.Latency.P50Ms != 200 {
		t.Errorf("unexpected latency %+v", stats.Latency)
	}
	if stats.Outcomes["completed"] != 1 {
		t.Errorf("expected one completed outcome, got %v", stats.Outcomes)
	}
}

func TestRegistry_IDsAreMonotonic(t *testing.T) {
	r := NewRegistry(Options{})

	var wg sync.WaitGroup
	ids := make(chan uint64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := r.Open(OpenParams{RemoteAddr: "10.0.0.1:1"})
			ids <- s.ID
			r.Close(s, OutcomeCompleted)
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uint64]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate session id %d", id)
		}
		seen[id] = true
	}

	next := r.Open(OpenParams{})
	if next.ID != 101 {
		t.Errorf("expected id 101 after 100 sessions, got %d", next.ID)
	}
}

func TestRegistry_ErrorsCounted(t *testing.T) {
	r := NewRegistry(Options{})

	for _, o := range []Outcome{OutcomeUpstreamError, OutcomeRedirectError, OutcomeUpstreamStall, OutcomeClientGone, OutcomeExpired} {
		r.Close(r.Open(OpenParams{}), o)
	}

	stats := r.Snapshot()
	if stats.TotalErrors != 3 {
		t.Errorf("expected 3 errors, got %d", stats.TotalErrors)
	}
	if stats.Latency.Samples != 0 {
		t.Errorf("sessions without a first byte contribute no latency, got %d samples", stats.Latency.Samples)
	}
}

func TestRegistry_Active(t *testing.T) {
	clock := newFakeClock()
	r := newRegistry(Options{}, clock.Now)

	var sessions []*Session
	for i := 0; i < 5; i++ {
		sessions = append(sessions, r.Open(OpenParams{Path: "/p"}))
		clock.Advance(time.Second)
	}
	sessions[4].AddBytes(10)
	r.Close(sessions[3], OutcomeClientGone)

	views := r.Active(3)
	if len(views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(views))
	}
	wantIDs := []uint64{5, 3, 2}
	for i, v := range views {
		if v.ID != wantIDs[i] {
			t.Errorf("view %d: expected id %d, got %d", i, wantIDs[i], v.ID)
		}
	}
	if views[0].Bytes != 10 || views[0].IdleSeconds != 0 {
		t.Errorf("unexpected newest view %+v", views[0])
	}
	if views[2].AgeSeconds != 4 || views[2].IdleSeconds != 4 {
		t.Errorf("unexpected oldest view %+v", views[2])
	}

	if all := r.Active(0); len(all) != 4 {
		t.Errorf("expected all 4 live sessions, got %d", len(all))
	}
}

func TestRegistry_Bandwidth(t *testing.T) {
	clock := newFakeClock()
	r := newRegistry(Options{BandwidthWindow: time.Minute}, clock.Now)
	s := r.Open(OpenParams{})

	for i := 0; i < 120; i++ {
		clock.Advance(time.Second)
		s.AddBytes(1000)
	}

	bw := r.Snapshot().BandwidthBps
	// After two windows of constant 1000 B/s the average is within ~15%.
	if bw < 850 || bw > 1000 {
		t.Errorf("expected bandwidth near 1000 B/s, got %.1f", bw)
	}

	// Silence decays the estimate.
	clock.Advance(2 * time.Minute)
	if decayed := r.Bandwidth(); decayed >= bw/2 {
		t.Errorf("expected bandwidth to decay, got %.1f (was %.1f)", decayed, bw)
	}
}
