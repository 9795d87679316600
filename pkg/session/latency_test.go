package session

import (
	"testing"
	"time"
)

func TestLatencyRing_Percentiles(t *testing.T) {
	r := NewLatencyRing(100)
	for i := 1; i <= 100; i++ {
		r.Add(time.Duration(i) * time.Millisecond)
	}

	got := r.Percentiles(50, 90, 99, 100)
	want := []time.Duration{50 * time.Millisecond, 90 * time.Millisecond, 99 * time.Millisecond, 100 * time.Millisecond}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("percentile %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestLatencyRing_NearestRank(t *testing.T) {
	r := NewLatencyRing(10)
	for i := 1; i <= 10; i++ {
		r.Add(time.Duration(i) * time.Millisecond)
	}

	tests := []struct {
		p    float64
		want time.Duration
	}{
		{1, 1 * time.Millisecond},
		{10, 1 * time.Millisecond},
		{11, 2 * time.Millisecond},
		{50, 5 * time.Millisecond},
		{90, 9 * time.Millisecond},
		{91, 10 * time.Millisecond},
		{100, 10 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := r.Percentiles(tt.p)[0]; got != tt.want {
			t.Errorf("p%v: expected %v, got %v", tt.p, tt.want, got)
		}
	}
}

func TestLatencyRing_EvictsOldest(t *testing.T) {
	r := NewLatencyRing(3)
	r.Add(time.Hour)
	for _, d := range []time.Duration{1, 2, 3} {
		r.Add(d * time.Millisecond)
	}

	if r.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", r.Len())
	}
	if top := r.Percentiles(100)[0]; top != 3*time.Millisecond {
		t.Errorf("expected oldest sample to be evicted, max is %v", top)
	}
}

func TestLatencyRing_Empty(t *testing.T) {
	r := NewLatencyRing(0)
	if got := r.Percentiles(50)[0]; got != 0 {
		t.Errorf("expected zero for empty ring, got %v", got)
	}
	r.Add(time.Second)
	r.Add(2 * time.Second)
	if r.Len() != 1 {
		t.Errorf("size is clamped to 1, got %d samples", r.Len())
	}
}
