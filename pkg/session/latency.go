package session

import (
	"math"
	"sort"
	"sync"
	"time"
)

// LatencyRing keeps the most recent latency samples in a fixed-size ring.
// When full, the oldest sample is overwritten.
type LatencyRing struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
}

// NewLatencyRing creates a ring holding at most size samples.
func NewLatencyRing(size int) *LatencyRing {
	if size < 1 {
		size = 1
	}
	return &LatencyRing{samples: make([]time.Duration, size)}
}

// Add records one sample.
func (r *LatencyRing) Add(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[r.next] = d
	r.next++
	if r.next == len(r.samples) {
		r.next = 0
		r.full = true
	}
}

// Len returns the number of samples held.
func (r *LatencyRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.samples)
	}
	return r.next
}

// Percentiles returns the nearest-rank percentile for each p in ps
// (0 < p <= 100). With no samples every result is zero.
func (r *LatencyRing) Percentiles(ps ...float64) []time.Duration {
	r.mu.Lock()
	n := r.next
	if r.full {
		n = len(r.samples)
	}
	sorted := make([]time.Duration, n)
	copy(sorted, r.samples[:n])
	r.mu.Unlock()

	out := make([]time.Duration, len(ps))
	if n == 0 {
		return out
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for i, p := range ps {
		rank := int(math.Ceil(p*float64(n)/100)) - 1
		if rank < 0 {
			rank = 0
		}
		if rank >= n {
			rank = n - 1
		}
		out[i] = sorted[rank]
	}
	return out
}
