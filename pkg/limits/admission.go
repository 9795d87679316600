package limits

import (
	"sync"
)

// Reason explains why TryAcquire refused a slot.
type Reason string

const (
	// ReasonNone means the slot was granted.
	ReasonNone Reason = ""

	// ReasonGlobal means the global stream cap is saturated.
	ReasonGlobal Reason = "global"

	// ReasonIdentity means the identity already holds its maximum number of streams.
	ReasonIdentity Reason = "identity"
)

// Controller enforces a global cap and a per-identity cap on concurrent
// streams. It never blocks and never queues: a request is either admitted
// immediately or refused.
//
// A cap of zero disables that limit. An empty identity is anonymous and is
// only subject to the global cap.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Counts are guarded by a single
// mutex so the global and per-identity checks are applied atomically.
type Controller struct {
	maxGlobal   int
	maxIdentity int

	metrics *Metrics

	mu         sync.Mutex
	active     int
	byIdentity map[string]int
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records admission decisions to m.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// NewController creates an admission controller.
//
// Example:
//
//	ctrl := limits.NewController(200, 1)
//	slot, reason := ctrl.TryAcquire("alice")
//	if slot == nil {
//	    // reject with a retry hint
//	}
//	defer slot.Release()
func NewController(maxGlobal, maxIdentity int, opts ...Option) *Controller {
	c := &Controller{
		maxGlobal:   maxGlobal,
		maxIdentity: maxIdentity,
		byIdentity:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TryAdmit reserves one slot for identity and reports whether it succeeded.
// Every true result must be paired with exactly one Release(identity).
func (c *Controller) TryAdmit(identity string) bool {
	return c.tryAdmit(identity) == ReasonNone
}

// TryAcquire is TryAdmit returning a Slot whose Release is idempotent.
// On refusal the slot is nil and the reason names the saturated cap.
func (c *Controller) TryAcquire(identity string) (*Slot, Reason) {
	if reason := c.tryAdmit(identity); reason != ReasonNone {
		return nil, reason
	}
	return &Slot{controller: c, identity: identity}, ReasonNone
}

func (c *Controller) tryAdmit(identity string) Reason {
	c.mu.Lock()
	defer c.mu.Unlock()

	reason := ReasonNone
	switch {
	case c.maxGlobal > 0 && c.active >= c.maxGlobal:
		reason = ReasonGlobal
	case identity != "" && c.maxIdentity > 0 && c.byIdentity[identity] >= c.maxIdentity:
		reason = ReasonIdentity
	default:
		c.active++
		if identity != "" {
			c.byIdentity[identity]++
		}
	}

	c.metrics.recordDecision(reason, c.active, len(c.byIdentity))
	return reason
}

// Release returns a slot previously granted to identity.
// Counts never go below zero; an unmatched Release is ignored.
func (c *Controller) Release(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == 0 || (identity != "" && c.byIdentity[identity] == 0) {
		c.metrics.recordRelease(false, c.active, len(c.byIdentity))
		return
	}

	c.active--
	if identity != "" {
		if n := c.byIdentity[identity]; n > 1 {
			c.byIdentity[identity] = n - 1
		} else {
			delete(c.byIdentity, identity)
		}
	}

	c.metrics.recordRelease(true, c.active, len(c.byIdentity))
}

// Active returns the number of admitted streams.
func (c *Controller) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// ActiveFor returns the number of admitted streams held by identity.
func (c *Controller) ActiveFor(identity string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byIdentity[identity]
}

// Identities returns the number of identities currently holding a slot.
func (c *Controller) Identities() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byIdentity)
}

// Limits returns the configured global and per-identity caps.
func (c *Controller) Limits() (global, perIdentity int) {
	return c.maxGlobal, c.maxIdentity
}

// Remaining returns the number of free global slots, or -1 when unlimited.
func (c *Controller) Remaining() int {
	if c.maxGlobal <= 0 {
		return -1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if r := c.maxGlobal - c.active; r > 0 {
		return r
	}
	return 0
}

// Slot is one admitted stream. Release may be called any number of times
// from any goroutine; only the first call returns the slot.
type Slot struct {
	controller *Controller
	identity   string
	once       sync.Once
}

// Identity returns the identity the slot was granted to.
func (s *Slot) Identity() string {
	if s == nil {
		return ""
	}
	return s.identity
}

// Release returns the slot to its controller. Safe on a nil Slot.
func (s *Slot) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.controller.Release(s.identity)
	})
}
