package input

import (
	"sync"
	"time"
)

// Clock exposes the current time for rate limiting decisions.
type Clock interface {
	Now() time.Time
}

type clockFunc func() time.Time

// Now implements Clock for functional adapters.
func (c clockFunc) Now() time.Time { return c() }

// systemClock relies on time.Now for production code paths.
type systemClock struct{}

// Now implements Clock by delegating to time.Now.
func (systemClock) Now() time.Time { return time.Now() }

// GateConfig controls the freshness and throughput gates applied to inputs.
type GateConfig struct {
	MaxAge      time.Duration
	MinInterval time.Duration
}

// DropReason enumerates why a frame was rejected by the gate.
type DropReason string

const (
	DropReasonNone        DropReason = ""
	DropReasonSequence    DropReason = "sequence"
	DropReasonStale       DropReason = "stale"
	DropReasonRateLimited DropReason = "rate_limit"
)

// String returns the textual representation of the drop reason.
func (r DropReason) String() string { return string(r) }

// GateDecision summarises whether a frame passed the gate.
type GateDecision struct {
	Accepted bool
	Reason   DropReason
}

// Frame captures the metadata required to validate a control update.
type Frame struct {
	ClientID   string
	SequenceID uint64
	SentAt     time.Time
}

type gateClientState struct {
	lastSequence uint64
	lastAccepted time.Time
}

// DropCounters aggregates per-reason drop counts for one client.
type DropCounters struct {
	Sequence    uint64 `json:"sequence"`
	Stale       uint64 `json:"stale"`
	RateLimited uint64 `json:"rate_limited"`
}

// Gate rejects stale, replayed, or over-rate input frames before the controls
// reach the simulation.
type Gate struct {
	mu      sync.Mutex
	cfg     GateConfig
	clock   Clock
	clients map[string]*gateClientState
	drops   map[string]DropCounters
}

// GateOption customises gate construction.
type GateOption func(*Gate)

// WithClock overrides the gate clock, primarily for tests.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.clock = clockFunc(now)
		}
	}
}

// NewGate builds a gate with the supplied policy.
func NewGate(cfg GateConfig, opts ...GateOption) *Gate {
	gate := &Gate{
		cfg:     cfg,
		clock:   systemClock{},
		clients: make(map[string]*gateClientState),
		drops:   make(map[string]DropCounters),
	}
	for _, opt := range opts {
		opt(gate)
	}
	return gate
}

// Admit decides whether the frame may update the vehicle controls.
func (g *Gate) Admit(frame Frame) GateDecision {
	if g == nil || frame.ClientID == "" {
		return GateDecision{Accepted: true}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	client := g.clients[frame.ClientID]
	if client == nil {
		client = &gateClientState{}
		g.clients[frame.ClientID] = client
	}

	//1.- Reject replayed or reordered sequence numbers outright.
	if frame.SequenceID != 0 && frame.SequenceID <= client.lastSequence {
		g.observe(frame.ClientID, DropReasonSequence)
		return GateDecision{Reason: DropReasonSequence}
	}

	//2.- Discard frames older than the freshness window.
	if g.cfg.MaxAge > 0 && !frame.SentAt.IsZero() && now.Sub(frame.SentAt) > g.cfg.MaxAge {
		g.observe(frame.ClientID, DropReasonStale)
		return GateDecision{Reason: DropReasonStale}
	}

	//3.- Enforce the per-client input rate.
	if g.cfg.MinInterval > 0 && !client.lastAccepted.IsZero() && now.Sub(client.lastAccepted) < g.cfg.MinInterval {
		g.observe(frame.ClientID, DropReasonRateLimited)
		return GateDecision{Reason: DropReasonRateLimited}
	}

	if frame.SequenceID != 0 {
		client.lastSequence = frame.SequenceID
	}
	client.lastAccepted = now
	return GateDecision{Accepted: true}
}

// Forget clears the per-client state when the connection closes.
func (g *Gate) Forget(clientID string) {
	if g == nil || clientID == "" {
		return
	}
	g.mu.Lock()
	delete(g.clients, clientID)
	delete(g.drops, clientID)
	g.mu.Unlock()
}

// Drops returns a copy of the drop counters for the client.
func (g *Gate) Drops(clientID string) DropCounters {
	if g == nil {
		return DropCounters{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.drops[clientID]
}

func (g *Gate) observe(clientID string, reason DropReason) {
	current := g.drops[clientID]
	switch reason {
	case DropReasonSequence:
		current.Sequence++
	case DropReasonStale:
		current.Stale++
	case DropReasonRateLimited:
		current.RateLimited++
	}
	g.drops[clientID] = current
}
