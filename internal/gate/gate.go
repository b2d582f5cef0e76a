// Package gate rate-limits alert emission: one alert per cooldown period,
// at most hourlyCap alerts per fixed one-hour window.
package gate

import (
	"sync"
	"time"

	"github.com/vigilo-ai/vigilo/internal/threat"
)

// Reason explains a gate decision. Every call gets exactly one.
type Reason string

const (
	ReasonFired               Reason = "fired"
	ReasonSuppressedNonThreat Reason = "suppressed_non_threat"
	ReasonSuppressedCooldown  Reason = "suppressed_cooldown"
	ReasonSuppressedHourlyCap Reason = "suppressed_hourly_cap"
)

// Decision is the outcome of gating one verdict.
type Decision struct {
	ShouldAlert bool
	Reason      Reason
}

const (
	DefaultCooldown  = 30 * time.Second
	DefaultHourlyCap = 10

	hourWindow = time.Hour
)

// Gate owns the rate-limit state for one camera feed. Decide serializes
// internally, so a single gate may be shared by callers that fan in; state is
// in-memory only and resets on process start.
type Gate struct {
	cooldown  time.Duration
	hourlyCap int

	mu          sync.Mutex
	lastAlert   time.Time // zero until the first fired alert
	windowStart time.Time
	countInHour int
}

// New builds a gate. Non-positive options fall back to the defaults
// (30s cooldown, 10 alerts per hour).
func New(cooldown time.Duration, hourlyCap int) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if hourlyCap <= 0 {
		hourlyCap = DefaultHourlyCap
	}
	return &Gate{cooldown: cooldown, hourlyCap: hourlyCap}
}

// Decide applies the gate to a verdict at the caller-supplied instant.
// The clock is never read internally; callers own monotonicity. A backwards
// `now` simply makes the cooldown delta negative, which keeps suppressing
// until a genuinely later timestamp arrives.
//
// Check order: non-threat, hourly cap, cooldown. State mutates only on a
// fired decision, apart from the idempotent hour-window reset.
func (g *Gate) Decide(v threat.Verdict, now time.Time) Decision {
	if !v.IsThreat {
		return Decision{Reason: ReasonSuppressedNonThreat}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.windowStart.IsZero() || now.Sub(g.windowStart) >= hourWindow {
		g.windowStart = now
		g.countInHour = 0
	}

	if g.countInHour >= g.hourlyCap {
		return Decision{Reason: ReasonSuppressedHourlyCap}
	}

	if !g.lastAlert.IsZero() && now.Sub(g.lastAlert) < g.cooldown {
		return Decision{Reason: ReasonSuppressedCooldown}
	}

	g.lastAlert = now
	g.countInHour++
	return Decision{ShouldAlert: true, Reason: ReasonFired}
}

// Snapshot reports the current counters, for the run summary and tests.
func (g *Gate) Snapshot() (lastAlert time.Time, countInHour int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastAlert, g.countInHour
}
