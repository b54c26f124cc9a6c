package bus

import "time"

// Prober decides when an absent device is probed again: at most Attempts
// consecutive probes, then silence until Window has elapsed since the
// first failed probe of the burst.
type Prober struct {
	Attempts int
	Window   time.Duration

	present bool
	failed  int
	since   time.Time
}

// NewProber creates a Prober that assumes the device is present.
func NewProber(attempts int, window time.Duration) *Prober {
	return &Prober{Attempts: attempts, Window: window, present: true}
}

// Present tells the last known presence.
func (p *Prober) Present() bool {
	return p.present
}

// ShouldTry tells whether a transaction is due at now.
func (p *Prober) ShouldTry(now time.Time) bool {
	if p.present || p.failed < p.Attempts {
		return true
	}
	if now.Sub(p.since) >= p.Window {
		p.failed = 0
		return true
	}
	return false
}

// Success records a completed transaction.
func (p *Prober) Success() {
	p.present = true
	p.failed = 0
}

// Failure records an exhausted transaction at now.
func (p *Prober) Failure(now time.Time) {
	if p.present || p.failed == 0 {
		p.since = now
	}
	p.present = false
	p.failed++
}
