// Package circuitbreaker guards calls to the payment gateway. Each
// gateway operation (login, create intent, confirm, fetch) has its own
// circuit so that, for example, a broken confirm endpoint does not stop
// token refreshes.
package circuitbreaker

import (
	"sync"
	"time"
)

// State of one operation's circuit.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// Config tunes the breaker. Zero values fall back to defaults.
type Config struct {
	FailureThreshold         int           // consecutive failures that open the circuit
	OpenTimeout              time.Duration // time spent Open before probing again
	HalfOpenSuccessThreshold int           // consecutive successes that close a HalfOpen circuit
}

const (
	defaultFailureThreshold         = 5
	defaultOpenTimeout              = 30 * time.Second
	defaultHalfOpenSuccessThreshold = 2
)

type opState struct {
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	openUntil            time.Time
}

// Breaker tracks gateway operation health in memory.
type Breaker struct {
	mu  sync.Mutex
	ops map[string]*opState
	cfg Config
}

// New creates a Breaker, applying defaults for unset Config fields.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}
	if cfg.HalfOpenSuccessThreshold <= 0 {
		cfg.HalfOpenSuccessThreshold = defaultHalfOpenSuccessThreshold
	}
	return &Breaker{ops: make(map[string]*opState), cfg: cfg}
}

// stateFor must be called with the mutex held.
func (b *Breaker) stateFor(op string) *opState {
	s, ok := b.ops[op]
	if !ok {
		s = &opState{state: Closed}
		b.ops[op] = s
	}
	return s
}

// Allow reports whether a call to op may proceed. An Open circuit whose
// timeout has elapsed transitions to HalfOpen and allows the probe.
func (b *Breaker) Allow(op string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stateFor(op)
	switch s.state {
	case Closed:
		return true
	case Open:
		if time.Now().After(s.openUntil) {
			s.state = HalfOpen
			s.consecutiveSuccesses = 0
			return true
		}
		return false
	default: // HalfOpen
		return true
	}
}

// RecordSuccess notes a successful call to op.
func (b *Breaker) RecordSuccess(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stateFor(op)
	switch s.state {
	case Closed:
		s.consecutiveFailures = 0
	case HalfOpen:
		s.consecutiveSuccesses++
		if s.consecutiveSuccesses >= b.cfg.HalfOpenSuccessThreshold {
			s.state = Closed
			s.consecutiveFailures = 0
			s.consecutiveSuccesses = 0
		}
	}
}

// RecordFailure notes a failed call to op. A failure while HalfOpen
// re-opens the circuit immediately.
func (b *Breaker) RecordFailure(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stateFor(op)
	switch s.state {
	case Closed:
		s.consecutiveFailures++
		if s.consecutiveFailures >= b.cfg.FailureThreshold {
			s.state = Open
			s.openUntil = time.Now().Add(b.cfg.OpenTimeout)
		}
	case HalfOpen:
		s.state = Open
		s.openUntil = time.Now().Add(b.cfg.OpenTimeout)
		s.consecutiveFailures = 0
		s.consecutiveSuccesses = 0
	}
}

// StateOf returns the current state of op's circuit without side effects.
func (b *Breaker) StateOf(op string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.ops[op]
	if !ok {
		return Closed
	}
	return s.state
}
