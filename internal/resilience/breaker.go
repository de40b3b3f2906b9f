// Package resilience guards the Bloggera API client against a failing backend.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call without attempting it.
var ErrOpen = errors.New("circuit breaker is open")

// State of a Breaker.
type State int

const (
	// Closed lets every call through.
	Closed State = iota
	// Open rejects calls until the open timeout elapses.
	Open
	// HalfOpen lets trial calls through; one failure reopens.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds breaker thresholds.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// Breaker trips after consecutive backend failures. Only failures the caller
// reports via Failure count; a 4xx answer is a healthy backend.
type Breaker struct {
	mu sync.Mutex

	cfg Config
	now func() time.Time

	state           State
	consecFailures  int
	consecSuccesses int
	openedAt        time.Time

	onChange func(from, to State)
}

// New creates a closed breaker. Zero thresholds fall back to DefaultConfig values.
func New(cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &Breaker{cfg: cfg, now: time.Now, state: Closed}
}

// OnStateChange registers a callback invoked (under no lock) after each transition.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// State returns the current state, reporting HalfOpen once the open timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return HalfOpen
	}
	return b.state
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	from := b.state
	allowed := true

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
			b.state = HalfOpen
			b.consecSuccesses = 0
		} else {
			allowed = false
		}
	}

	to := b.state
	cb := b.onChange
	b.mu.Unlock()

	if cb != nil && from != to {
		cb(from, to)
	}
	return allowed
}

// Success records a call the backend answered.
func (b *Breaker) Success() {
	b.mu.Lock()
	from := b.state

	b.consecFailures = 0
	b.consecSuccesses++
	if b.state == HalfOpen && b.consecSuccesses >= b.cfg.SuccessThreshold {
		b.state = Closed
		b.consecSuccesses = 0
	}

	to := b.state
	cb := b.onChange
	b.mu.Unlock()

	if cb != nil && from != to {
		cb(from, to)
	}
}

// Failure records a call the backend did not answer.
func (b *Breaker) Failure() {
	b.mu.Lock()
	from := b.state

	b.consecSuccesses = 0
	b.consecFailures++

	switch b.state {
	case Closed:
		if b.consecFailures >= b.cfg.FailureThreshold {
			b.state = Open
			b.openedAt = b.now()
		}
	case HalfOpen:
		b.state = Open
		b.openedAt = b.now()
	}

	to := b.state
	cb := b.onChange
	b.mu.Unlock()

	if cb != nil && from != to {
		cb(from, to)
	}
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.state = Closed
	b.consecFailures = 0
	b.consecSuccesses = 0
	b.mu.Unlock()
}
