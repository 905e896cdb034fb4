package iap

import (
	"errors"
	"sync"
	"time"
)

// BreakerState represents the state of the circuit breaker.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // Calls go through
	BreakerOpen                         // Calls fail fast until the cooldown elapses
	BreakerHalfOpen                     // Probing whether the proxy recovered
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrBreakerOpen is returned while the breaker rejects calls.
var ErrBreakerOpen = errors.New("iap circuit breaker is open")

// Breaker stops hammering the IAP proxy after consecutive transport
// failures. Only transport failures count; a portal rejection is a
// successful call from the breaker's point of view.
type Breaker struct {
	maxFailures      int
	cooldown         time.Duration
	successThreshold int
	now              func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	successes   int
	stateChange time.Time
}

// NewBreaker creates a breaker that opens after maxFailures consecutive
// failures and probes again after cooldown.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		maxFailures:      maxFailures,
		cooldown:         cooldown,
		successThreshold: 2,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed, moving an open breaker to
// half-open once the cooldown has passed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerOpen {
		return nil
	}
	if b.now().Sub(b.stateChange) < b.cooldown {
		return ErrBreakerOpen
	}
	b.setState(BreakerHalfOpen)
	return nil
}

// Record updates the breaker with the outcome of a call.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.successes = 0
		// Any failure while probing reopens immediately
		if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
			b.setState(BreakerOpen)
		}
		return
	}

	b.successes++
	if b.state == BreakerHalfOpen && b.successes < b.successThreshold {
		return
	}
	if b.state == BreakerHalfOpen {
		b.setState(BreakerClosed)
	}
	b.failures = 0
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) setState(s BreakerState) {
	b.state = s
	b.stateChange = b.now()
	b.successes = 0
	if s == BreakerOpen {
		b.failures = 0
	}
}
