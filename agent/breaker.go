package agent

import (
	"sync"
	"time"
)

// BreakerState is the three-state circuit breaker FSM value.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// breakerSnapshot mirrors the Circuit Breaker State record: state,
// failure_count, success_count, last_failure_ts, threshold,
// recovery_timeout_s.
type breakerSnapshot struct {
	State             BreakerState
	FailureCount      int
	SuccessCount      int
	LastFailureTS     time.Time
	Threshold         int
	RecoveryTimeoutS  float64
}

// breaker is a single, exact-to-spec circuit breaker for one (model,
// fallback-slot) pair. Unlike resilience.CircuitBreaker's sliding-window
// error-rate evaluation (built for steady-state HTTP traffic), this one
// tracks simple consecutive counts because the spec's FSM is defined in
// those terms: N consecutive failures opens it, a single probe is let
// through after the recovery timeout, and it takes two consecutive
// half-open successes to fully re-close.
type breaker struct {
	mu sync.Mutex

	state            BreakerState
	failureCount     int
	successCount     int // consecutive half-open successes
	lastFailureTS    time.Time
	threshold        int
	recoveryTimeout  time.Duration
	now              func() time.Time
}

func newBreaker(threshold int, recoveryTimeout time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 5
	}
	return &breaker{
		state:           BreakerClosed,
		threshold:       threshold,
		recoveryTimeout: recoveryTimeout,
		now:             time.Now,
	}
}

// Allow reports whether a call may proceed, transitioning Open to
// HalfOpen once the recovery timeout has elapsed.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if b.now().Sub(b.lastFailureTS) >= b.recoveryTimeout {
			b.state = BreakerHalfOpen
			b.successCount = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess applies a successful call's outcome to the FSM. In Closed
// state it decays the failure counter by one (floor zero); in HalfOpen, a
// second consecutive success fully re-closes the breaker and resets both
// counters.
func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		if b.failureCount > 0 {
			b.failureCount--
		}
	case BreakerHalfOpen:
		b.successCount++
		if b.successCount >= 2 {
			b.state = BreakerClosed
			b.failureCount = 0
			b.successCount = 0
		}
	}
}

// RecordFailure applies a failed call's outcome: in Closed state it
// increments the failure counter, opening the breaker once the threshold
// is reached; in HalfOpen, any failure immediately re-opens it.
func (b *breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailureTS = b.now()

	switch b.state {
	case BreakerClosed:
		b.failureCount++
		if b.failureCount >= b.threshold {
			b.state = BreakerOpen
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.successCount = 0
	}
}

func (b *breaker) snapshot() breakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return breakerSnapshot{
		State:            b.state,
		FailureCount:     b.failureCount,
		SuccessCount:     b.successCount,
		LastFailureTS:    b.lastFailureTS,
		Threshold:        b.threshold,
		RecoveryTimeoutS: b.recoveryTimeout.Seconds(),
	}
}

// breakerRegistry hands out one breaker per key (typically
// "<model>#<fallback-slot>"), creating it lazily with shared defaults.
type breakerRegistry struct {
	mu        sync.Mutex
	breakers  map[string]*breaker
	threshold int
	recovery  time.Duration
}

func newBreakerRegistry(threshold int, recovery time.Duration) *breakerRegistry {
	return &breakerRegistry{
		breakers:  make(map[string]*breaker),
		threshold: threshold,
		recovery:  recovery,
	}
}

func (r *breakerRegistry) get(key string) *breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[key]
	if !ok {
		b = newBreaker(r.threshold, r.recovery)
		r.breakers[key] = b
	}
	return b
}
