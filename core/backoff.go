package core

import (
	"math"
	"math/rand"
	"time"
)

// BackoffWithJitter computes min(base*factor^attempt, max) plus a uniform
// perturbation of up to ±10% of that delay, the one retry-delay formula
// every resilience layer in this module shares — agent.ResilientAgent's
// fallback-chain retries and providers.BaseClient's HTTP retries both call
// this rather than each carrying its own backoff math, so a request
// retried at the same attempt number from two different call sites never
// waits in lockstep (the thundering-herd case jitter exists to avoid).
// jitter may be nil, in which case the global math/rand source draws the
// perturbation; callers needing deterministic tests supply their own.
func BackoffWithJitter(attempt int, base, max time.Duration, factor float64, jitter func() float64) time.Duration {
	if jitter == nil {
		jitter = func() float64 { return rand.Float64()*2 - 1 }
	}
	if factor <= 1 {
		factor = 2.0
	}

	delay := float64(base) * math.Pow(factor, float64(attempt))
	if m := float64(max); max > 0 && delay > m {
		delay = m
	}
	delay += jitter() * delay * 0.1
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
