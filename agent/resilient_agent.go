// Package agent implements the Resilient Agent: the one place every
// provider call flows through, composing the security pre-check, a
// fallback chain of (model, adapter) pairs, per-slot circuit breakers,
// retry-with-backoff, cost ledger charging, and event emission into a
// single Invoke call.
package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/brightloom/orchestra/core"
	"github.com/brightloom/orchestra/ledger"
	"github.com/brightloom/orchestra/observability"
)

// FallbackSlot is one entry in an agent's fallback chain: a model id and
// the AIClient adapter that serves it.
type FallbackSlot struct {
	ModelID string
	Client  core.AIClient
}

// Config wires a ResilientAgent's fallback chain and its resilience
// knobs. MaxRetries/backoff apply per fallback slot: when a slot's retries
// are exhausted, the chain advances to the next slot and the retry budget
// restarts there.
type Config struct {
	AgentID      string
	Fallbacks    []FallbackSlot
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	BackoffBase  float64 // exponential base; delay = min(InitialDelay*BackoffBase^n, MaxDelay) ± 10% jitter

	BreakerThreshold       int
	BreakerRecoveryTimeout time.Duration

	// SecurityPatterns are regexes checked against the outgoing prompt
	// (system + user messages); a match rejects the call before any
	// provider is invoked.
	SecurityPatterns []string

	Ledger *ledger.Ledger
	Logger core.Logger

	DefaultMaxTokens   int
	DefaultTemperature float32
	DefaultSystemPrompt string
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.BackoffBase <= 1 {
		c.BackoffBase = 2.0
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerRecoveryTimeout <= 0 {
		c.BreakerRecoveryTimeout = 30 * time.Second
	}
	if c.DefaultMaxTokens <= 0 {
		c.DefaultMaxTokens = 1024
	}
	if c.Logger == nil {
		c.Logger = &core.NoOpLogger{}
	}
	return c
}

// Result is what Invoke always returns, even on total failure — callers
// branch on Success rather than on a non-nil error, since "every fallback
// exhausted" is an expected, recordable outcome rather than a programming
// error.
type Result struct {
	Content      string
	ModelUsed    string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	AttemptIndex int
	LatencyMS    int64
	Success      bool
	ErrorKind    core.ErrorKind
	Err          error
}

// ResilientAgent is one configured fallback chain plus its per-slot
// breaker registry.
type ResilientAgent struct {
	cfg      Config
	breakers *breakerRegistry
	security []*regexp.Regexp

	// jitter returns a uniform perturbation in [-1, 1), overridable in
	// tests so the same attempt number can be asserted to differ across
	// calls. Defaults to the global rand source (safe for concurrent
	// Invoke calls on the same agent; the teacher's own examples call
	// rand.Float64 directly rather than carrying a *rand.Rand around).
	jitter func() float64
}

// New builds a ResilientAgent from cfg, compiling its security patterns.
func New(cfg Config) (*ResilientAgent, error) {
	cfg = cfg.withDefaults()
	a := &ResilientAgent{
		cfg:      cfg,
		breakers: newBreakerRegistry(cfg.BreakerThreshold, cfg.BreakerRecoveryTimeout),
		jitter:   func() float64 { return rand.Float64()*2 - 1 },
	}
	for _, pattern := range cfg.SecurityPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("agent: invalid security pattern %q: %w", pattern, err)
		}
		a.security = append(a.security, re)
	}
	return a, nil
}

// Invoke runs the security pre-check, then walks the fallback chain,
// retrying each slot per its breaker and backoff policy, recording cost
// and emitting events on trace as it goes. trace may be nil, in which case
// no events are emitted.
func (a *ResilientAgent) Invoke(ctx context.Context, trace *observability.Trace, messages []core.Message, systemOverride string, temperature float32, maxTokens int) *Result {
	start := time.Now()

	system := systemOverride
	if system == "" {
		system = a.cfg.DefaultSystemPrompt
	}
	if maxTokens <= 0 {
		maxTokens = a.cfg.DefaultMaxTokens
	}

	if rejected := a.securityReject(system, messages); rejected != "" {
		res := &Result{
			Success:   false,
			ErrorKind: core.ErrorKindSecurityRejected,
			Err:       fmt.Errorf("agent: prompt matched security pattern %q: %w", rejected, core.ErrSecurityRejected),
			LatencyMS: time.Since(start).Milliseconds(),
		}
		a.emit(trace, observability.EventAgentFailed, observability.SeverityError, res)
		return res
	}

	if a.cfg.Ledger != nil && a.cfg.Ledger.IsExceeded(a.cfg.AgentID) {
		res := &Result{
			Success:   false,
			ErrorKind: core.ErrorKindBudgetExceeded,
			Err:       core.ErrBudgetExceeded,
			LatencyMS: time.Since(start).Milliseconds(),
		}
		a.emit(trace, observability.EventBudgetExceeded, observability.SeverityError, res)
		return res
	}

	var lastErr error
	var lastKind core.ErrorKind
	attempt := 0

	for slotIdx, slot := range a.cfg.Fallbacks {
		key := fmt.Sprintf("%s#%d#%s", a.cfg.AgentID, slotIdx, slot.ModelID)
		b := a.breakers.get(key)

		if !b.Allow() {
			lastErr = fmt.Errorf("agent: breaker open for model %s: %w", slot.ModelID, core.ErrCircuitBreakerOpen)
			lastKind = core.ErrorKindCircuitOpen
			continue
		}

		for r := 0; r < a.cfg.MaxRetries; r++ {
			attempt++
			inv, err := slot.Client.Invoke(ctx, slot.ModelID, messages, system, maxTokens, temperature)
			if err == nil {
				b.RecordSuccess()
				cost := a.charge(slot.ModelID, inv)
				res := &Result{
					Content:      inv.Content,
					ModelUsed:    slot.ModelID,
					InputTokens:  inv.InputTokens,
					OutputTokens: inv.OutputTokens,
					CostUSD:      cost,
					AttemptIndex: attempt,
					LatencyMS:    time.Since(start).Milliseconds(),
					Success:      true,
				}
				a.emit(trace, observability.EventAgentInvoked, observability.SeverityInfo, res)
				if trace != nil {
					trace.EmitCost(a.cfg.AgentID, cost)
				}
				return res
			}

			kind := classifyErrorKind(err)
			lastErr, lastKind = err, kind
			b.RecordFailure()

			if !retryableKind(kind) {
				break // don't retry this slot; fall through to next fallback
			}
			if r == a.cfg.MaxRetries-1 {
				break // exhausted retries on this slot
			}

			select {
			case <-ctx.Done():
				res := &Result{Success: false, ErrorKind: core.ErrorKindTimeout, Err: ctx.Err(), AttemptIndex: attempt, LatencyMS: time.Since(start).Milliseconds()}
				a.emit(trace, observability.EventAgentFailed, observability.SeverityError, res)
				return res
			case <-time.After(a.backoffDelay(r)):
			}
		}
	}

	res := &Result{
		Success:      false,
		ErrorKind:    lastKind,
		Err:          lastErr,
		AttemptIndex: attempt,
		LatencyMS:    time.Since(start).Milliseconds(),
	}
	a.emit(trace, observability.EventAgentFailed, observability.SeverityError, res)
	return res
}

func (a *ResilientAgent) charge(modelID string, inv *core.InvocationResult) float64 {
	if a.cfg.Ledger == nil {
		return 0
	}
	rec, err := a.cfg.Ledger.Charge(a.cfg.AgentID, modelID, inv.InputTokens, inv.OutputTokens)
	if err != nil {
		return 0
	}
	return rec.CostUSD
}

func (a *ResilientAgent) emit(trace *observability.Trace, typ observability.EventType, sev observability.Severity, res *Result) {
	if trace == nil {
		return
	}
	data := map[string]interface{}{
		"attempt_index": res.AttemptIndex,
		"model_used":    res.ModelUsed,
	}
	msg := "agent invocation succeeded"
	if !res.Success {
		msg = "agent invocation failed"
		if res.Err != nil {
			data["error"] = res.Err.Error()
		}
	}
	trace.Emit(typ, a.cfg.AgentID, sev, msg, data)
}

// securityReject returns the first security pattern that matched the
// system prompt or any message content, or "" if none matched.
func (a *ResilientAgent) securityReject(system string, messages []core.Message) string {
	for _, re := range a.security {
		if re.MatchString(system) {
			return re.String()
		}
		for _, m := range messages {
			if re.MatchString(m.Content) {
				return re.String()
			}
		}
	}
	return ""
}

// backoffDelay computes min(base·backoffBase^attempt, max) ± 10% uniform
// jitter via core.BackoffWithJitter — the same formula
// providers.BaseClient.ExecuteWithRetry uses for its own HTTP retries, so
// there is one retry-delay policy in the codebase rather than two
// independently-tuned ones. Grounded on agent_system.py's
// ExponentialBackoff.get_delay: the jitter term is a fresh random draw per
// call, not a function of attempt alone, so concurrent retries at the same
// attempt number don't all wake up in lockstep (the thundering-herd case
// jitter exists to avoid).
func (a *ResilientAgent) backoffDelay(attempt int) time.Duration {
	return core.BackoffWithJitter(attempt, a.cfg.InitialDelay, a.cfg.MaxDelay, a.cfg.BackoffBase, a.jitter)
}

func retryableKind(kind core.ErrorKind) bool {
	switch kind {
	case core.ErrorKindRateLimit, core.ErrorKindTimeout, core.ErrorKindConnection, core.ErrorKindServerError:
		return true
	default:
		return false
	}
}

// classifyErrorKind maps a provider error back to an ErrorKind by testing
// against the shared sentinels, mirroring core.ClassifyHTTPStatus's table
// in the opposite direction.
func classifyErrorKind(err error) core.ErrorKind {
	switch {
	case errors.Is(err, core.ErrRateLimited):
		return core.ErrorKindRateLimit
	case errors.Is(err, core.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return core.ErrorKindTimeout
	case errors.Is(err, core.ErrConnectionFailed):
		return core.ErrorKindConnection
	case errors.Is(err, core.ErrAuthFailed):
		return core.ErrorKindAuth
	case errors.Is(err, core.ErrInvalidRequest):
		return core.ErrorKindInvalidRequest
	case errors.Is(err, core.ErrServerError):
		return core.ErrorKindServerError
	default:
		return core.ErrorKindOther
	}
}
