package ledger

import (
	"sync"
	"time"

	"github.com/brightloom/orchestra/core"
)

// window accumulates cost for one budget window (a day or an hour,
// depending on core.BudgetConfig.WindowDuration), keyed to the wall-clock
// instant it opened. It rolls over automatically once WindowDuration has
// elapsed since openedAt, clearing totals and re-arming both thresholds.
type window struct {
	openedAt  time.Time
	totalUSD  float64
	warnFired bool
}

// Record is one priced invocation, returned by Ledger.Charge for callers
// that want to log or emit an event alongside the charge.
type Record struct {
	AgentID      string
	ModelID      string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	KnownModel   bool
}

// Ledger prices AIClient invocations against a PriceTable and accumulates
// cost per agent id within rolling budget windows, enforcing a warn
// threshold and a hard cap per spec. All state is protected by a single
// mutex: cost accounting is a small, infrequent, process-wide critical
// section, not a per-agent hot path worth sharding.
type Ledger struct {
	mu         sync.Mutex
	prices     *PriceTable
	cfg        core.BudgetConfig
	logger     core.Logger
	windows    map[string]*window // keyed by agent id
	warnedNew  map[string]bool    // unknown model ids already warned about
	now        func() time.Time
}

// New builds a Ledger backed by prices, enforcing cfg's thresholds. A nil
// logger is replaced with a no-op logger.
func New(prices *PriceTable, cfg core.BudgetConfig, logger core.Logger) *Ledger {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if prices == nil {
		prices = NewPriceTable()
	}
	return &Ledger{
		prices:    prices,
		cfg:       cfg,
		logger:    logger,
		windows:   make(map[string]*window),
		warnedNew: make(map[string]bool),
		now:       time.Now,
	}
}

// Charge prices one invocation for agentID and folds it into that agent's
// current budget window. It returns core.ErrBudgetExceeded (error_kind
// budget_exceeded) without recording the charge if the agent's window has
// already crossed the hard cap — the caller (the Resilient Agent) must
// treat this as a fail-fast signal and skip the provider call entirely.
func (l *Ledger) Charge(agentID, modelID string, inputTokens, outputTokens int) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windowFor(agentID)

	if l.cfg.HardCapUSD > 0 && w.totalUSD >= l.cfg.HardCapUSD {
		return Record{}, core.ErrBudgetExceeded
	}

	_, known := l.prices.Lookup(modelID)
	if !known && !l.warnedNew[modelID] {
		l.warnedNew[modelID] = true
		l.logger.Warn("ledger: unknown model id, charging zero cost", map[string]interface{}{
			"model_id": modelID,
		})
	}

	cost := l.prices.Cost(modelID, inputTokens, outputTokens)
	w.totalUSD = microRound(w.totalUSD + cost)

	if l.cfg.WarnThresholdUSD > 0 && !w.warnFired && w.totalUSD >= l.cfg.WarnThresholdUSD {
		w.warnFired = true
		l.logger.Warn("ledger: budget warn threshold crossed", map[string]interface{}{
			"agent_id":  agentID,
			"total_usd": w.totalUSD,
			"threshold": l.cfg.WarnThresholdUSD,
		})
	}

	return Record{
		AgentID:      agentID,
		ModelID:      modelID,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost,
		KnownModel:   known,
	}, nil
}

// TotalUSD returns the current window's accumulated cost for agentID,
// rolling the window over first if it has expired.
func (l *Ledger) TotalUSD(agentID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.windowFor(agentID).totalUSD
}

// IsExceeded reports whether agentID's current window has already crossed
// the hard cap, so a caller can fail fast with budget_exceeded before
// paying for a provider round trip whose cost it already knows it cannot
// afford.
func (l *Ledger) IsExceeded(agentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cfg.HardCapUSD <= 0 {
		return false
	}
	return l.windowFor(agentID).totalUSD >= l.cfg.HardCapUSD
}

// windowFor returns the live window for agentID, rolling it over if
// WindowDuration has elapsed since it opened. Must be called with l.mu held.
func (l *Ledger) windowFor(agentID string) *window {
	w, ok := l.windows[agentID]
	now := l.now()
	if !ok {
		w = &window{openedAt: now}
		l.windows[agentID] = w
		return w
	}
	if l.cfg.WindowDuration > 0 && now.Sub(w.openedAt) >= l.cfg.WindowDuration {
		w.openedAt = now
		w.totalUSD = 0
		w.warnFired = false
	}
	return w
}

// Reset clears all agent windows. Intended for tests; production callers
// rely on the automatic wall-clock rollover in windowFor.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
}
