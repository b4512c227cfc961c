// Package observability implements the Event Emitter: structured
// trace/span events describing agent invocations, orchestrator phases,
// and ledger/breaker state changes, written to JSONL sinks. Events are not
// mirrored onto an OpenTelemetry backend.
package observability

import "time"

// EventType names the kind of occurrence an Event records. New component
// packages should add their own constants here rather than emitting raw
// strings, so sinks and tests can match on a closed set.
type EventType string

const (
	EventTraceStart     EventType = "trace_start"
	EventTraceEnd       EventType = "trace_end"
	EventAgentInvoked   EventType = "agent_invoked"
	EventAgentFailed    EventType = "agent_failed"
	EventBudgetWarn     EventType = "budget_warn"
	EventBudgetExceeded EventType = "budget_exceeded"
	EventBreakerOpened  EventType = "breaker_opened"
	EventBreakerClosed  EventType = "breaker_closed"
	EventPhaseComplete  EventType = "phase_complete"
	EventValidation     EventType = "validation_result"
	EventQueueOverflow  EventType = "queue_overflow"
	EventQualityThresholdPassed EventType = "quality_threshold_passed"
	EventModelFallback          EventType = "model_fallback"
	EventWorkflowFailed         EventType = "workflow_failed"
)

// Severity is the log-level-like classification of an Event.
type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event is one structured record in the observability stream. Optional
// fields are left at their zero value when not applicable; sinks omit
// zero-valued optional fields from their JSON encoding.
type Event struct {
	EventID      string                 `json:"event_id"`
	Timestamp    time.Time              `json:"timestamp"`
	Type         EventType              `json:"type"`
	Component    string                 `json:"component"`
	Severity     Severity               `json:"severity"`
	Message      string                 `json:"message"`
	TraceID      string                 `json:"trace_id,omitempty"`
	SpanID       string                 `json:"span_id,omitempty"`
	ParentSpanID string                 `json:"parent_span_id,omitempty"`
	Workflow     string                 `json:"workflow,omitempty"`
	CostUSD      *float64               `json:"cost_usd,omitempty"`
	QualityScore *int                   `json:"quality_score,omitempty"`
	DurationMS   *int64                 `json:"duration_ms,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Stack        string                 `json:"stack,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
}
