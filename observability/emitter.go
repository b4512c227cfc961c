package observability

import (
	"sync"
	"time"

	"github.com/brightloom/orchestra/core"
	"github.com/google/uuid"
)

// queueCapacity bounds the number of events waiting to be flushed to sinks.
// Emission must never block agent execution, so once the queue is full the
// oldest non-error event is evicted to make room per the drop policy below.
const queueCapacity = 4096

// Emitter is the process-wide event bus. Construct one with NewEmitter,
// attach Sinks, and derive Traces from it for each workflow execution.
// Traces are cheap, caller-owned values; the Emitter itself holds the only
// shared, lock-protected state (the sink queue).
type Emitter struct {
	sinks  []Sink
	logger core.Logger
	telem  core.Telemetry

	queue        *boundedQueue
	closeOnce    sync.Once
	done         chan struct{}
	flushWG      sync.WaitGroup
	sinkWarnOnce sync.Map // sink index -> bool, one failure log per sink

	now  func() time.Time
	newID func() string
}

// Sink persists or forwards an Event. Implementations must not block for
// long: the flush loop is single-threaded across all sinks.
type Sink interface {
	Write(Event) error
}

// NewEmitter builds an Emitter and starts its background flush loop.
// Call Close to drain the queue and stop the loop.
func NewEmitter(logger core.Logger, telem core.Telemetry, sinks ...Sink) *Emitter {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	e := &Emitter{
		sinks:  sinks,
		logger: logger,
		telem:  telem,
		queue:  newBoundedQueue(queueCapacity),
		done:   make(chan struct{}),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	e.flushWG.Add(1)
	go e.flushLoop()
	return e
}

// AddSink attaches an additional sink. Safe to call after construction;
// not safe to call concurrently with Close.
func (e *Emitter) AddSink(s Sink) {
	e.sinks = append(e.sinks, s)
}

// Close stops the flush loop after draining whatever is currently queued.
func (e *Emitter) Close() {
	e.closeOnce.Do(func() {
		e.queue.Close()
	})
	e.flushWG.Wait()
}

func (e *Emitter) flushLoop() {
	defer e.flushWG.Done()
	for {
		ev, ok := e.queue.Pop()
		if !ok {
			return
		}
		e.writeToSinks(ev)
	}
}

func (e *Emitter) writeToSinks(ev Event) {
	for i, s := range e.sinks {
		if err := s.Write(ev); err != nil {
			if _, warned := e.sinkWarnOnce.LoadOrStore(i, true); !warned {
				e.logger.Error("observability: sink write failed, suppressing further errors from this sink", map[string]interface{}{
					"sink_index": i,
					"error":      err.Error(),
				})
			}
		}
	}
}

// enqueue pushes ev onto the bounded queue, applying the drop policy and
// recording an overflow meta-event each time an event is dropped.
func (e *Emitter) enqueue(ev Event) {
	if dropped := e.queue.Push(ev); dropped {
		e.queue.PushMeta(Event{
			EventID:   e.newID(),
			Timestamp: e.now(),
			Type:      EventQueueOverflow,
			Component: "observability",
			Severity:  SeverityWarn,
			Message:   "event queue full, oldest non-error event dropped",
		})
	}
}

// Trace represents one workflow execution's span stack. It is not safe for
// concurrent use by multiple goroutines simultaneously — a workflow's
// phases execute sequentially or fan out into their own child Traces/Spans
// via StartSpan, matching the orchestrators' own concurrency shape.
type Trace struct {
	e         *Emitter
	traceID   string
	workflow  string
	startedAt time.Time
	stack     []string // span id stack, last is current
}

// StartTrace begins a new trace for workflow, emitting a trace_start event.
func (e *Emitter) StartTrace(workflow string, data map[string]interface{}) *Trace {
	t := &Trace{
		e:         e,
		traceID:   e.newID(),
		workflow:  workflow,
		startedAt: e.now(),
	}
	e.enqueue(Event{
		EventID:   e.newID(),
		Timestamp: t.startedAt,
		Type:      EventTraceStart,
		Component: workflow,
		Severity:  SeverityInfo,
		Message:   "trace started",
		TraceID:   t.traceID,
		Workflow:  workflow,
		Data:      data,
	})
	return t
}

// TraceID returns the trace's identifier, for correlation with cost ledger
// or log lines emitted outside the observability package.
func (t *Trace) TraceID() string { return t.traceID }

// Span is one nested unit of work within a Trace.
type Span struct {
	t         *Trace
	spanID    string
	parentID  string
	name      string
	startedAt time.Time
}

// StartSpan pushes a new span onto the trace's stack, parented to whatever
// span is currently on top (or none, for a root span).
func (t *Trace) StartSpan(name string) *Span {
	var parent string
	if len(t.stack) > 0 {
		parent = t.stack[len(t.stack)-1]
	}
	s := &Span{
		t:         t,
		spanID:    t.e.newID(),
		parentID:  parent,
		name:      name,
		startedAt: t.e.now(),
	}
	t.stack = append(t.stack, s.spanID)
	return s
}

// End pops the span off its trace's stack and emits an event describing
// its outcome.
func (s *Span) End(severity Severity, message string, data map[string]interface{}) {
	if n := len(s.t.stack); n > 0 && s.t.stack[n-1] == s.spanID {
		s.t.stack = s.t.stack[:n-1]
	}
	durMS := s.t.e.now().Sub(s.startedAt).Milliseconds()
	s.t.e.enqueue(Event{
		EventID:      s.t.e.newID(),
		Timestamp:    s.t.e.now(),
		Type:         EventPhaseComplete,
		Component:    s.name,
		Severity:     severity,
		Message:      message,
		TraceID:      s.t.traceID,
		SpanID:       s.spanID,
		ParentSpanID: s.parentID,
		Workflow:     s.t.workflow,
		DurationMS:   &durMS,
		Data:         data,
	})
}

// Emit records a standalone event within the trace, attached to whatever
// span is currently active (if any).
func (t *Trace) Emit(typ EventType, component string, severity Severity, message string, data map[string]interface{}) {
	var span, parent string
	if n := len(t.stack); n > 0 {
		span = t.stack[n-1]
	}
	t.e.enqueue(Event{
		EventID:      t.e.newID(),
		Timestamp:    t.e.now(),
		Type:         typ,
		Component:    component,
		Severity:     severity,
		Message:      message,
		TraceID:      t.traceID,
		SpanID:       span,
		ParentSpanID: parent,
		Workflow:     t.workflow,
		Data:         data,
	})
}

// EmitCost records an agent invocation's cost against the trace, for
// correlation between the observability stream and the cost ledger.
func (t *Trace) EmitCost(component string, costUSD float64) {
	t.e.enqueue(Event{
		EventID:   t.e.newID(),
		Timestamp: t.e.now(),
		Type:      EventAgentInvoked,
		Component: component,
		Severity:  SeverityInfo,
		Message:   "invocation cost recorded",
		TraceID:   t.traceID,
		Workflow:  t.workflow,
		CostUSD:   &costUSD,
	})
}

// End closes the trace, emitting a trace_end event carrying the final
// quality score (if any) and total duration.
func (t *Trace) End(success bool, qualityScore *int, data map[string]interface{}) {
	sev := SeverityInfo
	msg := "trace completed"
	if !success {
		sev = SeverityError
		msg = "trace failed"
	}
	durMS := t.e.now().Sub(t.startedAt).Milliseconds()
	t.e.enqueue(Event{
		EventID:      t.e.newID(),
		Timestamp:    t.e.now(),
		Type:         EventTraceEnd,
		Component:    t.workflow,
		Severity:     sev,
		Message:      msg,
		TraceID:      t.traceID,
		Workflow:     t.workflow,
		QualityScore: qualityScore,
		DurationMS:   &durMS,
		Data:         data,
	})
}
