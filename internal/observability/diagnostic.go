// Package observability provides diagnostic event types and emission.
//
// Diagnostic events are a lightweight, low-overhead pub-sub channel for
// operational health signals (request lifecycle, dispatch queue depth,
// stuck turns). They're distinct from the Event/Timeline system in
// events.go, which records a full per-run debug trail; diagnostics are
// meant for a heartbeat/ops dashboard, not replay.
package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// DiagnosticTurnState represents the state of an execution-loop turn.
type DiagnosticTurnState string

const (
	TurnStateIdle       DiagnosticTurnState = "idle"
	TurnStateProcessing DiagnosticTurnState = "processing"
	TurnStateWaiting    DiagnosticTurnState = "waiting"
)

// DiagnosticEventType identifies the type of diagnostic event.
type DiagnosticEventType string

const (
	EventTypeModelUsage          DiagnosticEventType = "model.usage"
	EventTypeRequestReceived     DiagnosticEventType = "request.received"
	EventTypeRequestCompleted    DiagnosticEventType = "request.completed"
	EventTypeRequestError        DiagnosticEventType = "request.error"
	EventTypeToolCallQueued      DiagnosticEventType = "tool_call.queued"
	EventTypeToolCallProcessed   DiagnosticEventType = "tool_call.processed"
	EventTypeTurnState           DiagnosticEventType = "turn.state"
	EventTypeTurnStuck           DiagnosticEventType = "turn.stuck"
	EventTypeLaneEnqueue         DiagnosticEventType = "queue.lane.enqueue"
	EventTypeLaneDequeue         DiagnosticEventType = "queue.lane.dequeue"
	EventTypeRunAttempt          DiagnosticEventType = "run.attempt"
	EventTypeDiagnosticHeartbeat DiagnosticEventType = "diagnostic.heartbeat"
)

// DiagnosticEvent is the base event structure.
type DiagnosticEvent struct {
	Type DiagnosticEventType `json:"type"`
	Seq  int64               `json:"seq"`
	Ts   int64               `json:"ts"`
}

// ModelUsageEvent tracks token usage for a model request.
type ModelUsageEvent struct {
	DiagnosticEvent
	TurnKey    string          `json:"turn_key,omitempty"`
	TurnID     string          `json:"turn_id,omitempty"`
	Provider   string          `json:"provider,omitempty"`
	Model      string          `json:"model,omitempty"`
	Usage      UsageDetails    `json:"usage"`
	Context    *ContextDetails `json:"context,omitempty"`
	CostUSD    float64         `json:"cost_usd,omitempty"`
	DurationMs int64           `json:"duration_ms,omitempty"`
}

// UsageDetails contains token usage breakdown.
type UsageDetails struct {
	Input        int64 `json:"input,omitempty"`
	Output       int64 `json:"output,omitempty"`
	CacheRead    int64 `json:"cache_read,omitempty"`
	CacheWrite   int64 `json:"cache_write,omitempty"`
	PromptTokens int64 `json:"prompt_tokens,omitempty"`
	Total        int64 `json:"total,omitempty"`
}

// ContextDetails contains context window information.
type ContextDetails struct {
	Limit int64 `json:"limit,omitempty"`
	Used  int64 `json:"used,omitempty"`
}

// RequestReceivedEvent tracks an incoming request to the engine.
type RequestReceivedEvent struct {
	DiagnosticEvent
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// RequestCompletedEvent tracks a completed request.
type RequestCompletedEvent struct {
	DiagnosticEvent
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// RequestErrorEvent tracks a failed request.
type RequestErrorEvent struct {
	DiagnosticEvent
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Error    string `json:"error"`
}

// ToolCallQueuedEvent tracks a tool call queued for dispatch.
type ToolCallQueuedEvent struct {
	DiagnosticEvent
	TurnKey    string `json:"turn_key,omitempty"`
	TurnID     string `json:"turn_id,omitempty"`
	ToolName   string `json:"tool_name"`
	QueueDepth int    `json:"queue_depth,omitempty"`
}

// ToolCallProcessedEvent tracks a dispatched tool call.
type ToolCallProcessedEvent struct {
	DiagnosticEvent
	ToolName   string `json:"tool_name"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	TurnKey    string `json:"turn_key,omitempty"`
	TurnID     string `json:"turn_id,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Outcome    string `json:"outcome"` // "completed", "skipped", "error"
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TurnStateEvent tracks turn state changes.
type TurnStateEvent struct {
	DiagnosticEvent
	TurnKey    string              `json:"turn_key,omitempty"`
	TurnID     string              `json:"turn_id,omitempty"`
	PrevState  DiagnosticTurnState `json:"prev_state,omitempty"`
	State      DiagnosticTurnState `json:"state"`
	Reason     string              `json:"reason,omitempty"`
	QueueDepth int                 `json:"queue_depth,omitempty"`
}

// TurnStuckEvent tracks turns that have stalled past the expected deadline.
type TurnStuckEvent struct {
	DiagnosticEvent
	TurnKey    string              `json:"turn_key,omitempty"`
	TurnID     string              `json:"turn_id,omitempty"`
	State      DiagnosticTurnState `json:"state"`
	AgeMs      int64               `json:"age_ms"`
	QueueDepth int                 `json:"queue_depth,omitempty"`
}

// LaneEnqueueEvent tracks tool-dispatch queue lane enqueues.
type LaneEnqueueEvent struct {
	DiagnosticEvent
	Lane      string `json:"lane"`
	QueueSize int    `json:"queue_size"`
}

// LaneDequeueEvent tracks tool-dispatch queue lane dequeues.
type LaneDequeueEvent struct {
	DiagnosticEvent
	Lane      string `json:"lane"`
	QueueSize int    `json:"queue_size"`
	WaitMs    int64  `json:"wait_ms"`
}

// RunAttemptEvent tracks retry attempts against a provider.
type RunAttemptEvent struct {
	DiagnosticEvent
	TurnKey string `json:"turn_key,omitempty"`
	TurnID  string `json:"turn_id,omitempty"`
	RunID   string `json:"run_id"`
	Attempt int    `json:"attempt"`
}

// DiagnosticHeartbeatEvent is emitted periodically with aggregate counters.
type DiagnosticHeartbeatEvent struct {
	DiagnosticEvent
	Requests RequestStats `json:"requests"`
	Active   int          `json:"active"`
	Waiting  int          `json:"waiting"`
	Queued   int          `json:"queued"`
}

// RequestStats contains request lifecycle counters.
type RequestStats struct {
	Received  int64 `json:"received"`
	Completed int64 `json:"completed"`
	Errors    int64 `json:"errors"`
}

// DiagnosticEventPayload is a union type for all diagnostic events.
type DiagnosticEventPayload interface {
	EventType() DiagnosticEventType
	Sequence() int64
	Timestamp() int64
}

// Implement DiagnosticEventPayload for all event types
func (e *DiagnosticEvent) EventType() DiagnosticEventType { return e.Type }
func (e *DiagnosticEvent) Sequence() int64                { return e.Seq }
func (e *DiagnosticEvent) Timestamp() int64               { return e.Ts }

// DiagnosticListener receives diagnostic events.
type DiagnosticListener func(event DiagnosticEventPayload)

// DiagnosticEmitter manages diagnostic event emission.
type DiagnosticEmitter struct {
	mu        sync.RWMutex
	seq       int64
	enabled   bool
	listeners []DiagnosticListener
}

var globalEmitter = &DiagnosticEmitter{}

// SetDiagnosticsEnabled enables or disables diagnostic events.
func SetDiagnosticsEnabled(enabled bool) {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	globalEmitter.enabled = enabled
}

// IsDiagnosticsEnabled returns whether diagnostics are enabled.
func IsDiagnosticsEnabled() bool {
	globalEmitter.mu.RLock()
	defer globalEmitter.mu.RUnlock()
	return globalEmitter.enabled
}

// OnDiagnosticEvent registers a listener for diagnostic events.
func OnDiagnosticEvent(listener DiagnosticListener) func() {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	globalEmitter.listeners = append(globalEmitter.listeners, listener)

	// Return unsubscribe function
	return func() {
		globalEmitter.mu.Lock()
		defer globalEmitter.mu.Unlock()
		for i, l := range globalEmitter.listeners {
			// Compare function pointers (this is a simplification)
			if &l == &listener {
				globalEmitter.listeners = append(globalEmitter.listeners[:i], globalEmitter.listeners[i+1:]...)
				break
			}
		}
	}
}

// nextSeq returns the next sequence number.
func nextSeq() int64 {
	return atomic.AddInt64(&globalEmitter.seq, 1)
}

// emit sends an event to all listeners.
func emit(event DiagnosticEventPayload) {
	globalEmitter.mu.RLock()
	if !globalEmitter.enabled {
		globalEmitter.mu.RUnlock()
		return
	}
	listeners := make([]DiagnosticListener, len(globalEmitter.listeners))
	copy(listeners, globalEmitter.listeners)
	globalEmitter.mu.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					_ = recovered
				}
			}() // Ignore listener panics
			listener(event)
		}()
	}
}

// EmitModelUsage emits a model usage event.
func EmitModelUsage(e *ModelUsageEvent) {
	e.Type = EventTypeModelUsage
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitRequestReceived emits a request received event.
func EmitRequestReceived(e *RequestReceivedEvent) {
	e.Type = EventTypeRequestReceived
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitRequestCompleted emits a request completed event.
func EmitRequestCompleted(e *RequestCompletedEvent) {
	e.Type = EventTypeRequestCompleted
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitRequestError emits a request error event.
func EmitRequestError(e *RequestErrorEvent) {
	e.Type = EventTypeRequestError
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitToolCallQueued emits a tool call queued event.
func EmitToolCallQueued(e *ToolCallQueuedEvent) {
	e.Type = EventTypeToolCallQueued
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitToolCallProcessed emits a tool call processed event.
func EmitToolCallProcessed(e *ToolCallProcessedEvent) {
	e.Type = EventTypeToolCallProcessed
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitTurnState emits a turn state event.
func EmitTurnState(e *TurnStateEvent) {
	e.Type = EventTypeTurnState
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitTurnStuck emits a turn stuck event.
func EmitTurnStuck(e *TurnStuckEvent) {
	e.Type = EventTypeTurnStuck
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitLaneEnqueue emits a lane enqueue event.
func EmitLaneEnqueue(e *LaneEnqueueEvent) {
	e.Type = EventTypeLaneEnqueue
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitLaneDequeue emits a lane dequeue event.
func EmitLaneDequeue(e *LaneDequeueEvent) {
	e.Type = EventTypeLaneDequeue
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitRunAttempt emits a run attempt event.
func EmitRunAttempt(e *RunAttemptEvent) {
	e.Type = EventTypeRunAttempt
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitDiagnosticHeartbeat emits a diagnostic heartbeat event.
func EmitDiagnosticHeartbeat(e *DiagnosticHeartbeatEvent) {
	e.Type = EventTypeDiagnosticHeartbeat
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// ResetDiagnosticsForTest resets diagnostic state for testing.
func ResetDiagnosticsForTest() {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	atomic.StoreInt64(&globalEmitter.seq, 0)
	globalEmitter.listeners = nil
}
