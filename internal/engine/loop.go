package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ngpt-dev/relay/internal/backoff"
	"github.com/ngpt-dev/relay/internal/observability"
	"github.com/ngpt-dev/relay/pkg/canonical"
	"github.com/ngpt-dev/relay/pkg/models"
)

const (
	// processBufferSize is the channel buffer depth for a run's ResponseChunk stream.
	processBufferSize = 64

	// MaxResponseTextSize caps the accumulated text per streamed turn, guarding
	// against a misbehaving provider streaming unbounded output.
	MaxResponseTextSize = 10 << 20

	// MaxToolCallsPerIteration caps tool calls requested in a single turn.
	MaxToolCallsPerIteration = 64
)

func toolEventStarted(tc canonical.ToolCall) *models.ToolEvent {
	return &models.ToolEvent{
		ToolCallID: tc.ID,
		ToolName:   tc.Name,
		Stage:      models.ToolEventStarted,
		Input:      tc.Input,
		StartedAt:  time.Now(),
	}
}

func toolEventFinished(tc canonical.ToolCall, result canonical.ToolResult) *models.ToolEvent {
	stage := models.ToolEventSucceeded
	var errMsg string
	if result.IsError {
		stage = models.ToolEventFailed
		errMsg = result.Content
	}
	return &models.ToolEvent{
		ToolCallID: tc.ID,
		ToolName:   tc.Name,
		Stage:      stage,
		Input:      tc.Input,
		Output:     result.Content,
		Error:      errMsg,
		FinishedAt: time.Now(),
	}
}

// LoopConfig configures the execution loop behavior including iteration
// limits, token budgets, and tool execution settings.
type LoopConfig struct {
	// MaxIterations caps the number of provider round trips (stream, then
	// tool dispatch) within a single run, independent of the canonical
	// request's Execution.MaxToolHops.
	// Default: 10
	MaxIterations int

	// MaxTokens is the default max tokens for LLM responses when the
	// request's Sampling.MaxTokens is unset.
	// Default: 4096
	MaxTokens int

	// MaxToolCalls limits the total tool calls across a run (0 = unlimited)
	MaxToolCalls int

	// MaxWallTime limits total run duration (0 = no limit)
	MaxWallTime time.Duration

	// ExecutorConfig configures the parallel tool executor
	ExecutorConfig *ExecutorConfig

	// EnableBackpressure enables concurrency limiting on tool execution
	// Default: true
	EnableBackpressure bool

	// StreamToolResults streams tool results as they complete
	// Default: true
	StreamToolResults bool

	// DisableToolEvents disables streaming ToolEvent chunks
	DisableToolEvents bool

	// RetryBackoff governs the delay between retried provider calls,
	// grounded on Execution.MaxRetries per request.
	RetryBackoff backoff.BackoffPolicy
}

// DefaultLoopConfig returns the default loop configuration.
func DefaultLoopConfig() *LoopConfig {
	return &LoopConfig{
		MaxIterations:      10,
		MaxTokens:          4096,
		MaxToolCalls:       0,
		MaxWallTime:        0,
		ExecutorConfig:     DefaultExecutorConfig(),
		EnableBackpressure: true,
		StreamToolResults:  true,
		RetryBackoff: backoff.BackoffPolicy{
			InitialMs: 250,
			MaxMs:     5000,
			Factor:    2,
			Jitter:    0.2,
		},
	}
}

func sanitizeLoopConfig(config *LoopConfig) *LoopConfig {
	if config == nil {
		return DefaultLoopConfig()
	}
	cfg := *config
	defaults := DefaultLoopConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaults.MaxIterations
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.ExecutorConfig == nil {
		cfg.ExecutorConfig = defaults.ExecutorConfig
	}
	if cfg.MaxToolCalls < 0 {
		cfg.MaxToolCalls = 0
	}
	if cfg.MaxWallTime < 0 {
		cfg.MaxWallTime = 0
	}
	if cfg.RetryBackoff.InitialMs <= 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	return &cfg
}

// AgenticLoop implements the C6 execution loop: build a provider request from
// canonical messages, stream a response, and either finish or dispatch tool
// calls and go around again.
//
// The loop operates as a state machine:
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                                                              │
//	│   ┌─────────┐     ┌──────────┐     ┌───────────────────┐   │
//	│   │  Init   │────▶│  Stream  │────▶│  Execute Tools    │   │
//	│   └─────────┘     └──────────┘     └───────────────────┘   │
//	│                          │                    │             │
//	│                          ▼                    │             │
//	│                   ┌──────────┐                │             │
//	│                   │ Complete │◀───────────────┘             │
//	│                   └──────────┘     (no tools, stop-at-call, │
//	│                                      or max iter)            │
//	│                   ┌──────────┐                               │
//	│                   │ Continue │◀───────────────┐              │
//	│                   └──────────┘     (has tool results)       │
//	│                          │                                   │
//	│                          └───────────▶ Stream                │
//	│                                                              │
//	└──────────────────────────────────────────────────────────────┘
type AgenticLoop struct {
	provider LLMProvider
	executor *Executor
	config   *LoopConfig

	defaultModel  string
	defaultSystem string

	metrics *observability.Metrics

	// eventSink receives the run's AgentEvent stream alongside the built-in
	// ChunkAdapterSink. Nil unless SetEventSink is called.
	eventSink EventSink
}

// NewAgenticLoop creates a new execution loop with the given provider and
// tool registry. If config is nil, DefaultLoopConfig is used.
func NewAgenticLoop(provider LLMProvider, registry *ToolRegistry, config *LoopConfig) *AgenticLoop {
	config = sanitizeLoopConfig(config)
	if registry == nil {
		registry = NewToolRegistry()
	}

	executor := NewExecutor(registry, config.ExecutorConfig)
	if !config.EnableBackpressure {
		executor.sem = nil
	}

	return &AgenticLoop{
		provider: provider,
		executor: executor,
		config:   config,
	}
}

// SetDefaultModel sets the default model used when a request does not specify one.
func (l *AgenticLoop) SetDefaultModel(model string) {
	l.defaultModel = model
}

// SetDefaultSystem sets the default system prompt used when a request carries no system turn.
func (l *AgenticLoop) SetDefaultSystem(system string) {
	l.defaultSystem = system
}

// SetMetrics attaches a metrics recorder. Nil-safe: when unset, the loop
// simply doesn't record Prometheus metrics or diagnostic events.
func (l *AgenticLoop) SetMetrics(metrics *observability.Metrics) {
	l.metrics = metrics
}

// SetEventSink attaches an additional EventSink that receives every run's
// AgentEvent stream, fanned out alongside the loop's own ChunkAdapterSink.
// Use this to bridge runs onto a websocket, audit log, or other out-of-band
// consumer without disturbing the ResponseChunk stream callers already read.
func (l *AgenticLoop) SetEventSink(sink EventSink) {
	l.eventSink = sink
}

// ConfigureTool sets per-tool configuration overrides for timeout, retry, and priority.
func (l *AgenticLoop) ConfigureTool(name string, config *ToolConfig) {
	l.executor.ConfigureTool(name, config)
}

// ExecutorMetrics returns a snapshot of the underlying tool executor's metrics.
func (l *AgenticLoop) ExecutorMetrics() *ExecutorMetricsSnapshot {
	return l.executor.Metrics()
}

// LoopState tracks the current state of an execution run: phase, iteration
// count, the running provider-facing message history, and pending tool work.
type LoopState struct {
	Phase           LoopPhase
	Iteration       int
	TotalToolCalls  int
	Messages        []CompletionMessage
	PendingTools    []canonical.ToolCall
	AccumulatedText string
	Usage           canonical.Usage
}

// Run drives req through the execution loop and streams results through a
// channel. The channel is closed when the run completes; the final chunk
// before closing carries the run's canonical.TurnResult.
func (l *AgenticLoop) Run(ctx context.Context, req *canonical.Request) (<-chan *ResponseChunk, error) {
	if l.provider == nil {
		return nil, ErrNoProvider
	}
	if l.config == nil {
		return nil, errors.New("loop config is nil")
	}
	if req == nil {
		return nil, errors.New("request is nil")
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if l.config.MaxWallTime > 0 {
		runCtx, cancel = context.WithTimeout(ctx, l.config.MaxWallTime)
	} else if req.Execution.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Execution.Timeout)
	}

	chunks := make(chan *ResponseChunk, processBufferSize)

	var sink EventSink = NewChunkAdapterSink(chunks)
	if l.eventSink != nil {
		sink = NewMultiSink(sink, l.eventSink)
	}
	emitter := NewEventEmitter(uuid.NewString(), sink)

	if l.metrics != nil {
		l.metrics.TurnStarted(l.provider.Name())
	}
	if observability.IsDiagnosticsEnabled() {
		observability.EmitRequestReceived(&observability.RequestReceivedEvent{Provider: l.provider.Name(), Model: req.Model})
	}
	runStart := time.Now()

	go func() {
		defer close(chunks)
		if cancel != nil {
			defer cancel()
		}
		defer func() {
			if l.metrics != nil {
				l.metrics.TurnEnded(l.provider.Name(), time.Since(runStart).Seconds())
			}
		}()

		emitter.RunStarted(runCtx)

		emitOutcome := func(success bool, errMsg string) {
			if !observability.IsDiagnosticsEnabled() {
				return
			}
			if success {
				observability.EmitRequestCompleted(&observability.RequestCompletedEvent{
					Provider:   l.provider.Name(),
					Model:      req.Model,
					DurationMs: time.Since(runStart).Milliseconds(),
				})
			} else {
				observability.EmitRequestError(&observability.RequestErrorEvent{
					Provider: l.provider.Name(),
					Model:    req.Model,
					Error:    errMsg,
				})
			}
		}

		state := &LoopState{
			Phase:     PhaseInit,
			Messages:  turnsToMessages(req.Messages),
			Iteration: 0,
		}

		maxHops := req.Execution.MaxToolHops
		if maxHops <= 0 {
			maxHops = l.config.MaxIterations
		}
		if maxHops > l.config.MaxIterations {
			maxHops = l.config.MaxIterations
		}

		for state.Iteration < maxHops {
			emitter.SetIter(state.Iteration)
			select {
			case <-runCtx.Done():
				emitOutcome(false, runCtx.Err().Error())
				emitter.RunCancelled(runCtx)
				result := canonical.FatalErrorResult(canonical.NewEngineError(canonical.ErrCanceled, l.provider.Name(), req.Model, runCtx.Err()))
				chunks <- &ResponseChunk{Error: runCtx.Err(), Result: &result}
				return
			default:
			}

			emitter.IterStarted(runCtx)

			state.Phase = PhaseStream
			toolCalls, finishReason, err := l.streamPhase(runCtx, req, state, chunks)
			if err != nil {
				emitOutcome(false, err.Error())
				loopErr := &LoopError{Phase: PhaseStream, Iteration: state.Iteration, Cause: err}
				emitter.RunError(runCtx, loopErr, isRetryableEngineError(err))
				result := canonical.FatalErrorResult(loopErr)
				chunks <- &ResponseChunk{Error: loopErr, Result: &result}
				return
			}
			emitter.ModelCompleted(runCtx, l.provider.Name(), req.Model, state.Usage.InputTokens, state.Usage.OutputTokens)

			if l.config.MaxToolCalls > 0 && state.TotalToolCalls+len(toolCalls) > l.config.MaxToolCalls {
				cause := fmt.Errorf("tool calls exceed maximum of %d for run", l.config.MaxToolCalls)
				emitOutcome(false, cause.Error())
				loopErr := &LoopError{Phase: PhaseExecuteTools, Iteration: state.Iteration, Cause: cause}
				emitter.RunError(runCtx, loopErr, false)
				result := canonical.FatalErrorResult(canonical.NewEngineError(canonical.ErrProviderValidation, l.provider.Name(), req.Model, loopErr))
				chunks <- &ResponseChunk{Error: loopErr, Result: &result}
				return
			}
			state.TotalToolCalls += len(toolCalls)

			if len(toolCalls) == 0 {
				l.addAssistantMessage(state, nil)
				reason := finishReason
				if reason == "" {
					reason = canonical.FinishStop
				}
				emitOutcome(true, "")
				emitter.IterFinished(runCtx)
				emitter.RunFinished(runCtx, nil)
				result := canonical.Finish(state.AccumulatedText, reason, state.Usage)
				chunks <- &ResponseChunk{Result: &result}
				return
			}

			if stopTool, ok := l.stopAtCallTool(toolCalls); ok {
				emitter.ToolStarted(runCtx, stopTool.ID, stopTool.Name, stopTool.Input)
				toolStart := time.Now()
				res, _ := l.executor.registry.Execute(runCtx, stopTool.Name, stopTool.Input)
				if res == nil {
					res = &canonical.ToolResult{ToolCallID: stopTool.ID, Content: "tool execution failed", IsError: true}
				}
				emitter.ToolFinished(runCtx, stopTool.ID, stopTool.Name, !res.IsError, []byte(res.Content), time.Since(toolStart))
				if l.config.StreamToolResults {
					chunks <- &ResponseChunk{ToolResult: res}
				}
				text := res.Content
				reason := canonical.FinishToolCalls
				if res.IsError {
					reason = canonical.FinishError
				}
				emitOutcome(!res.IsError, res.Content)
				emitter.IterFinished(runCtx)
				emitter.RunFinished(runCtx, nil)
				result := canonical.Finish(text, reason, state.Usage)
				chunks <- &ResponseChunk{Result: &result}
				return
			}

			state.Phase = PhaseExecuteTools
			state.PendingTools = toolCalls

			toolResults, err := l.executeToolsPhase(runCtx, state, chunks)
			if err != nil {
				emitOutcome(false, err.Error())
				loopErr := &LoopError{Phase: PhaseExecuteTools, Iteration: state.Iteration, Cause: err}
				emitter.RunError(runCtx, loopErr, isRetryableEngineError(err))
				result := canonical.FatalErrorResult(loopErr)
				chunks <- &ResponseChunk{Error: loopErr, Result: &result}
				return
			}

			state.Phase = PhaseContinue
			l.continuePhase(state, toolCalls, toolResults)
			emitter.IterFinished(runCtx)

			state.Iteration++
		}

		emitOutcome(false, ErrMaxIterations.Error())
		loopErr := &LoopError{Phase: PhaseComplete, Iteration: state.Iteration, Cause: ErrMaxIterations}
		emitter.RunError(runCtx, loopErr, true)
		result := canonical.FatalErrorResult(canonical.NewEngineError(canonical.ErrFinishFatal, l.provider.Name(), req.Model, loopErr))
		chunks <- &ResponseChunk{Error: loopErr, Result: &result}
	}()

	return chunks, nil
}

// stopAtCallTool returns the first pending tool call whose registered tool is
// marked StopAtCall, if any.
func (l *AgenticLoop) stopAtCallTool(calls []canonical.ToolCall) (canonical.ToolCall, bool) {
	for _, tc := range calls {
		if tool, ok := l.executor.registry.Get(tc.Name); ok && tool.StopAtCall() {
			return tc, true
		}
	}
	return canonical.ToolCall{}, false
}

// turnsToMessages converts the canonical conversation history into the
// provider-facing intermediate representation.
func turnsToMessages(turns []canonical.Turn) []CompletionMessage {
	messages := make([]CompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, CompletionMessage{
			Role:        string(t.Role),
			Content:     t.Content,
			ToolCalls:   t.ToolCalls,
			ToolResults: t.ToolResults,
			Attachments: t.Attachments,
		})
	}
	return messages
}

// streamPhase calls the provider and collects text and tool calls from the
// stream, retrying up to req.Execution.MaxRetries on a retryable EngineError.
func (l *AgenticLoop) streamPhase(ctx context.Context, req *canonical.Request, state *LoopState, chunks chan<- *ResponseChunk) ([]canonical.ToolCall, canonical.FinishReason, error) {
	tools := l.executor.registry.AsLLMTools()

	model := req.Model
	if model == "" {
		model = l.defaultModel
	}
	system := l.defaultSystem
	for _, t := range req.Messages {
		if t.Role == canonical.RoleSystem && t.Content != "" {
			system = t.Content
		}
	}

	maxTokens := req.Sampling.MaxTokens
	if maxTokens <= 0 {
		maxTokens = l.config.MaxTokens
	}

	ccReq := &CompletionRequest{
		Model:                model,
		System:               system,
		Messages:             state.Messages,
		Tools:                tools,
		MaxTokens:            maxTokens,
		EnableThinking:       req.Sampling.EnableThinking,
		ThinkingBudgetTokens: req.Sampling.ThinkingBudget,
	}

	maxRetries := req.Execution.MaxRetries

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		start := time.Now()
		toolCalls, usage, finishReason, err := l.streamOnce(ctx, ccReq, state, chunks)
		duration := time.Since(start).Seconds()

		if err == nil {
			state.Usage.Add(usage)
			if l.metrics != nil {
				l.metrics.RecordLLMRequest(l.provider.Name(), model, "success", duration, usage.InputTokens, usage.OutputTokens)
				if attempt > 0 {
					l.metrics.RecordRetryAttempt("success")
				}
			}
			return toolCalls, finishReason, nil
		}

		lastErr = err
		var engErr *canonical.EngineError
		if l.metrics != nil {
			l.metrics.RecordLLMRequest(l.provider.Name(), model, "error", duration, 0, 0)
			errKind := "unknown"
			if errors.As(err, &engErr) {
				errKind = string(engErr.Kind)
			}
			l.metrics.RecordError("provider", errKind)
		}

		if !errors.As(err, &engErr) || !engErr.Retryable() || attempt >= maxRetries {
			break
		}
		if l.metrics != nil {
			l.metrics.RecordRetryAttempt("retry")
		}
		if sleepErr := backoff.SleepWithBackoff(ctx, l.config.RetryBackoff, attempt+1); sleepErr != nil {
			lastErr = canonical.NewEngineError(canonical.ErrCanceled, l.provider.Name(), model, sleepErr)
			break
		}
	}

	return nil, "", lastErr
}

// streamOnce performs a single provider call and drains its chunk stream.
func (l *AgenticLoop) streamOnce(ctx context.Context, req *CompletionRequest, state *LoopState, chunks chan<- *ResponseChunk) ([]canonical.ToolCall, canonical.Usage, canonical.FinishReason, error) {
	completion, err := l.provider.Complete(ctx, req)
	if err != nil {
		return nil, canonical.Usage{}, "", wrapProviderError(l.provider.Name(), req.Model, err)
	}

	var toolCalls []canonical.ToolCall
	var textBuilder strings.Builder
	var usage canonical.Usage
	var finishReason canonical.FinishReason

	for chunk := range completion {
		if chunk.Error != nil {
			return nil, canonical.Usage{}, "", wrapProviderError(l.provider.Name(), req.Model, chunk.Error)
		}

		if chunk.ThinkingStart {
			chunks <- &ResponseChunk{ThinkingStart: true}
		}
		if chunk.Thinking != "" {
			chunks <- &ResponseChunk{Thinking: chunk.Thinking}
		}
		if chunk.ThinkingEnd {
			chunks <- &ResponseChunk{ThinkingEnd: true}
		}

		if chunk.Text != "" {
			if textBuilder.Len()+len(chunk.Text) > MaxResponseTextSize {
				return nil, canonical.Usage{}, "", fmt.Errorf("response text exceeds maximum size of %d bytes", MaxResponseTextSize)
			}
			textBuilder.WriteString(chunk.Text)
			chunks <- &ResponseChunk{Text: chunk.Text}
		}

		if chunk.ToolCall != nil {
			if len(toolCalls) >= MaxToolCallsPerIteration {
				return nil, canonical.Usage{}, "", fmt.Errorf("tool calls exceed maximum of %d per iteration", MaxToolCallsPerIteration)
			}
			toolCalls = append(toolCalls, *chunk.ToolCall)
		}

		if chunk.Done {
			usage = chunk.Usage
			finishReason = chunk.FinishReason
		}
	}

	usage.Finalize()
	state.AccumulatedText = textBuilder.String()

	// Per the max-tokens handling rule: Length with no text is fatal;
	// Length with text is a normal Finish carrying the Length reason.
	// ContentFilter and Guardrail are always fatal, per the FinishFatal
	// error taxonomy, regardless of any partial text produced.
	switch finishReason {
	case canonical.FinishLength:
		if textBuilder.Len() == 0 && len(toolCalls) == 0 {
			return nil, usage, finishReason, canonical.NewEngineError(canonical.ErrFinishFatal, l.provider.Name(), req.Model, ErrMaxTokensNoContent)
		}
	case canonical.FinishContent:
		return nil, usage, finishReason, canonical.NewEngineError(canonical.ErrFinishFatal, l.provider.Name(), req.Model, fmt.Errorf("content filter triggered"))
	case canonical.FinishGuardrail:
		return nil, usage, finishReason, canonical.NewEngineError(canonical.ErrFinishFatal, l.provider.Name(), req.Model, fmt.Errorf("guardrail intervened"))
	}

	return toolCalls, usage, finishReason, nil
}

// wrapProviderError classifies a raw provider error into an EngineError if it
// isn't one already.
func wrapProviderError(provider, model string, err error) error {
	var engErr *canonical.EngineError
	if errors.As(err, &engErr) {
		return engErr
	}
	return canonical.NewEngineError(canonical.ErrProviderTransport, provider, model, err)
}

// executeToolsPhase executes pending tool calls in parallel via the executor.
func (l *AgenticLoop) executeToolsPhase(ctx context.Context, state *LoopState, chunks chan<- *ResponseChunk) ([]canonical.ToolResult, error) {
	if len(state.PendingTools) == 0 {
		return nil, nil
	}

	if !l.config.DisableToolEvents {
		for _, tc := range state.PendingTools {
			chunks <- &ResponseChunk{ToolEvent: toolEventStarted(tc)}
		}
	}

	execResults := l.executor.ExecuteAll(ctx, state.PendingTools)
	results := make([]canonical.ToolResult, len(state.PendingTools))
	artifactsByIdx := make([][]canonical.Artifact, len(state.PendingTools))

	for i, r := range execResults {
		tc := state.PendingTools[i]
		status := "success"
		duration := 0.0
		switch {
		case r == nil:
			results[i] = canonical.ToolResult{ToolCallID: tc.ID, Content: "tool execution failed", IsError: true}
			status = "error"
		case r.Error != nil:
			if engErr, ok := AsToolNotFoundError(r.Error); ok {
				return nil, engErr
			}
			results[i] = canonical.ToolResult{ToolCallID: r.ToolCallID, Content: r.Error.Error(), IsError: true}
			status = "error"
			duration = r.Duration.Seconds()
		case r.Result != nil:
			results[i] = canonical.ToolResult{
				ToolCallID: r.ToolCallID,
				Content:    r.Result.Content,
				IsError:    r.Result.IsError,
				Artifacts:  r.Result.Artifacts,
			}
			artifactsByIdx[i] = r.Result.Artifacts
			if r.Result.IsError {
				status = "error"
			}
			duration = r.Duration.Seconds()
		default:
			results[i] = canonical.ToolResult{ToolCallID: tc.ID, Content: "tool returned no result", IsError: true}
			status = "error"
		}

		if l.metrics != nil {
			l.metrics.RecordToolExecution(tc.Name, status, duration)
			if status == "error" {
				l.metrics.RecordError("tool", tc.Name)
			}
		}
		if observability.IsDiagnosticsEnabled() {
			outcome := "completed"
			if status == "error" {
				outcome = "error"
			}
			observability.EmitToolCallProcessed(&observability.ToolCallProcessedEvent{
				ToolName:   tc.Name,
				ToolCallID: tc.ID,
				DurationMs: int64(duration * 1000),
				Outcome:    outcome,
			})
		}

		if !l.config.DisableToolEvents {
			chunks <- &ResponseChunk{ToolEvent: toolEventFinished(tc, results[i])}
		}
	}

	if l.config.StreamToolResults {
		for i := range results {
			chunks <- &ResponseChunk{ToolResult: &results[i], Artifacts: artifactsByIdx[i]}
		}
	}

	return results, nil
}

// continuePhase appends the assistant's tool-call turn and the tool-result
// turn to the running message history.
func (l *AgenticLoop) continuePhase(state *LoopState, toolCalls []canonical.ToolCall, toolResults []canonical.ToolResult) {
	l.addAssistantMessage(state, toolCalls)

	state.Messages = append(state.Messages, CompletionMessage{
		Role:        "tool",
		ToolResults: toolResults,
	})

	state.AccumulatedText = ""
	state.PendingTools = nil
}

func (l *AgenticLoop) addAssistantMessage(state *LoopState, toolCalls []canonical.ToolCall) {
	state.Messages = append(state.Messages, CompletionMessage{
		Role:      "assistant",
		Content:   state.AccumulatedText,
		ToolCalls: toolCalls,
	})
}
