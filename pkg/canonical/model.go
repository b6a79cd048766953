// Package canonical defines the provider-neutral message, tool, and result
// types that flow through the execution engine. Every adapter translates to
// and from these shapes; nothing outside this package should leak a
// provider's native wire format.
package canonical

import (
	"encoding/json"
	"strings"
	"time"
)

// Role identifies the author of a Turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Attachment is an image or file attached to a user or tool turn.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"` // image, audio, video, document
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"data,omitempty"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// ToolCall is the assistant's request to invoke a tool with the given
// arguments. Extras carries provider round-trip state (Gemini's
// thought_signature, Bedrock's opaque reasoning content) that must be
// echoed back verbatim on the next turn but is otherwise opaque to the
// engine.
type ToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input"`
	Extras map[string]any  `json:"extras,omitempty"`
}

// ToolResult carries the output of a tool invocation back to the model.
type ToolResult struct {
	ToolCallID string       `json:"tool_call_id"`
	Content    string       `json:"content"`
	IsError    bool         `json:"is_error,omitempty"`
	Artifacts  []Artifact   `json:"artifacts,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Artifact is a file or media byproduct of a tool execution.
type Artifact struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Turn is one entry in the owned, append-only conversation history passed
// to a provider on every call. Exactly one of Content/ToolCalls/ToolResults
// is meaningful depending on Role.
type Turn struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CacheHint   bool         `json:"cache_hint,omitempty"`
}

// ToolSpec describes a tool the model is allowed to call.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"json_schema_for_arguments"`

	// StopAtCall, when true, tells the execution loop to treat invoking this
	// tool as a terminal action: the tool's result becomes the run's final
	// answer instead of being fed back to the model for another turn.
	StopAtCall bool `json:"stop_at_call,omitempty"`
}

// Sampling groups the generation parameters that are orthogonal to the
// message list.
type Sampling struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	MaxTokens        int      `json:"max_tokens,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	EnableThinking   bool     `json:"enable_thinking,omitempty"`
	ThinkingBudget   int      `json:"thinking_budget_tokens,omitempty"`
}

// Execution groups the engine-level knobs for a single request: how many
// retries the loop is allowed to spend, and how long the whole run may run.
type Execution struct {
	MaxRetries  int           `json:"max_retries,omitempty"`
	MaxToolHops int           `json:"max_tool_hops,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// Request is the canonical, provider-neutral chat-completion request.
type Request struct {
	Model     string     `json:"model"`
	Messages  []Turn     `json:"messages"`
	Tools     []ToolSpec `json:"tools,omitempty"`
	Sampling  Sampling   `json:"sampling"`
	Stream    bool       `json:"stream"`
	Execution Execution  `json:"execution"`
}

// FinishReason canonicalizes why a provider stopped generating.
type FinishReason string

const (
	FinishStop         FinishReason = "stop"
	FinishLength       FinishReason = "length"
	FinishToolCalls    FinishReason = "tool_calls"
	FinishContent      FinishReason = "content_filter"
	FinishGuardrail    FinishReason = "guardrail"
	FinishStopSequence FinishReason = "stop_sequence"
	FinishError        FinishReason = "error"

	// finishOtherPrefix tags a provider-reported stop reason the engine does
	// not otherwise recognize; the raw value follows the colon, e.g.
	// "other:max_turns". Use NewFinishOther/FinishReason.Raw to build/read it.
	finishOtherPrefix = "other:"
)

// NewFinishOther wraps a provider-specific stop reason the engine has no
// canonical bucket for, preserving the raw value for diagnostics.
func NewFinishOther(raw string) FinishReason {
	return FinishReason(finishOtherPrefix + raw)
}

// IsOther reports whether r is an Other(raw) finish reason.
func (r FinishReason) IsOther() bool {
	return strings.HasPrefix(string(r), finishOtherPrefix)
}

// Raw returns the provider-reported value wrapped by an Other finish reason,
// or r itself if it is not an Other.
func (r FinishReason) Raw() string {
	if r.IsOther() {
		return string(r)[len(finishOtherPrefix):]
	}
	return string(r)
}

// turnResultKind discriminates the tagged TurnResult union.
type turnResultKind int

const (
	kindFinish turnResultKind = iota
	kindNeedsTools
	kindFatalError
)

// TurnResult is the tagged result of driving one or more provider calls.
// It is exactly one of Finish, NeedsTools, or FatalError; use the Is*
// accessors rather than inspecting fields directly, since unused fields on
// the non-matching variants are not meaningful.
type TurnResult struct {
	kind turnResultKind

	// Finish fields
	Text         string
	FinishReason FinishReason
	Usage        Usage

	// NeedsTools fields
	PendingCalls []ToolCall

	// FatalError fields
	Err error
}

// Finish builds a terminal, successful TurnResult.
func Finish(text string, reason FinishReason, usage Usage) TurnResult {
	return TurnResult{kind: kindFinish, Text: text, FinishReason: reason, Usage: usage}
}

// NeedsTools builds a TurnResult that pauses the run pending tool execution.
func NeedsTools(calls []ToolCall, usage Usage) TurnResult {
	return TurnResult{kind: kindNeedsTools, PendingCalls: calls, Usage: usage}
}

// FatalErrorResult builds a terminal, failed TurnResult.
func FatalErrorResult(err error) TurnResult {
	return TurnResult{kind: kindFatalError, Err: err}
}

func (r TurnResult) IsFinish() bool     { return r.kind == kindFinish }
func (r TurnResult) IsNeedsTools() bool { return r.kind == kindNeedsTools }
func (r TurnResult) IsFatalError() bool { return r.kind == kindFatalError }
