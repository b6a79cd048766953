package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ngpt-dev/relay/pkg/canonical"
)

func TestToolRegistry_Execute_UnknownToolIsFatal(t *testing.T) {
	registry := NewToolRegistry()

	result, err := registry.Execute(context.Background(), "does_not_exist", json.RawMessage(`{}`))
	if result != nil {
		t.Fatalf("expected nil result, got %+v", result)
	}

	var engErr *canonical.EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("expected a canonical.EngineError, got %v", err)
	}
	if engErr.Kind != canonical.ErrToolNotFound {
		t.Errorf("kind = %q, want %q", engErr.Kind, canonical.ErrToolNotFound)
	}
	if engErr.Retryable() {
		t.Error("tool_not_found must not be retryable")
	}
}

func TestToolRegistry_Execute_ValidatesArgsAgainstSchema(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&mockTool{
		name: "lookup",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string"}
			},
			"required": ["query"],
			"additionalProperties": false
		}`),
	})

	result, err := registry.Execute(context.Background(), "lookup", json.RawMessage(`{"limit": 10}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatalf("expected an error ToolResult for args missing the required field, got %+v", result)
	}
}

func TestToolRegistry_Execute_AllowsValidArgs(t *testing.T) {
	registry := NewToolRegistry()
	tool := &mockTool{
		name: "lookup",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string"}
			},
			"required": ["query"]
		}`),
	}
	registry.Register(tool)

	result, err := registry.Execute(context.Background(), "lookup", json.RawMessage(`{"query": "weather"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.IsError {
		t.Fatalf("expected a successful ToolResult, got %+v", result)
	}
	if tool.execCount.Load() != 1 {
		t.Errorf("execCount = %d, want 1", tool.execCount.Load())
	}
}

func TestToolRegistry_Execute_SkipsValidationWithoutSchema(t *testing.T) {
	registry := NewToolRegistry()
	tool := &mockTool{name: "noop"}
	registry.Register(tool)

	result, err := registry.Execute(context.Background(), "noop", json.RawMessage(`{"anything": true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.IsError {
		t.Fatalf("expected a successful ToolResult, got %+v", result)
	}
}

func TestToolRegistry_Unregister_ClearsCompiledSchema(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&mockTool{
		name:   "lookup",
		schema: json.RawMessage(`{"type": "object", "required": ["query"]}`),
	})
	registry.Unregister("lookup")

	_, err := registry.Execute(context.Background(), "lookup", json.RawMessage(`{}`))
	var engErr *canonical.EngineError
	if !errors.As(err, &engErr) || engErr.Kind != canonical.ErrToolNotFound {
		t.Fatalf("expected ErrToolNotFound after Unregister, got %v", err)
	}
}
