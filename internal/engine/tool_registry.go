package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ngpt-dev/relay/pkg/canonical"
)

// ToolRegistry manages available tools with thread-safe registration and lookup.
// Tools are registered by name and can be retrieved for execution during a run.
type ToolRegistry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	compiled map[string]*jsonschema.Schema
}

// NewToolRegistry creates a new empty tool registry ready for tool registration.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:    make(map[string]Tool),
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool to the registry by its name and compiles its declared
// Schema() so Execute can reject malformed arguments before they reach the
// tool body. A tool whose schema fails to compile is still registered, just
// without argument validation; Schema() documents are caller-authored, not
// registry-authored, so a bad one must not make the tool unusable.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	delete(r.compiled, tool.Name())

	if schema := tool.Schema(); len(schema) > 0 {
		if compiled, err := jsonschema.CompileString(tool.Name(), string(schema)); err == nil {
			r.compiled[tool.Name()] = compiled
		}
	}
}

// Unregister removes a tool from the registry by name.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.compiled, name)
}

// Get returns a tool by name and a boolean indicating if it was found.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Tool parameter limits to prevent resource exhaustion
const (
	// MaxToolNameLength is the maximum length of a tool name.
	MaxToolNameLength = 256

	// MaxToolParamsSize is the maximum size of tool parameters JSON (10MB).
	MaxToolParamsSize = 10 << 20
)

// Execute runs a tool by name with the given JSON parameters.
// Returns an error result if the tool is not found or parameters are invalid.
func (r *ToolRegistry) Execute(ctx context.Context, name string, params json.RawMessage) (*canonical.ToolResult, error) {
	if len(name) > MaxToolNameLength {
		return &canonical.ToolResult{
			Content: fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength),
			IsError: true,
		}, nil
	}

	if len(params) > MaxToolParamsSize {
		return &canonical.ToolResult{
			Content: fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxToolParamsSize),
			IsError: true,
		}, nil
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	compiled := r.compiled[name]
	r.mu.RUnlock()
	if !ok {
		// A missing tool is a terminal engine error, not a recoverable tool
		// failure: the model asked for a capability the registry never
		// advertised, so there is nothing to feed back for a retry.
		return nil, canonical.NewEngineError(canonical.ErrToolNotFound, "", "", fmt.Errorf("tool not found: %s", name))
	}

	if compiled != nil {
		var payload any
		if len(params) == 0 {
			payload = map[string]any{}
		} else if err := json.Unmarshal(params, &payload); err != nil {
			return &canonical.ToolResult{Content: fmt.Sprintf("invalid tool arguments: %v", err), IsError: true}, nil
		}
		if err := compiled.Validate(payload); err != nil {
			return &canonical.ToolResult{Content: fmt.Sprintf("tool arguments failed schema validation: %v", err), IsError: true}, nil
		}
	}

	return tool.Execute(ctx, params)
}

// AsLLMTools returns all registered tools as a slice for passing to LLM providers.
func (r *ToolRegistry) AsLLMTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	return tools
}

// AsToolSpecs returns all registered tools as canonical ToolSpecs, as consumed
// by canonical.Request.Tools before provider-specific schema adaptation.
func (r *ToolRegistry) AsToolSpecs() []canonical.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]canonical.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, canonical.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
			StopAtCall:  t.StopAtCall(),
		})
	}
	return specs
}
