package config

import "time"

// ToolsConfig configures the tool registry and execution loop.
type ToolsConfig struct {
	Execution ToolExecutionConfig `yaml:"execution"`
}

// ToolExecutionConfig controls runtime tool execution behavior.
type ToolExecutionConfig struct {
	// MaxIterations bounds how many turns the execution loop will take
	// before it gives up on a conversation that keeps requesting tools.
	MaxIterations int `yaml:"max_iterations"`

	// Parallelism caps how many tool calls from a single turn run at once.
	Parallelism int `yaml:"parallelism"`

	// Timeout bounds a single tool call.
	Timeout time.Duration `yaml:"timeout"`

	// MaxAttempts is the retry budget for a retryable tool error.
	MaxAttempts int `yaml:"max_attempts"`

	// RetryBackoff is the base delay between tool retry attempts.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// MaxToolCalls bounds the total tool calls across a conversation, 0 = unbounded.
	MaxToolCalls int `yaml:"max_tool_calls"`
}

func applyToolsDefaults(cfg *ToolsConfig) {
	if cfg == nil {
		return
	}
	if cfg.Execution.MaxIterations == 0 {
		cfg.Execution.MaxIterations = 25
	}
	if cfg.Execution.Parallelism == 0 {
		cfg.Execution.Parallelism = 4
	}
	if cfg.Execution.Timeout == 0 {
		cfg.Execution.Timeout = 30 * time.Second
	}
	if cfg.Execution.MaxAttempts == 0 {
		cfg.Execution.MaxAttempts = 3
	}
	if cfg.Execution.RetryBackoff == 0 {
		cfg.Execution.RetryBackoff = 500 * time.Millisecond
	}
}
