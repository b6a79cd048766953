package providers

import (
	"context"
	"time"

	"github.com/ngpt-dev/relay/pkg/canonical"
)

// MapFinishReason canonicalizes a provider's raw stop/finish reason per the
// shared semantics in the execution engine: stop/end_turn/stop_sequence map
// to Stop (stop_sequence is kept distinct so callers can tell the two
// apart), max_tokens/length to Length, tool_use/tool_calls to ToolCalls,
// content_filter to ContentFilter, and guardrail_intervened to Guardrail.
// Anything else is preserved as an Other(raw) value.
func MapFinishReason(raw string) canonical.FinishReason {
	switch raw {
	case "stop", "end_turn":
		return canonical.FinishStop
	case "stop_sequence":
		return canonical.FinishStopSequence
	case "max_tokens", "length":
		return canonical.FinishLength
	case "tool_use", "tool_calls", "function_call":
		return canonical.FinishToolCalls
	case "content_filter":
		return canonical.FinishContent
	case "guardrail_intervened":
		return canonical.FinishGuardrail
	case "":
		return canonical.FinishStop
	default:
		return canonical.NewFinishOther(raw)
	}
}

// BaseProvider holds shared retry configuration for LLM providers.
type BaseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

// NewBaseProvider creates a base provider with sane defaults.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return BaseProvider{
		name:       name,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Retry executes op with linear backoff if isRetryable returns true.
func (b *BaseProvider) Retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	return b.RetryWithBackoff(ctx, isRetryable, op, func(attempt int) time.Duration {
		return b.retryDelay * time.Duration(attempt)
	})
}

// RetryWithBackoff executes op, retrying on errors isRetryable accepts and
// sleeping for backoff(attempt) between attempts (attempt is 1-based).
func (b *BaseProvider) RetryWithBackoff(ctx context.Context, isRetryable func(error) bool, op func() error, backoff func(attempt int) time.Duration) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
			if isRetryable == nil || !isRetryable(err) {
				return err
			}
			if attempt >= b.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}
	}
	return lastErr
}
