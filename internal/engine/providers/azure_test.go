package providers

import (
	"errors"
	"testing"

	"github.com/ngpt-dev/relay/internal/engine"
	"github.com/ngpt-dev/relay/pkg/canonical"
	openai "github.com/sashabaranov/go-openai"
)

func TestNewAzureOpenAIProviderValidation(t *testing.T) {
	if _, err := NewAzureOpenAIProvider(AzureOpenAIConfig{APIKey: "k"}); err == nil {
		t.Error("expected error for missing endpoint")
	}
	if _, err := NewAzureOpenAIProvider(AzureOpenAIConfig{Endpoint: "https://x.openai.azure.com"}); err == nil {
		t.Error("expected error for missing API key")
	}

	p, err := NewAzureOpenAIProvider(AzureOpenAIConfig{
		Endpoint: "https://x.openai.azure.com",
		APIKey:   "k",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.apiVersion != "2024-02-15-preview" {
		t.Errorf("apiVersion default = %q", p.apiVersion)
	}
	if p.maxRetries != 3 {
		t.Errorf("maxRetries default = %d, want 3", p.maxRetries)
	}
	if p.Name() != "azure" {
		t.Errorf("Name() = %q, want azure", p.Name())
	}
	if !p.SupportsTools() {
		t.Error("expected SupportsTools() = true")
	}
}

func TestAzureConvertMessages(t *testing.T) {
	p := &AzureOpenAIProvider{}

	messages := []engine.CompletionMessage{
		{Role: "user", Content: "hi"},
		{
			Role: "assistant",
			ToolCalls: []canonical.ToolCall{
				{ID: "t1", Name: "get_time", Input: []byte(`{}`)},
			},
		},
		{
			Role: "tool",
			ToolResults: []canonical.ToolResult{
				{ToolCallID: "t1", Content: "12:00"},
			},
		},
	}

	got, err := p.convertMessages(messages, "be helpful")
	if err != nil {
		t.Fatalf("convertMessages: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 messages (system + 3), got %d", len(got))
	}
	if got[0].Role != openai.ChatMessageRoleSystem || got[0].Content != "be helpful" {
		t.Errorf("expected leading system message, got %+v", got[0])
	}
	if got[2].Role != openai.ChatMessageRoleAssistant || len(got[2].ToolCalls) != 1 {
		t.Errorf("expected assistant message with tool call, got %+v", got[2])
	}
	if got[3].Role != openai.ChatMessageRoleTool || got[3].ToolCallID != "t1" {
		t.Errorf("expected tool result message, got %+v", got[3])
	}
}

func TestAzureConvertMessagesWithImageAttachment(t *testing.T) {
	p := &AzureOpenAIProvider{}
	messages := []engine.CompletionMessage{
		{
			Role:    "user",
			Content: "what is this?",
			Attachments: []canonical.Attachment{
				{Type: "image", URL: "https://example.com/a.png"},
			},
		},
	}

	got, err := p.convertMessages(messages, "")
	if err != nil {
		t.Fatalf("convertMessages: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if len(got[0].MultiContent) != 2 {
		t.Fatalf("expected 2 content parts (text + image), got %d", len(got[0].MultiContent))
	}
	if got[0].MultiContent[1].Type != openai.ChatMessagePartTypeImageURL {
		t.Errorf("expected second part to be image url, got %v", got[0].MultiContent[1].Type)
	}
}

func TestAzureIsRetryableError(t *testing.T) {
	p := &AzureOpenAIProvider{}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limit", err: errors.New("rate limit exceeded"), want: true},
		{name: "503", err: errors.New("upstream 503"), want: true},
		{name: "throttled", err: errors.New("request was throttled"), want: true},
		{name: "bad request", err: errors.New("invalid parameter"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAzureWrapError(t *testing.T) {
	p := &AzureOpenAIProvider{}

	if err := p.wrapError(nil, "gpt-4o"); err != nil {
		t.Errorf("wrapError(nil) = %v, want nil", err)
	}

	wrapped := p.wrapError(errors.New("boom"), "gpt-4o")
	if !IsProviderError(wrapped) {
		t.Error("expected wrapped error to be a ProviderError")
	}
}
