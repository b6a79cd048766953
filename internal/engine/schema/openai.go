package schema

import (
	"github.com/ngpt-dev/relay/internal/engine"
	openai "github.com/sashabaranov/go-openai"
)

// openAIAdaptOptions is the C8 transformation set OpenAI's strict
// function-calling mode requires: $defs are inlined (OpenAI supports local
// $ref but inlining keeps one code path across dialects) and a missing
// "required" array is defaulted to empty, since OpenAI's strict validator
// rejects an absent key outright.
var openAIAdaptOptions = AdaptOptions{
	InlineDefs:          true,
	RequireArrayDefault: true,
}

// ToOpenAITools converts internal tool definitions to OpenAI function schema.
func ToOpenAITools(tools []engine.Tool) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		schemaMap, err := Adapt(tool.Schema(), openAIAdaptOptions)
		if err != nil {
			schemaMap = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []any{},
			}
		}

		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  schemaMap,
			},
		}
	}
	return result
}
