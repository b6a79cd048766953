package schema

import (
	"strings"

	"github.com/ngpt-dev/relay/internal/engine"
	"google.golang.org/genai"
)

// geminiAdaptOptions is the C8 transformation set Gemini's dialect requires:
// $defs must be inlined (Gemini has no $ref support), additionalProperties
// is rejected outright, nullable unions must become a "nullable" field, and
// an empty object parameter schema crashes the call unless coerced to a
// plain string.
var geminiAdaptOptions = AdaptOptions{
	InlineDefs:                true,
	StripAdditionalProperties: true,
	NormalizeNullable:         true,
	CoerceEmptyObjectParams:   true,
}

// ToGeminiTools converts internal tool definitions to Gemini Tool format.
func ToGeminiTools(tools []engine.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		schemaMap, err := Adapt(tool.Schema(), geminiAdaptOptions)
		if err != nil {
			// Cyclic or otherwise unadaptable schema: skip this tool rather
			// than send Gemini a schema it would reject anyway.
			continue
		}

		schema := ToGeminiSchema(schemaMap)
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  schema,
		})
	}

	if len(declarations) == 0 {
		return nil
	}

	return []*genai.Tool{
		{
			FunctionDeclarations: declarations,
		},
	}
}

// ToGeminiSchema converts a JSON Schema map to Gemini's Schema type.
func ToGeminiSchema(schemaMap map[string]any) *genai.Schema {
	if schemaMap == nil {
		return nil
	}

	schema := &genai.Schema{}

	if t, ok := schemaMap["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}

	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}

	if enum, ok := schemaMap["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}

	if props, ok := schemaMap["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = ToGeminiSchema(propMap)
			}
		}
	}

	if required, ok := schemaMap["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	if items, ok := schemaMap["items"].(map[string]any); ok {
		schema.Items = ToGeminiSchema(items)
	}

	if nullable, ok := schemaMap["nullable"].(bool); ok && nullable {
		schema.Nullable = boolPtr(true)
	}

	return schema
}

func boolPtr(b bool) *bool { return &b }
