package schema

import (
	"encoding/json"
	"fmt"

	"github.com/ngpt-dev/relay/pkg/canonical"
)

// Adapt applies the C8 schema transformations that a target provider
// dialect requires, starting from a caller-supplied JSON Schema document.
// Unknown keys are returned unmarshal'd so the per-provider schema builders
// (ToOpenAITools, ToGeminiSchema, ...) can still read vendor-relevant fields
// such as "enum" untouched.
//
// opts selects which rules run; callers compose only what their dialect
// needs (e.g. Gemini runs all four, OpenAI only inlines $defs and fills in
// "required").
type AdaptOptions struct {
	// InlineDefs replaces every "#/$defs/X" $ref with a deep clone of the
	// referenced definition and drops the top-level $defs map.
	InlineDefs bool

	// StripAdditionalProperties deletes every "additionalProperties" key.
	StripAdditionalProperties bool

	// NormalizeNullable rewrites anyOf/oneOf unions containing a
	// {"type":"null"} branch into a "nullable: true" field on the
	// remaining type, unwrapping the union if only one branch is left.
	NormalizeNullable bool

	// CoerceEmptyObjectParams rewrites a top-level object schema with no
	// properties into {"type":"string"} (Gemini rejects an empty object
	// parameter schema outright).
	CoerceEmptyObjectParams bool

	// RequireArrayDefault sets "required" to [] wherever a "properties"
	// sibling exists and "required" is absent (OpenAI strict mode).
	RequireArrayDefault bool
}

// Adapt parses raw as a JSON Schema document and applies the requested
// transformations, returning the transformed document as a map. A cyclic
// $defs reference is reported as canonical.ErrSchemaError, matching the
// spec's "cyclic schema references are not supported" design note.
func Adapt(raw json.RawMessage, opts AdaptOptions) (map[string]any, error) {
	var doc map[string]any
	if len(raw) == 0 {
		doc = map[string]any{"type": "object", "properties": map[string]any{}}
	} else if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}

	if opts.InlineDefs {
		defs, _ := doc["$defs"].(map[string]any)
		inlined, err := inlineRefs(doc, defs, map[string]bool{})
		if err != nil {
			return nil, err
		}
		doc, _ = inlined.(map[string]any)
		delete(doc, "$defs")
	}

	if opts.StripAdditionalProperties {
		stripAdditionalProperties(doc)
	}

	if opts.NormalizeNullable {
		normalizeNullable(doc)
	}

	if opts.CoerceEmptyObjectParams {
		coerceEmptyObjectParams(doc)
	}

	if opts.RequireArrayDefault {
		applyRequiredDefault(doc)
	}

	return doc, nil
}

// inlineRefs walks node depth-first, replacing every "$ref": "#/$defs/X"
// with a deep clone of defs[X]. path tracks the defs names currently being
// expanded on the current walk to detect cycles.
func inlineRefs(node any, defs map[string]any, path map[string]bool) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			name, ok := defsRefName(ref)
			if !ok {
				// Not a $defs-local ref (e.g. a remote $ref); leave untouched.
				return v, nil
			}
			if path[name] {
				return nil, canonical.NewEngineError(canonical.ErrSchemaError, "", "", fmt.Errorf("cyclic schema $ref: %s", ref))
			}
			target, ok := defs[name]
			if !ok {
				return nil, canonical.NewEngineError(canonical.ErrSchemaError, "", "", fmt.Errorf("undefined $ref: %s", ref))
			}
			nextPath := make(map[string]bool, len(path)+1)
			for k := range path {
				nextPath[k] = true
			}
			nextPath[name] = true
			return inlineRefs(deepClone(target), defs, nextPath)
		}

		out := make(map[string]any, len(v))
		for k, val := range v {
			if k == "$defs" {
				continue
			}
			resolved, err := inlineRefs(val, defs, path)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			resolved, err := inlineRefs(val, defs, path)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil

	default:
		return v, nil
	}
}

// defsRefName returns the definition name for a "#/$defs/X" ref.
func defsRefName(ref string) (string, bool) {
	const prefix = "#/$defs/"
	if len(ref) <= len(prefix) || ref[:len(prefix)] != prefix {
		return "", false
	}
	return ref[len(prefix):], true
}

func deepClone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepClone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepClone(val)
		}
		return out
	default:
		return v
	}
}

// stripAdditionalProperties deletes every "additionalProperties" key at any
// depth; Gemini's schema dialect rejects the keyword outright.
func stripAdditionalProperties(node any) {
	switch v := node.(type) {
	case map[string]any:
		delete(v, "additionalProperties")
		for _, val := range v {
			stripAdditionalProperties(val)
		}
	case []any:
		for _, val := range v {
			stripAdditionalProperties(val)
		}
	}
}

// normalizeNullable walks the document and, for every object carrying an
// "anyOf" or "oneOf" array, drops a {"type":"null"} branch in favor of a
// "nullable": true field injected into the remaining branch(es). When only
// one branch survives, the union wrapper is replaced by that branch merged
// with the parent's other keys.
func normalizeNullable(node any) any {
	switch v := node.(type) {
	case map[string]any:
		for _, key := range []string{"anyOf", "oneOf"} {
			union, ok := v[key].([]any)
			if !ok {
				continue
			}
			kept := make([]any, 0, len(union))
			hadNull := false
			for _, branch := range union {
				branchMap, ok := branch.(map[string]any)
				if ok {
					if t, ok := branchMap["type"].(string); ok && t == "null" {
						hadNull = true
						continue
					}
				}
				kept = append(kept, normalizeNullable(branch))
			}
			if !hadNull {
				v[key] = kept
				continue
			}
			for _, branch := range kept {
				if branchMap, ok := branch.(map[string]any); ok {
					branchMap["nullable"] = true
				}
			}
			delete(v, key)
			if len(kept) == 1 {
				if branchMap, ok := kept[0].(map[string]any); ok {
					for bk, bv := range branchMap {
						v[bk] = bv
					}
				}
			} else {
				v[key] = kept
			}
		}
		for k, val := range v {
			if k == "anyOf" || k == "oneOf" {
				continue
			}
			v[k] = normalizeNullable(val)
		}
		return v
	case []any:
		for i, val := range v {
			v[i] = normalizeNullable(val)
		}
		return v
	default:
		return v
	}
}

// coerceEmptyObjectParams rewrites a top-level object schema with no
// properties into {"type":"string"}, working around a Gemini bug where an
// empty-object tool parameter schema crashes the call.
func coerceEmptyObjectParams(doc map[string]any) {
	if doc == nil {
		return
	}
	t, _ := doc["type"].(string)
	if t != "object" {
		return
	}
	props, _ := doc["properties"].(map[string]any)
	if len(props) > 0 {
		return
	}
	for k := range doc {
		delete(doc, k)
	}
	doc["type"] = "string"
}

// applyRequiredDefault sets "required": [] wherever an object schema with a
// "properties" sibling omits "required" (OpenAI's strict function-calling
// mode rejects a missing key).
func applyRequiredDefault(node any) {
	switch v := node.(type) {
	case map[string]any:
		if _, hasProps := v["properties"]; hasProps {
			if _, hasRequired := v["required"]; !hasRequired {
				v["required"] = []any{}
			}
		}
		for _, val := range v {
			applyRequiredDefault(val)
		}
	case []any:
		for _, val := range v {
			applyRequiredDefault(val)
		}
	}
}
