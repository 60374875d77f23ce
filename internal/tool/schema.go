package tool

import (
	"encoding/json"

	"mediabot/internal/domain"
)

// Param describes a single tool parameter.
type Param struct {
	Type        string
	Description string
}

// Params builds a JSON Schema "parameters" object for a tool.
func Params(properties map[string]Param, required []string) map[string]any {
	props := make(map[string]any)
	for name, p := range properties {
		props[name] = map[string]any{"type": p.Type, "description": p.Description}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ValidateArgs checks args against a parameters schema before any executor
// or provider work happens. A missing required field yields a
// ValidationError whose message is "<field> is required".
func ValidateArgs(params map[string]any, args map[string]any) error {
	required, ok := params["required"].([]string)
	if !ok {
		// Schemas that round-tripped through JSON carry []any.
		if anyList, isAny := params["required"].([]any); isAny {
			for _, f := range anyList {
				if s, isStr := f.(string); isStr {
					required = append(required, s)
				}
			}
		}
	}
	for _, field := range required {
		v, present := args[field]
		if !present || v == nil || v == "" {
			return &domain.ValidationError{Field: field}
		}
	}
	return nil
}

// ArgString extracts a string argument, serializing non-strings.
func ArgString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, ok := args[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// ArgInt extracts an integer argument, tolerating the float64 JSON decoding
// produces.
func ArgInt(args map[string]any, key string) int {
	if args == nil {
		return 0
	}
	switch n := args[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

// ArgBool extracts a boolean argument.
func ArgBool(args map[string]any, key string) bool {
	if args == nil {
		return false
	}
	b, _ := args[key].(bool)
	return b
}
