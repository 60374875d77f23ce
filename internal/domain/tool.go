package domain

import "context"

// Tool is the interface for agent capabilities (media generation, flight
// search, voice remixing, etc). Execute may block on network I/O; it must
// never panic across this boundary.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any, inv *Invocation) ToolResult
}

// HistoryOptOut is an optional extension for tools that must not see prior
// tool calls. The reason is declarative metadata for audits, never evaluated.
type HistoryOptOut interface {
	IgnoreHistory() (ignore bool, reason string)
}

// ToolDefinition is the JSON-schema-compatible shape handed to the LLM for
// tool selection.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Invocation is the per-call context a tool executor receives. History and
// asset views are already filtered: a tool that opts out of history gets
// empty slices no matter how much the conversation holds.
type Invocation struct {
	Channel   string
	ChatID    string
	MessageID string
	Prompt    string
	Quoted    *QuotedMessage

	History []ToolCallRecord
	Images  []string
	Videos  []string
	Audio   []string
}

// ToolResult is the outcome of one execution attempt. When Success is false
// only Error is trusted.
type ToolResult struct {
	Success    bool           `json:"success"`
	Data       string         `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	TextOnly   bool           `json:"textOnly,omitempty"`
	ImageURL   string         `json:"imageUrl,omitempty"`
	VideoURL   string         `json:"videoUrl,omitempty"`
	AudioURL   string         `json:"audioUrl,omitempty"`
	Normalized map[string]any `json:"normalized,omitempty"`
}

// Failure builds an error result with a human-readable message.
func Failure(msg string) ToolResult {
	return ToolResult{Success: false, Error: msg}
}

// ToolCallRecord is one entry of a conversation's tool-call history,
// insertion order significant (most recent last).
type ToolCallRecord struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result string         `json:"result,omitempty"`
	Failed bool           `json:"failed,omitempty"`
}
