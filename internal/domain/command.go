package domain

import (
	"encoding/json"
	"time"
)

// Command is the durable record of one user-triggered action: a single tool
// invocation, or one multi-step plan recorded as a single entry. ChatID and
// MessageID are the only hard requirements; everything else is optional so
// partial or irregular provider responses still produce a record. A Command
// is written once and never mutated by the core.
type Command struct {
	ID          string         `json:"id,omitempty"`
	ChatID      string         `json:"chatId"`
	MessageID   string         `json:"messageId"`
	Tool        string         `json:"tool,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	Plan        []PlanStep     `json:"plan,omitempty"`
	IsMultiStep bool           `json:"isMultiStep,omitempty"`
	Prompt      string         `json:"prompt,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Failed      bool           `json:"failed,omitempty"`
	Normalized  string         `json:"normalized,omitempty"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	VideoURL    string         `json:"videoUrl,omitempty"`
	AudioURL    string         `json:"audioUrl,omitempty"`
	Timestamp   time.Time      `json:"timestamp,omitempty"`

	// Extra holds fields outside the named schema. They are persisted and
	// returned verbatim so provider-specific metadata survives round trips.
	Extra map[string]any `json:"-"`
}

// PlanStep is one ordered sub-step of a multi-step Command, with its own
// outcome.
type PlanStep struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result string         `json:"result,omitempty"`
	Failed bool           `json:"failed,omitempty"`
}

// Validate enforces the relaxed Command policy: chatId and messageId present,
// everything else optional.
func (c *Command) Validate() error {
	if c.ChatID == "" {
		return &ValidationError{Field: "chatId"}
	}
	if c.MessageID == "" {
		return &ValidationError{Field: "messageId"}
	}
	return nil
}

var knownCommandFields = []string{
	"id", "chatId", "messageId", "tool", "args", "plan", "isMultiStep",
	"prompt", "result", "failed", "normalized", "imageUrl", "videoUrl",
	"audioUrl", "timestamp",
}

// MarshalJSON merges Extra back into the named fields so a round trip through
// storage preserves unknown keys.
func (c Command) MarshalJSON() ([]byte, error) {
	type plain Command
	base, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}
	var m map[string]any
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON collects fields outside the named schema into Extra.
func (c *Command) UnmarshalJSON(data []byte) error {
	type plain Command
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownCommandFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		p.Extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			p.Extra[k] = val
		}
	}
	*c = Command(p)
	return nil
}
