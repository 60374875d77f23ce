package domain

import (
	"encoding/json"
	"fmt"
)

// TaskType classifies a normalized provider-dispatch request.
type TaskType string

const (
	TaskTextToImage TaskType = "text-to-image"
	TaskTextToVideo TaskType = "text-to-video"
	TaskTextToMusic TaskType = "text-to-music"
	TaskGeminiChat  TaskType = "gemini-chat"
	TaskOpenAIChat  TaskType = "openai-chat"
)

// ProviderName identifies an external generation service.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderGemini    ProviderName = "gemini"
	ProviderReplicate ProviderName = "replicate"
	ProviderKie       ProviderName = "kie"
)

var validTaskTypes = map[TaskType]bool{
	TaskTextToImage: true,
	TaskTextToVideo: true,
	TaskTextToMusic: true,
	TaskGeminiChat:  true,
	TaskOpenAIChat:  true,
}

var validProviders = map[ProviderName]bool{
	ProviderOpenAI:    true,
	ProviderGemini:    true,
	ProviderReplicate: true,
	ProviderKie:       true,
}

// MusicOptions carries the music-specific knobs of a TaskRequest.
type MusicOptions struct {
	Style           string   `json:"style,omitempty"`
	DurationSeconds int      `json:"durationSeconds,omitempty"`
	Genre           string   `json:"genre,omitempty"`
	Mood            string   `json:"mood,omitempty"`
	Tempo           string   `json:"tempo,omitempty"`
	Instruments     []string `json:"instruments,omitempty"`
	VocalStyle      string   `json:"vocalStyle,omitempty"`
	Language        string   `json:"language,omitempty"`
	Key             string   `json:"key,omitempty"`
	TimeSignature   string   `json:"timeSignature,omitempty"`
	Quality         string   `json:"quality,omitempty"`
	CustomMode      bool     `json:"customMode,omitempty"`
	Instrumental    bool     `json:"instrumental,omitempty"`
	Advanced        bool     `json:"advanced,omitempty"`
}

// ChatMessage is one turn of conversation history forwarded to a chat task.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TaskRequest is a normalized task description fed into provider dispatch.
// The schema is intentionally open: fields it does not name are kept in
// Extra and survive marshalling round trips, so provider-specific extensions
// pass through instead of being rejected.
type TaskRequest struct {
	Type     TaskType      `json:"type"`
	Prompt   string        `json:"prompt"`
	Provider ProviderName  `json:"provider,omitempty"` // empty: coordinator chooses
	Model    string        `json:"model,omitempty"`
	Music    *MusicOptions `json:"music,omitempty"`
	History  []ChatMessage `json:"conversationHistory,omitempty"`

	Extra map[string]any `json:"-"`
}

var knownTaskFields = []string{
	"type", "prompt", "provider", "model", "music", "conversationHistory",
}

// Validate checks the closed parts of the schema: task type, provider enum,
// non-empty prompt.
func (r *TaskRequest) Validate() error {
	if !validTaskTypes[r.Type] {
		return fmt.Errorf("invalid task type: %q", r.Type)
	}
	if r.Prompt == "" {
		return &ValidationError{Field: "prompt"}
	}
	if r.Provider != "" && !validProviders[r.Provider] {
		return fmt.Errorf("invalid provider: %q", r.Provider)
	}
	return nil
}

func (r TaskRequest) MarshalJSON() ([]byte, error) {
	type plain TaskRequest
	base, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}
	var m map[string]any
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

func (r *TaskRequest) UnmarshalJSON(data []byte) error {
	type plain TaskRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownTaskFields {
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
	*r = TaskRequest(p)
	return nil
}

// TaskResult is a provider response parsed once at the adapter boundary.
// The core never sees raw provider payloads.
type TaskResult struct {
	Provider ProviderName `json:"provider"`
	Model    string       `json:"model,omitempty"`
	Text     string       `json:"text,omitempty"`
	ImageURL string       `json:"imageUrl,omitempty"`
	VideoURL string       `json:"videoUrl,omitempty"`
	AudioURL string       `json:"audioUrl,omitempty"`
}
