package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AckManifest is the external YAML input to the startup self-check: the set
// of tool names that must resolve in the registry, and the acknowledgment
// message shown to the user while each tool runs.
type AckManifest struct {
	Required []string          `yaml:"required"`
	Acks     map[string]string `yaml:"acks"`
}

// LoadAcks reads an ack manifest. A missing file falls back to the built-in
// defaults so a fresh install verifies cleanly.
func LoadAcks(path string) (*AckManifest, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultAcks(), nil
		}
		return nil, fmt.Errorf("cannot read ack manifest %s: %w", path, err)
	}

	var m AckManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cannot parse ack manifest %s: %w", path, err)
	}
	if m.Acks == nil {
		m.Acks = map[string]string{}
	}
	return &m, nil
}

// SaveAcks writes the manifest, used by `mediabot init`.
func SaveAcks(path string, m *AckManifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("cannot marshal ack manifest: %w", err)
	}
	return os.WriteFile(ExpandPath(path), data, 0o644)
}

// DefaultAcks covers the built-in tool set.
func DefaultAcks() *AckManifest {
	return &AckManifest{
		Required: []string{
			"chat",
			"generate_image",
			"generate_video",
			"generate_music",
			"random_flight",
			"voice_remix",
			"chat_history",
			"schedule_message",
		},
		Acks: map[string]string{
			"chat":             "Thinking...",
			"generate_image":   "Painting your image...",
			"generate_video":   "Rendering your video, this can take a minute...",
			"generate_music":   "Composing your track...",
			"random_flight":    "Looking for a flight...",
			"voice_remix":      "Remixing that voice note...",
			"chat_history":     "Digging through our history...",
			"schedule_message": "Setting that up...",
		},
	}
}
