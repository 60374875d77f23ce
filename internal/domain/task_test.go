package domain

import (
	"encoding/json"
	"testing"
)

func TestTaskRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     TaskRequest
		wantErr bool
	}{
		{"valid image", TaskRequest{Type: TaskTextToImage, Prompt: "a cat"}, false},
		{"valid chat with provider", TaskRequest{Type: TaskGeminiChat, Prompt: "hi", Provider: ProviderGemini}, false},
		{"unknown type", TaskRequest{Type: "text-to-hologram", Prompt: "x"}, true},
		{"empty prompt", TaskRequest{Type: TaskTextToImage}, true},
		{"unknown provider", TaskRequest{Type: TaskTextToImage, Prompt: "x", Provider: "midjourney"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskRequestValidate_EmptyPromptIsValidationError(t *testing.T) {
	req := TaskRequest{Type: TaskTextToImage}
	err := req.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "prompt is required" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestTaskRequestPassthrough(t *testing.T) {
	in := []byte(`{
		"type": "text-to-music",
		"prompt": "slow jazz",
		"music": {"genre": "jazz", "instrumental": true},
		"sunoStyleWeight": 0.8,
		"negativeTags": ["metal", "edm"]
	}`)

	var req TaskRequest
	if err := json.Unmarshal(in, &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Type != TaskTextToMusic || req.Prompt != "slow jazz" {
		t.Fatalf("typed fields lost: %+v", req)
	}
	if req.Music == nil || req.Music.Genre != "jazz" || !req.Music.Instrumental {
		t.Fatalf("music options lost: %+v", req.Music)
	}
	if req.Extra["sunoStyleWeight"] != 0.8 {
		t.Fatalf("unknown scalar not preserved: %v", req.Extra)
	}
	tags, ok := req.Extra["negativeTags"].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("unknown list not preserved: %v", req.Extra)
	}

	out, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("round unmarshal: %v", err)
	}
	if round["sunoStyleWeight"] != 0.8 {
		t.Fatalf("unknown key dropped on round trip: %v", round)
	}
	if round["prompt"] != "slow jazz" {
		t.Fatalf("typed key dropped on round trip: %v", round)
	}
}

func TestTaskRequestExtraNeverShadowsTypedFields(t *testing.T) {
	req := TaskRequest{
		Type:   TaskTextToImage,
		Prompt: "real prompt",
		Extra:  map[string]any{"prompt": "impostor"},
	}
	out, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if round["prompt"] != "real prompt" {
		t.Fatalf("typed field shadowed by Extra: %v", round["prompt"])
	}
}
