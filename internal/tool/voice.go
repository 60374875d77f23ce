package tool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"mediabot/internal/domain"
)

// VoiceTool remixes a quoted voice note into a different voice. The quoted
// message carries a downloader closure so the tool never talks to the channel
// API directly; channels without voice support simply never set one.
type VoiceTool struct {
	speech  domain.SpeechClient
	voiceID string
	logger  *slog.Logger
}

func NewVoiceTool(speech domain.SpeechClient, voiceID string, logger *slog.Logger) *VoiceTool {
	return &VoiceTool{speech: speech, voiceID: voiceID, logger: logger}
}

func (t *VoiceTool) Name() string { return "voice_remix" }

func (t *VoiceTool) Description() string {
	return "Re-voice a quoted voice note using a configured target voice."
}

func (t *VoiceTool) Parameters() map[string]any {
	return Params(map[string]Param{
		"voiceId": {Type: "string", Description: "Override the configured target voice"},
	}, nil)
}

func (t *VoiceTool) Execute(ctx context.Context, args map[string]any, inv *domain.Invocation) domain.ToolResult {
	quoted := inv.Quoted
	if quoted == nil || !quoted.Voice || quoted.Download == nil {
		// Checked before any download or provider work happens.
		return domain.Failure("You must quote a voice note to remix it.")
	}
	if t.speech == nil {
		return domain.Failure("Voice remixing is not configured.")
	}

	workDir, err := os.MkdirTemp("", "voice-remix-")
	if err != nil {
		return domain.Failure("cannot create work directory: " + err.Error())
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input.ogg")
	input, err := os.Create(inputPath)
	if err != nil {
		return domain.Failure("cannot create input file: " + err.Error())
	}
	if err := quoted.Download(ctx, quoted.MediaID, input); err != nil {
		input.Close()
		return domain.Failure("cannot download voice note: " + err.Error())
	}
	if err := input.Close(); err != nil {
		return domain.Failure("cannot finish voice download: " + err.Error())
	}

	voiceID := ArgString(args, "voiceId")
	if voiceID == "" {
		voiceID = t.voiceID
	}

	remixed, err := t.speech.RemixVoice(ctx, inputPath, voiceID)
	if err != nil {
		return domain.Failure("voice remix failed: " + err.Error())
	}
	defer remixed.Close()

	// The output outlives the work dir: the channel sends and deletes it.
	out, err := os.CreateTemp("", "voice-remix-*.mp3")
	if err != nil {
		return domain.Failure("cannot create output file: " + err.Error())
	}
	if _, err := io.Copy(out, remixed); err != nil {
		out.Close()
		os.Remove(out.Name())
		return domain.Failure("cannot write remixed audio: " + err.Error())
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return domain.Failure("cannot finish remixed audio: " + err.Error())
	}

	return domain.ToolResult{
		Success:  true,
		Data:     fmt.Sprintf("Voice note remixed with voice %s.", voiceID),
		AudioURL: out.Name(),
		Normalized: map[string]any{
			"voiceId": voiceID,
		},
	}
}
