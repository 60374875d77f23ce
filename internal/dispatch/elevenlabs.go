package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

const defaultElevenLabsVoice = "21m00Tcm4TlvDq8ikWAM"

// ElevenLabs implements domain.SpeechClient: speech-to-speech remixing of a
// source recording into a target voice.
type ElevenLabs struct {
	apiKey  string
	apiBase string
	client  *http.Client
	logger  *slog.Logger
}

type ElevenLabsConfig struct {
	APIKey  string
	APIBase string
	Logger  *slog.Logger
}

func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.elevenlabs.io/v1"
	}
	return &ElevenLabs{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		client:  sharedHTTPClient(defaultHTTPTimeout),
		logger:  cfg.Logger,
	}
}

// RemixVoice uploads the audio at audioPath and returns the remixed audio
// stream. The caller owns both the source file and the returned reader.
func (e *ElevenLabs) RemixVoice(ctx context.Context, audioPath, voiceID string) (io.ReadCloser, error) {
	if voiceID == "" {
		voiceID = defaultElevenLabsVoice
	}

	src, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open source audio: %w", err)
	}
	defer src.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, fmt.Errorf("read source audio: %w", err)
	}
	if err := mw.WriteField("model_id", "eleven_multilingual_sts_v2"); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/speech-to-speech/%s", e.apiBase, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return resp.Body, nil
}
