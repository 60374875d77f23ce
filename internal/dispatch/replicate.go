package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mediabot/internal/domain"
)

const (
	replicatePollInterval = 2 * time.Second
	replicatePollTimeout  = 5 * time.Minute
)

// Replicate implements domain.TaskProvider via the predictions API: create a
// prediction, then poll until it reaches a terminal status.
type Replicate struct {
	apiKey  string
	apiBase string
	client  *http.Client
	logger  *slog.Logger
	models  map[domain.TaskType]string
}

type ReplicateConfig struct {
	APIKey  string
	APIBase string
	Logger  *slog.Logger
}

func NewReplicate(cfg ReplicateConfig) *Replicate {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.replicate.com/v1"
	}
	return &Replicate{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		client:  sharedHTTPClient(defaultHTTPTimeout),
		logger:  cfg.Logger,
		models: map[domain.TaskType]string{
			domain.TaskTextToImage: "black-forest-labs/flux-schnell",
			domain.TaskTextToVideo: "minimax/video-01",
			domain.TaskTextToMusic: "meta/musicgen",
		},
	}
}

func (r *Replicate) Name() domain.ProviderName { return domain.ProviderReplicate }

func (r *Replicate) Supports(t domain.TaskType) bool {
	_, ok := r.models[t]
	return ok
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"` // starting | processing | succeeded | failed | canceled
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

func (r *Replicate) Generate(ctx context.Context, req domain.TaskRequest) (*domain.TaskResult, error) {
	model := req.Model
	if model == "" {
		model = r.models[req.Type]
	}
	if model == "" {
		return nil, fmt.Errorf("replicate: unsupported task type %s", req.Type)
	}

	input := map[string]any{"prompt": req.Prompt}
	if req.Type == domain.TaskTextToMusic && req.Music != nil {
		if req.Music.DurationSeconds > 0 {
			input["duration"] = req.Music.DurationSeconds
		}
		if req.Music.Genre != "" {
			input["prompt"] = fmt.Sprintf("%s, %s", req.Prompt, req.Music.Genre)
		}
	}
	for k, v := range req.Extra {
		input[k] = v
	}

	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, err
	}

	created, err := r.call(ctx, http.MethodPost,
		fmt.Sprintf("%s/models/%s/predictions", r.apiBase, model), body)
	if err != nil {
		return nil, err
	}

	pred, err := r.poll(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	outputURL, err := firstOutputURL(pred.Output)
	if err != nil {
		return nil, fmt.Errorf("replicate: %w", err)
	}

	result := &domain.TaskResult{Provider: domain.ProviderReplicate, Model: model}
	switch req.Type {
	case domain.TaskTextToImage:
		result.ImageURL = outputURL
	case domain.TaskTextToVideo:
		result.VideoURL = outputURL
	case domain.TaskTextToMusic:
		result.AudioURL = outputURL
	}
	return result, nil
}

// poll waits for the prediction to reach a terminal status.
func (r *Replicate) poll(ctx context.Context, id string) (*replicatePrediction, error) {
	deadline := time.Now().Add(replicatePollTimeout)
	for {
		pred, err := r.call(ctx, http.MethodGet, fmt.Sprintf("%s/predictions/%s", r.apiBase, id), nil)
		if err != nil {
			return nil, err
		}
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("replicate prediction %s: %s", pred.Status, pred.Error)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("replicate prediction timed out after %s", replicatePollTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(replicatePollInterval):
		}
	}
}

func (r *Replicate) call(ctx context.Context, method, url string, body []byte) (*replicatePrediction, error) {
	resp, err := doWithRetry(ctx, r.client, func() (*http.Request, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, r.logger)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("replicate API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var pred replicatePrediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// firstOutputURL handles the two output shapes predictions return: a single
// URL string or an array of URL strings.
func firstOutputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("prediction succeeded with empty output")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}
	return "", fmt.Errorf("unrecognized output shape: %s", string(raw))
}
