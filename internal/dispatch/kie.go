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
	kiePollInterval = 3 * time.Second
	kiePollTimeout  = 10 * time.Minute
)

// Kie implements domain.TaskProvider for video and music generation via the
// Kie task API (submit, then poll the task record).
type Kie struct {
	apiKey  string
	apiBase string
	client  *http.Client
	logger  *slog.Logger
}

type KieConfig struct {
	APIKey  string
	APIBase string
	Logger  *slog.Logger
}

func NewKie(cfg KieConfig) *Kie {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.kie.ai/api/v1"
	}
	return &Kie{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		client:  sharedHTTPClient(defaultHTTPTimeout),
		logger:  cfg.Logger,
	}
}

func (k *Kie) Name() domain.ProviderName { return domain.ProviderKie }

func (k *Kie) Supports(t domain.TaskType) bool {
	return t == domain.TaskTextToVideo || t == domain.TaskTextToMusic
}

type kieSubmitResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type kieTaskResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Status   string `json:"status"` // pending | processing | success | failed
		Response struct {
			ResultURLs []string `json:"resultUrls"`
		} `json:"response"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"data"`
}

func (k *Kie) Generate(ctx context.Context, req domain.TaskRequest) (*domain.TaskResult, error) {
	var path string
	payload := map[string]any{"prompt": req.Prompt}

	switch req.Type {
	case domain.TaskTextToVideo:
		path = "/veo/generate"
		if req.Model != "" {
			payload["model"] = req.Model
		}
	case domain.TaskTextToMusic:
		path = "/music/generate"
		if m := req.Music; m != nil {
			if m.Style != "" {
				payload["style"] = m.Style
			}
			if m.DurationSeconds > 0 {
				payload["duration"] = m.DurationSeconds
			}
			if m.Instrumental {
				payload["instrumental"] = true
			}
			if m.CustomMode {
				payload["customMode"] = true
				if m.Genre != "" {
					payload["genre"] = m.Genre
				}
				if m.Mood != "" {
					payload["mood"] = m.Mood
				}
				if m.VocalStyle != "" {
					payload["vocalStyle"] = m.VocalStyle
				}
			}
		}
	default:
		return nil, fmt.Errorf("kie: unsupported task type %s", req.Type)
	}
	for key, v := range req.Extra {
		payload[key] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var submitted kieSubmitResponse
	if err := k.call(ctx, http.MethodPost, k.apiBase+path, body, &submitted); err != nil {
		return nil, err
	}
	if submitted.Code != 200 || submitted.Data.TaskID == "" {
		return nil, fmt.Errorf("kie submit rejected: %s", submitted.Msg)
	}

	urls, err := k.poll(ctx, submitted.Data.TaskID)
	if err != nil {
		return nil, err
	}

	result := &domain.TaskResult{Provider: domain.ProviderKie, Model: req.Model}
	if req.Type == domain.TaskTextToVideo {
		result.VideoURL = urls[0]
	} else {
		result.AudioURL = urls[0]
	}
	return result, nil
}

func (k *Kie) poll(ctx context.Context, taskID string) ([]string, error) {
	deadline := time.Now().Add(kiePollTimeout)
	url := fmt.Sprintf("%s/task/%s", k.apiBase, taskID)
	for {
		var task kieTaskResponse
		if err := k.call(ctx, http.MethodGet, url, nil, &task); err != nil {
			return nil, err
		}
		switch task.Data.Status {
		case "success":
			if len(task.Data.Response.ResultURLs) == 0 {
				return nil, fmt.Errorf("kie task succeeded with no result URLs")
			}
			return task.Data.Response.ResultURLs, nil
		case "failed":
			return nil, fmt.Errorf("kie task failed: %s", task.Data.ErrorMessage)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("kie task timed out after %s", kiePollTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(kiePollInterval):
		}
	}
}

func (k *Kie) call(ctx context.Context, method, url string, body []byte, out any) error {
	resp, err := doWithRetry(ctx, k.client, func() (*http.Request, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+k.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, k.logger)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("kie API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
