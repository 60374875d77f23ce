package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"mediabot/internal/domain"
)

// Gemini implements domain.TaskProvider against the Gemini REST API. Image
// generation uses the same generateContent surface: the model may answer
// with text only (a refusal or a description), which is reported as a
// text-only result, not an error.
type Gemini struct {
	apiKey    string
	apiBase   string
	chatModel string
	client    *http.Client
	logger    *slog.Logger
}

type GeminiConfig struct {
	APIKey    string
	APIBase   string
	ChatModel string
	Logger    *slog.Logger
}

func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gemini-2.0-flash"
	}
	return &Gemini{
		apiKey:    cfg.APIKey,
		apiBase:   cfg.APIBase,
		chatModel: cfg.ChatModel,
		client:    sharedHTTPClient(defaultHTTPTimeout),
		logger:    cfg.Logger,
	}
}

func (g *Gemini) Name() domain.ProviderName { return domain.ProviderGemini }

func (g *Gemini) Supports(t domain.TaskType) bool {
	return t == domain.TaskGeminiChat || t == domain.TaskTextToImage
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobData `json:"inlineData,omitempty"`
}

type geminiBlobData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type geminiGenConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Generate(ctx context.Context, req domain.TaskRequest) (*domain.TaskResult, error) {
	model := req.Model
	if model == "" {
		if req.Type == domain.TaskTextToImage {
			model = "gemini-2.0-flash-exp-image-generation"
		} else {
			model = g.chatModel
		}
	}

	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, m := range req.History {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: req.Prompt}},
	})

	greq := geminiRequest{Contents: contents}
	if req.Type == domain.TaskTextToImage {
		greq.GenerationConfig = &geminiGenConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		}
	}

	body, err := json.Marshal(greq)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.apiBase, model)
	resp, err := doWithRetry(ctx, g.client, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("x-goog-api-key", g.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}, g.logger)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: no candidates in response")
	}

	// Parse candidate parts once here: text accumulates, the first inline
	// image becomes the asset reference.
	result := &domain.TaskResult{Provider: domain.ProviderGemini, Model: model}
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.Text != "" {
			if result.Text != "" {
				result.Text += "\n"
			}
			result.Text += part.Text
		}
		if part.InlineData != nil && result.ImageURL == "" {
			result.ImageURL = fmt.Sprintf("data:%s;base64,%s", part.InlineData.MimeType, part.InlineData.Data)
		}
	}
	if result.Text == "" && result.ImageURL == "" {
		return nil, fmt.Errorf("gemini: candidate had no usable parts")
	}
	return result, nil
}
