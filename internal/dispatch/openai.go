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

// OpenAI implements domain.TaskProvider for chat completions and image
// generation against the OpenAI API.
type OpenAI struct {
	apiKey    string
	apiBase   string
	chatModel string
	client    *http.Client
	logger    *slog.Logger
}

type OpenAIConfig struct {
	APIKey    string
	APIBase   string
	ChatModel string
	Logger    *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	return &OpenAI{
		apiKey:    cfg.APIKey,
		apiBase:   cfg.APIBase,
		chatModel: cfg.ChatModel,
		client:    sharedHTTPClient(defaultHTTPTimeout),
		logger:    cfg.Logger,
	}
}

func (o *OpenAI) Name() domain.ProviderName { return domain.ProviderOpenAI }

func (o *OpenAI) Supports(t domain.TaskType) bool {
	return t == domain.TaskOpenAIChat || t == domain.TaskTextToImage
}

func (o *OpenAI) Generate(ctx context.Context, req domain.TaskRequest) (*domain.TaskResult, error) {
	switch req.Type {
	case domain.TaskOpenAIChat:
		return o.chat(ctx, req)
	case domain.TaskTextToImage:
		return o.image(ctx, req)
	default:
		return nil, fmt.Errorf("openai: unsupported task type %s", req.Type)
	}
}

type oaiChatRequest struct {
	Model    string       `json:"model"`
	Messages []oaiMessage `json:"messages"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) chat(ctx context.Context, req domain.TaskRequest) (*domain.TaskResult, error) {
	model := req.Model
	if model == "" {
		model = o.chatModel
	}

	msgs := make([]oaiMessage, 0, len(req.History)+1)
	for _, m := range req.History {
		msgs = append(msgs, oaiMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, oaiMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(oaiChatRequest{Model: model, Messages: msgs})
	if err != nil {
		return nil, err
	}

	var parsed oaiChatResponse
	if err := o.post(ctx, "/chat/completions", body, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in chat response")
	}

	return &domain.TaskResult{
		Provider: domain.ProviderOpenAI,
		Model:    model,
		Text:     parsed.Choices[0].Message.Content,
	}, nil
}

type oaiImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size,omitempty"`
}

type oaiImageResponse struct {
	Data []struct {
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

func (o *OpenAI) image(ctx context.Context, req domain.TaskRequest) (*domain.TaskResult, error) {
	model := req.Model
	if model == "" {
		model = "dall-e-3"
	}

	body, err := json.Marshal(oaiImageRequest{Model: model, Prompt: req.Prompt, N: 1})
	if err != nil {
		return nil, err
	}

	var parsed oaiImageResponse
	if err := o.post(ctx, "/images/generations", body, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("openai: empty data in image response")
	}

	return &domain.TaskResult{
		Provider: domain.ProviderOpenAI,
		Model:    model,
		Text:     parsed.Data[0].RevisedPrompt,
		ImageURL: parsed.Data[0].URL,
	}, nil
}

func (o *OpenAI) post(ctx context.Context, path string, body []byte, out any) error {
	resp, err := doWithRetry(ctx, o.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiBase+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, o.logger)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
