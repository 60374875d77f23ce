package tool

import (
	"context"
	"log/slog"

	"mediabot/internal/domain"
)

// ChatTool answers free-form text through the chat providers. Prior chat
// turns in this conversation are replayed as history so the model keeps its
// thread.
type ChatTool struct {
	dispatcher  domain.TaskDispatcher
	defaultTask domain.TaskType
	logger      *slog.Logger
}

func NewChatTool(d domain.TaskDispatcher, defaultTask domain.TaskType, logger *slog.Logger) *ChatTool {
	if defaultTask == "" {
		defaultTask = domain.TaskOpenAIChat
	}
	return &ChatTool{dispatcher: d, defaultTask: defaultTask, logger: logger}
}

func (t *ChatTool) Name() string { return "chat" }

func (t *ChatTool) Description() string {
	return "Answer a free-form message, keeping the conversation thread."
}

func (t *ChatTool) Parameters() map[string]any {
	return Params(map[string]Param{
		"prompt":   {Type: "string", Description: "The user's message"},
		"provider": {Type: "string", Description: "Preferred provider (openai, gemini)"},
		"model":    {Type: "string", Description: "Override the provider's default model"},
	}, []string{"prompt"})
}

func (t *ChatTool) Execute(ctx context.Context, args map[string]any, inv *domain.Invocation) domain.ToolResult {
	taskType := t.defaultTask
	provider := domain.ProviderName(ArgString(args, "provider"))
	switch provider {
	case domain.ProviderGemini:
		taskType = domain.TaskGeminiChat
	case domain.ProviderOpenAI:
		taskType = domain.TaskOpenAIChat
	}

	prompt := ArgString(args, "prompt")
	if inv.Quoted != nil && inv.Quoted.Text != "" {
		prompt = "Replying to: " + inv.Quoted.Text + "\n\n" + prompt
	}

	req := domain.TaskRequest{
		Type:     taskType,
		Prompt:   prompt,
		Provider: provider,
		Model:    ArgString(args, "model"),
		History:  chatHistory(inv),
	}

	res, err := t.dispatcher.Do(ctx, req)
	if err != nil {
		return domain.Failure("chat failed: " + err.Error())
	}
	return domain.ToolResult{
		Success: true,
		Data:    res.Text,
		Normalized: map[string]any{
			"provider": string(res.Provider),
			"model":    res.Model,
		},
	}
}

// chatHistory rebuilds the provider-facing conversation from prior chat
// calls, most recent last. Media generations are left out; their prompts are
// not part of the dialogue.
func chatHistory(inv *domain.Invocation) []domain.ChatMessage {
	if inv == nil {
		return nil
	}
	var msgs []domain.ChatMessage
	for _, call := range inv.History {
		if call.Tool != "chat" || call.Failed {
			continue
		}
		if p := ArgString(call.Args, "prompt"); p != "" {
			msgs = append(msgs, domain.ChatMessage{Role: "user", Content: p})
		}
		if call.Result != "" {
			msgs = append(msgs, domain.ChatMessage{Role: "assistant", Content: call.Result})
		}
	}
	return msgs
}
