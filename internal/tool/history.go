package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mediabot/internal/domain"
)

// HistoryTool summarizes what the bot has done in this chat, reading the
// durable command log rather than the in-memory conversation. It reports ON
// history, so feeding history back into it would only recurse; it opts out.
type HistoryTool struct {
	store  domain.CommandStore
	limit  int
	logger *slog.Logger
}

func NewHistoryTool(store domain.CommandStore, limit int, logger *slog.Logger) *HistoryTool {
	if limit < 1 {
		limit = 20
	}
	return &HistoryTool{store: store, limit: limit, logger: logger}
}

func (t *HistoryTool) Name() string { return "chat_history" }

func (t *HistoryTool) Description() string {
	return "List the most recent commands the bot has run in this chat."
}

func (t *HistoryTool) Parameters() map[string]any {
	return Params(map[string]Param{
		"limit": {Type: "number", Description: "Maximum entries to return"},
	}, nil)
}

func (t *HistoryTool) IgnoreHistory() (bool, string) {
	return true, "reads the durable command log directly; the in-memory view would be redundant"
}

func (t *HistoryTool) Execute(ctx context.Context, args map[string]any, inv *domain.Invocation) domain.ToolResult {
	limit := ArgInt(args, "limit")
	if limit < 1 || limit > t.limit {
		limit = t.limit
	}

	cmds, err := t.store.ListByChat(ctx, inv.ChatID, limit)
	if err != nil {
		return domain.Failure("cannot read chat history: " + err.Error())
	}
	if len(cmds) == 0 {
		return domain.ToolResult{Success: true, Data: "No commands recorded in this chat yet."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d commands:", len(cmds))
	for _, cmd := range cmds {
		status := "ok"
		if cmd.Failed {
			status = "failed"
		}
		fmt.Fprintf(&b, "\n- [%s] %s", status, cmd.Tool)
		if p := strings.TrimSpace(cmd.Prompt); p != "" {
			fmt.Fprintf(&b, ": %s", p)
		}
	}

	return domain.ToolResult{
		Success: true,
		Data:    b.String(),
		Normalized: map[string]any{
			"count": len(cmds),
		},
	}
}
