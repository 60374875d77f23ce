package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"mediabot/internal/domain"
	"mediabot/internal/tool"
)

const defaultConcurrency = 3

// Orchestrator drives a turn from arrival to reply: resolve the tool, build
// its filtered context, execute, record the Command, append to the chat's
// working memory, respond. Different chats run concurrently; turns within one
// chat run strictly in arrival order.
type Orchestrator struct {
	registry    *tool.Registry
	store       domain.CommandStore
	contexts    *ContextManager
	bus         domain.MessageBus
	acks        map[string]string
	logger      *slog.Logger
	concurrency int
}

// OrchestratorConfig holds the orchestrator's dependencies.
type OrchestratorConfig struct {
	Registry    *tool.Registry
	Store       domain.CommandStore
	Bus         domain.MessageBus
	Acks        map[string]string // per-tool acknowledgment messages
	Logger      *slog.Logger
	Concurrency int // max parallel turns across all chats
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Orchestrator{
		registry:    cfg.Registry,
		store:       cfg.Store,
		contexts:    NewContextManager(),
		bus:         cfg.Bus,
		acks:        cfg.Acks,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run consumes inbound turns and processes them with bounded concurrency.
// Blocks until the context is cancelled or the bus closes.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("orchestrator started", "concurrency", o.concurrency)

	sem := make(chan struct{}, o.concurrency)
	inbound := o.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator stopping")
			return
		case turn, ok := <-inbound:
			if !ok {
				o.logger.Info("inbound channel closed, orchestrator stopping")
				return
			}
			sem <- struct{}{}
			go func(t domain.Turn) {
				defer func() { <-sem }()
				o.processTurn(ctx, t)
			}(turn)
		}
	}
}

// processTurn runs one turn and routes the reply back through the bus.
func (o *Orchestrator) processTurn(ctx context.Context, turn domain.Turn) {
	if ack := o.acks[turn.Tool]; ack != "" {
		o.bus.SendOutbound(domain.OutboundMessage{
			Channel: turn.Channel,
			ChatID:  turn.ChatID,
			Content: ack,
			Ack:     true,
		})
	}

	result := o.HandleTurn(ctx, turn)

	content := result.Data
	if !result.Success {
		content = result.Error
	}
	o.bus.SendOutbound(domain.OutboundMessage{
		Channel:  turn.Channel,
		ChatID:   turn.ChatID,
		Content:  content,
		ImageURL: result.ImageURL,
		VideoURL: result.VideoURL,
		AudioURL: result.AudioURL,
	})
}

// HandleTurn executes one resolved turn end to end and returns the result
// handed back to the channel. Holds the chat's turn lock throughout, so
// same-chat turns serialize in arrival order.
func (o *Orchestrator) HandleTurn(ctx context.Context, turn domain.Turn) domain.ToolResult {
	chatCtx, unlock := o.contexts.Lock(turn.ChatID)
	defer unlock()

	t, err := o.registry.Lookup(turn.Tool)
	if err != nil {
		o.logger.Warn("unknown tool requested", "tool", turn.Tool, "chat", turn.ChatID)
		result := domain.Failure(fmt.Sprintf("I don't know how to do that (no tool named %q).", turn.Tool))
		o.record(ctx, turn, result)
		return result
	}

	if err := tool.ValidateArgs(t.Parameters(), turn.Args); err != nil {
		result := domain.Failure(err.Error())
		o.record(ctx, turn, result)
		return result
	}

	inv := o.buildInvocation(turn, t, chatCtx)

	o.logger.Info("executing tool", "tool", turn.Tool, "chat", turn.ChatID)
	result := t.Execute(ctx, turn.Args, inv)

	// A cancelled turn produced no outcome worth recording; do not dress it
	// up as a tool failure either.
	if ctx.Err() != nil {
		o.logger.Info("turn cancelled", "tool", turn.Tool, "chat", turn.ChatID)
		return domain.Failure("Request cancelled.")
	}

	o.record(ctx, turn, result)

	if result.Success {
		chatCtx.Append(domain.ToolCallRecord{
			Tool:   turn.Tool,
			Args:   turn.Args,
			Result: result.Data,
		}, result)
	} else {
		chatCtx.Append(domain.ToolCallRecord{
			Tool:   turn.Tool,
			Args:   turn.Args,
			Result: result.Error,
			Failed: true,
		}, domain.ToolResult{})
	}

	return result
}

// buildInvocation assembles the per-call context, applying the history filter.
func (o *Orchestrator) buildInvocation(turn domain.Turn, t domain.Tool, chatCtx *AgentContext) *domain.Invocation {
	inv := &domain.Invocation{
		Channel:   turn.Channel,
		ChatID:    turn.ChatID,
		MessageID: turn.MessageID,
		Prompt:    turn.Prompt,
		Quoted:    turn.Quoted,
	}

	include, reason := ShouldIncludeHistory(t)
	if !include {
		o.logger.Debug("history withheld from tool", "tool", t.Name(), "reason", reason)
		return inv
	}

	inv.History, inv.Images, inv.Videos, inv.Audio = chatCtx.Snapshot()
	return inv
}

// record persists the turn's Command. Best-effort: persistence trouble is
// logged and swallowed so the user still gets their result.
func (o *Orchestrator) record(ctx context.Context, turn domain.Turn, result domain.ToolResult) {
	cmd := &domain.Command{
		ChatID:    turn.ChatID,
		MessageID: turn.MessageID,
		Tool:      turn.Tool,
		Args:      turn.Args,
		Prompt:    turn.Prompt,
		Failed:    !result.Success,
		ImageURL:  result.ImageURL,
		VideoURL:  result.VideoURL,
		AudioURL:  result.AudioURL,
	}
	if result.Success {
		cmd.Result = map[string]any{"data": result.Data}
		if result.TextOnly {
			cmd.Result["textOnly"] = true
		}
	} else {
		cmd.Result = map[string]any{"error": result.Error}
	}
	if len(result.Normalized) > 0 {
		cmd.Normalized = normalizedJSON(result.Normalized)
	}

	if err := o.store.Record(ctx, cmd); err != nil {
		var pe *domain.PersistenceError
		if errors.As(err, &pe) {
			o.logger.Warn("command not recorded", "tool", turn.Tool, "chat", turn.ChatID, "error", err)
			return
		}
		o.logger.Warn("command rejected by store", "tool", turn.Tool, "chat", turn.ChatID, "error", err)
	}
}

func normalizedJSON(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
