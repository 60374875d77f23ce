package tool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mediabot/internal/domain"
	"mediabot/internal/schedule"
)

// ScheduleTool queues a message for future delivery in the same chat.
type ScheduleTool struct {
	scheduler *schedule.Scheduler
	now       func() time.Time
	logger    *slog.Logger
}

func NewScheduleTool(scheduler *schedule.Scheduler, logger *slog.Logger) *ScheduleTool {
	return &ScheduleTool{scheduler: scheduler, now: time.Now, logger: logger}
}

func (t *ScheduleTool) Name() string { return "schedule_message" }

func (t *ScheduleTool) Description() string {
	return "Send a message to this chat after a delay, optionally repeating. Scheduled messages do not survive a restart."
}

func (t *ScheduleTool) Parameters() map[string]any {
	return Params(map[string]Param{
		"message":       {Type: "string", Description: "The message to deliver"},
		"delayMinutes":  {Type: "number", Description: "Minutes from now until delivery"},
		"repeatMinutes": {Type: "number", Description: "Optional repeat interval in minutes"},
	}, []string{"message", "delayMinutes"})
}

func (t *ScheduleTool) Execute(ctx context.Context, args map[string]any, inv *domain.Invocation) domain.ToolResult {
	delay := ArgInt(args, "delayMinutes")
	if delay < 1 {
		return domain.Failure("delayMinutes must be at least 1")
	}
	repeat := ArgInt(args, "repeatMinutes")
	if repeat < 0 {
		return domain.Failure("repeatMinutes must not be negative")
	}

	dueAt := t.now().Add(time.Duration(delay) * time.Minute)
	t.scheduler.Schedule(schedule.ScheduledMessage{
		DueAt:   dueAt,
		Channel: inv.Channel,
		ChatID:  inv.ChatID,
		Content: ArgString(args, "message"),
		Every:   time.Duration(repeat) * time.Minute,
	})

	data := fmt.Sprintf("Message scheduled for %s.", dueAt.Format("15:04 MST"))
	if repeat > 0 {
		data = fmt.Sprintf("Message scheduled for %s, repeating every %d minute(s).", dueAt.Format("15:04 MST"), repeat)
	}
	return domain.ToolResult{
		Success: true,
		Data:    data,
		Normalized: map[string]any{
			"dueAt": dueAt.Format(time.RFC3339),
		},
	}
}
