package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mediabot/internal/domain"
)

// ScheduledMessage is one pending delivery. A non-zero Every re-queues the
// message after each delivery.
type ScheduledMessage struct {
	DueAt   time.Time
	Channel string
	ChatID  string
	Content string
	Every   time.Duration
}

// Scheduler delivers messages at a future time through the bus. Entries live
// in memory only; a restart drops them, which callers are told up front.
type Scheduler struct {
	bus    domain.MessageBus
	logger *slog.Logger

	mu      sync.Mutex
	pending []ScheduledMessage
}

func NewScheduler(bus domain.MessageBus, logger *slog.Logger) *Scheduler {
	return &Scheduler{bus: bus, logger: logger}
}

// Schedule queues a message for delivery at dueAt.
func (s *Scheduler) Schedule(msg ScheduledMessage) {
	s.mu.Lock()
	s.pending = append(s.pending, msg)
	n := len(s.pending)
	s.mu.Unlock()
	s.logger.Info("message scheduled", "chat", msg.ChatID, "due", msg.DueAt, "pending", n)
}

// PendingCount returns the number of undelivered messages.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Start runs the delivery loop. Blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", "undelivered", s.PendingCount())
			return
		case now := <-ticker.C:
			s.deliverDue(now)
		}
	}
}

func (s *Scheduler) deliverDue(now time.Time) {
	s.mu.Lock()
	var due []ScheduledMessage
	remaining := s.pending[:0]
	for _, msg := range s.pending {
		if !msg.DueAt.After(now) {
			due = append(due, msg)
		} else {
			remaining = append(remaining, msg)
		}
	}
	s.pending = remaining
	s.mu.Unlock()

	for _, msg := range due {
		s.bus.SendOutbound(domain.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  msg.ChatID,
			Content: msg.Content,
		})
		s.logger.Debug("scheduled message delivered", "chat", msg.ChatID, "recurring", msg.Every > 0)
		if msg.Every > 0 {
			msg.DueAt = now.Add(msg.Every)
			s.mu.Lock()
			s.pending = append(s.pending, msg)
			s.mu.Unlock()
		}
	}
}
