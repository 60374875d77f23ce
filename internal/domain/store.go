package domain

import "context"

// CommandStore persists Command records. Record is best-effort bookkeeping:
// a failed write is surfaced as a PersistenceError but never rolls back the
// tool execution it documents.
type CommandStore interface {
	Record(ctx context.Context, cmd *Command) error
	ListByChat(ctx context.Context, chatID string, limit int) ([]Command, error)
	GetByMessage(ctx context.Context, chatID, messageID string) (*Command, error)
	Close() error
}
