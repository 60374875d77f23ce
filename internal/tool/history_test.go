package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mediabot/internal/domain"
)

type stubCommandStore struct {
	cmds      []domain.Command
	lastChat  string
	lastLimit int
	err       error
}

func (s *stubCommandStore) Record(ctx context.Context, cmd *domain.Command) error { return nil }

func (s *stubCommandStore) ListByChat(ctx context.Context, chatID string, limit int) ([]domain.Command, error) {
	s.lastChat, s.lastLimit = chatID, limit
	return s.cmds, s.err
}

func (s *stubCommandStore) GetByMessage(ctx context.Context, chatID, messageID string) (*domain.Command, error) {
	return nil, nil
}

func (s *stubCommandStore) Close() error { return nil }

func TestHistoryToolSummarizesCommands(t *testing.T) {
	store := &stubCommandStore{cmds: []domain.Command{
		{Tool: "generate_image", Prompt: "/image a cat"},
		{Tool: "generate_video", Prompt: "/video waves", Failed: true},
	}}
	ht := NewHistoryTool(store, 20, testLogger())

	res := ht.Execute(context.Background(), nil, &domain.Invocation{ChatID: "42"})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if store.lastChat != "42" {
		t.Fatalf("wrong chat queried: %q", store.lastChat)
	}
	if !strings.Contains(res.Data, "generate_image") || !strings.Contains(res.Data, "[failed] generate_video") {
		t.Fatalf("summary incomplete: %q", res.Data)
	}
}

func TestHistoryToolEmptyChat(t *testing.T) {
	ht := NewHistoryTool(&stubCommandStore{}, 20, testLogger())
	res := ht.Execute(context.Background(), nil, &domain.Invocation{ChatID: "42"})
	if !res.Success {
		t.Fatalf("empty history must not fail: %s", res.Error)
	}
	if !strings.Contains(res.Data, "No commands") {
		t.Fatalf("unexpected empty-chat message: %q", res.Data)
	}
}

func TestHistoryToolClampsLimit(t *testing.T) {
	store := &stubCommandStore{}
	ht := NewHistoryTool(store, 10, testLogger())

	ht.Execute(context.Background(), map[string]any{"limit": float64(500)}, &domain.Invocation{ChatID: "42"})
	if store.lastLimit != 10 {
		t.Fatalf("limit not clamped to configured max: %d", store.lastLimit)
	}

	ht.Execute(context.Background(), map[string]any{"limit": float64(3)}, &domain.Invocation{ChatID: "42"})
	if store.lastLimit != 3 {
		t.Fatalf("explicit limit within range not honored: %d", store.lastLimit)
	}
}

func TestHistoryToolStoreError(t *testing.T) {
	ht := NewHistoryTool(&stubCommandStore{err: errors.New("db locked")}, 20, testLogger())
	res := ht.Execute(context.Background(), nil, &domain.Invocation{ChatID: "42"})
	if res.Success {
		t.Fatal("store failure must fail the tool")
	}
}

func TestHistoryToolOptsOut(t *testing.T) {
	ht := NewHistoryTool(&stubCommandStore{}, 20, testLogger())
	if ignore, _ := ht.IgnoreHistory(); !ignore {
		t.Fatal("chat_history must opt out of in-memory history")
	}
}
