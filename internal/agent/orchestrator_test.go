package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"mediabot/internal/domain"
	"mediabot/internal/tool"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memStore is an in-memory domain.CommandStore.
type memStore struct {
	mu       sync.Mutex
	recorded []*domain.Command
	err      error
}

func (m *memStore) Record(ctx context.Context, cmd *domain.Command) error {
	if m.err != nil {
		return m.err
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, cmd)
	return nil
}

func (m *memStore) ListByChat(ctx context.Context, chatID string, limit int) ([]domain.Command, error) {
	return nil, nil
}

func (m *memStore) GetByMessage(ctx context.Context, chatID, messageID string) (*domain.Command, error) {
	return nil, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recorded)
}

// fakeTool records the invocation it was executed with.
type fakeTool struct {
	name      string
	required  []string
	optOut    bool
	result    domain.ToolResult
	calls     int
	lastInv   *domain.Invocation
	execuHook func()
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake" }

func (f *fakeTool) Parameters() map[string]any {
	return tool.Params(map[string]tool.Param{"prompt": {Type: "string"}}, f.required)
}

func (f *fakeTool) Execute(ctx context.Context, args map[string]any, inv *domain.Invocation) domain.ToolResult {
	f.calls++
	f.lastInv = inv
	if f.execuHook != nil {
		f.execuHook()
	}
	return f.result
}

func (f *fakeTool) IgnoreHistory() (bool, string) {
	return f.optOut, "independent of prior calls"
}

func newTestOrchestrator(t *testing.T, store domain.CommandStore, tools ...domain.Tool) *Orchestrator {
	t.Helper()
	registry := tool.NewRegistry(testLogger())
	for _, tl := range tools {
		if err := registry.Register(tl); err != nil {
			t.Fatalf("register %s: %v", tl.Name(), err)
		}
	}
	return NewOrchestrator(OrchestratorConfig{
		Registry: registry,
		Store:    store,
		Logger:   testLogger(),
	})
}

func turn(toolName string, args map[string]any) domain.Turn {
	return domain.Turn{
		Channel:   "cli",
		ChatID:    "42",
		MessageID: "7",
		Prompt:    "do the thing",
		Tool:      toolName,
		Args:      args,
	}
}

func TestHandleTurnSuccess(t *testing.T) {
	store := &memStore{}
	ft := &fakeTool{name: "generate_image", result: domain.ToolResult{
		Success:  true,
		Data:     "done",
		ImageURL: "https://img/1",
	}}
	o := newTestOrchestrator(t, store, ft)

	res := o.HandleTurn(context.Background(), turn("generate_image", map[string]any{"prompt": "a cat"}))
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if ft.calls != 1 {
		t.Fatalf("expected one execution, got %d", ft.calls)
	}
	if store.count() != 1 {
		t.Fatalf("expected one recorded command, got %d", store.count())
	}
	cmd := store.recorded[0]
	if cmd.Failed || cmd.Tool != "generate_image" || cmd.ImageURL != "https://img/1" {
		t.Fatalf("bad record: %+v", cmd)
	}
}

func TestHandleTurnUnknownTool(t *testing.T) {
	store := &memStore{}
	o := newTestOrchestrator(t, store)

	res := o.HandleTurn(context.Background(), turn("teleport", nil))
	if res.Success {
		t.Fatal("unknown tool must fail")
	}
	if res.Error == "" {
		t.Fatal("expected a human-readable error")
	}
	if store.count() != 1 {
		t.Fatalf("unknown tool must still be recorded, got %d records", store.count())
	}
	if !store.recorded[0].Failed {
		t.Fatal("record must be marked failed")
	}
}

func TestHandleTurnValidationShortCircuit(t *testing.T) {
	store := &memStore{}
	ft := &fakeTool{name: "generate_image", required: []string{"prompt"}}
	o := newTestOrchestrator(t, store, ft)

	res := o.HandleTurn(context.Background(), turn("generate_image", map[string]any{}))
	if res.Success {
		t.Fatal("missing required arg must fail")
	}
	if res.Error != "prompt is required" {
		t.Fatalf("unexpected message: %q", res.Error)
	}
	if ft.calls != 0 {
		t.Fatalf("executor must not run on validation failure, got %d calls", ft.calls)
	}
	if store.count() != 1 {
		t.Fatalf("validation failure must still be recorded, got %d", store.count())
	}
}

func TestHandleTurnCancellationNotRecorded(t *testing.T) {
	store := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	ft := &fakeTool{name: "generate_image", execuHook: cancel, result: domain.ToolResult{Success: true, Data: "late"}}
	o := newTestOrchestrator(t, store, ft)

	res := o.HandleTurn(ctx, turn("generate_image", map[string]any{"prompt": "a cat"}))
	if res.Success {
		t.Fatal("cancelled turn must not report success")
	}
	if store.count() != 0 {
		t.Fatalf("cancelled turn must not be recorded, got %d records", store.count())
	}
}

func TestHandleTurnPersistenceFailureKeepsResult(t *testing.T) {
	store := &memStore{err: &domain.PersistenceError{Op: "insert command", Err: errors.New("disk full")}}
	ft := &fakeTool{name: "generate_image", result: domain.ToolResult{Success: true, Data: "done"}}
	o := newTestOrchestrator(t, store, ft)

	res := o.HandleTurn(context.Background(), turn("generate_image", map[string]any{"prompt": "a cat"}))
	if !res.Success || res.Data != "done" {
		t.Fatalf("persistence trouble must not alter the result: %+v", res)
	}
}

func TestHandleTurnHistoryFilter(t *testing.T) {
	store := &memStore{}
	normal := &fakeTool{name: "generate_image", result: domain.ToolResult{Success: true, Data: "one", ImageURL: "https://img/1"}}
	loner := &fakeTool{name: "random_flight", optOut: true, result: domain.ToolResult{Success: true, Data: "flight"}}
	o := newTestOrchestrator(t, store, normal, loner)

	// First turn seeds the chat context.
	first := o.HandleTurn(context.Background(), turn("generate_image", map[string]any{"prompt": "a cat"}))
	if !first.Success {
		t.Fatalf("seed turn failed: %s", first.Error)
	}

	// A default tool sees the accumulated history and assets.
	o.HandleTurn(context.Background(), turn("generate_image", map[string]any{"prompt": "again"}))
	if len(normal.lastInv.History) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(normal.lastInv.History))
	}
	if len(normal.lastInv.Images) != 1 {
		t.Fatalf("expected 1 image asset, got %d", len(normal.lastInv.Images))
	}

	// An opted-out tool sees nothing.
	o.HandleTurn(context.Background(), turn("random_flight", nil))
	if len(loner.lastInv.History) != 0 || len(loner.lastInv.Images) != 0 {
		t.Fatalf("opted-out tool must get an empty view, got %d history, %d images",
			len(loner.lastInv.History), len(loner.lastInv.Images))
	}
}

func TestHandleTurnFailedCallEntersHistoryAsFailed(t *testing.T) {
	store := &memStore{}
	failing := &fakeTool{name: "generate_video", result: domain.ToolResult{Success: false, Error: "provider down"}}
	probe := &fakeTool{name: "generate_image", result: domain.ToolResult{Success: true}}
	o := newTestOrchestrator(t, store, failing, probe)

	o.HandleTurn(context.Background(), turn("generate_video", map[string]any{"prompt": "waves"}))
	o.HandleTurn(context.Background(), turn("generate_image", map[string]any{"prompt": "a cat"}))

	if len(probe.lastInv.History) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(probe.lastInv.History))
	}
	rec := probe.lastInv.History[0]
	if !rec.Failed || rec.Result != "provider down" {
		t.Fatalf("failed call misrecorded in history: %+v", rec)
	}
}

func TestShouldIncludeHistory(t *testing.T) {
	if include, _ := ShouldIncludeHistory(&fakeTool{name: "x"}); !include {
		t.Fatal("default must include history")
	}
	include, reason := ShouldIncludeHistory(&fakeTool{name: "x", optOut: true})
	if include {
		t.Fatal("opt-out must exclude history")
	}
	if reason == "" {
		t.Fatal("opt-out must carry its declared reason")
	}
}

func TestContextManagerIsolatesChats(t *testing.T) {
	m := NewContextManager()

	ctxA, unlockA := m.Lock("chat-a")
	ctxA.Append(domain.ToolCallRecord{Tool: "chat"}, domain.ToolResult{})
	unlockA()

	ctxB, unlockB := m.Lock("chat-b")
	defer unlockB()
	if len(ctxB.ToolCalls) != 0 {
		t.Fatalf("chat-b must start empty, got %d calls", len(ctxB.ToolCalls))
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	ac := &AgentContext{ChatID: "42"}
	ac.Append(domain.ToolCallRecord{Tool: "chat"}, domain.ToolResult{ImageURL: "https://img/1"})

	calls, images, _, _ := ac.Snapshot()
	calls[0].Tool = "mutated"
	images[0] = "mutated"

	if ac.ToolCalls[0].Tool != "chat" || ac.Images[0] != "https://img/1" {
		t.Fatal("snapshot must not alias the live context")
	}
}
