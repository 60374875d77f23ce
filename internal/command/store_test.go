package command

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediabot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "commands.db"), testLogger())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	cmd := &domain.Command{ChatID: "42", MessageID: "1", Tool: "generate_image"}
	if err := store.Record(ctx, cmd); err != nil {
		t.Fatalf("record: %v", err)
	}
	if cmd.ID == "" {
		t.Fatal("expected generated ID")
	}
	if cmd.Timestamp.IsZero() {
		t.Fatal("expected server timestamp")
	}
}

func TestRecordRejectsMissingRequiredFields(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	err := store.Record(ctx, &domain.Command{MessageID: "1"})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "chatId" {
		t.Fatalf("expected chatId field, got %q", ve.Field)
	}

	// Nothing persisted.
	cmds, err := store.ListByChat(ctx, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cmds) != 0 {
		t.Fatalf("rejected command must not be persisted, found %d rows", len(cmds))
	}
}

func TestListByChatReturnsRecentOldestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		cmd := &domain.Command{
			ChatID:    "42",
			MessageID: string(rune('a' + i)),
			Tool:      "chat",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Record(ctx, cmd); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if err := store.Record(ctx, &domain.Command{ChatID: "other", MessageID: "x", Timestamp: base}); err != nil {
		t.Fatalf("record other chat: %v", err)
	}

	cmds, err := store.ListByChat(ctx, "42", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	// The 3 most recent, in chronological order: c, d, e.
	if cmds[0].MessageID != "c" || cmds[2].MessageID != "e" {
		t.Fatalf("unexpected window or order: %q .. %q", cmds[0].MessageID, cmds[2].MessageID)
	}
}

func TestGetByMessageLatestWins(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &domain.Command{ChatID: "42", MessageID: "7", Tool: "generate_image", Failed: true, Timestamp: base}
	retry := &domain.Command{ChatID: "42", MessageID: "7", Tool: "generate_image", Timestamp: base.Add(time.Minute)}
	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("record first: %v", err)
	}
	if err := store.Record(ctx, retry); err != nil {
		t.Fatalf("record retry: %v", err)
	}

	got, err := store.GetByMessage(ctx, "42", "7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a command")
	}
	if got.ID != retry.ID || got.Failed {
		t.Fatalf("expected the later retry record, got %+v", got)
	}

	missing, err := store.GetByMessage(ctx, "42", "nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown message, got %+v", missing)
	}
}

func TestRecordPreservesPassthroughAndPlan(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	cmd := &domain.Command{
		ChatID:      "42",
		MessageID:   "9",
		Tool:        "generate_music",
		Args:        map[string]any{"prompt": "slow jazz"},
		IsMultiStep: true,
		Plan: []domain.PlanStep{
			{Tool: "generate_music", Args: map[string]any{"prompt": "slow jazz"}},
			{Tool: "schedule_message", Result: "queued"},
		},
		Extra: map[string]any{"replicatePredictionId": "p-123"},
	}
	if err := store.Record(ctx, cmd); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := store.GetByMessage(ctx, "42", "9")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Args["prompt"] != "slow jazz" {
		t.Fatalf("args lost: %v", got.Args)
	}
	if !got.IsMultiStep || len(got.Plan) != 2 || got.Plan[1].Tool != "schedule_message" {
		t.Fatalf("plan lost: %+v", got.Plan)
	}
	if got.Extra["replicatePredictionId"] != "p-123" {
		t.Fatalf("extra passthrough lost: %v", got.Extra)
	}
}
