package bus

import (
	"log/slog"
	"os"
	"testing"

	"mediabot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.Turn{Channel: "cli", ChatID: "direct", Tool: "chat"})

	select {
	case turn := <-b.Subscribe():
		if turn.Tool != "chat" || turn.ChatID != "direct" {
			t.Fatalf("turn mangled: %+v", turn)
		}
	default:
		t.Fatal("expected a buffered turn")
	}
}

func TestOutboundRouting(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	var got domain.OutboundMessage
	b.OnOutbound("telegram", func(msg domain.OutboundMessage) { got = msg })

	b.SendOutbound(domain.OutboundMessage{Channel: "telegram", ChatID: "42", Content: "hi", ImageURL: "https://img/1"})
	if got.Content != "hi" || got.ImageURL != "https://img/1" {
		t.Fatalf("outbound mangled: %+v", got)
	}

	// Unregistered channel is dropped, not a panic.
	b.SendOutbound(domain.OutboundMessage{Channel: "discord", Content: "lost"})
}

func TestPublishAfterCloseIsSafe(t *testing.T) {
	b := New(10, testLogger())
	b.Close()
	b.Publish(domain.Turn{Channel: "cli"})
	b.Close() // double close is safe too
}
