package domain

import (
	"context"
	"io"
	"time"
)

// Turn is one resolved conversational turn: the chat transport (or test
// harness) has already run tool selection, so Tool and Args arrive decided.
type Turn struct {
	Channel   string
	ChatID    string
	MessageID string
	SenderID  string
	Prompt    string
	Tool      string
	Args      map[string]any
	Quoted    *QuotedMessage
	Timestamp time.Time
}

// QuotedMessage is the message a turn replies to, if any. Media carries the
// transport's file reference; Download fetches it when a tool needs the bytes.
type QuotedMessage struct {
	Text     string
	Voice    bool
	MediaID  string
	Download MediaDownloader
}

// MediaDownloader fetches a transport file reference into a local path.
type MediaDownloader func(ctx context.Context, mediaID string, dst io.Writer) error

// OutboundMessage is the agent's reply routed back through the bus.
type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	ImageURL string
	VideoURL string
	AudioURL string
	Ack      bool // acknowledgment sent while a tool is still running
}

// MessageBus routes turns between channels and the orchestrator.
type MessageBus interface {
	Publish(t Turn)
	Subscribe() <-chan Turn
	SendOutbound(msg OutboundMessage)
	OnOutbound(channelName string, handler func(OutboundMessage))
	Close()
}
