package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mediabot/internal/domain"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
)

// Telegram is the Telegram Bot transport. Inbound messages are parsed into
// turns; a reply to a voice note carries a downloader so the voice tool can
// fetch the audio without knowing anything about Telegram.
type Telegram struct {
	token     string
	allowFrom []int64 // allowed user IDs (empty = allow all)
	parseMode string

	bot    *tgbotapi.BotAPI
	bus    domain.MessageBus
	logger *slog.Logger
}

type TelegramConfig struct {
	Token     string
	AllowFrom []string // user IDs as strings
	ParseMode string
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	if cfg.ParseMode == "" {
		cfg.ParseMode = "Markdown"
	}
	return &Telegram{
		token:     cfg.Token,
		allowFrom: allowed,
		parseMode: cfg.ParseMode,
		logger:    cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and begins polling for updates.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	bus.OnOutbound("telegram", func(msg domain.OutboundMessage) {
		chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
		if err != nil {
			t.logger.Error("invalid chat ID for telegram outbound", "chatID", msg.ChatID, "err", err)
			return
		}
		t.deliver(chatID, msg)
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled, and
// StopReceivingUpdates panics when called twice.
func (t *Telegram) Stop() error { return nil }

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user",
			"user_id", userID,
			"username", update.Message.From.UserName,
		)
		t.sendMessage(chatID, "Unauthorized. Your user ID is not in the allow list.")
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	toolName, args := ParseTurn(text)

	t.logger.Info("telegram message received",
		"user_id", userID,
		"chat_id", chatID,
		"tool", toolName,
	)

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	t.bus.Publish(domain.Turn{
		Channel:   "telegram",
		ChatID:    strconv.FormatInt(chatID, 10),
		MessageID: strconv.Itoa(update.Message.MessageID),
		SenderID:  strconv.FormatInt(userID, 10),
		Prompt:    text,
		Tool:      toolName,
		Args:      args,
		Quoted:    t.quotedMessage(update.Message.ReplyToMessage),
		Timestamp: time.Unix(int64(update.Message.Date), 0),
	})
}

// quotedMessage extracts reply metadata. A quoted voice note gets a
// downloader closure bound to this bot instance.
func (t *Telegram) quotedMessage(reply *tgbotapi.Message) *domain.QuotedMessage {
	if reply == nil {
		return nil
	}
	q := &domain.QuotedMessage{Text: reply.Text}
	if reply.Voice != nil {
		q.Voice = true
		q.MediaID = reply.Voice.FileID
		q.Download = t.downloadFile
	}
	return q
}

// downloadFile streams a Telegram file into dst.
func (t *Telegram) downloadFile(ctx context.Context, mediaID string, dst io.Writer) error {
	url, err := t.bot.GetFileDirectURL(mediaID)
	if err != nil {
		return fmt.Errorf("resolve telegram file %s: %w", mediaID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download telegram file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download telegram file: status %d", resp.StatusCode)
	}
	_, err = io.Copy(dst, resp.Body)
	return err
}

// deliver sends one outbound message, as media when a URL is present.
func (t *Telegram) deliver(chatID int64, msg domain.OutboundMessage) {
	switch {
	case msg.ImageURL != "":
		photo := tgbotapi.NewPhoto(chatID, mediaFile(msg.ImageURL))
		photo.Caption = msg.Content
		if _, err := t.bot.Send(photo); err != nil {
			t.logger.Error("telegram photo send failed", "err", err)
			t.sendMessage(chatID, msg.Content+"\n"+msg.ImageURL)
		}
	case msg.VideoURL != "":
		video := tgbotapi.NewVideo(chatID, mediaFile(msg.VideoURL))
		video.Caption = msg.Content
		if _, err := t.bot.Send(video); err != nil {
			t.logger.Error("telegram video send failed", "err", err)
			t.sendMessage(chatID, msg.Content+"\n"+msg.VideoURL)
		}
	case msg.AudioURL != "":
		audio := tgbotapi.NewAudio(chatID, mediaFile(msg.AudioURL))
		audio.Caption = msg.Content
		if _, err := t.bot.Send(audio); err != nil {
			t.logger.Error("telegram audio send failed", "err", err)
		}
		// Remixed voice notes are local temp files owned by us once sent.
		if !strings.HasPrefix(msg.AudioURL, "http") {
			_ = os.Remove(msg.AudioURL)
		}
	case msg.Content != "":
		t.sendMessage(chatID, msg.Content)
	}
}

// mediaFile picks the right telegram file wrapper for a URL or local path.
func mediaFile(ref string) tgbotapi.RequestFileData {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
		return tgbotapi.FileURL(ref)
	}
	return tgbotapi.FilePath(ref)
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true // empty list = allow all
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Telegram) sendMessage(chatID int64, text string) {
	// Telegram has a 4096 char limit per message
	const maxLen = telegramMaxMsgLen
	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxLen {
			cutAt := strings.LastIndex(chunk[:maxLen], "\n")
			if cutAt < maxLen/2 {
				cutAt = maxLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		t.sendChunk(chatID, chunk)
	}
}

// sendChunk sends a single message chunk with retry and rate limit handling.
// Strategy: try Markdown first, on parse error fall back to plain text, then
// retry with backoff.
func (t *Telegram) sendChunk(chatID int64, text string) {
	const maxRetries = telegramMaxSendRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}
		// On subsequent attempts: send as plain text (parse mode may be malformed).

		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		errStr := err.Error()

		// Handle Telegram rate limiting (HTTP 429).
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		// Markdown parse error on first attempt: immediately retry as plain text.
		if attempt == 0 && msg.ParseMode != "" &&
			strings.Contains(errStr, "can't parse entities") {
			t.logger.Warn("telegram markdown parse error, retrying as plain text",
				"err", err, "parseMode", t.parseMode,
			)
			plainMsg := tgbotapi.NewMessage(chatID, text)
			if _, err2 := t.bot.Send(plainMsg); err2 == nil {
				return
			}
			// Plain also failed, fall through to backoff loop.
		}

		// Exponential backoff for other transient errors.
		if attempt < maxRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed after retries", "err", err, "attempts", maxRetries+1)
	}
}
