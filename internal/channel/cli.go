package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"mediabot/internal/domain"
)

// CLI is the interactive terminal transport.
type CLI struct {
	bus       domain.MessageBus
	logger    *slog.Logger
	in        io.Reader
	out       io.Writer
	mediaDir  string
	msgSeq    int
	thinking  bool
	thinkMu   sync.Mutex
	thinkStop chan struct{}
}

type CLIConfig struct {
	Logger   *slog.Logger
	In       io.Reader
	Out      io.Writer
	MediaDir string // where locally produced media files land; default: current directory
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = "."
	}
	return &CLI{
		logger:   cfg.Logger,
		in:       cfg.In,
		out:      cfg.Out,
		mediaDir: cfg.MediaDir,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the interactive REPL and blocks until context is cancelled.
func (c *CLI) Start(ctx context.Context, bus domain.MessageBus) error {
	c.bus = bus

	bus.OnOutbound("cli", c.deliver)

	_, _ = fmt.Fprintln(c.out, "MediaBot CLI. /image /video /music /flight /history /schedule, or just chat. /quit to exit.")
	_, _ = fmt.Fprint(c.out, "You> ")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			_, _ = fmt.Fprint(c.out, "You> ")
			continue
		}
		if line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("user requested quit")
			return nil
		}

		toolName, args := ParseTurn(line)
		c.msgSeq++

		c.startThinking()
		c.bus.Publish(domain.Turn{
			Channel:   "cli",
			ChatID:    "direct",
			MessageID: strconv.Itoa(c.msgSeq),
			SenderID:  "user",
			Prompt:    line,
			Tool:      toolName,
			Args:      args,
			Timestamp: time.Now(),
		})
	}
}

// deliver prints one outbound message. Locally produced audio is claimed out
// of the temp area into mediaDir first; from then on the file belongs to the
// user, mirroring how the Telegram channel removes its copy after upload.
func (c *CLI) deliver(msg domain.OutboundMessage) {
	if msg.Ack {
		// The spinner already signals work in progress.
		return
	}
	c.stopThinking()
	_, _ = fmt.Fprint(c.out, "\r\033[K")
	_, _ = fmt.Fprintln(c.out, "--- MediaBot ---")
	if msg.Content != "" {
		_, _ = fmt.Fprintln(c.out, msg.Content)
	}
	if msg.ImageURL != "" {
		_, _ = fmt.Fprintf(c.out, "[image] %s\n", msg.ImageURL)
	}
	if msg.VideoURL != "" {
		_, _ = fmt.Fprintf(c.out, "[video] %s\n", msg.VideoURL)
	}
	if msg.AudioURL != "" {
		_, _ = fmt.Fprintf(c.out, "[audio] %s\n", c.claimAudio(msg.AudioURL))
	}
	_, _ = fmt.Fprintln(c.out, "----------------")
	_, _ = fmt.Fprint(c.out, "You> ")
}

// claimAudio moves a local audio file into mediaDir and returns its new path.
// Remote and data URLs pass through, as does the original path when the move
// fails (cross-device temp dirs).
func (c *CLI) claimAudio(url string) string {
	if strings.HasPrefix(url, "http") || strings.HasPrefix(url, "data:") {
		return url
	}
	dest := filepath.Join(c.mediaDir, filepath.Base(url))
	if err := os.Rename(url, dest); err != nil {
		c.logger.Warn("could not move audio file", "from", url, "to", dest, "err", err)
		return url
	}
	return dest
}

func (c *CLI) startThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinking {
		return
	}
	c.thinking = true
	c.thinkStop = make(chan struct{})
	go func() {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-c.thinkStop:
				return
			case <-ticker.C:
				fmt.Fprintf(c.out, "\r%s Working...", frames[i%len(frames)])
				i++
			}
		}
	}()
}

func (c *CLI) stopThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if !c.thinking {
		return
	}
	c.thinking = false
	close(c.thinkStop)
}

// Stop is a no-op for CLI (we exit when Start returns).
func (c *CLI) Stop() error { return nil }
