package channel

import (
	"strconv"
	"strings"
)

// ParseTurn maps a raw message to a tool and its arguments. Slash commands
// select tools explicitly; anything else is a chat message. Tool selection
// happens here, at the transport edge, so the orchestrator always receives a
// resolved turn.
func ParseTurn(text string) (tool string, args map[string]any) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "chat", map[string]any{"prompt": text}
	}

	cmd, rest, _ := strings.Cut(text[1:], " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "image", "img":
		return "generate_image", map[string]any{"prompt": rest}
	case "video", "vid":
		return "generate_video", map[string]any{"prompt": rest}
	case "music", "song":
		return "generate_music", map[string]any{"prompt": rest}
	case "flight":
		return "random_flight", map[string]any{"origin": strings.ToUpper(rest)}
	case "remix":
		return "voice_remix", map[string]any{}
	case "history":
		args := map[string]any{}
		if n, err := strconv.Atoi(rest); err == nil {
			args["limit"] = n
		}
		return "chat_history", args
	case "schedule":
		// /schedule <minutes> <message>
		minsStr, msg, _ := strings.Cut(rest, " ")
		args := map[string]any{"message": strings.TrimSpace(msg)}
		if mins, err := strconv.Atoi(minsStr); err == nil {
			args["delayMinutes"] = mins
		}
		return "schedule_message", args
	default:
		// Unknown command goes through as-is; the orchestrator records the
		// miss and answers with a readable error.
		return cmd, map[string]any{"prompt": rest}
	}
}
