package tool

import (
	"context"
	"log/slog"
	"strings"

	"mediabot/internal/domain"
)

// ImageTool generates an image from a text prompt through the provider
// fallback chain. A provider may legitimately answer with text and no image
// (a refusal, or a description); that is reported as a text-only success,
// not an error.
type ImageTool struct {
	dispatcher domain.TaskDispatcher
	logger     *slog.Logger
}

func NewImageTool(d domain.TaskDispatcher, logger *slog.Logger) *ImageTool {
	return &ImageTool{dispatcher: d, logger: logger}
}

func (t *ImageTool) Name() string { return "generate_image" }

func (t *ImageTool) Description() string {
	return "Generate an image from a text description."
}

func (t *ImageTool) Parameters() map[string]any {
	return Params(map[string]Param{
		"prompt":   {Type: "string", Description: "What the image should show"},
		"provider": {Type: "string", Description: "Preferred provider (openai, gemini, replicate)"},
	}, []string{"prompt"})
}

func (t *ImageTool) Execute(ctx context.Context, args map[string]any, inv *domain.Invocation) domain.ToolResult {
	req := domain.TaskRequest{
		Type:     domain.TaskTextToImage,
		Prompt:   promptWithHistory(ArgString(args, "prompt"), inv),
		Provider: domain.ProviderName(ArgString(args, "provider")),
	}

	res, err := t.dispatcher.Do(ctx, req)
	if err != nil {
		return domain.Failure("image generation failed: " + err.Error())
	}
	if res.ImageURL == "" {
		return domain.ToolResult{
			Success:  true,
			TextOnly: true,
			Data:     res.Text,
			Normalized: map[string]any{
				"provider": string(res.Provider),
				"textOnly": true,
			},
		}
	}
	return domain.ToolResult{
		Success:  true,
		Data:     res.Text,
		ImageURL: res.ImageURL,
		Normalized: map[string]any{
			"provider": string(res.Provider),
			"imageUrl": res.ImageURL,
		},
	}
}

// VideoTool generates a short video clip from a text prompt.
type VideoTool struct {
	dispatcher domain.TaskDispatcher
	logger     *slog.Logger
}

func NewVideoTool(d domain.TaskDispatcher, logger *slog.Logger) *VideoTool {
	return &VideoTool{dispatcher: d, logger: logger}
}

func (t *VideoTool) Name() string { return "generate_video" }

func (t *VideoTool) Description() string {
	return "Generate a short video clip from a text description."
}

func (t *VideoTool) Parameters() map[string]any {
	return Params(map[string]Param{
		"prompt":   {Type: "string", Description: "What the video should show"},
		"provider": {Type: "string", Description: "Preferred provider (kie, replicate)"},
	}, []string{"prompt"})
}

func (t *VideoTool) Execute(ctx context.Context, args map[string]any, inv *domain.Invocation) domain.ToolResult {
	req := domain.TaskRequest{
		Type:     domain.TaskTextToVideo,
		Prompt:   promptWithHistory(ArgString(args, "prompt"), inv),
		Provider: domain.ProviderName(ArgString(args, "provider")),
	}

	res, err := t.dispatcher.Do(ctx, req)
	if err != nil {
		return domain.Failure("video generation failed: " + err.Error())
	}
	return domain.ToolResult{
		Success:  true,
		VideoURL: res.VideoURL,
		Normalized: map[string]any{
			"provider": string(res.Provider),
			"videoUrl": res.VideoURL,
		},
	}
}

// MusicTool generates a music track. It accepts the full option set the
// music providers understand; unrecognized args pass through untouched.
type MusicTool struct {
	dispatcher domain.TaskDispatcher
	logger     *slog.Logger
}

func NewMusicTool(d domain.TaskDispatcher, logger *slog.Logger) *MusicTool {
	return &MusicTool{dispatcher: d, logger: logger}
}

func (t *MusicTool) Name() string { return "generate_music" }

func (t *MusicTool) Description() string {
	return "Generate a music track from a text description, with optional style controls."
}

func (t *MusicTool) Parameters() map[string]any {
	return Params(map[string]Param{
		"prompt":          {Type: "string", Description: "What the track should sound like"},
		"style":           {Type: "string", Description: "Overall style hint"},
		"durationSeconds": {Type: "number", Description: "Track length in seconds"},
		"genre":           {Type: "string", Description: "Genre (e.g. jazz, techno)"},
		"mood":            {Type: "string", Description: "Mood (e.g. upbeat, melancholic)"},
		"tempo":           {Type: "string", Description: "Tempo hint (e.g. 120bpm, slow)"},
		"instruments":     {Type: "string", Description: "Comma-separated instruments"},
		"vocalStyle":      {Type: "string", Description: "Vocal style, if any"},
		"language":        {Type: "string", Description: "Lyrics language"},
		"key":             {Type: "string", Description: "Musical key"},
		"timeSignature":   {Type: "string", Description: "Time signature (e.g. 4/4)"},
		"quality":         {Type: "string", Description: "Render quality hint"},
		"customMode":      {Type: "boolean", Description: "Enable full custom mode"},
		"instrumental":    {Type: "boolean", Description: "No vocals"},
		"advanced":        {Type: "boolean", Description: "Expose advanced provider options"},
		"provider":        {Type: "string", Description: "Preferred provider (kie, replicate)"},
	}, []string{"prompt"})
}

func (t *MusicTool) Execute(ctx context.Context, args map[string]any, inv *domain.Invocation) domain.ToolResult {
	music := &domain.MusicOptions{
		Style:           ArgString(args, "style"),
		DurationSeconds: ArgInt(args, "durationSeconds"),
		Genre:           ArgString(args, "genre"),
		Mood:            ArgString(args, "mood"),
		Tempo:           ArgString(args, "tempo"),
		VocalStyle:      ArgString(args, "vocalStyle"),
		Language:        ArgString(args, "language"),
		Key:             ArgString(args, "key"),
		TimeSignature:   ArgString(args, "timeSignature"),
		Quality:         ArgString(args, "quality"),
		CustomMode:      ArgBool(args, "customMode"),
		Instrumental:    ArgBool(args, "instrumental"),
		Advanced:        ArgBool(args, "advanced"),
	}
	if raw := ArgString(args, "instruments"); raw != "" {
		for _, ins := range strings.Split(raw, ",") {
			if ins = strings.TrimSpace(ins); ins != "" {
				music.Instruments = append(music.Instruments, ins)
			}
		}
	}

	req := domain.TaskRequest{
		Type:     domain.TaskTextToMusic,
		Prompt:   ArgString(args, "prompt"),
		Provider: domain.ProviderName(ArgString(args, "provider")),
		Music:    music,
	}

	res, err := t.dispatcher.Do(ctx, req)
	if err != nil {
		return domain.Failure("music generation failed: " + err.Error())
	}
	return domain.ToolResult{
		Success:  true,
		AudioURL: res.AudioURL,
		Normalized: map[string]any{
			"provider": string(res.Provider),
			"audioUrl": res.AudioURL,
		},
	}
}

// promptWithHistory appends a short recap of prior generations so a refining
// request ("same but at night") lands on the provider with its anchor. Tools
// that opted out of history receive an empty view and are unaffected.
func promptWithHistory(prompt string, inv *domain.Invocation) string {
	if inv == nil || len(inv.History) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nEarlier in this conversation:")
	for _, call := range inv.History {
		b.WriteString("\n- ")
		b.WriteString(call.Tool)
		if p := ArgString(call.Args, "prompt"); p != "" {
			b.WriteString(": ")
			b.WriteString(p)
		}
	}
	return b.String()
}
