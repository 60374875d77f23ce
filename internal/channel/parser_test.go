package channel

import "testing"

func TestParseTurn(t *testing.T) {
	tests := []struct {
		in       string
		wantTool string
	}{
		{"hello there", "chat"},
		{"/image a cat in a hat", "generate_image"},
		{"/img shorthand works", "generate_image"},
		{"/video waves crashing", "generate_video"},
		{"/music slow jazz", "generate_music"},
		{"/flight sgn", "random_flight"},
		{"/remix", "voice_remix"},
		{"/history", "chat_history"},
		{"/history 5", "chat_history"},
		{"/schedule 10 drink water", "schedule_message"},
		{"/frobnicate something", "frobnicate"},
	}
	for _, tt := range tests {
		tool, _ := ParseTurn(tt.in)
		if tool != tt.wantTool {
			t.Errorf("ParseTurn(%q) tool = %q, want %q", tt.in, tool, tt.wantTool)
		}
	}
}

func TestParseTurnChatArgs(t *testing.T) {
	_, args := ParseTurn("what is the weather")
	if args["prompt"] != "what is the weather" {
		t.Fatalf("chat prompt lost: %v", args)
	}
}

func TestParseTurnImageArgs(t *testing.T) {
	_, args := ParseTurn("/image a cat in a hat")
	if args["prompt"] != "a cat in a hat" {
		t.Fatalf("image prompt lost: %v", args)
	}
}

func TestParseTurnFlightUppercasesOrigin(t *testing.T) {
	_, args := ParseTurn("/flight sgn")
	if args["origin"] != "SGN" {
		t.Fatalf("origin not normalized: %v", args)
	}
}

func TestParseTurnScheduleArgs(t *testing.T) {
	_, args := ParseTurn("/schedule 10 drink water")
	if args["delayMinutes"] != 10 {
		t.Fatalf("delay lost: %v", args)
	}
	if args["message"] != "drink water" {
		t.Fatalf("message lost: %v", args)
	}
}

func TestParseTurnScheduleMissingDelay(t *testing.T) {
	_, args := ParseTurn("/schedule soon-ish")
	if _, ok := args["delayMinutes"]; ok {
		t.Fatalf("non-numeric delay must be omitted so validation catches it: %v", args)
	}
}
