package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("MEDIABOT_TEST_KEY", "sk-secret")
	defer os.Unsetenv("MEDIABOT_TEST_KEY")

	got := ExpandEnvVars(`{"apiKey": "${MEDIABOT_TEST_KEY}"}`)
	if !strings.Contains(got, "sk-secret") {
		t.Fatalf("variable not expanded: %s", got)
	}

	got = ExpandEnvVars(`"${MEDIABOT_TEST_UNSET:-fallback}"`)
	if !strings.Contains(got, "fallback") {
		t.Fatalf("default not applied: %s", got)
	}

	// Unset without default stays verbatim.
	got = ExpandEnvVars(`"${MEDIABOT_TEST_UNSET}"`)
	if !strings.Contains(got, "${MEDIABOT_TEST_UNSET}") {
		t.Fatalf("unset var without default should be untouched: %s", got)
	}
}

func TestValidateDefaults(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateCatchesBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Dispatch.MaxAttempts = 0
	cfg.General.MaxConcurrentTurns = 500
	cfg.Dispatch.Chains["text-to-image"] = []string{"midjourney"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"maxAttempts", "maxConcurrentTurns", "midjourney"} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %q in: %s", want, msg)
		}
	}
}

func TestValidateEnabledProviderNeedsKey(t *testing.T) {
	cfg := Defaults()
	pc := cfg.Providers["openai"]
	pc.Enabled = true
	cfg.Providers["openai"] = pc

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "apiKey is required") {
		t.Fatalf("expected apiKey requirement, got %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Defaults()
	cfg.Commands.HistoryLimit = 7
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Commands.HistoryLimit != 7 {
		t.Fatalf("value lost on round trip: %d", loaded.Commands.HistoryLimit)
	}
}

func TestGetSetByPath(t *testing.T) {
	cfg := Defaults()

	if err := SetByPath(cfg, "dispatch.maxAttempts", "5"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Dispatch.MaxAttempts != 5 {
		t.Fatalf("set did not apply: %d", cfg.Dispatch.MaxAttempts)
	}

	val, err := GetByPath(cfg, "dispatch.maxAttempts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != float64(5) {
		t.Fatalf("unexpected value: %v", val)
	}

	if _, err := GetByPath(cfg, "nope.nothing"); err == nil {
		t.Fatal("expected error for unknown path")
	}
}

func TestSanitizeMasksSecrets(t *testing.T) {
	cfg := Defaults()
	pc := cfg.Providers["openai"]
	pc.APIKey = "sk-1234567890abcdef"
	cfg.Providers["openai"] = pc
	cfg.Channels.Telegram.Token = "123456:telegram-token"

	got := Sanitize(cfg)
	if strings.Contains(got.Providers["openai"].APIKey, "567890abcd") {
		t.Fatalf("api key not masked: %s", got.Providers["openai"].APIKey)
	}
	if !strings.Contains(got.Channels.Telegram.Token, "****") {
		t.Fatalf("telegram token not masked: %s", got.Channels.Telegram.Token)
	}
	// Original untouched.
	if cfg.Providers["openai"].APIKey != "sk-1234567890abcdef" {
		t.Fatal("sanitize must not mutate the source config")
	}
}

func TestLoadAcksMissingFileUsesDefaults(t *testing.T) {
	m, err := LoadAcks(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing manifest must fall back: %v", err)
	}
	if len(m.Required) == 0 {
		t.Fatal("default manifest must require the built-in tools")
	}
	if m.Acks["generate_image"] == "" {
		t.Fatal("default manifest must ack generate_image")
	}
}

func TestAcksRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acks.yaml")
	in := &AckManifest{
		Required: []string{"chat"},
		Acks:     map[string]string{"chat": "Thinking..."},
	}
	if err := SaveAcks(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := LoadAcks(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Acks["chat"] != "Thinking..." {
		t.Fatalf("ack lost: %+v", out)
	}
}
