package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for MediaBot.
type Config struct {
	General   GeneralConfig             `json:"general"`
	Providers map[string]ProviderConfig `json:"providers"`
	Channels  ChannelsConfig            `json:"channels"`
	Commands  CommandsConfig            `json:"commands"`
	Dispatch  DispatchConfig            `json:"dispatch"`
	Tools     ToolsConfig               `json:"tools"`
	Scheduler SchedulerConfig           `json:"scheduler"`
}

type GeneralConfig struct {
	Workspace          string `json:"workspace"`
	LogLevel           string `json:"logLevel"`
	LogFile            string `json:"logFile,omitempty"`
	MaxConcurrentTurns int    `json:"maxConcurrentTurns"`
}

// ProviderConfig configures one external generation service (openai, gemini,
// replicate, kie, elevenlabs).
type ProviderConfig struct {
	Enabled      bool   `json:"enabled"`
	APIBase      string `json:"apiBase,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	CLI      CLIConfig      `json:"cli"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom,omitempty"`
	ParseMode string   `json:"parseMode"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

// CommandsConfig configures the durable Command store.
type CommandsConfig struct {
	DBPath       string `json:"dbPath"`
	HistoryLimit int    `json:"historyLimit"` // rows returned to the chat_history tool
}

// DispatchConfig controls fallback behavior. Chains lists provider names in
// preference order per task type; MaxAttempts caps total attempts per call
// even when more providers are configured.
type DispatchConfig struct {
	MaxAttempts int                 `json:"maxAttempts"`
	Chains      map[string][]string `json:"chains"`
}

type ToolsConfig struct {
	AcksPath string           `json:"acksPath,omitempty"` // YAML ack manifest, defaults to <configdir>/acks.yaml
	Flight   FlightToolConfig `json:"flight"`
	Voice    VoiceToolConfig  `json:"voice"`
}

type FlightToolConfig struct {
	APIBase      string   `json:"apiBase,omitempty"`
	APIKey       string   `json:"apiKey,omitempty"`
	Destinations []string `json:"destinations,omitempty"` // pool for random picks
}

type VoiceToolConfig struct {
	VoiceID string `json:"voiceId,omitempty"` // target ElevenLabs voice
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
}

// DefaultConfigDir returns the default config directory (~/.mediabot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mediabot"
	}
	return filepath.Join(home, ".mediabot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.Workspace = ExpandPath(cfg.General.Workspace)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Commands.DBPath = ExpandPath(cfg.Commands.DBPath)
	cfg.Tools.AcksPath = ExpandPath(cfg.Tools.AcksPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxConcurrentTurns < 1 || cfg.General.MaxConcurrentTurns > 100 {
		errs = append(errs, "general.maxConcurrentTurns must be between 1 and 100")
	}
	if cfg.Commands.HistoryLimit < 1 {
		errs = append(errs, "commands.historyLimit must be >= 1")
	}
	if cfg.Dispatch.MaxAttempts < 1 || cfg.Dispatch.MaxAttempts > 10 {
		errs = append(errs, "dispatch.maxAttempts must be between 1 and 10")
	}

	// Fallback chains may only reference configured providers.
	for task, chain := range cfg.Dispatch.Chains {
		for _, provName := range chain {
			if _, ok := cfg.Providers[provName]; !ok {
				errs = append(errs, fmt.Sprintf("dispatch.chains.%s references unknown provider: %s", task, provName))
			}
		}
	}

	for name, pc := range cfg.Providers {
		if pc.Enabled && pc.APIKey == "" {
			errs = append(errs, fmt.Sprintf("providers.%s: apiKey is required when enabled", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
