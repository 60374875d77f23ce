package config

import "path/filepath"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Workspace:          "~/.mediabot/workspace",
			LogLevel:           "info",
			MaxConcurrentTurns: 5,
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Enabled:      false,
				APIBase:      "https://api.openai.com/v1",
				DefaultModel: "gpt-4o-mini",
			},
			"gemini": {
				Enabled:      false,
				APIBase:      "https://generativelanguage.googleapis.com/v1beta",
				DefaultModel: "gemini-2.0-flash",
			},
			"replicate": {
				Enabled: false,
				APIBase: "https://api.replicate.com/v1",
			},
			"kie": {
				Enabled: false,
				APIBase: "https://api.kie.ai/api/v1",
			},
			"elevenlabs": {
				Enabled: false,
				APIBase: "https://api.elevenlabs.io/v1",
			},
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "Markdown",
			},
			CLI: CLIConfig{
				Enabled: true,
			},
		},
		Commands: CommandsConfig{
			DBPath:       "~/.mediabot/commands.db",
			HistoryLimit: 20,
		},
		Dispatch: DispatchConfig{
			MaxAttempts: 3,
			Chains: map[string][]string{
				"text-to-image": {"openai", "replicate", "gemini"},
				"text-to-video": {"kie", "replicate"},
				"text-to-music": {"kie", "replicate"},
				"gemini-chat":   {"gemini"},
				"openai-chat":   {"openai"},
			},
		},
		Tools: ToolsConfig{
			AcksPath: filepath.Join(DefaultConfigDir(), "acks.yaml"),
			Flight: FlightToolConfig{
				Destinations: defaultDestinations(),
			},
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
		},
	}
}

// defaultDestinations is the pool the random_flight tool draws from when the
// user names no destination.
func defaultDestinations() []string {
	return []string{
		"LIS", "BCN", "ROM", "ATH", "PRG", "VIE", "BER", "AMS",
		"PAR", "LON", "BUD", "CPH", "DUB", "ZRH", "MAD",
	}
}
