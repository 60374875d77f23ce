package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediabot/internal/agent"
	"mediabot/internal/bus"
	"mediabot/internal/channel"
	"mediabot/internal/command"
	"mediabot/internal/config"
	"mediabot/internal/dispatch"
	"mediabot/internal/domain"
	"mediabot/internal/schedule"
	"mediabot/internal/tool"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "mediabot",
		Short: "MediaBot: chat bot for media generation",
		Long:  "MediaBot generates images, video, and music on request over Telegram or the terminal, falling back between providers when one fails.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.mediabot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(verifyCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config, ack manifest, and workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := config.SaveAcks(cfg.Tools.AcksPath, config.DefaultAcks()); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.General.Workspace, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "acks", cfg.Tools.AcksPath, "workspace", cfg.General.Workspace)
			return nil
		},
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat (CLI)",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	go rt.orchestrator.Run(ctx)
	if cfg.Scheduler.Enabled {
		go rt.scheduler.Start(ctx)
	}

	cliCh := channel.NewCLI(channel.CLIConfig{Logger: logger, MediaDir: cfg.General.Workspace})
	return cliCh.Start(ctx, rt.bus)
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start gateway (Telegram + orchestrator)",
		Long:  "Starts all enabled channels and the turn orchestrator. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}

	go rt.orchestrator.Run(ctx)
	if cfg.Scheduler.Enabled {
		go rt.scheduler.Start(ctx)
	}

	var telegramCh *channel.Telegram
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		telegramCh = channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Channels.Telegram.Token,
			AllowFrom: cfg.Channels.Telegram.AllowFrom,
			ParseMode: cfg.Channels.Telegram.ParseMode,
			Logger:    logger,
		})
		go func() {
			if err := telegramCh.Start(ctx, rt.bus); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		logger.Info("telegram channel enabled")
	} else {
		logger.Info("telegram channel disabled")
	}

	logger.Info("gateway started. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Info("shutting down gateway...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if telegramCh != nil {
			telegramCh.Stop()
		}
		rt.close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

// runtime bundles the wired core shared by chat and gateway.
type runtime struct {
	bus          *bus.InMemoryBus
	store        *command.SQLiteStore
	orchestrator *agent.Orchestrator
	scheduler    *schedule.Scheduler
}

func (r *runtime) close() {
	r.bus.Close()
	if err := r.store.Close(); err != nil {
		logger.Warn("closing command store", "err", err)
	}
}

// buildRuntime wires the bus, store, providers, tools, and orchestrator.
func buildRuntime(cfg *config.Config) (*runtime, error) {
	messageBus := bus.New(100, logger)

	store, err := command.NewSQLiteStore(cfg.Commands.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("command store: %w", err)
	}

	acks, err := config.LoadAcks(cfg.Tools.AcksPath)
	if err != nil {
		return nil, fmt.Errorf("ack manifest: %w", err)
	}

	scheduler := schedule.NewScheduler(messageBus, logger)

	registry, err := buildRegistry(cfg, store, scheduler)
	if err != nil {
		return nil, err
	}
	if err := registry.VerifyIntegrity(acks.Required, acks.Acks); err != nil {
		return nil, err
	}

	orchestrator := agent.NewOrchestrator(agent.OrchestratorConfig{
		Registry:    registry,
		Store:       store,
		Bus:         messageBus,
		Acks:        acks.Acks,
		Logger:      logger,
		Concurrency: cfg.General.MaxConcurrentTurns,
	})

	return &runtime{
		bus:          messageBus,
		store:        store,
		orchestrator: orchestrator,
		scheduler:    scheduler,
	}, nil
}

// buildRegistry creates and registers the tool set.
func buildRegistry(cfg *config.Config, store domain.CommandStore, scheduler *schedule.Scheduler) (*tool.Registry, error) {
	factory := dispatch.NewFactory(cfg, logger)
	coordinator := dispatch.NewCoordinator(cfg.Dispatch.MaxAttempts, logger)
	dispatcher := dispatch.NewDispatcher(factory, coordinator)

	speech, err := factory.SpeechClient()
	if err != nil {
		logger.Warn("voice remixing unavailable", "reason", err)
		speech = nil
	}

	flights := dispatch.NewFlightAPI(dispatch.FlightAPIConfig{
		APIBase: cfg.Tools.Flight.APIBase,
		APIKey:  cfg.Tools.Flight.APIKey,
		Logger:  logger,
	})

	registry := tool.NewRegistry(logger)
	tools := []domain.Tool{
		tool.NewChatTool(dispatcher, domain.TaskOpenAIChat, logger),
		tool.NewImageTool(dispatcher, logger),
		tool.NewVideoTool(dispatcher, logger),
		tool.NewMusicTool(dispatcher, logger),
		tool.NewFlightTool(flights, cfg.Tools.Flight.Destinations, logger),
		tool.NewVoiceTool(speech, cfg.Tools.Voice.VoiceID, logger),
		tool.NewHistoryTool(store, cfg.Commands.HistoryLimit, logger),
		tool.NewScheduleTool(scheduler, logger),
	}
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. dispatch.maxAttempts)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. dispatch.maxAttempts 5)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
