package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mediabot/internal/config"
	"mediabot/internal/domain"
)

// Constructor builds a provider adapter from its config entry.
type Constructor func(pc config.ProviderConfig, logger *slog.Logger) domain.TaskProvider

// Factory creates and caches task providers from config and resolves the
// ranked fallback chain for each task type.
type Factory struct {
	cfg          *config.Config
	logger       *slog.Logger
	constructors map[string]Constructor
	cache        map[string]domain.TaskProvider
	mu           sync.RWMutex
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	f := &Factory{
		cfg:          cfg,
		logger:       logger,
		constructors: make(map[string]Constructor),
		cache:        make(map[string]domain.TaskProvider),
	}
	f.registerDefaults()
	return f
}

func (f *Factory) registerDefaults() {
	f.constructors["openai"] = func(pc config.ProviderConfig, logger *slog.Logger) domain.TaskProvider {
		return NewOpenAI(OpenAIConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, ChatModel: pc.DefaultModel, Logger: logger})
	}
	f.constructors["gemini"] = func(pc config.ProviderConfig, logger *slog.Logger) domain.TaskProvider {
		return NewGemini(GeminiConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, ChatModel: pc.DefaultModel, Logger: logger})
	}
	f.constructors["replicate"] = func(pc config.ProviderConfig, logger *slog.Logger) domain.TaskProvider {
		return NewReplicate(ReplicateConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Logger: logger})
	}
	f.constructors["kie"] = func(pc config.ProviderConfig, logger *slog.Logger) domain.TaskProvider {
		return NewKie(KieConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Logger: logger})
	}
}

// Get returns the provider with the given name. Created providers are cached
// so the same instance is reused across calls. Double-check locking avoids
// TOCTOU races.
func (f *Factory) Get(name string) (domain.TaskProvider, error) {
	f.mu.RLock()
	if cached, ok := f.cache[name]; ok {
		f.mu.RUnlock()
		return cached, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok || !pc.Enabled {
		return nil, fmt.Errorf("provider not configured or disabled: %s", name)
	}
	ctor, ok := f.constructors[name]
	if !ok {
		return nil, fmt.Errorf("no constructor for provider: %s", name)
	}

	p := ctor(pc, f.logger)
	f.cache[name] = p
	return p, nil
}

// ChainFor resolves the configured fallback chain for a task type into
// provider instances, preserving order and skipping disabled entries.
func (f *Factory) ChainFor(t domain.TaskType) []domain.TaskProvider {
	names := f.cfg.Dispatch.Chains[string(t)]
	chain := make([]domain.TaskProvider, 0, len(names))
	for _, name := range names {
		p, err := f.Get(name)
		if err != nil {
			f.logger.Debug("skipping provider in chain", "provider", name, "task", t, "reason", err)
			continue
		}
		chain = append(chain, p)
	}
	return chain
}

// SpeechClient returns the configured ElevenLabs speech client, or an error
// when voice features are disabled.
func (f *Factory) SpeechClient() (domain.SpeechClient, error) {
	pc, ok := f.cfg.Providers["elevenlabs"]
	if !ok || !pc.Enabled {
		return nil, fmt.Errorf("provider not configured or disabled: elevenlabs")
	}
	return NewElevenLabs(ElevenLabsConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Logger: f.logger}), nil
}

// Dispatcher glues the factory to the fallback coordinator: the single entry
// point tools use to run a TaskRequest.
type Dispatcher struct {
	factory     *Factory
	coordinator *Coordinator
}

func NewDispatcher(factory *Factory, coordinator *Coordinator) *Dispatcher {
	return &Dispatcher{factory: factory, coordinator: coordinator}
}

// Do runs the request against its task type's chain. A request naming an
// explicit provider pins the chain to that provider alone: the caller asked
// for it, so silently substituting another would be wrong.
func (d *Dispatcher) Do(ctx context.Context, req domain.TaskRequest) (*domain.TaskResult, error) {
	if req.Provider != "" {
		p, err := d.factory.Get(string(req.Provider))
		if err != nil {
			return nil, err
		}
		return d.coordinator.Dispatch(ctx, req, []domain.TaskProvider{p})
	}
	return d.coordinator.Dispatch(ctx, req, d.factory.ChainFor(req.Type))
}
