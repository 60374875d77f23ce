package tool

import (
	"fmt"
	"log/slog"
	"strings"

	"mediabot/internal/domain"
)

// Registry maps tool names to their executors. It is populated once at
// startup by an explicit initialization pass and treated as read-only from
// then on, so lookups need no locking. The instance is handed to the
// orchestrator by reference; there is no package-global registry.
type Registry struct {
	tools  map[string]domain.Tool
	order  []string
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]domain.Tool),
		logger: logger,
	}
}

// Register adds a tool under its unique name. Registering the same name
// twice is a wiring bug, not a runtime condition, so it fails loudly.
func (r *Registry) Register(t domain.Tool) error {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return &domain.DuplicateToolError{Name: name}
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	r.logger.Debug("registered tool", "name", name)
	return nil
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name string) (domain.Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &domain.ToolNotFoundError{Name: name}
	}
	return t, nil
}

// List returns tool definitions in registration order, in the
// JSON-schema-compatible shape used for LLM tool selection.
func (r *Registry) List() []domain.ToolDefinition {
	defs := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, domain.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// VerifyIntegrity is the startup self-check: every required name must
// resolve and every registered tool must have an acknowledgment message.
// All problems are reported at once so one run fixes the whole manifest.
func (r *Registry) VerifyIntegrity(required []string, acks map[string]string) error {
	var problems []string

	for _, name := range required {
		if _, ok := r.tools[name]; !ok {
			problems = append(problems, fmt.Sprintf("required tool not registered: %s", name))
		}
	}
	for _, name := range r.order {
		if acks[name] == "" {
			problems = append(problems, fmt.Sprintf("tool has no acknowledgment message: %s", name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("registry integrity check failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
