package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports a missing or malformed required field. It is raised
// before any provider call and never wraps a provider failure.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

// DuplicateToolError is returned when a tool name is registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// ToolNotFoundError is terminal at the orchestrator level: the turn is
// recorded as a failed Command without any provider attempt.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// ProviderError tags a failure with the provider responsible for it.
type ProviderError struct {
	Provider ProviderName
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ExhaustedError aggregates the ordered, provider-tagged failures of a
// fallback chain whose every attempt failed.
type ExhaustedError struct {
	Attempts []*ProviderError
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// PersistenceError marks a Command Recorder write failure. It is reported to
// the caller but never reverses a completed tool execution.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
