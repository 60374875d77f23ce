package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"mediabot/internal/domain"
)

const defaultMaxAttempts = 3

// Coordinator tries providers for one capability in caller-supplied order,
// stopping at the first success. Order reflects cost/quality preference and
// is never randomized, so repeated failures are deterministic. Attempts are
// sequential-immediate; the cap bounds latency for one user turn even when
// more providers are configured.
type Coordinator struct {
	maxAttempts int
	logger      *slog.Logger
}

func NewCoordinator(maxAttempts int, logger *slog.Logger) *Coordinator {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Coordinator{maxAttempts: maxAttempts, logger: logger}
}

// Dispatch validates the request and walks the provider chain. On exhaustion
// it returns a *domain.ExhaustedError carrying every attempt's error tagged
// with the provider that produced it, in attempt order.
func (c *Coordinator) Dispatch(ctx context.Context, req domain.TaskRequest, providers []domain.TaskProvider) (*domain.TaskResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no provider configured for task type %s", req.Type)
	}

	// The cap counts Generate calls, not chain positions: a provider skipped
	// for lack of support made no attempt and must not starve the rest of
	// the chain.
	var attempts []*domain.ProviderError
	for i, p := range providers {
		if len(attempts) >= c.maxAttempts {
			c.logger.Warn("attempt cap reached, giving up",
				"task", req.Type, "cap", c.maxAttempts, "remaining", len(providers)-i)
			break
		}
		if !p.Supports(req.Type) {
			c.logger.Warn("provider does not support task type, skipping",
				"provider", p.Name(), "task", req.Type)
			continue
		}

		res, err := p.Generate(ctx, req)
		if err == nil {
			if len(attempts) > 0 {
				c.logger.Info("dispatch: used fallback provider",
					"provider", p.Name(), "attempt", len(attempts)+1)
			}
			return res, nil
		}

		// Cooperative cancellation ends the chain without blaming a provider.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		attempts = append(attempts, &domain.ProviderError{Provider: p.Name(), Err: err})
		c.logger.Warn("dispatch: provider failed, trying next",
			"provider", p.Name(), "attempt", len(attempts), "error", err)
	}

	if len(attempts) == 0 {
		return nil, fmt.Errorf("no provider attempted task type %s", req.Type)
	}
	return nil, &domain.ExhaustedError{Attempts: attempts}
}
