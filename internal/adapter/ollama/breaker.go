package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"colloquy/internal/domain"
	"colloquy/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerGenerator wraps a TextGenerator with circuit breaker protection.
// When the wrapped generator fails repeatedly, the circuit opens and
// subsequent calls fail fast without reaching the server, preventing retry
// storms against a struggling local model.
type BreakerGenerator struct {
	inner   domain.TextGenerator
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger
}

var _ domain.TextGenerator = (*BreakerGenerator)(nil)

// NewBreakerGenerator wraps inner with a circuit breaker.
// Zero-valued config fields fall back to the defaults.
func NewBreakerGenerator(inner domain.TextGenerator, cfg config.BreakerConfig, logger *slog.Logger) *BreakerGenerator {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "ollama",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &BreakerGenerator{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Generate implements domain.TextGenerator. Calls are routed through the
// circuit breaker.
func (g *BreakerGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	out, err := g.breaker.Execute(func() (string, error) {
		return g.inner.Generate(ctx, prompt, model)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", fmt.Errorf("generation circuit open: %w", err)
		}
		return "", err
	}
	return out, nil
}

// Stream implements domain.TextGenerator. The breaker protects the whole
// streaming call; a stream that fails mid-way counts as a failure.
func (g *BreakerGenerator) Stream(ctx context.Context, prompt, model string, onToken domain.TokenFunc) (string, error) {
	out, err := g.breaker.Execute(func() (string, error) {
		return g.inner.Stream(ctx, prompt, model, onToken)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", fmt.Errorf("generation circuit open: %w", err)
		}
		return out, err
	}
	return out, nil
}

// ListModels bypasses the breaker: the inner client already degrades to its
// fallback list and never returns an error worth tripping on.
func (g *BreakerGenerator) ListModels(ctx context.Context) ([]string, error) {
	return g.inner.ListModels(ctx)
}

// State returns the current breaker state for diagnostics.
func (g *BreakerGenerator) State() gobreaker.State {
	return g.breaker.State()
}
