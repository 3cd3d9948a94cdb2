package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/semaphore"

	"github.com/aristath/decomposer/internal/backend"
	"github.com/aristath/decomposer/internal/config"
)

// ErrUnknownProvider is returned by New for an unrecognised reasoner.provider.
var ErrUnknownProvider = errors.New("unknown reasoner provider")

// New builds the Reasoner named by cfg.Reasoner.Provider, guarded according
// to cfg. pm tracks CLI subprocesses and may be nil for API providers.
func New(ctx context.Context, cfg *config.Config, pm *backend.ProcessManager, logger *slog.Logger) (Reasoner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rc := cfg.Reasoner

	var completer Completer
	switch rc.Provider {
	case "static":
		return Static{}, nil

	case "anthropic":
		c, err := NewAnthropicCompleter(ctx, AnthropicOptions{
			Model:      rc.Model,
			APIKey:     os.ExpandEnv(rc.APIKey),
			BaseURL:    rc.BaseURL,
			UseBedrock: rc.UseBedrock,
			AWSRegion:  rc.AWSRegion,
			MaxTokens:  rc.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		completer = c

	case "openai", "ollama":
		opts := LLMOptions{
			Model:     rc.Model,
			APIKey:    os.ExpandEnv(rc.APIKey),
			BaseURL:   rc.BaseURL,
			MaxTokens: rc.MaxTokens,
		}
		var (
			c   *LLMCompleter
			err error
		)
		if rc.Provider == "openai" {
			c, err = NewOpenAICompleter(opts)
		} else {
			c, err = NewOllamaCompleter(opts)
		}
		if err != nil {
			return nil, err
		}
		completer = c

	case "claude", "codex", "goose":
		b, err := backend.New(backend.Config{
			Type:    rc.Provider,
			Command: rc.Command,
			Model:   rc.Model,
		}, pm)
		if err != nil {
			return nil, fmt.Errorf("creating %s backend: %w", rc.Provider, err)
		}
		completer = NewBackendCompleter(b)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, rc.Provider)
	}

	return Guarded(cfg, rc.Provider, completer, logger), nil
}

// Guarded wraps completer in the Guard cfg asks for and returns the Reasoner
// the engine uses. name labels logs and the breaker.
func Guarded(cfg *config.Config, name string, completer Completer, logger *slog.Logger) *CompleterReasoner {
	if logger == nil {
		logger = slog.Default()
	}
	rc := cfg.Reasoner

	retry := DefaultRetryConfig()
	retry.MaxRetries = rc.MaxRetries

	var limiter *semaphore.Weighted
	if n := cfg.Engine.MaxConcurrentCalls; n > 0 {
		limiter = semaphore.NewWeighted(int64(n))
	}

	guard := NewGuard(completer, GuardOptions{
		Name:        name,
		CallTimeout: rc.CallTimeout,
		Retry:       retry,
		Limiter:     limiter,
		Breaker:     rc.CircuitBreaker,
		Logger:      logger,
	})
	return NewCompleterReasoner(name, guard, logger)
}
