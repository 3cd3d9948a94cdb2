package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	MaxRetries          int           // Retries after the first attempt (default 0)
	InitialInterval     time.Duration // Initial retry interval (default 100ms)
	MaxInterval         time.Duration // Maximum retry interval (default 10s)
	MaxElapsedTime      time.Duration // Maximum total retry time (default 2min)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration: a single
// attempt, with the backoff shape used once MaxRetries is raised.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:          0,
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// GuardOptions configures a Guard.
type GuardOptions struct {
	Name        string        // provider name; labels the breaker and logs
	CallTimeout time.Duration // per attempt; 0 disables
	Retry       RetryConfig
	Limiter     *semaphore.Weighted // shared in-flight cap; nil = unlimited
	Breaker     bool                // fail fast after repeated failures; shared by every caller
	Logger      *slog.Logger
}

// Guard decorates a Completer with a per-call timeout, bounded retry, an
// optional circuit breaker and an optional in-flight cap shared with other
// guards. The cap is held only while a call is in flight, never during
// backoff. Without a breaker every call reaches the service, so one caller's
// failures never fail another's calls.
type Guard struct {
	inner   Completer
	name    string
	timeout time.Duration
	retry   RetryConfig
	limiter *semaphore.Weighted
	breaker *gobreaker.CircuitBreaker // nil when disabled
	logger  *slog.Logger
}

// NewGuard wraps inner.
func NewGuard(inner Completer, opts GuardOptions) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{
		inner:   inner,
		name:    opts.Name,
		timeout: opts.CallTimeout,
		retry:   opts.Retry,
		limiter: opts.Limiter,
		logger:  logger,
	}
	if opts.Breaker {
		g.breaker = newBreaker(opts.Name, logger)
	}
	return g
}

func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // Allow 3 test requests in half-open state
		Interval:    0,                // Don't clear counts automatically
		Timeout:     30 * time.Second, // Stay open for 30s before testing recovery
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "provider", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Cancellation by the caller says nothing about the service
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// BreakerState reports the breaker's current state. A disabled breaker is
// always closed.
func (g *Guard) BreakerState() gobreaker.State {
	if g.breaker == nil {
		return gobreaker.StateClosed
	}
	return g.breaker.State()
}

// Complete implements Completer.
func (g *Guard) Complete(ctx context.Context, req Request) (string, error) {
	var out string
	attempt := 0

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		attempt++

		text, err := g.call(ctx, req)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fmt.Errorf("%s: %w", g.name, err))
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			if attempt <= g.retry.MaxRetries {
				g.logger.Warn("reasoner call failed, retrying", "provider", g.name, "attempt", attempt, "error", err)
			}
			return err
		}

		out = text
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.retry.InitialInterval
	policy.MaxInterval = g.retry.MaxInterval
	policy.MaxElapsedTime = g.retry.MaxElapsedTime
	policy.Multiplier = g.retry.Multiplier
	policy.RandomizationFactor = g.retry.RandomizationFactor

	retries := g.retry.MaxRetries
	if retries < 0 {
		retries = 0
	}
	err := backoff.Retry(operation, backoff.WithMaxRetries(backoff.WithContext(policy, ctx), uint64(retries)))
	return out, err
}

// call makes one attempt under the limiter, the breaker and the timeout.
func (g *Guard) call(ctx context.Context, req Request) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer g.limiter.Release(1)
	}

	if g.breaker == nil {
		return g.attempt(ctx, req)
	}
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.attempt(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (g *Guard) attempt(ctx context.Context, req Request) (string, error) {
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.inner.Complete(callCtx, req)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("call timed out after %s: %w", g.timeout, err)
	}
	return text, err
}
