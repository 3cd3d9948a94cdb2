package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultConfig returns the built-in configuration: a three-level tree with a
// fan-out floor of two, answered by the Anthropic API.
func DefaultConfig() *Config {
	return &Config{
		Reasoner: ReasonerConfig{
			Provider:    "anthropic",
			MaxTokens:   4096,
			CallTimeout: 2 * time.Minute,
		},
		Engine: EngineConfig{
			MaxDepth:       3,
			MinFanOut:      2,
			DuplicateRoles: "rename",
		},
		TUI: TUIConfig{
			PollInterval: 100 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
			File:  "decomposer.log",
		},
	}
}

// Validate rejects settings the engine or factory cannot honour.
func (c *Config) Validate() error {
	if !slices.Contains(Providers, c.Reasoner.Provider) {
		return fmt.Errorf("unknown reasoner.provider %q (want one of %s)", c.Reasoner.Provider, strings.Join(Providers, ", "))
	}
	if c.Reasoner.CallTimeout < 0 {
		return fmt.Errorf("reasoner.call_timeout must not be negative, got %s", c.Reasoner.CallTimeout)
	}
	if c.Reasoner.MaxRetries < 0 {
		return fmt.Errorf("reasoner.max_retries must not be negative, got %d", c.Reasoner.MaxRetries)
	}
	if c.Engine.MaxDepth < 1 {
		return fmt.Errorf("engine.max_depth must be at least 1, got %d", c.Engine.MaxDepth)
	}
	if c.Engine.MinFanOut < 1 {
		return fmt.Errorf("engine.min_fanout must be at least 1, got %d", c.Engine.MinFanOut)
	}
	if !slices.Contains(DuplicateRolePolicies, c.Engine.DuplicateRoles) {
		return fmt.Errorf("unknown engine.duplicate_roles %q (want one of %s)", c.Engine.DuplicateRoles, strings.Join(DuplicateRolePolicies, ", "))
	}
	if c.Engine.MaxConcurrentCalls < 0 {
		return fmt.Errorf("engine.max_concurrent_calls must not be negative, got %d", c.Engine.MaxConcurrentCalls)
	}
	if c.TUI.PollInterval <= 0 {
		return fmt.Errorf("tui.poll_interval must be positive, got %s", c.TUI.PollInterval)
	}
	return nil
}
