package config

import "time"

// Providers lists the reasoner.provider values the factory understands.
var Providers = []string{"anthropic", "openai", "ollama", "claude", "codex", "goose", "static"}

// DuplicateRolePolicies lists the accepted engine.duplicate_roles values.
var DuplicateRolePolicies = []string{"rename", "overwrite", "drop"}

// ReasonerConfig selects and tunes the reasoning service.
type ReasonerConfig struct {
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`  // may reference ${ENV_VAR}, expanded at use
	BaseURL        string        `mapstructure:"base_url"` // openai-compatible or ollama endpoint
	Command        string        `mapstructure:"command"`  // CLI binary override for claude/codex/goose
	UseBedrock     bool          `mapstructure:"use_bedrock"`
	AWSRegion      string        `mapstructure:"aws_region"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	CircuitBreaker bool          `mapstructure:"circuit_breaker"` // one breaker for the whole run; off by default
}

// EngineConfig bounds the decomposition.
type EngineConfig struct {
	MaxDepth           int    `mapstructure:"max_depth"`
	MinFanOut          int    `mapstructure:"min_fanout"`
	DuplicateRoles     string `mapstructure:"duplicate_roles"`
	MaxConcurrentCalls int    `mapstructure:"max_concurrent_calls"` // 0 = unlimited
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // used while the TUI owns the terminal
}

// Config is the top-level configuration.
type Config struct {
	Reasoner ReasonerConfig `mapstructure:"reasoner"`
	Engine   EngineConfig   `mapstructure:"engine"`
	TUI      TUIConfig      `mapstructure:"tui"`
	Log      LogConfig      `mapstructure:"log"`
}

// setting is one dotted key and its value as written to a config file.
type setting struct {
	key   string
	value any
}

// settings flattens c into dotted keys. Durations are rendered as strings so
// files stay readable and viper decodes them back.
func (c *Config) settings() []setting {
	return []setting{
		{"reasoner.provider", c.Reasoner.Provider},
		{"reasoner.model", c.Reasoner.Model},
		{"reasoner.api_key", c.Reasoner.APIKey},
		{"reasoner.base_url", c.Reasoner.BaseURL},
		{"reasoner.command", c.Reasoner.Command},
		{"reasoner.use_bedrock", c.Reasoner.UseBedrock},
		{"reasoner.aws_region", c.Reasoner.AWSRegion},
		{"reasoner.max_tokens", c.Reasoner.MaxTokens},
		{"reasoner.call_timeout", c.Reasoner.CallTimeout.String()},
		{"reasoner.max_retries", c.Reasoner.MaxRetries},
		{"reasoner.circuit_breaker", c.Reasoner.CircuitBreaker},
		{"engine.max_depth", c.Engine.MaxDepth},
		{"engine.min_fanout", c.Engine.MinFanOut},
		{"engine.duplicate_roles", c.Engine.DuplicateRoles},
		{"engine.max_concurrent_calls", c.Engine.MaxConcurrentCalls},
		{"tui.poll_interval", c.TUI.PollInterval.String()},
		{"log.level", c.Log.Level},
		{"log.file", c.Log.File},
	}
}
