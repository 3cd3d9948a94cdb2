package backend

import (
	"context"
	"fmt"
)

// Backend is a local agent CLI that answers one message per subprocess.
// Calls share no conversation state, so a Backend may be used from many
// goroutines at once.
type Backend interface {
	// Send runs the CLI once for msg and returns its reply.
	Send(ctx context.Context, msg Message) (Response, error)

	// Close releases anything the adapter holds.
	Close() error
}

// New creates a new backend based on the provided configuration.
func New(cfg Config, pm *ProcessManager) (Backend, error) {
	switch cfg.Type {
	case "claude":
		return NewClaudeAdapter(cfg, pm)
	case "codex":
		return NewCodexAdapter(cfg, pm)
	case "goose":
		return NewGooseAdapter(cfg, pm)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}

// inlineSystem prepends the system prompt for CLIs without a flag for it.
func inlineSystem(msg Message) string {
	if msg.System == "" {
		return msg.Content
	}
	return msg.System + "\n\n" + msg.Content
}
