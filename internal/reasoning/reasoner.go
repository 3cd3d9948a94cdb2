// Package reasoning adapts external reasoning services (LLM APIs and local
// agent CLIs) to the two questions the engine asks of every node: elaborate
// this specification, and split it into subtasks.
package reasoning

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// NoMessage is the elaboration stored when a service answers with nothing.
const NoMessage = "No assistant message found."

// DecomposePrompt is the system prompt for decomposition requests.
const DecomposePrompt = "You are an assistant that generates a list of a few (2-4 at most) distinct subprocesses for a codebase oriented project. " +
	"If subprocesses are produced, ensure that at least 2 subprocesses are output. For example, an App may consist of a frontend, backend, " +
	"database, and deployment processes. Each process will have domain over a specific subdirectory and responsibilities related to the codebase. " +
	"Include in the prompt for each subprocess a detailed interface it needs to implement. Given the project specification, output a JSON object " +
	`following this schema: {"processes": [ {"role": <string>, "prompt": <string>, "interface": <string>} ] }`

// Subtask describes one proposed child of a node.
type Subtask struct {
	Role      string `json:"role"`
	Prompt    string `json:"prompt"`
	Interface string `json:"interface,omitempty"` // advisory, carried through unchanged
}

// Elaboration is the outcome of an elaboration request.
type Elaboration struct {
	Text string
	Err  error
}

// Failed reports whether the request failed.
func (e Elaboration) Failed() bool { return e.Err != nil }

// Output renders the outcome as the text stored on a node. Failures become
// "Error: <reason>".
func (e Elaboration) Output() string {
	if e.Err != nil {
		return "Error: " + e.Err.Error()
	}
	return e.Text
}

// Decomposition is the outcome of a decomposition request. A failed request
// carries Err and no subtasks.
type Decomposition struct {
	Subtasks []Subtask
	Err      error
}

// Reasoner answers the engine's two per-node questions. Implementations never
// panic or return Go errors from these methods: failures travel inside the
// result values, and a cancelled ctx produces a failed result.
type Reasoner interface {
	Elaborate(ctx context.Context, prompt string, depth int) Elaboration
	Decompose(ctx context.Context, specification string, depth int) Decomposition
}

// Request is one system+user exchange with a completion service.
type Request struct {
	System string
	User   string
	JSON   bool // ask for a JSON object reply where the service supports it
}

// Completer sends one exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterReasoner implements Reasoner over any Completer: elaboration sends
// the specification as the user turn, decomposition sends it under
// DecomposePrompt and parses the reply.
type CompleterReasoner struct {
	name      string
	completer Completer
	logger    *slog.Logger
}

// NewCompleterReasoner wraps c. name labels log records.
func NewCompleterReasoner(name string, c Completer, logger *slog.Logger) *CompleterReasoner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompleterReasoner{name: name, completer: c, logger: logger}
}

// Elaborate implements Reasoner.
func (r *CompleterReasoner) Elaborate(ctx context.Context, prompt string, depth int) Elaboration {
	r.logger.Info("querying assistant", "provider", r.name, "depth", depth, "prompt", prompt)
	start := time.Now()

	text, err := r.completer.Complete(ctx, Request{User: prompt})
	if err != nil {
		r.logger.Error("assistant query failed", "provider", r.name, "depth", depth, "error", err)
		return Elaboration{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		text = NoMessage
	}

	r.logger.Info("assistant response", "provider", r.name, "depth", depth,
		"duration", time.Since(start), "response", text)
	return Elaboration{Text: text}
}

// Decompose implements Reasoner.
func (r *CompleterReasoner) Decompose(ctx context.Context, specification string, depth int) Decomposition {
	r.logger.Info("querying for subtasks", "provider", r.name, "depth", depth, "specification", specification)

	text, err := r.completer.Complete(ctx, Request{System: DecomposePrompt, User: specification, JSON: true})
	if err != nil {
		r.logger.Error("subtask query failed", "provider", r.name, "depth", depth, "error", err)
		return Decomposition{Err: err}
	}

	subtasks, err := ParseSubtasks(text)
	if err != nil {
		r.logger.Error("subtask reply unusable", "provider", r.name, "depth", depth, "error", err)
		return Decomposition{Err: err}
	}

	r.logger.Info("received subtasks", "provider", r.name, "depth", depth, "count", len(subtasks), "roles", roles(subtasks))
	return Decomposition{Subtasks: subtasks}
}

func roles(subtasks []Subtask) []string {
	out := make([]string, len(subtasks))
	for i, s := range subtasks {
		out[i] = s.Role
	}
	return out
}
