package reasoning

import (
	"context"
	"fmt"
)

// Static is an offline Reasoner for dry runs: it echoes each specification
// back as the elaboration and never proposes subtasks, so every run yields a
// single resolved root.
type Static struct{}

// Elaborate implements Reasoner.
func (Static) Elaborate(ctx context.Context, prompt string, depth int) Elaboration {
	if err := ctx.Err(); err != nil {
		return Elaboration{Err: err}
	}
	return Elaboration{Text: fmt.Sprintf("[depth %d] %s", depth, prompt)}
}

// Decompose implements Reasoner.
func (Static) Decompose(ctx context.Context, specification string, depth int) Decomposition {
	if err := ctx.Err(); err != nil {
		return Decomposition{Err: err}
	}
	return Decomposition{}
}
