package reasoning

import (
	"context"
	"errors"

	"github.com/aristath/decomposer/internal/backend"
)

// BackendCompleter completes requests by running a local agent CLI once per
// request.
type BackendCompleter struct {
	backend backend.Backend
}

// NewBackendCompleter wraps b.
func NewBackendCompleter(b backend.Backend) *BackendCompleter {
	return &BackendCompleter{backend: b}
}

// Complete implements Completer. The CLI's own failure text is preferred over
// the process error when both are present.
func (c *BackendCompleter) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.backend.Send(ctx, backend.Message{Content: req.User, System: req.System})
	if err != nil {
		if resp.Error != "" && ctx.Err() == nil {
			return "", errors.New(resp.Error)
		}
		return "", err
	}
	return resp.Content, nil
}
