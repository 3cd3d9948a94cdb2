package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CodexAdapter is the Codex CLI backend adapter.
// It uses the `codex` CLI tool to interact with OpenAI's GPT models.
type CodexAdapter struct {
	command string
	workDir string
	model   string
	procMgr *ProcessManager
}

// codexEvent is the base event type for all Codex events.
type codexEvent struct {
	Type string `json:"type"`
}

// codexTurnCompleted represents the TurnCompleted event.
type codexTurnCompleted struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// NewCodexAdapter creates a new Codex backend adapter.
func NewCodexAdapter(cfg Config, procMgr *ProcessManager) (*CodexAdapter, error) {
	command := cfg.command()
	if command == "" {
		command = "codex"
	}

	return &CodexAdapter{
		command: command,
		workDir: cfg.WorkDir,
		model:   cfg.Model,
		procMgr: procMgr,
	}, nil
}

// Send runs `codex exec` once and returns the final turn's content.
func (c *CodexAdapter) Send(ctx context.Context, msg Message) (Response, error) {
	cmd := newCommand(ctx, c.command, c.buildArgs(msg)...)
	cmd.Dir = c.workDir

	stdout, _, err := executeCommand(ctx, cmd, c.procMgr)
	if err != nil {
		return Response{
			Error: fmt.Sprintf("codex command failed: %v", err),
		}, err
	}

	content, parseErr := parseCodexEvents(stdout)
	if parseErr != nil {
		return Response{
			Error: fmt.Sprintf("failed to parse codex events: %v", parseErr),
		}, parseErr
	}

	return Response{Content: content}, nil
}

// buildArgs constructs the command arguments for codex CLI:
// ["exec", prompt, "--json"]. Codex has no system prompt flag, so the system
// prompt is folded into the message.
func (c *CodexAdapter) buildArgs(msg Message) []string {
	args := []string{"exec", inlineSystem(msg), "--json"}

	if c.model != "" {
		args = append(args, "--model", c.model)
	}

	return args
}

// parseCodexEvents parses newline-delimited JSON events from Codex CLI output
// and returns the content of the last TurnCompleted event.
func parseCodexEvents(data []byte) (content string, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var evt codexEvent
		if parseErr := json.Unmarshal([]byte(line), &evt); parseErr != nil {
			return "", fmt.Errorf("failed to parse event type: %w", parseErr)
		}

		if evt.Type == "TurnCompleted" {
			var completed codexTurnCompleted
			if parseErr := json.Unmarshal([]byte(line), &completed); parseErr != nil {
				return "", fmt.Errorf("failed to parse TurnCompleted event: %w", parseErr)
			}
			content = completed.Content
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading events: %w", err)
	}

	return content, nil
}

// Close is a no-op: Codex is invoked per message.
func (c *CodexAdapter) Close() error {
	return nil
}
