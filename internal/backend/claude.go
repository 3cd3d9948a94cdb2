package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// ClaudeAdapter implements the Backend interface for Claude Code CLI.
type ClaudeAdapter struct {
	command string
	workDir string
	model   string
	procMgr *ProcessManager
}

// claudeResponse represents the JSON structure returned by Claude Code CLI.
// Result is either the reply text or an object carrying content blocks,
// depending on the CLI version.
// Example: {"type": "result", "is_error": false, "result": "response"}
type claudeResponse struct {
	IsError bool            `json:"is_error"`
	Result  json.RawMessage `json:"result"`
}

type claudeContent struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewClaudeAdapter creates a new Claude Code backend adapter.
// The ProcessManager is optional - if nil, subprocesses won't be tracked.
func NewClaudeAdapter(cfg Config, procMgr *ProcessManager) (*ClaudeAdapter, error) {
	workDir := cfg.WorkDir
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	command := cfg.command()
	if command == "" {
		command = "claude"
	}

	return &ClaudeAdapter{
		command: command,
		workDir: workDir,
		model:   cfg.Model,
		procMgr: procMgr,
	}, nil
}

// Send runs one non-interactive Claude Code invocation.
func (a *ClaudeAdapter) Send(ctx context.Context, msg Message) (Response, error) {
	cmd := newCommand(ctx, a.command, a.buildArgs(msg)...)
	cmd.Dir = a.workDir

	stdout, stderr, err := executeCommand(ctx, cmd, a.procMgr)
	if err != nil {
		return Response{
			Error: fmt.Sprintf("claude command failed: %v", err),
		}, err
	}

	resp, err := parseClaudeResponse(stdout)
	if err != nil {
		return Response{
			Error: fmt.Sprintf("failed to parse claude response: %v (stderr: %s)", err, string(stderr)),
		}, err
	}

	return resp, nil
}

// Close is a no-op for Claude Code (subprocess-per-invocation model).
func (a *ClaudeAdapter) Close() error {
	return nil
}

// buildArgs constructs the command-line arguments for the claude CLI.
func (a *ClaudeAdapter) buildArgs(msg Message) []string {
	args := []string{"-p", msg.Content, "--output-format", "json"}

	if a.model != "" {
		args = append(args, "--model", a.model)
	}
	if msg.System != "" {
		args = append(args, "--system-prompt", msg.System)
	}

	return args
}

// parseClaudeResponse parses the JSON output from Claude Code CLI.
func parseClaudeResponse(data []byte) (Response, error) {
	var cr claudeResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return Response{}, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	content, err := claudeResultText(cr.Result)
	if err != nil {
		return Response{}, err
	}

	if cr.IsError {
		return Response{Error: content}, fmt.Errorf("claude reported an error: %s", content)
	}

	return Response{Content: content}, nil
}

func claudeResultText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", fmt.Errorf("failed to unmarshal result text: %w", err)
		}
		return text, nil
	}

	var cc claudeContent
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("failed to unmarshal result content: %w", err)
	}

	var content string
	for _, item := range cc.Content {
		if item.Type == "text" {
			content += item.Text
		}
	}
	return content, nil
}
