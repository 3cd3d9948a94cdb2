package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// GooseAdapter is a Backend implementation for the Goose CLI.
// Goose supports local LLM providers (Ollama, LM Studio, llama.cpp) via --provider and --model flags.
type GooseAdapter struct {
	command  string
	workDir  string
	model    string
	provider string
	procMgr  *ProcessManager
}

// gooseResponse represents the JSON response structure from Goose CLI.
// Goose's JSON output format is less documented, so this struct is flexible.
type gooseResponse struct {
	Content string `json:"content"`
}

// NewGooseAdapter creates a new Goose adapter.
func NewGooseAdapter(cfg Config, procMgr *ProcessManager) (*GooseAdapter, error) {
	command := cfg.command()
	if command == "" {
		command = "goose"
	}

	return &GooseAdapter{
		command:  command,
		workDir:  cfg.WorkDir,
		model:    cfg.Model,
		provider: cfg.Provider,
		procMgr:  procMgr,
	}, nil
}

// Send runs one sessionless Goose invocation and returns the response.
func (g *GooseAdapter) Send(ctx context.Context, msg Message) (Response, error) {
	cmd := newCommand(ctx, g.command, g.buildArgs(msg)...)
	cmd.Dir = g.workDir

	stdout, stderr, err := executeCommand(ctx, cmd, g.procMgr)
	if err != nil {
		return Response{
			Error: fmt.Sprintf("goose command failed: %v", err),
		}, err
	}

	resp, parseErr := parseGooseResponse(stdout)
	if parseErr != nil {
		// Older Goose builds ignore --output-format and print plain text
		resp = Response{Content: string(stdout)}
		if len(stderr) > 0 {
			resp.Content = string(stdout) + "\n[stderr]: " + string(stderr)
		}
	}

	return resp, nil
}

// buildArgs constructs the command-line arguments for the Goose CLI.
func (g *GooseAdapter) buildArgs(msg Message) []string {
	args := []string{"run", "--text", msg.Content, "--output-format", "json", "--no-session"}

	if g.provider != "" {
		args = append(args, "--provider", g.provider)
	}
	if g.model != "" {
		args = append(args, "--model", g.model)
	}
	if msg.System != "" {
		args = append(args, "--system", msg.System)
	}

	return args
}

// parseGooseResponse parses the JSON response from Goose CLI.
// Tries parsing as a single JSON object first.
// If that fails, tries newline-delimited JSON (stream-json format).
func parseGooseResponse(data []byte) (Response, error) {
	var gooseResp gooseResponse
	if err := json.Unmarshal(data, &gooseResp); err == nil {
		return Response{Content: gooseResp.Content}, nil
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var contents []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var lineResp gooseResponse
		if err := json.Unmarshal([]byte(line), &lineResp); err == nil {
			if lineResp.Content != "" {
				contents = append(contents, lineResp.Content)
			}
		}
	}

	if len(contents) > 0 {
		return Response{Content: strings.Join(contents, "\n")}, nil
	}

	return Response{}, fmt.Errorf("failed to parse Goose JSON response")
}

// Close is a no-op: each Goose invocation is its own subprocess.
func (g *GooseAdapter) Close() error {
	return nil
}
