package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFakeCLI writes an executable shell script standing in for an agent CLI.
func writeFakeCLI(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-cli")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake CLI: %v", err)
	}
	return path
}

func TestFactory_CreatesEachAdapter(t *testing.T) {
	pm := NewProcessManager()

	for _, typ := range []string{"claude", "codex", "goose"} {
		b, err := New(Config{Type: typ, WorkDir: t.TempDir()}, pm)
		if err != nil {
			t.Fatalf("%s: expected no error, got: %v", typ, err)
		}
		if b == nil {
			t.Fatalf("%s: expected non-nil backend", typ)
		}
		if err := b.Close(); err != nil {
			t.Errorf("%s: Close returned %v", typ, err)
		}
	}
}

func TestFactory_UnknownType(t *testing.T) {
	_, err := New(Config{Type: "unknown"}, nil)
	if err == nil {
		t.Fatal("Expected error for unknown backend type, got nil")
	}
	if !strings.Contains(err.Error(), "unknown backend type") {
		t.Errorf("Expected 'unknown backend type' error, got: %v", err)
	}
}

func TestFactory_CommandDefaultsToType(t *testing.T) {
	if got := (Config{Type: "goose"}).command(); got != "goose" {
		t.Errorf("Expected command 'goose', got %q", got)
	}
	if got := (Config{Type: "goose", Command: "/opt/goose"}).command(); got != "/opt/goose" {
		t.Errorf("Expected command override, got %q", got)
	}
}

func TestInlineSystem(t *testing.T) {
	if got := inlineSystem(Message{Content: "do it"}); got != "do it" {
		t.Errorf("Expected bare content, got %q", got)
	}
	got := inlineSystem(Message{Content: "do it", System: "be brief"})
	if got != "be brief\n\ndo it" {
		t.Errorf("Expected system prompt before content, got %q", got)
	}
}

func TestAdapters_SendThroughFakeCLI(t *testing.T) {
	tests := []struct {
		typ    string
		output string
		want   string
	}{
		{"claude", `{"type":"result","is_error":false,"result":"claude says hi"}`, "claude says hi"},
		{"codex", `{"type":"ThreadStarted","thread_id":"t1"}
{"type":"TurnCompleted","content":"codex says hi"}`, "codex says hi"},
		{"goose", `{"content":"goose says hi"}`, "goose says hi"},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			cli := writeFakeCLI(t, "cat <<'OUT'\n"+tt.output+"\nOUT")
			pm := NewProcessManager()

			b, err := New(Config{Type: tt.typ, Command: cli, WorkDir: t.TempDir()}, pm)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}

			resp, err := b.Send(context.Background(), Message{Content: "hello", System: "sys"})
			if err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			if resp.Content != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, resp.Content)
			}
			if pm.Count() != 0 {
				t.Errorf("Expected process to be untracked after Send, %d still tracked", pm.Count())
			}
		})
	}
}

func TestAdapters_SendReportsCommandFailure(t *testing.T) {
	cli := writeFakeCLI(t, "echo boom >&2; exit 3")

	b, err := New(Config{Type: "codex", Command: cli}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	resp, err := b.Send(context.Background(), Message{Content: "hello"})
	if err == nil {
		t.Fatal("Expected error from failing CLI, got nil")
	}
	if !strings.Contains(resp.Error, "codex command failed") {
		t.Errorf("Expected failure description in response, got %q", resp.Error)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected stderr in error, got: %v", err)
	}
}
