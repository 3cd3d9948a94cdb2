package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveCreatesParentDirOwnerOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "config.yaml")

	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Expected mode 0600, got %o", perm)
	}
}

func TestSaveWritesReadableYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	text := string(data)
	for _, want := range []string{"engine:", "max_depth: 3", "call_timeout: 2m0s", "poll_interval: 100ms"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in saved YAML:\n%s", want, text)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Reasoner.Provider = "goose"
	cfg.Reasoner.Model = "llama3"
	cfg.Reasoner.APIKey = "${GOOSE_KEY}"
	cfg.Reasoner.CallTimeout = 90 * time.Second
	cfg.Engine.MaxDepth = 5
	cfg.Engine.DuplicateRoles = "overwrite"
	cfg.Engine.MaxConcurrentCalls = 4
	cfg.TUI.PollInterval = 250 * time.Millisecond

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load("", path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if *loaded != *cfg {
		t.Errorf("Round trip mismatch:\n got  %+v\n want %+v", *loaded, *cfg)
	}
}

func TestSaveOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	first := DefaultConfig()
	first.Engine.MaxDepth = 7
	if err := Save(first, path); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	second := DefaultConfig()
	second.Engine.MaxDepth = 2
	if err := Save(second, path); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := Load("", path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Engine.MaxDepth != 2 {
		t.Errorf("Expected second save to win, got max depth %d", loaded.Engine.MaxDepth)
	}
}
