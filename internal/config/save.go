package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Save persists the configuration as YAML.
// Creates parent directories if they don't exist. The file may hold an API
// key, so it is written owner-only.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(nest(cfg.settings()))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// nest turns dotted keys into the section maps the loader expects.
func nest(settings []setting) map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, s := range settings {
		section, key, _ := strings.Cut(s.key, ".")
		if out[section] == nil {
			out[section] = make(map[string]any)
		}
		out[section][key] = s.value
	}
	return out
}
