package backend

// Message is one request to a CLI backend.
type Message struct {
	Content string
	System  string // optional system prompt for this call only
}

// Response is the text a CLI backend produced for one Message.
type Response struct {
	Content string
	Error   string
}

// Config defines the configuration for a backend.
type Config struct {
	Type     string // "claude", "codex", or "goose"
	Command  string // executable override; defaults to Type
	WorkDir  string
	Model    string
	Provider string // For Goose local LLMs (e.g., "ollama", "lmstudio", "llama.cpp")
}

func (c Config) command() string {
	if c.Command != "" {
		return c.Command
	}
	return c.Type
}
