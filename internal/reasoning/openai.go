package reasoning

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LLMOptions configures a langchaingo-backed completer.
type LLMOptions struct {
	Model     string
	APIKey    string // openai only; falls back to OPENAI_API_KEY
	BaseURL   string
	MaxTokens int
}

// LLMCompleter completes requests through a langchaingo model, which covers
// OpenAI (and compatible endpoints) and local Ollama servers.
type LLMCompleter struct {
	model     llms.Model
	maxTokens int
	jsonMode  bool
}

// NewOpenAICompleter builds an OpenAI chat completer. JSON mode is used for
// decomposition requests.
func NewOpenAICompleter(opts LLMOptions) (*LLMCompleter, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: no API key (set reasoner.api_key or OPENAI_API_KEY)")
	}

	model := opts.Model
	if model == "" {
		model = "gpt-4o"
	}

	clientOpts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}

	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	return &LLMCompleter{model: client, maxTokens: opts.MaxTokens, jsonMode: true}, nil
}

// NewOllamaCompleter builds a completer for a local Ollama server.
func NewOllamaCompleter(opts LLMOptions) (*LLMCompleter, error) {
	serverURL := opts.BaseURL
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}

	clientOpts := []ollama.Option{ollama.WithServerURL(serverURL)}
	if opts.Model != "" {
		clientOpts = append(clientOpts, ollama.WithModel(opts.Model))
	}

	client, err := ollama.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	return &LLMCompleter{model: client, maxTokens: opts.MaxTokens}, nil
}

// Complete implements Completer.
func (c *LLMCompleter) Complete(ctx context.Context, req Request) (string, error) {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	var callOpts []llms.CallOption
	if c.maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.maxTokens))
	}
	if req.JSON && c.jsonMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	resp, err := c.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
