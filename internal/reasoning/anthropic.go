package reasoning

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// AnthropicOptions configures the Anthropic Messages API completer.
type AnthropicOptions struct {
	Model      string
	APIKey     string // falls back to ANTHROPIC_API_KEY
	BaseURL    string // optional proxy or gateway
	UseBedrock bool
	AWSRegion  string
	MaxTokens  int
}

// AnthropicCompleter completes requests through the Anthropic Messages API,
// directly or via AWS Bedrock.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicCompleter builds a client from opts.
func NewAnthropicCompleter(ctx context.Context, opts AnthropicOptions) (*AnthropicCompleter, error) {
	var reqOpts []option.RequestOption

	if opts.UseBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if opts.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(opts.AWSRegion))
		}
		reqOpts = append(reqOpts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := opts.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic: no API key (set reasoner.api_key or ANTHROPIC_API_KEY)")
		}
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
		if opts.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
		}
	}

	model := anthropic.Model(opts.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if opts.UseBedrock {
		model = bedrockModel(model)
	}

	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &AnthropicCompleter{
		client:    anthropic.NewClient(reqOpts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// bedrockModel maps an Anthropic model name to its cross-region Bedrock
// inference profile. Names already in Bedrock form pass through.
func bedrockModel(model anthropic.Model) anthropic.Model {
	name := string(model)
	if strings.Contains(name, "anthropic.") {
		return model
	}
	return anthropic.Model("us.anthropic." + name + "-v1:0")
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
