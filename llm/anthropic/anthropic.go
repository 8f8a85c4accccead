package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/AaronL1011/polly-ai/llm"
)

// Config holds Anthropic provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Anthropic configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "claude-3-5-sonnet-20241022",
		MaxTokens:   4096,
		Temperature: 0.1,
	}
}

// Provider implements llm.Client for Anthropic. Schema-constrained requests
// are expressed as a single forced tool call whose input schema is the
// requested output schema; the tool input becomes the response content.
type Provider struct {
	config *Config
	client anthropicsdk.Client
}

// New creates a new Anthropic provider using the official SDK.
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "claude-3-5-sonnet-20241022"
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		config: config,
		client: anthropicsdk.NewClient(opts...),
	}
}

// Invoke implements llm.Client.
func (p *Provider) Invoke(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("invoke request cannot be nil")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.config.MaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(p.config.Model),
		MaxTokens: maxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.User)),
		},
		System: []anthropicsdk.TextBlockParam{
			{Text: req.System},
		},
	}

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = p.config.Temperature
	}
	if temperature > 0 {
		params.Temperature = param.NewOpt(temperature)
	}

	if req.Schema != nil {
		params.Tools = []anthropicsdk.ToolUnionParam{
			{
				OfTool: &anthropicsdk.ToolParam{
					Name:        req.Schema.Name,
					Description: param.NewOpt(req.Schema.Description),
					InputSchema: anthropicsdk.ToolInputSchemaParam{
						Properties: req.Schema.Definition["properties"],
						Required:   toStringSlice(req.Schema.Definition["required"]),
					},
				},
			},
		}
		params.ToolChoice = anthropicsdk.ToolChoiceUnionParam{
			OfTool: &anthropicsdk.ToolChoiceToolParam{Name: req.Schema.Name},
		}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic message: %w", err)
	}

	content, err := extractContent(msg, req.Schema != nil)
	if err != nil {
		return nil, err
	}

	return &llm.Response{
		Content: content,
		Usage: llm.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			Model:        p.config.Model,
		},
	}, nil
}

func extractContent(msg *anthropicsdk.Message, structured bool) (string, error) {
	for _, block := range msg.Content {
		if structured {
			if block.Type == "tool_use" {
				raw, err := json.Marshal(block.AsToolUse().Input)
				if err != nil {
					return "", fmt.Errorf("anthropic tool input: %w", err)
				}
				return string(raw), nil
			}
			continue
		}
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic message had no usable content block")
}

func toStringSlice(v any) []string {
	items, ok := v.([]string)
	if ok {
		return items
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
