package openai

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/pkoukk/tiktoken-go"

	"github.com/AaronL1011/polly-ai/llm"
)

// Config holds OpenAI provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig() *Config {
	return &Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   4096,
		Temperature: 0.1,
	}
}

// Provider implements llm.Client for OpenAI chat completions with JSON-schema
// structured outputs.
type Provider struct {
	config *Config
	client openaisdk.Client
	enc    *tiktoken.Tiktoken
}

// New creates a new OpenAI provider using the official SDK.
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := openaisdk.NewClient(opts...)

	// Encoder is optional; proxies that strip usage metadata fall back to it.
	enc, err := tiktoken.EncodingForModel(config.Model)
	if err != nil {
		enc, _ = tiktoken.GetEncoding("cl100k_base")
	}

	return &Provider{
		config: config,
		client: client,
		enc:    enc,
	}
}

// Invoke implements llm.Client.
func (p *Provider) Invoke(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("invoke request cannot be nil")
	}

	messages := []openaisdk.ChatCompletionMessageParamUnion{
		openaisdk.SystemMessage(req.System),
		openaisdk.UserMessage(req.User),
	}

	params := openaisdk.ChatCompletionNewParams{
		Messages: messages,
		Model:    openaisdk.ChatModel(p.config.Model),
	}

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = p.config.Temperature
	}
	if temperature > 0 {
		params.Temperature = param.NewOpt(temperature)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(maxTokens)
	}

	if req.Schema != nil {
		params.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openaisdk.ResponseFormatJSONSchemaParam{
				JSONSchema: openaisdk.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.Schema.Name,
					Description: param.NewOpt(req.Schema.Description),
					Schema:      req.Schema.Definition,
					Strict:      param.NewOpt(true),
				},
			},
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai completion returned no choices")
	}

	content := completion.Choices[0].Message.Content
	usage := llm.Usage{
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		Model:        p.config.Model,
	}
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		usage.InputTokens = p.countTokens(req.System + "\n" + req.User)
		usage.OutputTokens = p.countTokens(content)
	}

	return &llm.Response{Content: content, Usage: usage}, nil
}

func (p *Provider) countTokens(text string) int {
	if p.enc == nil {
		return len(strings.Fields(text))
	}
	return len(p.enc.Encode(text, nil, nil))
}
