// Package llm defines the contract the pipeline agents use to talk to
// language models. Providers live in subpackages (llm/openai, llm/anthropic).
package llm

import "context"

// Usage reports token consumption for a single invocation.
type Usage struct {
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model"`
}

// Add accumulates another usage record into this one. The model of the most
// recent non-empty report wins.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	if other.Model != "" {
		u.Model = other.Model
	}
}

// Schema describes a JSON-schema constraint on the model output. When a
// request carries a schema the provider must force the model to emit a JSON
// object matching it (response_format for OpenAI, a forced tool call for
// Anthropic).
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Request bundles inputs for a single non-streaming invocation.
type Request struct {
	System      string
	User        string
	Schema      *Schema // nil means free-form text output
	Temperature float64
	MaxTokens   int64
}

// Response carries the model reply. Content holds raw text; when the request
// carried a schema it is the JSON document the model produced.
type Response struct {
	Content string
	Usage   Usage
}

// Client is the interface pipeline agents invoke models through.
type Client interface {
	Invoke(ctx context.Context, req *Request) (*Response, error)
}

// ObjectSchema is a convenience constructor for the common case of an object
// schema with required properties and no additional fields.
func ObjectSchema(name string, properties map[string]any, required []string) *Schema {
	return &Schema{
		Name: name,
		Definition: map[string]any{
			"type":                 "object",
			"properties":           properties,
			"required":             required,
			"additionalProperties": false,
		},
	}
}
