package pipeline

import (
	"strings"
	"time"

	"github.com/AaronL1011/polly-ai/llm"
)

// Config controls the behaviour of the query pipeline. It groups retrieval
// parameters, stage prompts, and cost/cache knobs so callers can construct
// reproducible pipelines from a single struct.
type Config struct {
	DefaultTopK             int           // Chunks pulled per vector search
	MinChunksForSufficiency int           // Sufficiency gate threshold
	CacheTTL                time.Duration // Result cache lifetime
	CostMargin              float64       // Margin fraction added to the raw cost subtotal
	VerifierEnabled         bool          // Toggle the verification stage
	ComposerModel           string        // Model name recorded when the composer reports none

	PlannerPrompt  string // Planner user-prompt template (one %s: the query)
	ComposerPrompt string // Composer system prompt
}

// Clients provides the LLM client for each stage. Default fills any stage
// left nil.
type Clients struct {
	Default   llm.Client
	Planner   llm.Client
	Extractor llm.Client
	Composer  llm.Client
	Verifier  llm.Client
}

func (c Clients) planner() llm.Client {
	if c.Planner != nil {
		return c.Planner
	}
	return c.Default
}

func (c Clients) extractor() llm.Client {
	if c.Extractor != nil {
		return c.Extractor
	}
	return c.Default
}

func (c Clients) composer() llm.Client {
	if c.Composer != nil {
		return c.Composer
	}
	return c.Default
}

func (c Clients) verifier() llm.Client {
	if c.Verifier != nil {
		return c.Verifier
	}
	return c.Default
}

// Option customises the pipeline configuration.
type Option func(*Config)

// WithTopK overrides how many chunks each vector search retrieves.
func WithTopK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.DefaultTopK = k
		}
	}
}

// WithMinSufficientChunks sets the sufficiency gate: retrievals returning
// fewer chunks produce the insufficient-data response.
func WithMinSufficientChunks(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MinChunksForSufficiency = n
		}
	}
}

// WithCacheTTL sets how long results stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(cfg *Config) {
		if ttl > 0 {
			cfg.CacheTTL = ttl
		}
	}
}

// WithCostMargin sets the margin fraction added on top of the raw cost.
func WithCostMargin(margin float64) Option {
	return func(cfg *Config) {
		if margin >= 0 {
			cfg.CostMargin = margin
		}
	}
}

// WithVerifier enables or disables the verification stage.
func WithVerifier(enabled bool) Option {
	return func(cfg *Config) {
		cfg.VerifierEnabled = enabled
	}
}

// WithComposerModel sets the model name recorded in result metadata when the
// composer's LLM reports none.
func WithComposerModel(model string) Option {
	return func(cfg *Config) {
		if model != "" {
			cfg.ComposerModel = model
		}
	}
}

// WithPlannerPrompt overrides the planner user-prompt template.
func WithPlannerPrompt(prompt string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(prompt) != "" {
			cfg.PlannerPrompt = prompt
		}
	}
}

// WithComposerPrompt overrides the composer system prompt.
func WithComposerPrompt(prompt string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(prompt) != "" {
			cfg.ComposerPrompt = prompt
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		DefaultTopK:             10,
		MinChunksForSufficiency: 3,
		CacheTTL:                time.Hour,
		CostMargin:              0.4,
		VerifierEnabled:         false,
		ComposerModel:           "gpt-4o",
		PlannerPrompt:           plannerPrompt,
		ComposerPrompt:          composerSystemPrompt,
	}
}

func applyOptions(cfg *Config, opts []Option) *Config {
	if cfg == nil {
		cfg = defaultConfig()
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
