// Package config holds the pipeline configuration record and validation
// utilities.
package config

import "fmt"

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator provides configuration validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

// RequireNonEmpty validates that a string field is not empty
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if value == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "value cannot be empty",
		})
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be positive, got %d", value),
		})
	}
	return v
}

// ValidateRange validates that an integer field is within a range [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %d and %d, got %d", min, max, value),
		})
	}
	return v
}

// ValidateFloatRange validates that a float field is within a range [min, max]
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %.2f and %.2f, got %.2f", min, max, value),
		})
	}
	return v
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be one of %v, got %q", allowed, value),
	})
	return v
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error message or nil if no errors
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	msg := "configuration validation failed:\n"
	for _, e := range v.errors {
		msg += fmt.Sprintf("  - %s: %s\n", e.Field, e.Message)
	}
	return fmt.Errorf("%s", msg)
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Pipeline holds the tunable parameters for a query pipeline.
type Pipeline struct {
	DefaultTopK             int     `json:"default_top_k"`
	MinChunksForSufficiency int     `json:"min_chunks_for_sufficiency"`
	CacheTTLSeconds         int     `json:"cache_ttl_seconds"`
	CostMargin              float64 `json:"cost_margin"`
	VerifierEnabled         bool    `json:"verifier_enabled"`
	PlannerModel            string  `json:"planner_model"`
	ExtractorModel          string  `json:"extractor_model"`
	ComposerModel           string  `json:"composer_model"`
	VerifierModel           string  `json:"verifier_model"`
	EmbeddingModel          string  `json:"embedding_model"`
	EmbeddingDimensions     int     `json:"embedding_dimensions"`
}

// DefaultPipeline returns the default pipeline configuration.
func DefaultPipeline() Pipeline {
	return Pipeline{
		DefaultTopK:             10,
		MinChunksForSufficiency: 3,
		CacheTTLSeconds:         3600,
		CostMargin:              0.4,
		VerifierEnabled:         false,
		PlannerModel:            "gpt-4o-mini",
		ExtractorModel:          "gpt-4o-mini",
		ComposerModel:           "gpt-4o",
		VerifierModel:           "gpt-4o-mini",
		EmbeddingModel:          "text-embedding-3-small",
		EmbeddingDimensions:     1536,
	}
}

// Validate checks the pipeline configuration.
func (p Pipeline) Validate() error {
	v := NewValidator()

	v.RequirePositive("default_top_k", p.DefaultTopK)
	v.RequirePositive("min_chunks_for_sufficiency", p.MinChunksForSufficiency)
	v.RequirePositive("cache_ttl_seconds", p.CacheTTLSeconds)
	v.ValidateFloatRange("cost_margin", p.CostMargin, 0, 1)
	v.RequireNonEmpty("planner_model", p.PlannerModel)
	v.RequireNonEmpty("extractor_model", p.ExtractorModel)
	v.RequireNonEmpty("composer_model", p.ComposerModel)
	if p.VerifierEnabled {
		v.RequireNonEmpty("verifier_model", p.VerifierModel)
	}
	v.RequireNonEmpty("embedding_model", p.EmbeddingModel)
	v.RequirePositive("embedding_dimensions", p.EmbeddingDimensions)

	return v.Error()
}
