package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/AaronL1011/polly-ai/llm"
	"github.com/AaronL1011/polly-ai/pkg/logging"
)

const contextSeparator = "\n\n---\n\n"

// extractor pulls grounded, schema-constrained data out of retrieved context
// for one component type at a time. It never invents data: the prompts and
// schemas require a source quote for every field, and failures degrade to an
// empty result rather than an error.
type extractor struct {
	llm llm.Client
}

func newExtractor(client llm.Client) *extractor {
	return &extractor{llm: client}
}

type extractionOutput struct {
	SourceQuotes []string `json:"source_quotes"`
	Completeness float64  `json:"completeness"`
	Warnings     []string `json:"warnings"`
}

// Extract runs one grounded extraction. The returned usage is zero when the
// LLM reports none.
func (e *extractor) Extract(ctx context.Context, componentType string, contextTexts []string, intent Intent) (ExtractionResult, llm.Usage) {
	if len(contextTexts) == 0 {
		return EmptyExtraction(componentType, "No context available"), llm.Usage{}
	}

	log := logging.WithComponent("extractor")

	resp, err := e.llm.Invoke(ctx, &llm.Request{
		System:      extractorSystemPrompt,
		User:        buildExtractionPrompt(componentType, contextTexts, intent),
		Schema:      extractionSchema(componentType),
		Temperature: 0.1,
	})
	if err != nil {
		log.Warn("extraction failed", "component_type", componentType, "error", err)
		return EmptyExtraction(componentType, err.Error()), llm.Usage{}
	}

	base, err := decodeJSON[extractionOutput](resp.Content)
	if err != nil {
		log.Warn("extraction output invalid", "component_type", componentType, "error", err)
		return EmptyExtraction(componentType, err.Error()), resp.Usage
	}

	data, err := decodeJSONMap(resp.Content)
	if err != nil {
		return EmptyExtraction(componentType, err.Error()), resp.Usage
	}
	delete(data, "source_quotes")
	delete(data, "completeness")
	delete(data, "warnings")

	completeness := base.Completeness
	if completeness < 0 {
		completeness = 0
	}
	if completeness > 1 {
		completeness = 1
	}

	return ExtractionResult{
		ComponentType: componentType,
		ExtractedData: data,
		SourceQuotes:  base.SourceQuotes,
		Completeness:  completeness,
		Warnings:      base.Warnings,
	}, resp.Usage
}

// buildExtractionPrompt fills the per-type template with the joined context
// and a query-focus line summarizing the intent entities.
func buildExtractionPrompt(componentType string, contextTexts []string, intent Intent) string {
	contextText := strings.Join(contextTexts, contextSeparator)
	queryFocus := formatQueryFocus(intent)

	if template, ok := extractionPrompts[componentType]; ok {
		if componentType == "comparison" {
			entities := "entities mentioned in context"
			if len(intent.Entities.Parties) > 0 {
				entities = strings.Join(intent.Entities.Parties, ", ")
			}
			return fmt.Sprintf(template, contextText, queryFocus, entities)
		}
		return fmt.Sprintf(template, contextText, queryFocus)
	}

	return fmt.Sprintf(genericExtractionPrompt, contextText, queryFocus, componentType)
}

func formatQueryFocus(intent Intent) string {
	var parts []string
	if len(intent.Entities.Parties) > 0 {
		parts = append(parts, "Parties: "+strings.Join(intent.Entities.Parties, ", "))
	}
	if len(intent.Entities.Members) > 0 {
		parts = append(parts, "Members: "+strings.Join(intent.Entities.Members, ", "))
	}
	if len(intent.Entities.Bills) > 0 {
		parts = append(parts, "Bills: "+strings.Join(intent.Entities.Bills, ", "))
	}
	if len(intent.Entities.Topics) > 0 {
		parts = append(parts, "Topics: "+strings.Join(intent.Entities.Topics, ", "))
	}
	if len(parts) == 0 {
		return "General query"
	}
	return strings.Join(parts, "; ")
}
