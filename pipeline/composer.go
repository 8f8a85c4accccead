package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AaronL1011/polly-ai/component"
	"github.com/AaronL1011/polly-ai/llm"
	"github.com/AaronL1011/polly-ai/pkg/logging"
)

// composer formats extracted data into a typed layout. Every raw component
// the LLM emits is normalized, validated against the per-type constraints,
// and dropped when it fails; sections left empty after validation are elided.
type composer struct {
	llm          llm.Client
	systemPrompt string
	model        string
}

func newComposer(client llm.Client, cfg *Config) *composer {
	return &composer{
		llm:          client,
		systemPrompt: cfg.ComposerPrompt,
		model:        cfg.ComposerModel,
	}
}

type composerOutput struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Sections []struct {
		Title      string           `json:"title"`
		Layout     string           `json:"layout"`
		Components []map[string]any `json:"components"`
	} `json:"sections"`
}

// Compose builds the response layout from the complete extractions. When none
// are complete it returns the insufficient-data response without an LLM call.
// The error is non-nil only when the LLM call itself failed; the returned
// fallback layout is still usable, but the caller must not cache it.
func (c *composer) Compose(ctx context.Context, query string, intent Intent, extractions []ExtractionResult) (component.Layout, []component.Component, llm.Usage, error) {
	var complete []ExtractionResult
	for _, e := range extractions {
		if e.IsComplete() {
			complete = append(complete, e)
		}
	}

	if len(complete) == 0 {
		layout, components := c.insufficientDataResponse(query, extractions)
		return layout, components, llm.Usage{Model: c.model}, nil
	}

	log := logging.WithComponent("composer")

	resp, err := c.llm.Invoke(ctx, &llm.Request{
		System:      c.systemPrompt,
		User:        c.buildPrompt(query, intent, complete),
		Temperature: 0.2,
	})
	if err != nil {
		log.Warn("composer failed", "error", err)
		layout, components := c.errorResponse()
		return layout, components, llm.Usage{Model: c.model}, err
	}

	usage := resp.Usage
	if usage.Model == "" {
		usage.Model = c.model
	}

	layout, components := c.parseResponse(resp.Content)
	components = addExtractionWarnings(components, extractions)

	return layout, components, usage, nil
}

func (c *composer) buildPrompt(query string, intent Intent, extractions []ExtractionResult) string {
	intentStr := fmt.Sprintf("Type: %s, Components: %v", intent.QueryType, intent.ExpectedComponents)

	var blocks []string
	for _, e := range extractions {
		data, err := json.MarshalIndent(e.ExtractedData, "", "  ")
		if err != nil {
			data = []byte("{}")
		}
		blocks = append(blocks, fmt.Sprintf("## %s\nCompleteness: %.2f\nData: %s\nWarnings: %v",
			e.ComponentType, e.Completeness, data, e.Warnings))
	}

	return fmt.Sprintf(composerPrompt, query, intentStr, intent.ResponseDepth, strings.Join(blocks, "\n\n"))
}

// parseResponse decodes the LLM output into a layout, tolerating code fences.
// A parse failure yields a single text_block holding the raw content.
func (c *composer) parseResponse(content string) (component.Layout, []component.Component) {
	out, err := decodeJSON[composerOutput](content)
	if err != nil {
		logging.WithComponent("composer").Warn("failed to parse composer response", "error", err)
		return fallbackLayout(content)
	}

	log := logging.WithComponent("composer")

	var components []component.Component
	var sections []component.Section

	for _, sectionData := range out.Sections {
		var componentIDs []string
		for _, raw := range sectionData.Components {
			comp, ok := component.Parse(raw)
			if !ok {
				continue
			}
			components = append(components, comp)
			componentIDs = append(componentIDs, comp.ID)
		}

		if len(componentIDs) == 0 {
			log.Debug("skipping empty section", "title", sectionData.Title)
			continue
		}

		sections = append(sections, component.Section{
			ComponentIDs: componentIDs,
			Title:        sectionData.Title,
			Layout:       sectionData.Layout,
		})
	}

	layout := component.Layout{
		Sections: sections,
		Title:    out.Title,
		Subtitle: out.Subtitle,
	}
	return layout, components
}

// addExtractionWarnings inserts an info notice near the top when any
// extraction reported low completeness.
func addExtractionWarnings(components []component.Component, extractions []ExtractionResult) []component.Component {
	var lowCompleteness []string
	for _, e := range extractions {
		if e.Completeness < 0.5 {
			lowCompleteness = append(lowCompleteness, e.ComponentType)
		}
	}
	if len(lowCompleteness) == 0 {
		return components
	}

	notice := component.New(component.Notice{
		Message: fmt.Sprintf("Limited data available for: %s. Some information may be incomplete.",
			strings.Join(lowCompleteness, ", ")),
		Level: component.NoticeInfo,
		Title: "Data Availability",
	}, "")

	return insertComponent(components, notice)
}

// insertComponent places comp at index min(1, len(components)).
func insertComponent(components []component.Component, comp component.Component) []component.Component {
	idx := 1
	if len(components) < 1 {
		idx = len(components)
	}
	components = append(components, component.Component{})
	copy(components[idx+1:], components[idx:])
	components[idx] = comp
	return components
}

func (c *composer) insufficientDataResponse(query string, extractions []ExtractionResult) (component.Layout, []component.Component) {
	var warnings []string
	for _, e := range extractions {
		warnings = append(warnings, e.Warnings...)
	}

	warningText := "No relevant information found in the available documents."
	if len(warnings) > 0 {
		warningText = strings.Join(warnings, "; ")
	}

	notice := component.New(component.Notice{
		Message: "Unable to answer this query: " + warningText,
		Level:   component.NoticeWarning,
		Title:   "Insufficient Information",
	}, "")

	text := component.New(component.TextBlock{
		Content: fmt.Sprintf("The query '%s' could not be answered with the available information. Try refining your search or using different keywords.", query),
		Format:  component.FormatMarkdown,
	}, "")

	layout := component.Layout{
		Title:    "Unable to Answer Query",
		Subtitle: "Insufficient information available",
		Sections: []component.Section{
			{ComponentIDs: []string{notice.ID, text.ID}},
		},
	}
	return layout, []component.Component{notice, text}
}

func (c *composer) errorResponse() (component.Layout, []component.Component) {
	text := component.New(component.TextBlock{
		Content: "An error occurred while generating the response. Please try again.",
		Format:  component.FormatMarkdown,
	}, "")

	layout := component.Layout{
		Title:    "Error",
		Sections: []component.Section{{ComponentIDs: []string{text.ID}}},
	}
	return layout, []component.Component{text}
}

func fallbackLayout(content string) (component.Layout, []component.Component) {
	text := component.New(component.TextBlock{
		Content: content,
		Format:  component.FormatMarkdown,
	}, "")

	layout := component.Layout{
		Sections: []component.Section{{ComponentIDs: []string{text.ID}}},
	}
	return layout, []component.Component{text}
}
