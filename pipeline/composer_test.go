package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AaronL1011/polly-ai/component"
)

func completeExtraction(componentType string, completeness float64) ExtractionResult {
	return ExtractionResult{
		ComponentType: componentType,
		ExtractedData: map[string]any{"content": "extracted facts"},
		SourceQuotes:  []string{"quoted passage"},
		Completeness:  completeness,
	}
}

func TestComposeDropsInvalidComponentsAndEmptySections(t *testing.T) {
	stub := &stubLLM{content: `{
		"title": "Climate Policy",
		"sections": [
			{
				"title": "Summary",
				"components": [
					{"type": "text_block", "content": "The bill passed the Senate.", "format": "markdown"},
					{"type": "chart", "chart_type": "pie", "series": [{"name": "s", "data": [
						{"label": "a", "value": 1}, {"label": "b", "value": 2}, {"label": "c", "value": 3},
						{"label": "d", "value": 4}, {"label": "e", "value": 5}, {"label": "f", "value": 6},
						{"label": "g", "value": 7}, {"label": "h", "value": 8}
					]}]}
				]
			},
			{
				"title": "Broken",
				"components": [
					{"type": "timeline", "events": [{"date": "2024-01-01", "label": "only one"}]}
				]
			}
		]
	}`}

	c := newComposer(stub, defaultConfig())
	layout, components, _, _ := c.Compose(context.Background(), "query", Intent{}, []ExtractionResult{
		completeExtraction("text_block", 0.9),
	})

	if len(components) != 1 {
		t.Fatalf("components = %d, want 1 (8-slice pie and 1-event timeline dropped)", len(components))
	}
	if components[0].Type() != component.TypeTextBlock {
		t.Errorf("surviving component = %q, want text_block", components[0].Type())
	}
	if len(layout.Sections) != 1 {
		t.Fatalf("sections = %d, want 1 (section emptied by validation elided)", len(layout.Sections))
	}
	if layout.Sections[0].Title != "Summary" {
		t.Errorf("section title = %q", layout.Sections[0].Title)
	}
	if layout.Title != "Climate Policy" {
		t.Errorf("layout title = %q", layout.Title)
	}
}

func TestComposeInsertsLowCompletenessNotice(t *testing.T) {
	stub := &stubLLM{content: `{
		"title": "Voting Record",
		"sections": [{"components": [
			{"type": "text_block", "content": "Summary of the vote."},
			{"type": "text_block", "content": "Further detail."}
		]}]
	}`}

	c := newComposer(stub, defaultConfig())
	_, components, _, _ := c.Compose(context.Background(), "query", Intent{}, []ExtractionResult{
		completeExtraction("text_block", 0.9),
		EmptyExtraction("voting_breakdown", "No voting data in context"),
	})

	if len(components) != 3 {
		t.Fatalf("components = %d, want 2 parsed + 1 notice", len(components))
	}
	notice, ok := components[1].Content.(component.Notice)
	if !ok {
		t.Fatalf("components[1] = %q, want the availability notice at index 1", components[1].Type())
	}
	if notice.Title != "Data Availability" {
		t.Errorf("notice title = %q", notice.Title)
	}
	if notice.Level != component.NoticeInfo {
		t.Errorf("notice level = %q, want info", notice.Level)
	}
	if !strings.Contains(notice.Message, "voting_breakdown") {
		t.Errorf("notice message %q should name the sparse component type", notice.Message)
	}
}

func TestComposeNoExtractionsSkipsLLM(t *testing.T) {
	stub := &stubLLM{content: "should never be called"}

	c := newComposer(stub, defaultConfig())
	layout, components, _, _ := c.Compose(context.Background(), "obscure query", Intent{}, []ExtractionResult{
		EmptyExtraction("text_block", "No context available"),
	})

	if stub.calls() != 0 {
		t.Errorf("LLM calls = %d, want 0 when no extraction is complete", stub.calls())
	}
	if layout.Title != "Unable to Answer Query" {
		t.Errorf("layout title = %q", layout.Title)
	}
	if len(components) != 2 {
		t.Fatalf("components = %d, want notice + text block", len(components))
	}
	if _, ok := components[0].Content.(component.Notice); !ok {
		t.Errorf("components[0] = %q, want notice", components[0].Type())
	}
	if _, ok := components[1].Content.(component.TextBlock); !ok {
		t.Errorf("components[1] = %q, want text block", components[1].Type())
	}
}

func TestComposeFallsBackToRawTextOnParseFailure(t *testing.T) {
	stub := &stubLLM{content: "The Senate passed the bill 38 votes to 30."}

	c := newComposer(stub, defaultConfig())
	layout, components, _, _ := c.Compose(context.Background(), "query", Intent{}, []ExtractionResult{
		completeExtraction("text_block", 0.8),
	})

	if len(components) != 1 {
		t.Fatalf("components = %d, want single fallback text block", len(components))
	}
	text, ok := components[0].Content.(component.TextBlock)
	if !ok {
		t.Fatalf("fallback component = %q, want text_block", components[0].Type())
	}
	if text.Content != "The Senate passed the bill 38 votes to 30." {
		t.Errorf("fallback content = %q, want raw response", text.Content)
	}
	if len(layout.Sections) != 1 {
		t.Errorf("sections = %d, want 1", len(layout.Sections))
	}
}

func TestComposeToleratesCodeFences(t *testing.T) {
	stub := &stubLLM{content: "```json\n{\"title\": \"Fenced\", \"sections\": [{\"components\": [{\"type\": \"text_block\", \"content\": \"body\"}]}]}\n```"}

	c := newComposer(stub, defaultConfig())
	layout, components, _, _ := c.Compose(context.Background(), "query", Intent{}, []ExtractionResult{
		completeExtraction("text_block", 0.8),
	})

	if layout.Title != "Fenced" {
		t.Errorf("layout title = %q, fenced JSON should parse", layout.Title)
	}
	if len(components) != 1 {
		t.Errorf("components = %d, want 1", len(components))
	}
}

func TestComposeErrorResponseOnInvokeFailure(t *testing.T) {
	stub := &stubLLM{err: errors.New("model overloaded")}

	c := newComposer(stub, defaultConfig())
	layout, components, _, err := c.Compose(context.Background(), "query", Intent{}, []ExtractionResult{
		completeExtraction("text_block", 0.8),
	})

	if err == nil {
		t.Error("invoke failure should be reported so the result is not cached")
	}
	if layout.Title != "Error" {
		t.Errorf("layout title = %q, want error response", layout.Title)
	}
	if len(components) != 1 {
		t.Errorf("components = %d, want 1", len(components))
	}
}

func TestComposePromptIncludesExtractedData(t *testing.T) {
	stub := &stubLLM{content: `{"sections": []}`}

	c := newComposer(stub, defaultConfig())
	extraction := completeExtraction("voting_breakdown", 0.7)
	c.Compose(context.Background(), "how did the vote go", Intent{QueryType: QueryVoting, ResponseDepth: DepthBrief}, []ExtractionResult{extraction})

	prompt := stub.request(0).User
	if !strings.Contains(prompt, "how did the vote go") {
		t.Error("prompt should include the query")
	}
	if !strings.Contains(prompt, "voting_breakdown") {
		t.Error("prompt should include the extraction's component type")
	}
	if !strings.Contains(prompt, "extracted facts") {
		t.Error("prompt should include the extracted data")
	}
	if !strings.Contains(prompt, "brief") {
		t.Error("prompt should include the response depth")
	}
}
