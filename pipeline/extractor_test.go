package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AaronL1011/polly-ai/llm"
)

func TestExtractEmptyContextSkipsLLM(t *testing.T) {
	stub := &stubLLM{content: "should never be called"}

	e := newExtractor(stub)
	result, usage := e.Extract(context.Background(), "text_block", nil, Intent{})

	if stub.calls() != 0 {
		t.Errorf("LLM calls = %d, want 0 for empty context", stub.calls())
	}
	if result.Completeness != 0 || len(result.ExtractedData) != 0 {
		t.Errorf("result = %+v, want empty extraction", result)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "No context available" {
		t.Errorf("warnings = %v", result.Warnings)
	}
	if usage.InputTokens != 0 {
		t.Errorf("usage = %+v, want zero", usage)
	}
}

func TestExtractSeparatesDataFromMetaFields(t *testing.T) {
	stub := &stubLLM{
		content: `{
			"total_for": 38,
			"total_against": 30,
			"source_quotes": ["the ayes have it, 38 to 30"],
			"completeness": 0.85,
			"warnings": ["abstentions not recorded"]
		}`,
		usage: llm.Usage{InputTokens: 200, OutputTokens: 80, Model: "stub-model"},
	}

	e := newExtractor(stub)
	result, usage := e.Extract(context.Background(), "voting_breakdown", []string{"division record"}, Intent{})

	if result.ComponentType != "voting_breakdown" {
		t.Errorf("component type = %q", result.ComponentType)
	}
	if result.Completeness != 0.85 {
		t.Errorf("completeness = %v", result.Completeness)
	}
	if len(result.SourceQuotes) != 1 {
		t.Errorf("source quotes = %v", result.SourceQuotes)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v", result.Warnings)
	}
	for _, meta := range []string{"source_quotes", "completeness", "warnings"} {
		if _, ok := result.ExtractedData[meta]; ok {
			t.Errorf("extracted data should not carry %q", meta)
		}
	}
	if _, ok := result.ExtractedData["total_for"]; !ok {
		t.Error("extracted data should keep the domain fields")
	}
	if !result.IsComplete() {
		t.Error("0.85 completeness with data should be complete")
	}
	if usage.InputTokens != 200 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestExtractClampsCompleteness(t *testing.T) {
	stub := &stubLLM{content: `{"content": "x", "completeness": 3.5, "source_quotes": []}`}

	e := newExtractor(stub)
	result, _ := e.Extract(context.Background(), "text_block", []string{"ctx"}, Intent{})

	if result.Completeness != 1 {
		t.Errorf("completeness = %v, want clamped to 1", result.Completeness)
	}
}

func TestExtractDegradesOnInvokeError(t *testing.T) {
	stub := &stubLLM{err: errors.New("timeout")}

	e := newExtractor(stub)
	result, _ := e.Extract(context.Background(), "chart", []string{"ctx"}, Intent{})

	if result.IsComplete() {
		t.Error("failed extraction should be incomplete")
	}
	if result.ComponentType != "chart" {
		t.Errorf("component type = %q", result.ComponentType)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v", result.Warnings)
	}
}

func TestExtractPromptCarriesContextAndFocus(t *testing.T) {
	stub := &stubLLM{content: `{"content": "x", "completeness": 0.5, "source_quotes": []}`}

	e := newExtractor(stub)
	intent := Intent{Entities: Entities{
		Parties: []string{"Labor"},
		Topics:  []string{"housing"},
	}}
	e.Extract(context.Background(), "text_block", []string{"first chunk", "second chunk"}, intent)

	prompt := stub.request(0).User
	if !strings.Contains(prompt, "first chunk") || !strings.Contains(prompt, "second chunk") {
		t.Error("prompt should include every context chunk")
	}
	if !strings.Contains(prompt, "Parties: Labor") || !strings.Contains(prompt, "Topics: housing") {
		t.Errorf("prompt should carry the query focus, got: %s", prompt)
	}
}

func TestExtractGenericPromptForUnknownType(t *testing.T) {
	stub := &stubLLM{content: `{"content": "x", "completeness": 0.5, "source_quotes": []}`}

	e := newExtractor(stub)
	e.Extract(context.Background(), "custom_widget", []string{"ctx"}, Intent{})

	if !strings.Contains(stub.request(0).User, "custom_widget") {
		t.Error("generic prompt should name the component type")
	}
}
