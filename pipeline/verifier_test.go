package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AaronL1011/polly-ai/component"
)

func TestVerifyEmptyContextIsTriviallyValid(t *testing.T) {
	stub := &stubLLM{content: "should never be called"}

	v := newVerifier(stub)
	result, _ := v.Verify(context.Background(), component.Layout{}, nil, nil)

	if stub.calls() != 0 {
		t.Errorf("LLM calls = %d, want 0 for empty context", stub.calls())
	}
	if !result.IsValid || result.ConfidenceScore != 1.0 {
		t.Errorf("result = %+v, want trivially valid", result)
	}
}

func TestVerifyParsesClaims(t *testing.T) {
	stub := &stubLLM{content: `{
		"is_valid": false,
		"unsupported_claims": [
			{"claim_text": "The bill passed unanimously", "severity": "error"},
			{"claim_text": "Debate lasted three hours", "severity": ""}
		],
		"confidence_score": 0.6,
		"warnings": ["vote totals could not be confirmed"]
	}`}

	v := newVerifier(stub)
	result, _ := v.Verify(context.Background(), component.Layout{}, nil, []string{"context chunk"})

	if result.IsValid {
		t.Error("result should be invalid")
	}
	if len(result.UnsupportedClaims) != 2 {
		t.Fatalf("claims = %d, want 2", len(result.UnsupportedClaims))
	}
	if result.UnsupportedClaims[0].Severity != "error" {
		t.Errorf("claim[0] severity = %q", result.UnsupportedClaims[0].Severity)
	}
	if result.UnsupportedClaims[1].Severity != "warning" {
		t.Errorf("claim[1] severity = %q, want warning default", result.UnsupportedClaims[1].Severity)
	}
	if result.ConfidenceScore != 0.6 {
		t.Errorf("confidence = %v", result.ConfidenceScore)
	}
	if !result.HasErrors() {
		t.Error("HasErrors should report the error-severity claim")
	}
}

func TestVerifyClampsConfidence(t *testing.T) {
	stub := &stubLLM{content: `{"is_valid": true, "confidence_score": 1.8}`}

	v := newVerifier(stub)
	result, _ := v.Verify(context.Background(), component.Layout{}, nil, []string{"ctx"})

	if result.ConfidenceScore != 1 {
		t.Errorf("confidence = %v, want clamped to 1", result.ConfidenceScore)
	}
}

func TestVerifyDegradesToValidOnInvokeError(t *testing.T) {
	stub := &stubLLM{err: errors.New("model unavailable")}

	v := newVerifier(stub)
	result, _ := v.Verify(context.Background(), component.Layout{}, nil, []string{"ctx"})

	if !result.IsValid {
		t.Error("invoke failure should degrade to valid")
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "Verification skipped") {
		t.Errorf("warnings = %v", result.Warnings)
	}
}

func TestVerifyDegradesToValidOnMalformedJSON(t *testing.T) {
	stub := &stubLLM{content: "everything checks out"}

	v := newVerifier(stub)
	result, _ := v.Verify(context.Background(), component.Layout{}, nil, []string{"ctx"})

	if !result.IsValid {
		t.Error("parse failure should degrade to valid")
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "Verification parse error") {
		t.Errorf("warnings = %v", result.Warnings)
	}
}

func TestVerifySerializesComponentClaims(t *testing.T) {
	stub := &stubLLM{content: `{"is_valid": true, "confidence_score": 1.0}`}

	layout := component.Layout{Title: "Vote Outcome"}
	components := []component.Component{
		component.New(component.TextBlock{Content: "The motion carried."}, ""),
		component.New(component.VotingBreakdown{TotalFor: 38, TotalAgainst: 30}, ""),
		component.New(component.Timeline{Events: []component.TimelineEvent{
			{Date: "2024-02-01", Label: "First reading"},
			{Date: "2024-03-01", Label: "Third reading"},
		}}, ""),
	}

	v := newVerifier(stub)
	v.Verify(context.Background(), layout, components, []string{"context chunk"})

	prompt := stub.request(0).User
	for _, want := range []string{
		"Title: Vote Outcome",
		"[TextBlock] The motion carried.",
		"[VotingBreakdown] Votes: 38 for, 30 against",
		"2024-02-01: First reading",
		"context chunk",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
