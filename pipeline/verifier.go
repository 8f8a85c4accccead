package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/AaronL1011/polly-ai/component"
	"github.com/AaronL1011/polly-ai/llm"
	"github.com/AaronL1011/polly-ai/pkg/logging"
)

// verifier checks the composed response's claims against the retrieved
// context. It annotates, never censors: components are never removed, and any
// failure degrades to a valid result with a warning.
type verifier struct {
	llm llm.Client
}

func newVerifier(client llm.Client) *verifier {
	return &verifier{llm: client}
}

type verifierOutput struct {
	IsValid           bool               `json:"is_valid"`
	UnsupportedClaims []UnsupportedClaim `json:"unsupported_claims"`
	ConfidenceScore   float64            `json:"confidence_score"`
	Warnings          []string           `json:"warnings"`
}

// Verify checks the response claims. Empty context verifies trivially.
func (v *verifier) Verify(ctx context.Context, layout component.Layout, components []component.Component, contextTexts []string) (VerificationResult, llm.Usage) {
	if len(contextTexts) == 0 {
		return ValidVerification(), llm.Usage{}
	}

	log := logging.WithComponent("verifier")

	resp, err := v.llm.Invoke(ctx, &llm.Request{
		System:      verifierSystemPrompt,
		User:        fmt.Sprintf(verifierPrompt, strings.Join(contextTexts, contextSeparator), serializeResponse(layout, components)),
		Schema:      verifierSchema(),
		Temperature: 0.1,
	})
	if err != nil {
		log.Warn("verification failed", "error", err)
		result := ValidVerification()
		result.Warnings = []string{"Verification skipped: " + err.Error()}
		return result, llm.Usage{}
	}

	out, err := decodeJSON[verifierOutput](resp.Content)
	if err != nil {
		log.Warn("failed to parse verification response", "error", err)
		result := ValidVerification()
		result.Warnings = []string{"Verification parse error: " + err.Error()}
		return result, resp.Usage
	}

	confidence := out.ConfidenceScore
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	for i := range out.UnsupportedClaims {
		if out.UnsupportedClaims[i].Severity == "" {
			out.UnsupportedClaims[i].Severity = "warning"
		}
	}

	return VerificationResult{
		IsValid:           out.IsValid,
		UnsupportedClaims: out.UnsupportedClaims,
		ConfidenceScore:   confidence,
		Warnings:          out.Warnings,
	}, resp.Usage
}

// serializeResponse renders each component as one line summarizing its
// salient claims for the fact-checker.
func serializeResponse(layout component.Layout, components []component.Component) string {
	var parts []string

	if layout.Title != "" {
		parts = append(parts, "Title: "+layout.Title)
	}
	if layout.Subtitle != "" {
		parts = append(parts, "Subtitle: "+layout.Subtitle)
	}

	for _, comp := range components {
		switch content := comp.Content.(type) {
		case component.TextBlock:
			parts = append(parts, "[TextBlock] "+content.Content)
		case component.Notice:
			parts = append(parts, "[Notice] "+content.Message)
		case component.VotingBreakdown:
			parts = append(parts, fmt.Sprintf("[VotingBreakdown] Votes: %d for, %d against",
				content.TotalFor, content.TotalAgainst))
		case component.Timeline:
			events := make([]string, len(content.Events))
			for i, e := range content.Events {
				events[i] = fmt.Sprintf("%s: %s", e.Date, e.Label)
			}
			parts = append(parts, "[Timeline] Events: "+strings.Join(events, "; "))
		case component.Chart:
			series := make([]string, len(content.Series))
			for i, s := range content.Series {
				values := make([]string, len(s.Data))
				for j, d := range s.Data {
					values[j] = fmt.Sprintf("%g", d.Value)
				}
				series[i] = fmt.Sprintf("%s: [%s]", s.Name, strings.Join(values, ", "))
			}
			parts = append(parts, "[Chart] Data: "+strings.Join(series, "; "))
		case component.Comparison:
			attrs := make([]string, len(content.Attributes))
			for i, a := range content.Attributes {
				attrs[i] = fmt.Sprintf("%s: %v", a.Name, a.Values)
			}
			parts = append(parts, "[Comparison] "+strings.Join(attrs, "; "))
		case component.DataTable:
			parts = append(parts, fmt.Sprintf("[DataTable] %d rows", len(content.Rows)))
		case component.MemberProfiles:
			names := make([]string, len(content.Members))
			for i, m := range content.Members {
				names[i] = m.Name
			}
			parts = append(parts, "[MemberProfiles] Members: "+strings.Join(names, ", "))
		default:
			parts = append(parts, fmt.Sprintf("[%s] (content)", comp.Type()))
		}
	}

	return strings.Join(parts, "\n")
}
