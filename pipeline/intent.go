package pipeline

import (
	"github.com/AaronL1011/polly-ai/component"
	"github.com/AaronL1011/polly-ai/usage"
	"github.com/AaronL1011/polly-ai/vector"
)

// QueryType classifies what kind of answer a query wants.
type QueryType string

const (
	QueryFactual     QueryType = "factual"
	QueryComparative QueryType = "comparative"
	QueryTimeline    QueryType = "timeline"
	QueryVoting      QueryType = "voting"
	QueryAnalytical  QueryType = "analytical"
)

// ResponseDepth controls how detailed the composed response should be.
type ResponseDepth string

const (
	DepthBrief         ResponseDepth = "brief"
	DepthStandard      ResponseDepth = "standard"
	DepthComprehensive ResponseDepth = "comprehensive"
)

// RetrievalStrategy selects how the retriever gathers context.
type RetrievalStrategy string

const (
	StrategySingleFocus   RetrievalStrategy = "single_focus"
	StrategyMultiEntity   RetrievalStrategy = "multi_entity"
	StrategyChronological RetrievalStrategy = "chronological"
	StrategyBroad         RetrievalStrategy = "broad"
)

// Entities holds what the planner extracted from the query.
type Entities struct {
	Parties       []string `json:"parties"`
	Members       []string `json:"members"`
	Bills         []string `json:"bills"`
	Topics        []string `json:"topics"`
	DateFrom      string   `json:"date_from,omitempty"`
	DateTo        string   `json:"date_to,omitempty"`
	DocumentTypes []string `json:"document_types"`
}

// Intent is the planner's classification of a query. It drives retrieval,
// extraction, and composition.
type Intent struct {
	QueryType          QueryType         `json:"query_type"`
	ResponseDepth      ResponseDepth     `json:"response_depth"`
	Entities           Entities          `json:"entities"`
	ExpectedComponents []string          `json:"expected_components"`
	RetrievalStrategy  RetrievalStrategy `json:"retrieval_strategy"`
	RewrittenQueries   []string          `json:"rewritten_queries"`
	Confidence         float64           `json:"confidence"`
}

// DefaultFactualIntent is the planner's failure mode: a plain factual lookup
// driven by the original query text.
func DefaultFactualIntent(query string) Intent {
	return Intent{
		QueryType:          QueryFactual,
		ResponseDepth:      DepthStandard,
		ExpectedComponents: []string{string(component.TypeTextBlock)},
		RetrievalStrategy:  StrategySingleFocus,
		RewrittenQueries:   []string{query},
		Confidence:         0.5,
	}
}

// QueryFilters narrows which documents a query may draw on.
type QueryFilters struct {
	DocumentTypes []string `json:"document_types,omitempty"`
	DateFrom      string   `json:"date_from,omitempty"`
	DateTo        string   `json:"date_to,omitempty"`
	Sources       []string `json:"sources,omitempty"`
	MemberIDs     []string `json:"member_ids,omitempty"`
}

// Query is a user question entering the pipeline. Immutable once constructed.
type Query struct {
	Text      string        `json:"text"`
	SessionID string        `json:"session_id,omitempty"`
	Filters   *QueryFilters `json:"filters,omitempty"`
}

// QueryMetadata records run statistics attached to every result.
type QueryMetadata struct {
	DocumentsRetrieved int    `json:"documents_retrieved"`
	ChunksUsed         int    `json:"chunks_used"`
	ProcessingTimeMs   int    `json:"processing_time_ms"`
	Model              string `json:"model"`
}

// RAGResult is the structured answer returned to the caller.
type RAGResult struct {
	Layout     component.Layout            `json:"layout"`
	Components []component.Component       `json:"components"`
	Metadata   QueryMetadata               `json:"metadata"`
	Sources    []component.SourceReference `json:"sources,omitempty"`
	Cached     bool                        `json:"cached"`
}

// ExecuteQueryResult pairs a result with what the run cost.
type ExecuteQueryResult struct {
	Result RAGResult           `json:"result"`
	Cost   usage.CostBreakdown `json:"cost"`
}

// RetrievalResult is the retriever's output: ordered context chunks plus
// coverage and sufficiency signals.
type RetrievalResult struct {
	Chunks       []vector.Chunk
	StrategyUsed RetrievalStrategy
	Coverage     map[string]float64
	IsSufficient bool
	Warnings     []string
}

// ContextTexts returns the chunk texts in retrieval order.
func (r RetrievalResult) ContextTexts() []string {
	texts := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		texts[i] = c.Text
	}
	return texts
}

// ExtractionResult is one extractor run's output for one component type.
type ExtractionResult struct {
	ComponentType string
	ExtractedData map[string]any
	SourceQuotes  []string
	Completeness  float64
	Warnings      []string
}

// EmptyExtraction marks a component type as yielding nothing, with a reason.
func EmptyExtraction(componentType, reason string) ExtractionResult {
	return ExtractionResult{
		ComponentType: componentType,
		ExtractedData: map[string]any{},
		Completeness:  0,
		Warnings:      []string{reason},
	}
}

// IsComplete reports whether the extraction carries enough data to compose
// from: non-empty data and completeness of at least 0.5.
func (e ExtractionResult) IsComplete() bool {
	return len(e.ExtractedData) > 0 && e.Completeness >= 0.5
}

// UnsupportedClaim is a statement the verifier could not ground in context.
// Severity is "warning" or "error".
type UnsupportedClaim struct {
	ClaimText   string `json:"claim_text"`
	ComponentID string `json:"component_id,omitempty"`
	Severity    string `json:"severity"`
}

// VerificationResult is the verifier's judgment of a composed response.
type VerificationResult struct {
	IsValid           bool
	UnsupportedClaims []UnsupportedClaim
	ConfidenceScore   float64
	Warnings          []string
}

// ValidVerification returns a passing verification.
func ValidVerification() VerificationResult {
	return VerificationResult{IsValid: true, ConfidenceScore: 1.0}
}

// HasErrors reports whether any unsupported claim carries error severity.
func (v VerificationResult) HasErrors() bool {
	for _, claim := range v.UnsupportedClaims {
		if claim.Severity == "error" {
			return true
		}
	}
	return false
}
