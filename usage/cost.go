// Package usage implements the token-to-credit cost model and usage event
// records for query billing.
package usage

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"time"

	"github.com/google/uuid"
)

// Cost rates (per 1K tokens, in cents).
const (
	EmbeddingRateCents   = 0.01 // ~$0.0001 per 1K tokens
	LLMInputRateCents    = 1.0  // ~$0.01 per 1K tokens
	LLMOutputRateCents   = 3.0  // ~$0.03 per 1K tokens
	VectorQueryRateCents = 0.01 // ~$0.0001 per query

	// DefaultMargin is the fraction added on top of the raw subtotal.
	DefaultMargin = 0.4
)

// CostBreakdown itemizes the cost of a pipeline run. 1 credit = 1 cent.
type CostBreakdown struct {
	EmbeddingTokens    int `json:"embedding_tokens"`
	EmbeddingCostCents int `json:"embedding_cost_cents"`
	LLMInputTokens     int `json:"llm_input_tokens"`
	LLMOutputTokens    int `json:"llm_output_tokens"`
	LLMCostCents       int `json:"llm_cost_cents"`
	VectorQueries      int `json:"vector_queries"`
	VectorCostCents    int `json:"vector_cost_cents"`
	MarginCents        int `json:"margin_cents"`
	TotalCents         int `json:"total_cents"`
	TotalCredits       int `json:"total_credits"`
}

// Zero returns an all-zero cost breakdown.
func Zero() CostBreakdown {
	return CostBreakdown{}
}

// Calculate prices a run from its token and query counts. Float arithmetic
// throughout, rounded at the end; each nonzero category floors at 1 cent.
func Calculate(embeddingTokens, llmInputTokens, llmOutputTokens, vectorQueries int, margin float64) CostBreakdown {
	embeddingCost := float64(embeddingTokens) / 1000 * EmbeddingRateCents
	llmCost := float64(llmInputTokens)/1000*LLMInputRateCents + float64(llmOutputTokens)/1000*LLMOutputRateCents
	vectorCost := float64(vectorQueries) * VectorQueryRateCents

	subtotal := embeddingCost + llmCost + vectorCost
	marginCost := subtotal * margin
	total := subtotal + marginCost

	breakdown := CostBreakdown{
		EmbeddingTokens: embeddingTokens,
		LLMInputTokens:  llmInputTokens,
		LLMOutputTokens: llmOutputTokens,
		VectorQueries:   vectorQueries,
	}
	if embeddingTokens > 0 {
		breakdown.EmbeddingCostCents = flooredCents(embeddingCost)
	}
	if llmInputTokens+llmOutputTokens > 0 {
		breakdown.LLMCostCents = flooredCents(llmCost)
	}
	if vectorQueries > 0 {
		breakdown.VectorCostCents = flooredCents(vectorCost)
	}
	if margin > 0 && subtotal > 0 {
		breakdown.MarginCents = flooredCents(marginCost)
	}
	if total > 0 {
		breakdown.TotalCents = int(math.Round(total))
	}
	breakdown.TotalCredits = breakdown.TotalCents

	return breakdown
}

func flooredCents(cents float64) int {
	rounded := int(math.Round(cents))
	if rounded < 1 {
		return 1
	}
	return rounded
}

// EventType classifies a usage event.
type EventType string

const (
	EventQuery     EventType = "query"
	EventIngestion EventType = "ingestion"
)

// Event records a billable action for analytics and credit accounting.
type Event struct {
	ID             string        `json:"id"`
	EventType      EventType     `json:"event_type"`
	SessionID      string        `json:"session_id,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	QueryHash      string        `json:"query_hash,omitempty"`
	QueryPreview   string        `json:"query_preview,omitempty"`
	Cached         bool          `json:"cached"`
	Cost           CostBreakdown `json:"cost"`
	CreditsCharged int           `json:"credits_charged"`
}

// NewQueryEvent records a query run. Cached queries charge no credits. The
// preview is truncated to 50 runes for privacy.
func NewQueryEvent(query, sessionID string, cost CostBreakdown, cached bool) Event {
	credits := cost.TotalCredits
	if cached {
		credits = 0
	}

	sum := sha256.Sum256([]byte(query))
	return Event{
		ID:             uuid.NewString(),
		EventType:      EventQuery,
		SessionID:      sessionID,
		Timestamp:      time.Now().UTC(),
		QueryHash:      hex.EncodeToString(sum[:8]),
		QueryPreview:   preview(query, 50),
		Cached:         cached,
		Cost:           cost,
		CreditsCharged: credits,
	}
}

// NewIngestionEvent records a document ingestion run.
func NewIngestionEvent(sessionID string, cost CostBreakdown) Event {
	return Event{
		ID:             uuid.NewString(),
		EventType:      EventIngestion,
		SessionID:      sessionID,
		Timestamp:      time.Now().UTC(),
		Cost:           cost,
		CreditsCharged: cost.TotalCredits,
	}
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
