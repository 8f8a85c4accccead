package pipeline

import (
	"context"
	"fmt"

	"github.com/AaronL1011/polly-ai/component"
	"github.com/AaronL1011/polly-ai/llm"
	"github.com/AaronL1011/polly-ai/pkg/logging"
)

// planner classifies query intent and extracts entities. It degrades to the
// default factual intent on any failure: its output drives the rest of the
// pipeline, so defaulting is the correct failure mode.
type planner struct {
	llm    llm.Client
	prompt string
}

func newPlanner(client llm.Client, cfg *Config) *planner {
	return &planner{
		llm:    client,
		prompt: cfg.PlannerPrompt,
	}
}

type plannerOutput struct {
	QueryType          string   `json:"query_type"`
	ResponseDepth      string   `json:"response_depth"`
	Entities           Entities `json:"entities"`
	ExpectedComponents []string `json:"expected_components"`
	RetrievalStrategy  string   `json:"retrieval_strategy"`
	RewrittenQueries   []string `json:"rewritten_queries"`
	Confidence         float64  `json:"confidence"`
}

// Analyze classifies the query. The returned usage is zero when the LLM
// reports none.
func (p *planner) Analyze(ctx context.Context, query string) (Intent, llm.Usage) {
	log := logging.WithComponent("planner")

	resp, err := p.llm.Invoke(ctx, &llm.Request{
		System:      plannerSystemPrompt,
		User:        fmt.Sprintf(p.prompt, query),
		Schema:      plannerSchema(),
		Temperature: 0.1,
	})
	if err != nil {
		log.Warn("planner failed, using default intent", "error", err)
		return DefaultFactualIntent(query), llm.Usage{}
	}

	out, err := decodeJSON[plannerOutput](resp.Content)
	if err != nil {
		log.Warn("planner output invalid, using default intent", "error", err)
		return DefaultFactualIntent(query), resp.Usage
	}

	return buildIntent(out, query), resp.Usage
}

// buildIntent coerces the planner output into a valid Intent, defaulting
// anything outside the closed enumerations.
func buildIntent(out *plannerOutput, originalQuery string) Intent {
	queryType := QueryType(out.QueryType)
	switch queryType {
	case QueryFactual, QueryComparative, QueryTimeline, QueryVoting, QueryAnalytical:
	default:
		queryType = QueryFactual
	}

	depth := ResponseDepth(out.ResponseDepth)
	switch depth {
	case DepthBrief, DepthStandard, DepthComprehensive:
	default:
		depth = DepthStandard
	}

	strategy := RetrievalStrategy(out.RetrievalStrategy)
	switch strategy {
	case StrategySingleFocus, StrategyMultiEntity, StrategyChronological, StrategyBroad:
	default:
		strategy = StrategySingleFocus
	}

	components := out.ExpectedComponents
	if len(components) == 0 {
		components = []string{string(component.TypeTextBlock)}
	}

	rewritten := out.RewrittenQueries
	if len(rewritten) == 0 {
		rewritten = []string{originalQuery}
	}

	confidence := out.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Intent{
		QueryType:          queryType,
		ResponseDepth:      depth,
		Entities:           out.Entities,
		ExpectedComponents: components,
		RetrievalStrategy:  strategy,
		RewrittenQueries:   rewritten,
		Confidence:         confidence,
	}
}
