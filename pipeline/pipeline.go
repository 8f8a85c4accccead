// Package pipeline implements the agentic query pipeline: a planner
// classifies the query, an intent-driven retriever gathers context, parallel
// extractors pull grounded data per component type, a composer assembles a
// typed layout, and an optional verifier checks claims against the context.
// A cache shortcut and a cost model wrap the whole run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AaronL1011/polly-ai/cache"
	"github.com/AaronL1011/polly-ai/component"
	pollyerrors "github.com/AaronL1011/polly-ai/errors"
	"github.com/AaronL1011/polly-ai/llm"
	"github.com/AaronL1011/polly-ai/pkg/logging"
	"github.com/AaronL1011/polly-ai/pkg/telemetry"
	"github.com/AaronL1011/polly-ai/usage"
	"github.com/AaronL1011/polly-ai/vector"
)

// Pipeline orchestrates the five stages around the cache and cost model. It
// holds no mutable cross-request state; a single Pipeline serves concurrent
// queries.
type Pipeline struct {
	cfg       *Config
	planner   *planner
	retriever *retriever
	extractor *extractor
	composer  *composer
	verifier  *verifier
	cache     cache.Cache
}

// New constructs a pipeline from its capabilities. The cache may be nil, in
// which case every query runs uncached.
func New(clients Clients, embedder vector.Embedder, store vector.VectorStore, resultCache cache.Cache, opts ...Option) (*Pipeline, error) {
	if clients.planner() == nil || clients.extractor() == nil || clients.composer() == nil {
		return nil, fmt.Errorf("%w: pipeline requires planner, extractor, and composer LLM clients", pollyerrors.ErrInvalidInput)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: pipeline requires an embedder", pollyerrors.ErrInvalidInput)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: pipeline requires a vector store", pollyerrors.ErrInvalidInput)
	}

	cfg := applyOptions(nil, opts)

	p := &Pipeline{
		cfg:       cfg,
		planner:   newPlanner(clients.planner(), cfg),
		retriever: newRetriever(embedder, store, cfg),
		extractor: newExtractor(clients.extractor()),
		composer:  newComposer(clients.composer(), cfg),
		cache:     resultCache,
	}
	if cfg.VerifierEnabled {
		if clients.verifier() == nil {
			return nil, fmt.Errorf("%w: verifier enabled but no verifier LLM client provided", pollyerrors.ErrInvalidInput)
		}
		p.verifier = newVerifier(clients.verifier())
	}
	return p, nil
}

// Execute runs the full pipeline for a query. It never returns an error to
// the caller: every failure path yields a structured result.
func (p *Pipeline) Execute(ctx context.Context, query Query) ExecuteQueryResult {
	start := time.Now()
	log := logging.WithComponent("pipeline")

	tracer := telemetry.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.execute")
	defer span.End()

	key := queryKey(query)

	if cached, ok := p.cacheGet(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		event := usage.NewQueryEvent(query.Text, query.SessionID, usage.Zero(), true)
		log.Info("query served from cache", "event_id", event.ID, "query_hash", event.QueryHash)
		return ExecuteQueryResult{Result: cached, Cost: usage.Zero()}
	}

	result, cost := p.run(ctx, query, key)

	result.Metadata.ProcessingTimeMs = int(time.Since(start).Milliseconds())
	span.SetAttributes(
		attribute.Int("result.components", len(result.Components)),
		attribute.Int("cost.total_cents", cost.TotalCents),
	)
	event := usage.NewQueryEvent(query.Text, query.SessionID, cost, false)
	log.Info("query executed",
		"event_id", event.ID,
		"query_hash", event.QueryHash,
		"chunks_used", result.Metadata.ChunksUsed,
		"components", len(result.Components),
		"processing_time_ms", result.Metadata.ProcessingTimeMs,
		"credits_charged", event.CreditsCharged)

	return ExecuteQueryResult{Result: result, Cost: cost}
}

// run executes the uncached path. Panics and stage errors both degrade to the
// error response; the cache is only written on a fully successful run.
func (p *Pipeline) run(ctx context.Context, query Query, key string) (result RAGResult, cost usage.CostBreakdown) {
	log := logging.WithComponent("pipeline")
	tracer := telemetry.Tracer("pipeline")

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panic", "panic", r)
			result = errorResult()
			cost = usage.Zero()
		}
	}()

	var totalUsage llm.Usage

	// Stage 1: plan.
	ctx1, span := tracer.Start(ctx, "pipeline.plan")
	intent, plannerUsage := p.planner.Analyze(ctx1, query.Text)
	telemetry.End(span, nil)
	totalUsage.Add(plannerUsage)
	log.Debug("intent classified",
		"query_type", string(intent.QueryType),
		"strategy", string(intent.RetrievalStrategy),
		"components", intent.ExpectedComponents)

	// Stage 2: retrieve.
	ctx2, span := tracer.Start(ctx, "pipeline.retrieve")
	retrieval, err := p.retriever.Retrieve(ctx2, query.Text, intent)
	telemetry.End(span, err)
	if err != nil {
		log.Error("retrieval failed", "error", err)
		return errorResult(), usage.Zero()
	}

	// Stage 3: sufficiency gate.
	if !retrieval.IsSufficient {
		return insufficientDataResult(query, retrieval.Warnings), usage.Zero()
	}

	contextTexts := retrieval.ContextTexts()

	// Stage 4: extract, one concurrent task per expected component type.
	ctx4, span := tracer.Start(ctx, "pipeline.extract")
	extractions := make([]ExtractionResult, len(intent.ExpectedComponents))
	extractionUsages := make([]llm.Usage, len(intent.ExpectedComponents))

	g, gctx := errgroup.WithContext(ctx4)
	for i, componentType := range intent.ExpectedComponents {
		g.Go(func() error {
			extractions[i], extractionUsages[i] = p.extractor.Extract(gctx, componentType, contextTexts, intent)
			return nil
		})
	}
	_ = g.Wait()
	telemetry.End(span, nil)

	for _, u := range extractionUsages {
		totalUsage.Add(u)
	}

	// Stage 5: compose. A composer LLM failure still yields a usable fallback
	// layout, but it must not be cached.
	ctx5, span := tracer.Start(ctx, "pipeline.compose")
	layout, components, composerUsage, composeErr := p.composer.Compose(ctx5, query.Text, intent, extractions)
	telemetry.End(span, composeErr)
	totalUsage.Add(composerUsage)

	// Stage 6: verify (optional).
	if p.verifier != nil && len(contextTexts) > 0 {
		ctx6, span := tracer.Start(ctx, "pipeline.verify")
		verification, verifierUsage := p.verifier.Verify(ctx6, layout, components, contextTexts)
		telemetry.End(span, nil)
		totalUsage.Add(verifierUsage)

		if !verification.IsValid {
			log.Warn("verification found issues", "unsupported_claims", len(verification.UnsupportedClaims))
		}
		components = annotateUnsupportedClaims(components, verification)
	}

	result = RAGResult{
		Layout:     layout,
		Components: components,
		Metadata: QueryMetadata{
			DocumentsRetrieved: countDocuments(retrieval.Chunks),
			ChunksUsed:         len(retrieval.Chunks),
			Model:              totalUsage.Model,
		},
		Sources: aggregateSources(retrieval.Chunks),
	}

	// Cost: embedding tokens approximated by query word count per rewritten
	// query; LLM tokens are whatever the stages reported.
	embeddingTokens := len(strings.Fields(query.Text)) * len(intent.RewrittenQueries)
	vectorQueries := 1
	if intent.RetrievalStrategy == StrategyMultiEntity {
		vectorQueries = len(intent.RewrittenQueries)
	}
	cost = usage.Calculate(embeddingTokens, totalUsage.InputTokens, totalUsage.OutputTokens, vectorQueries, p.cfg.CostMargin)

	if composeErr == nil {
		p.cacheSet(ctx, key, result)
	}

	return result, cost
}

// annotateUnsupportedClaims inserts a warning notice near the top when any
// claim carries error severity. Components are never removed.
func annotateUnsupportedClaims(components []component.Component, verification VerificationResult) []component.Component {
	if !verification.HasErrors() {
		return components
	}

	notice := component.New(component.Notice{
		Message: "Some information could not be fully verified against source documents. Please verify critical facts independently.",
		Level:   component.NoticeWarning,
		Title:   "Verification Warning",
	}, "")

	return insertComponent(components, notice)
}

func insufficientDataResult(query Query, warnings []string) RAGResult {
	warningText := "Limited relevant information found."
	if len(warnings) > 0 {
		warningText = strings.Join(warnings, "; ")
	}

	notice := component.New(component.Notice{
		Message: "Unable to fully answer this query: " + warningText,
		Level:   component.NoticeWarning,
		Title:   "Limited Information",
	}, "")

	text := component.New(component.TextBlock{
		Content: fmt.Sprintf("The query '%s' could not be fully answered. Try:\n- Using different keywords\n- Narrowing the date range\n- Specifying particular politicians or parties", query.Text),
		Format:  component.FormatMarkdown,
	}, "")

	return RAGResult{
		Layout: component.Layout{
			Title:    "Unable to Answer Query",
			Subtitle: "Insufficient information available",
			Sections: []component.Section{
				{ComponentIDs: []string{notice.ID, text.ID}},
			},
		},
		Components: []component.Component{notice, text},
		Metadata: QueryMetadata{
			Model: "none",
		},
	}
}

func errorResult() RAGResult {
	notice := component.New(component.Notice{
		Message: "An error occurred while processing your query. Please try again.",
		Level:   component.NoticeWarning,
		Title:   "Error",
	}, "")

	return RAGResult{
		Layout: component.Layout{
			Title:    "Error Processing Query",
			Sections: []component.Section{{ComponentIDs: []string{notice.ID}}},
		},
		Components: []component.Component{notice},
		Metadata: QueryMetadata{
			Model: "error",
		},
	}
}

// aggregateSources derives source citations from the retrieved chunks'
// document ids, deduplicated in first-occurrence order. Sources come from
// retrieval, never from LLM output.
func aggregateSources(chunks []vector.Chunk) []component.SourceReference {
	seen := make(map[string]struct{})
	var sources []component.SourceReference

	for _, chunk := range chunks {
		if _, ok := seen[chunk.DocumentID]; ok {
			continue
		}
		seen[chunk.DocumentID] = struct{}{}

		sourceName := chunk.Metadata["source_name"]
		if sourceName == "" {
			sourceName = "Unknown"
		}
		sources = append(sources, component.SourceReference{
			DocumentID: chunk.DocumentID,
			SourceName: sourceName,
			SourceURL:  chunk.Metadata["source_url"],
			SourceDate: chunk.Metadata["source_date"],
		})
	}
	return sources
}

func countDocuments(chunks []vector.Chunk) int {
	docs := make(map[string]struct{})
	for _, chunk := range chunks {
		docs[chunk.DocumentID] = struct{}{}
	}
	return len(docs)
}

// queryKey fingerprints the query text and filters for caching.
func queryKey(query Query) string {
	filters := ""
	if query.Filters != nil {
		if raw, err := json.Marshal(query.Filters); err == nil {
			filters = string(raw)
		}
	}
	return cache.QueryKey(query.Text, filters)
}

func (p *Pipeline) cacheGet(ctx context.Context, key string) (RAGResult, bool) {
	if p.cache == nil {
		return RAGResult{}, false
	}

	log := logging.WithComponent("pipeline")

	data, err := p.cache.Get(ctx, key)
	if err != nil {
		log.Warn("cache get failed", "error", err)
		return RAGResult{}, false
	}
	if data == nil {
		return RAGResult{}, false
	}

	var result RAGResult
	if err := json.Unmarshal(data, &result); err != nil {
		log.Warn("cached result invalid", "error", err)
		return RAGResult{}, false
	}
	result.Cached = true
	return result, true
}

func (p *Pipeline) cacheSet(ctx context.Context, key string, result RAGResult) {
	if p.cache == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		logging.WithComponent("pipeline").Warn("cache marshal failed", "error", err)
		return
	}
	if err := p.cache.Set(ctx, key, data, p.cfg.CacheTTL); err != nil {
		logging.WithComponent("pipeline").Warn("cache set failed", "error", err)
	}
}
