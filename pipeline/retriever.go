package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AaronL1011/polly-ai/pkg/logging"
	"github.com/AaronL1011/polly-ai/vector"
)

// retriever gathers context chunks using the intent's retrieval strategy.
type retriever struct {
	embedder    vector.Embedder
	store       vector.VectorStore
	topK        int
	minChunks   int
	baseFilters *QueryFilters
}

func newRetriever(embedder vector.Embedder, store vector.VectorStore, cfg *Config) *retriever {
	return &retriever{
		embedder:  embedder,
		store:     store,
		topK:      cfg.DefaultTopK,
		minChunks: cfg.MinChunksForSufficiency,
	}
}

// Retrieve dispatches to the strategy selected by the intent.
func (r *retriever) Retrieve(ctx context.Context, query string, intent Intent) (RetrievalResult, error) {
	switch intent.RetrievalStrategy {
	case StrategyMultiEntity:
		return r.retrieveMultiEntity(ctx, query, intent)
	case StrategyChronological:
		return r.retrieveChronological(ctx, query, intent)
	case StrategyBroad:
		return r.retrieveBroad(ctx, query, intent)
	default:
		return r.retrieveSingleFocus(ctx, query, intent)
	}
}

func (r *retriever) retrieveSingleFocus(ctx context.Context, query string, intent Intent) (RetrievalResult, error) {
	chunks, err := r.search(ctx, query, r.topK, buildFilters(intent))
	if err != nil {
		return RetrievalResult{}, err
	}

	return r.result(chunks, StrategySingleFocus, nil, "Few relevant documents found"), nil
}

// retrieveMultiEntity fans out one search per rewritten query, merges in
// first-occurrence order, dedupes by chunk id, and caps at 2*topK. Failed
// sub-searches are logged and skipped; the rest still contribute.
func (r *retriever) retrieveMultiEntity(ctx context.Context, query string, intent Intent) (RetrievalResult, error) {
	queries := intent.RewrittenQueries
	if len(queries) == 0 {
		queries = []string{query}
	}

	filters := buildFilters(intent)
	subK := r.topK / 2

	type subResult struct {
		chunks []vector.Chunk
		err    error
	}
	results := make([]subResult, len(queries))

	var wg sync.WaitGroup
	for i, rq := range queries {
		wg.Add(1)
		go func(idx int, q string) {
			defer wg.Done()
			chunks, err := r.search(ctx, q, subK, filters)
			results[idx] = subResult{chunks: chunks, err: err}
		}(i, rq)
	}
	wg.Wait()

	log := logging.WithComponent("retriever")

	var merged []vector.Chunk
	seen := make(map[string]struct{})
	coverage := make(map[string]float64, len(queries))

	for i, res := range results {
		if res.err != nil {
			log.Warn("sub-search failed", "query_index", i, "error", res.err)
			continue
		}
		coverage[queries[i]] = float64(len(res.chunks)) / float64(r.topK)
		for _, chunk := range res.chunks {
			if _, ok := seen[chunk.ID]; ok {
				continue
			}
			seen[chunk.ID] = struct{}{}
			merged = append(merged, chunk)
		}
	}

	if limit := r.topK * 2; len(merged) > limit {
		merged = merged[:limit]
	}

	return r.result(merged, StrategyMultiEntity, coverage, "Limited coverage for some entities"), nil
}

// retrieveChronological searches like single_focus then sorts ascending by
// the chunk date; chunks without a date sort last.
func (r *retriever) retrieveChronological(ctx context.Context, query string, intent Intent) (RetrievalResult, error) {
	chunks, err := r.search(ctx, query, r.topK, buildFilters(intent))
	if err != nil {
		return RetrievalResult{}, err
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunkDate(chunks[i]) < chunkDate(chunks[j])
	})

	return r.result(chunks, StrategyChronological, nil, "Few chronological events found"), nil
}

// retrieveBroad widens the net for analytical queries: only the document_type
// filter applies and the search requests topK+10 chunks.
func (r *retriever) retrieveBroad(ctx context.Context, query string, intent Intent) (RetrievalResult, error) {
	var filters *vector.SearchFilters
	if len(intent.Entities.DocumentTypes) > 0 {
		filters = &vector.SearchFilters{DocumentTypes: intent.Entities.DocumentTypes}
	}

	chunks, err := r.search(ctx, query, r.topK+10, filters)
	if err != nil {
		return RetrievalResult{}, err
	}

	return r.result(chunks, StrategyBroad, nil, "Limited diverse content found"), nil
}

func (r *retriever) search(ctx context.Context, query string, k int, filters *vector.SearchFilters) ([]vector.Chunk, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	chunks, err := r.store.Search(ctx, embedding, k, filters)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return chunks, nil
}

func (r *retriever) result(chunks []vector.Chunk, strategy RetrievalStrategy, coverage map[string]float64, insufficientWarning string) RetrievalResult {
	isSufficient := len(chunks) >= r.minChunks

	var warnings []string
	if !isSufficient {
		warnings = []string{insufficientWarning}
	}

	return RetrievalResult{
		Chunks:       chunks,
		StrategyUsed: strategy,
		Coverage:     coverage,
		IsSufficient: isSufficient,
		Warnings:     warnings,
	}
}

// buildFilters derives vector store filters from the intent entities.
func buildFilters(intent Intent) *vector.SearchFilters {
	filters := &vector.SearchFilters{
		DocumentTypes: intent.Entities.DocumentTypes,
		DateFrom:      intent.Entities.DateFrom,
		DateTo:        intent.Entities.DateTo,
	}
	if filters.Empty() {
		return nil
	}
	return filters
}

// chunkDate returns the chunk's date for chronological ordering; undated
// chunks sort after every real date.
func chunkDate(c vector.Chunk) string {
	if date := c.Metadata["date"]; date != "" {
		return date
	}
	return "9999-99-99"
}
