package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AaronL1011/polly-ai/cache"
	"github.com/AaronL1011/polly-ai/component"
	"github.com/AaronL1011/polly-ai/llm"
	"github.com/AaronL1011/polly-ai/vector"
)

const (
	plannerFactualJSON = `{
		"query_type": "factual",
		"response_depth": "standard",
		"expected_components": ["text_block"],
		"retrieval_strategy": "single_focus",
		"rewritten_queries": ["who won the housing bill vote"],
		"confidence": 0.9
	}`
	extractorJSON = `{
		"content": "The bill passed 38 votes to 30.",
		"source_quotes": ["the ayes have it, 38 to 30"],
		"completeness": 0.9
	}`
	composerJSON = `{
		"title": "Vote Result",
		"sections": [{"components": [
			{"type": "text_block", "content": "The bill passed 38 votes to 30.", "format": "markdown"}
		]}]
	}`
)

type testEnv struct {
	planner   *stubLLM
	extractor *stubLLM
	composer  *stubLLM
	verifier  *stubLLM
	embedder  *stubEmbedder
	store     *scriptedStore
	cache     *cache.MemoryCache
	pipeline  *Pipeline
}

func sufficientChunks() []vector.Chunk {
	return []vector.Chunk{
		testChunk("c1", "doc1", "The housing bill passed the Senate.", map[string]string{
			"source_name": "Hansard", "source_date": "2024-03-15",
		}),
		testChunk("c2", "doc1", "38 senators voted for the bill.", map[string]string{
			"source_name": "Hansard",
		}),
		testChunk("c3", "doc2", "30 senators voted against.", nil),
	}
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		planner:   &stubLLM{content: plannerFactualJSON, usage: llm.Usage{InputTokens: 100, OutputTokens: 40, Model: "gpt-4o-mini"}},
		extractor: &stubLLM{content: extractorJSON, usage: llm.Usage{InputTokens: 200, OutputTokens: 80, Model: "gpt-4o-mini"}},
		composer:  &stubLLM{content: composerJSON, usage: llm.Usage{InputTokens: 300, OutputTokens: 120, Model: "gpt-4o"}},
		verifier:  &stubLLM{content: `{"is_valid": true, "confidence_score": 1.0}`},
		embedder:  &stubEmbedder{},
		store:     &scriptedStore{results: map[float32][]vector.Chunk{1: sufficientChunks()}},
		cache:     cache.NewMemoryCache(),
	}

	p, err := New(Clients{
		Planner:   env.planner,
		Extractor: env.extractor,
		Composer:  env.composer,
		Verifier:  env.verifier,
	}, env.embedder, env.store, env.cache, opts...)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	env.pipeline = p
	return env
}

func TestNewRequiresCapabilities(t *testing.T) {
	client := &stubLLM{}
	embedder := &stubEmbedder{}
	store := &scriptedStore{}

	if _, err := New(Clients{}, embedder, store, nil); err == nil {
		t.Error("missing LLM clients should fail")
	}
	if _, err := New(Clients{Default: client}, nil, store, nil); err == nil {
		t.Error("missing embedder should fail")
	}
	if _, err := New(Clients{Default: client}, embedder, nil, nil); err == nil {
		t.Error("missing store should fail")
	}
	if _, err := New(Clients{Planner: client, Extractor: client, Composer: client}, embedder, store, nil, WithVerifier(true)); err == nil {
		t.Error("verifier enabled without a verifier client should fail")
	}
	if _, err := New(Clients{Default: client}, embedder, store, nil); err != nil {
		t.Errorf("default client should cover every stage: %v", err)
	}
}

func TestQueryKeyDeterministic(t *testing.T) {
	q1 := Query{Text: "who won the vote", Filters: &QueryFilters{DocumentTypes: []string{"hansard"}}}
	q2 := Query{Text: "who won the vote", Filters: &QueryFilters{DocumentTypes: []string{"hansard"}}}
	q3 := Query{Text: "who won the vote", Filters: &QueryFilters{DocumentTypes: []string{"bill"}}}
	q4 := Query{Text: "who won the vote"}

	if queryKey(q1) != queryKey(q2) {
		t.Error("identical queries must produce identical keys")
	}
	if queryKey(q1) == queryKey(q3) {
		t.Error("different filters must produce different keys")
	}
	if queryKey(q1) == queryKey(q4) {
		t.Error("filtered and unfiltered queries must produce different keys")
	}
	if !strings.HasPrefix(queryKey(q1), "rag:query:v1:") {
		t.Errorf("key = %q, want versioned prefix", queryKey(q1))
	}
}

func TestExecuteSuccess(t *testing.T) {
	env := newTestEnv(t)
	query := Query{Text: "who won the housing bill vote", SessionID: "s1"}

	out := env.pipeline.Execute(context.Background(), query)

	if out.Result.Cached {
		t.Error("first run should not be cached")
	}
	if out.Result.Layout.Title != "Vote Result" {
		t.Errorf("layout title = %q", out.Result.Layout.Title)
	}
	if len(out.Result.Components) != 1 {
		t.Fatalf("components = %d, want 1", len(out.Result.Components))
	}
	if out.Result.Metadata.ChunksUsed != 3 {
		t.Errorf("chunks used = %d, want 3", out.Result.Metadata.ChunksUsed)
	}
	if out.Result.Metadata.DocumentsRetrieved != 2 {
		t.Errorf("documents retrieved = %d, want 2", out.Result.Metadata.DocumentsRetrieved)
	}

	if len(out.Result.Sources) != 2 {
		t.Fatalf("sources = %d, want one per document", len(out.Result.Sources))
	}
	if out.Result.Sources[0].DocumentID != "doc1" || out.Result.Sources[0].SourceName != "Hansard" {
		t.Errorf("sources[0] = %+v", out.Result.Sources[0])
	}
	if out.Result.Sources[1].SourceName != "Unknown" {
		t.Errorf("sources[1] name = %q, want Unknown default", out.Result.Sources[1].SourceName)
	}

	if out.Cost.TotalCents <= 0 {
		t.Errorf("total cents = %d, want positive", out.Cost.TotalCents)
	}
	if out.Cost.TotalCredits != out.Cost.TotalCents {
		t.Errorf("credits %d != cents %d", out.Cost.TotalCredits, out.Cost.TotalCents)
	}

	if env.planner.calls() != 1 || env.extractor.calls() != 1 || env.composer.calls() != 1 {
		t.Errorf("stage calls = %d/%d/%d, want 1 each",
			env.planner.calls(), env.extractor.calls(), env.composer.calls())
	}
	if env.verifier.calls() != 0 {
		t.Error("verifier disabled by default")
	}

	if data, err := env.cache.Get(context.Background(), queryKey(query)); err != nil || data == nil {
		t.Error("successful result should be cached")
	}
}

func TestExecuteCacheHitSkipsStages(t *testing.T) {
	env := newTestEnv(t)
	query := Query{Text: "who won the housing bill vote"}

	first := env.pipeline.Execute(context.Background(), query)
	if first.Result.Cached {
		t.Fatal("first run should miss the cache")
	}

	second := env.pipeline.Execute(context.Background(), query)

	if !second.Result.Cached {
		t.Error("second run should hit the cache")
	}
	if second.Cost.TotalCents != 0 || second.Cost.TotalCredits != 0 {
		t.Errorf("cached cost = %+v, want zero", second.Cost)
	}
	if env.planner.calls() != 1 || env.extractor.calls() != 1 || env.composer.calls() != 1 {
		t.Error("cache hit must not invoke any stage")
	}
	if second.Result.Layout.Title != first.Result.Layout.Title {
		t.Error("cached result should match the original")
	}
	if len(second.Result.Components) != len(first.Result.Components) {
		t.Error("cached components should survive the roundtrip")
	}
}

func TestExecuteInsufficientData(t *testing.T) {
	env := newTestEnv(t)
	env.store.results[1] = []vector.Chunk{testChunk("only", "doc", "lone chunk", nil)}
	query := Query{Text: "very obscure question"}

	out := env.pipeline.Execute(context.Background(), query)

	if out.Result.Metadata.ChunksUsed != 0 {
		t.Errorf("chunks used = %d, want 0 on the insufficient path", out.Result.Metadata.ChunksUsed)
	}
	if out.Cost.TotalCents != 0 || out.Cost.TotalCredits != 0 {
		t.Errorf("cost = %+v, want zero", out.Cost)
	}
	if out.Result.Layout.Title != "Unable to Answer Query" {
		t.Errorf("layout title = %q", out.Result.Layout.Title)
	}

	if len(out.Result.Components) != 2 {
		t.Fatalf("components = %d, want notice + suggestions", len(out.Result.Components))
	}
	notice, ok := out.Result.Components[0].Content.(component.Notice)
	if !ok || notice.Title != "Limited Information" {
		t.Errorf("components[0] = %+v, want Limited Information notice", out.Result.Components[0])
	}
	if _, ok := out.Result.Components[1].Content.(component.TextBlock); !ok {
		t.Errorf("components[1] = %q, want suggestions text block", out.Result.Components[1].Type())
	}

	if env.extractor.calls() != 0 || env.composer.calls() != 0 {
		t.Error("insufficient retrieval must stop before extraction")
	}
	if data, _ := env.cache.Get(context.Background(), queryKey(query)); data != nil {
		t.Error("insufficient result must not be cached")
	}
}

func TestExecutePlannerFailureStillAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.planner.err = errors.New("planner unavailable")

	out := env.pipeline.Execute(context.Background(), Query{Text: "who won the housing bill vote"})

	if len(out.Result.Components) == 0 {
		t.Fatal("pipeline should answer with the default intent")
	}
	if out.Result.Layout.Title != "Vote Result" {
		t.Errorf("layout title = %q", out.Result.Layout.Title)
	}
	if env.extractor.calls() != 1 || env.composer.calls() != 1 {
		t.Error("downstream stages should still run")
	}
}

func TestExecuteComposerFailureNotCached(t *testing.T) {
	env := newTestEnv(t)
	env.composer.err = errors.New("model overloaded")
	query := Query{Text: "who won the housing bill vote"}

	out := env.pipeline.Execute(context.Background(), query)

	if out.Result.Layout.Title != "Error" {
		t.Errorf("layout title = %q, want composer fallback", out.Result.Layout.Title)
	}
	if data, _ := env.cache.Get(context.Background(), queryKey(query)); data != nil {
		t.Error("composer failure must not be cached")
	}
}

func TestExecuteMultiEntityFansOutAndDedupes(t *testing.T) {
	env := newTestEnv(t)
	env.planner.content = `{
		"query_type": "comparative",
		"response_depth": "standard",
		"entities": {"parties": ["Labor", "Liberal"]},
		"expected_components": ["text_block", "comparison"],
		"retrieval_strategy": "multi_entity",
		"rewritten_queries": ["Labor climate policy", "Liberal climate policy"],
		"confidence": 0.85
	}`
	env.composer.content = `{
		"title": "Climate Policy Comparison",
		"sections": [{"components": [
			{"type": "text_block", "content": "Both parties differ on targets."},
			{"type": "comparison", "items": [{"name": "Labor"}, {"name": "Liberal"}],
			 "attributes": [{"name": "2030 target", "values": ["43%", "28%"]}]}
		]}]
	}`
	env.embedder.index = map[string]float32{
		"Labor climate policy":   2,
		"Liberal climate policy": 3,
	}
	shared := testChunk("y", "doc1", "shared chunk", nil)
	env.store.results = map[float32][]vector.Chunk{
		2: {testChunk("x", "doc1", "labor chunk", nil), shared},
		3: {shared, testChunk("z", "doc2", "liberal chunk", nil)},
	}

	out := env.pipeline.Execute(context.Background(), Query{Text: "Compare Labor and Liberal climate policies"})

	if env.embedder.embedCalls() != 2 {
		t.Errorf("embed calls = %d, want one per rewritten query", env.embedder.embedCalls())
	}
	if out.Result.Metadata.ChunksUsed != 3 {
		t.Errorf("chunks used = %d, want 3 after dedup", out.Result.Metadata.ChunksUsed)
	}
	if env.extractor.calls() != 2 {
		t.Errorf("extractor calls = %d, want one per expected component", env.extractor.calls())
	}
	if len(out.Result.Components) != 2 {
		t.Fatalf("components = %d, want text_block + comparison", len(out.Result.Components))
	}
	if _, ok := out.Result.Components[1].Content.(component.Comparison); !ok {
		t.Errorf("components[1] = %q, want comparison", out.Result.Components[1].Type())
	}
}

func TestExecuteRetrievalErrorReturnsErrorResult(t *testing.T) {
	env := newTestEnv(t)
	env.store.errs = map[float32]error{1: errors.New("store down")}

	out := env.pipeline.Execute(context.Background(), Query{Text: "any query"})

	if out.Result.Layout.Title != "Error Processing Query" {
		t.Errorf("layout title = %q", out.Result.Layout.Title)
	}
	if out.Result.Metadata.Model != "error" {
		t.Errorf("model = %q, want error", out.Result.Metadata.Model)
	}
	if out.Cost.TotalCents != 0 {
		t.Errorf("cost = %+v, want zero", out.Cost)
	}
}

func TestExecuteVerifierAnnotatesErrorClaims(t *testing.T) {
	env := newTestEnv(t, WithVerifier(true))
	env.verifier.content = `{
		"is_valid": false,
		"unsupported_claims": [{"claim_text": "passed unanimously", "severity": "error"}],
		"confidence_score": 0.4
	}`

	out := env.pipeline.Execute(context.Background(), Query{Text: "who won the housing bill vote"})

	if env.verifier.calls() != 1 {
		t.Fatalf("verifier calls = %d, want 1", env.verifier.calls())
	}
	if len(out.Result.Components) != 2 {
		t.Fatalf("components = %d, want original + verification notice", len(out.Result.Components))
	}
	if _, ok := out.Result.Components[0].Content.(component.TextBlock); !ok {
		t.Error("original component must not be removed")
	}
	notice, ok := out.Result.Components[1].Content.(component.Notice)
	if !ok || notice.Title != "Verification Warning" {
		t.Errorf("components[1] = %+v, want verification notice", out.Result.Components[1])
	}
	if notice.Level != component.NoticeWarning {
		t.Errorf("notice level = %q, want warning", notice.Level)
	}
}

func TestExecuteVerifierWarningSeverityAddsNoNotice(t *testing.T) {
	env := newTestEnv(t, WithVerifier(true))
	env.verifier.content = `{
		"is_valid": false,
		"unsupported_claims": [{"claim_text": "minor detail", "severity": "warning"}],
		"confidence_score": 0.7
	}`

	out := env.pipeline.Execute(context.Background(), Query{Text: "who won the housing bill vote"})

	if len(out.Result.Components) != 1 {
		t.Errorf("components = %d, warning-only claims should add no notice", len(out.Result.Components))
	}
}

func TestExecuteWithNilCache(t *testing.T) {
	env := &testEnv{
		planner:   &stubLLM{content: plannerFactualJSON},
		extractor: &stubLLM{content: extractorJSON},
		composer:  &stubLLM{content: composerJSON},
		embedder:  &stubEmbedder{},
		store:     &scriptedStore{results: map[float32][]vector.Chunk{1: sufficientChunks()}},
	}
	p, err := New(Clients{Planner: env.planner, Extractor: env.extractor, Composer: env.composer},
		env.embedder, env.store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	query := Query{Text: "who won the housing bill vote"}
	first := p.Execute(context.Background(), query)
	second := p.Execute(context.Background(), query)

	if first.Result.Cached || second.Result.Cached {
		t.Error("nil cache should never report cached results")
	}
	if env.planner.calls() != 2 {
		t.Errorf("planner calls = %d, want every run uncached", env.planner.calls())
	}
}
