package pipeline

import (
	"context"
	"sync"

	"github.com/AaronL1011/polly-ai/llm"
	"github.com/AaronL1011/polly-ai/vector"
)

// stubLLM returns a canned response and records every request it sees.
type stubLLM struct {
	mu       sync.Mutex
	content  string
	usage    llm.Usage
	err      error
	requests []*llm.Request
}

func (s *stubLLM) Invoke(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.content, Usage: s.usage}, nil
}

func (s *stubLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubLLM) request(i int) *llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

// stubEmbedder returns a two-dimensional vector whose first element encodes
// the query text via the index map, so a scriptedStore can route per-query
// results. Unindexed texts embed to {1, 1}.
type stubEmbedder struct {
	mu    sync.Mutex
	index map[string]float32
	texts []string
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	v := float32(1)
	if ix, ok := e.index[text]; ok {
		v = ix
	}
	return []float32{v, 1}, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int { return 2 }

func (e *stubEmbedder) embedCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.texts)
}

// scriptedStore serves search results keyed by the query vector's first
// element and records the k and filters of every search.
type scriptedStore struct {
	mu      sync.Mutex
	results map[float32][]vector.Chunk
	errs    map[float32]error
	ks      []int
	filters []*vector.SearchFilters
}

func (s *scriptedStore) Upsert(ctx context.Context, chunks []vector.Chunk, vectors [][]float32) error {
	return nil
}

func (s *scriptedStore) Search(ctx context.Context, queryVector []float32, k int, filters *vector.SearchFilters) ([]vector.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ks = append(s.ks, k)
	s.filters = append(s.filters, filters)
	key := queryVector[0]
	if err := s.errs[key]; err != nil {
		return nil, err
	}
	return s.results[key], nil
}

func (s *scriptedStore) DeleteDocument(ctx context.Context, documentID string) error { return nil }

func (s *scriptedStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, chunks := range s.results {
		n += len(chunks)
	}
	return n, nil
}

func testChunk(id, documentID, text string, metadata map[string]string) vector.Chunk {
	return vector.Chunk{
		ID:         id,
		DocumentID: documentID,
		Text:       text,
		Metadata:   metadata,
	}
}
