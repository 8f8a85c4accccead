package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AaronL1011/polly-ai/vector"
)

type entry struct {
	chunk  vector.Chunk
	vector []float32
}

// InMemoryVectorStore implements vector.VectorStore using in-memory storage.
// Suitable for tests and small single-process deployments.
type InMemoryVectorStore struct {
	entries map[string]entry
	mu      sync.RWMutex
}

// NewInMemoryVectorStore creates a new in-memory vector store
func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{
		entries: make(map[string]entry),
	}
}

// Upsert stores chunks with their embedding vectors.
func (s *InMemoryVectorStore) Upsert(ctx context.Context, chunks []vector.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk ID cannot be empty")
		}
		if len(vectors[i]) == 0 {
			return fmt.Errorf("embedding vector cannot be empty")
		}
		s.entries[chunk.ID] = entry{chunk: chunk.Clone(), vector: vectors[i]}
	}
	return nil
}

// Search finds chunks similar to the query vector, filtered by payload.
func (s *InMemoryVectorStore) Search(ctx context.Context, queryVector []float32, k int, filters *vector.SearchFilters) ([]vector.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if k <= 0 {
		k = 10
	}

	type scored struct {
		chunk      vector.Chunk
		similarity float32
	}

	results := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if len(e.vector) != len(queryVector) {
			continue
		}
		if !filters.Match(e.chunk.Metadata) {
			continue
		}
		results = append(results, scored{
			chunk:      e.chunk,
			similarity: vector.CosineSimilarity(queryVector, e.vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].similarity > results[j].similarity
	})

	limit := k
	if limit > len(results) {
		limit = len(results)
	}

	chunks := make([]vector.Chunk, limit)
	for i := 0; i < limit; i++ {
		chunks[i] = results[i].chunk.Clone()
	}
	return chunks, nil
}

// DeleteDocument removes all chunks belonging to a document.
func (s *InMemoryVectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if e.chunk.DocumentID == documentID {
			delete(s.entries, id)
		}
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *InMemoryVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries), nil
}
