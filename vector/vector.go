// Package vector defines the retrieval capabilities the pipeline consumes: an
// embedder producing fixed-dimension vectors and a chunk store supporting
// filtered similarity search.
package vector

import "context"

// Chunk is the retrieval unit: a text span produced by the ingestion
// subsystem, stored alongside its embedding and payload metadata.
type Chunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	Position   int               `json:"position"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the chunk.
func (c Chunk) Clone() Chunk {
	out := c
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// SearchFilters narrows a similarity search over chunk payload fields.
// DocumentTypes is an any-match over the "document_type" payload field;
// DateFrom/DateTo form an inclusive range over the "date" payload field,
// compared as YYYY-MM-DD strings.
type SearchFilters struct {
	DocumentTypes []string
	DateFrom      string
	DateTo        string
}

// Empty reports whether the filters impose no constraint.
func (f *SearchFilters) Empty() bool {
	return f == nil || (len(f.DocumentTypes) == 0 && f.DateFrom == "" && f.DateTo == "")
}

// Match reports whether the chunk payload satisfies the filters.
func (f *SearchFilters) Match(metadata map[string]string) bool {
	if f.Empty() {
		return true
	}
	if len(f.DocumentTypes) > 0 {
		docType := metadata["document_type"]
		found := false
		for _, t := range f.DocumentTypes {
			if t == docType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateFrom != "" || f.DateTo != "" {
		date := metadata["date"]
		if date == "" {
			return false
		}
		if f.DateFrom != "" && date < f.DateFrom {
			return false
		}
		if f.DateTo != "" && date > f.DateTo {
			return false
		}
	}
	return true
}

// VectorStore defines the interface for chunk storage and similarity search.
type VectorStore interface {
	// Upsert stores chunks with their embedding vectors. vectors[i] embeds
	// chunks[i]; both slices must be the same length.
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error

	// Search finds the k chunks most similar to the query vector, in
	// descending similarity order, restricted by the optional filters.
	Search(ctx context.Context, queryVector []float32, k int, filters *SearchFilters) ([]Chunk, error)

	// DeleteDocument removes all chunks belonging to a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// Embedder defines the interface for creating embeddings from text.
type Embedder interface {
	// Embed converts text to a vector embedding
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts to embeddings
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the number of embedding dimensions
	Dimension() int
}

// CosineSimilarityOperator returns the PostgreSQL operator for cosine distance
func CosineSimilarityOperator() string {
	return "<=>"
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (normA*normB + 1e-8)
}
