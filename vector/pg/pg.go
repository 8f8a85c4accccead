package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	pollyerrors "github.com/AaronL1011/polly-ai/errors"
	"github.com/AaronL1011/polly-ai/vector"
)

// PGVectorStore implements vector.VectorStore using PostgreSQL with the
// pgvector extension. document_type and date live in dedicated columns so
// filtered searches stay in SQL; the remaining chunk metadata is JSONB.
type PGVectorStore struct {
	db        *sql.DB
	dimension int
	tableName string
}

// PGVectorConfig holds pgvector configuration
type PGVectorConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int    // Embedding dimension (default: 1536)
	TableName string // Table name (default: chunks)
}

// DefaultPGVectorConfig returns default pgvector configuration
func DefaultPGVectorConfig() *PGVectorConfig {
	return &PGVectorConfig{
		Host:      "127.0.0.1",
		Port:      5432,
		User:      "postgres",
		Password:  "postgres",
		DBName:    "polly",
		SSLMode:   "disable",
		Dimension: 1536,
		TableName: "chunks",
	}
}

// NewPGVectorStore creates a new pgvector-based chunk store
func NewPGVectorStore(config *PGVectorConfig) (*PGVectorStore, error) {
	if config == nil {
		config = DefaultPGVectorConfig()
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &PGVectorStore{
		db:        db,
		dimension: config.Dimension,
		tableName: config.TableName,
	}

	if err := store.setup(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to setup pgvector: %w", err)
	}

	return store, nil
}

func (s *PGVectorStore) setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		document_id VARCHAR(255) NOT NULL,
		text TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		document_type VARCHAR(64),
		date VARCHAR(10),
		metadata JSONB NOT NULL DEFAULT '{}',
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.tableName, s.dimension)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	indexSQL := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_document_id_idx ON %s (document_id)",
		s.tableName, s.tableName)
	if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("failed to create document index: %w", err)
	}

	return nil
}

// Upsert stores chunks with their embedding vectors.
func (s *PGVectorStore) Upsert(ctx context.Context, chunks []vector.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, document_id, text, position, document_type, date, metadata, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector)
	ON CONFLICT (id) DO UPDATE SET
		document_id = EXCLUDED.document_id,
		text = EXCLUDED.text,
		position = EXCLUDED.position,
		document_type = EXCLUDED.document_type,
		date = EXCLUDED.date,
		metadata = EXCLUDED.metadata,
		embedding = EXCLUDED.embedding,
		created_at = CURRENT_TIMESTAMP
	`, s.tableName)

	for i, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk ID cannot be empty")
		}
		if len(vectors[i]) != s.dimension {
			return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.dimension, len(vectors[i]))
		}

		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}

		_, err = s.db.ExecContext(ctx, query,
			chunk.ID,
			chunk.DocumentID,
			chunk.Text,
			chunk.Position,
			nullable(chunk.Metadata["document_type"]),
			nullable(chunk.Metadata["date"]),
			metadata,
			vectorToString(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", chunk.ID, err)
		}
	}

	return nil
}

// Search finds chunks similar to the query vector, restricted by filters.
func (s *PGVectorStore) Search(ctx context.Context, queryVector []float32, k int, filters *vector.SearchFilters) ([]vector.Chunk, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension mismatch: expected %d, got %d", s.dimension, len(queryVector))
	}
	if k <= 0 {
		k = 10
	}

	args := []any{vectorToString(queryVector)}
	var conditions []string

	if !filters.Empty() {
		if len(filters.DocumentTypes) > 0 {
			args = append(args, pq.Array(filters.DocumentTypes))
			conditions = append(conditions, fmt.Sprintf("document_type = ANY($%d)", len(args)))
		}
		if filters.DateFrom != "" {
			args = append(args, filters.DateFrom)
			conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
		}
		if filters.DateTo != "" {
			args = append(args, filters.DateTo)
			conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
		}
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, k)
	query := fmt.Sprintf(`
	SELECT id, document_id, text, position, metadata
	FROM %s
	%s
	ORDER BY embedding %s $1::vector
	LIMIT $%d
	`, s.tableName, where, vector.CosineSimilarityOperator(), len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]vector.Chunk, 0, k)
	for rows.Next() {
		var chunk vector.Chunk
		var metadata []byte

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text, &chunk.Position, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("failed to parse metadata for chunk %s: %w", chunk.ID, err)
			}
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}

	return chunks, nil
}

// DeleteDocument removes all chunks belonging to a document.
func (s *PGVectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", s.tableName)
	result, err := s.db.ExecContext(ctx, query, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", documentID, pollyerrors.ErrNotFound)
	}

	return nil
}

// Count returns the number of stored chunks.
func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)

	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *PGVectorStore) Close() error {
	return s.db.Close()
}

func vectorToString(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
