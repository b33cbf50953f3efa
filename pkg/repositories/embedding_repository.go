package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/crewstack/crewstack-engine/pkg/database"
	"github.com/crewstack/crewstack-engine/pkg/models"
)

// EmbeddingRepository defines data access for the vector index.
type EmbeddingRepository interface {
	// UpsertBatch writes documents with their vectors, overwriting by id.
	// docs and vectors are index-aligned. Returns the number of rows
	// written.
	UpsertBatch(ctx context.Context, docs []models.EmbeddingDocument, vectors [][]float32) (int, error)

	// Search returns the topK nearest entries by cosine distance,
	// optionally restricted to entity kinds.
	Search(ctx context.Context, vector []float32, topK int, kinds ...string) ([]models.SemanticMatch, error)

	// Count returns the number of stored index entries.
	Count(ctx context.Context) (int, error)
}

// embeddingRepository implements EmbeddingRepository using PostgreSQL with
// the pgvector extension.
type embeddingRepository struct {
	db *database.DB
}

// NewEmbeddingRepository creates a new embedding repository.
func NewEmbeddingRepository(db *database.DB) EmbeddingRepository {
	return &embeddingRepository{db: db}
}

// UpsertBatch writes documents with their vectors, overwriting by id.
func (r *embeddingRepository) UpsertBatch(ctx context.Context, docs []models.EmbeddingDocument, vectors [][]float32) (int, error) {
	if len(docs) != len(vectors) {
		return 0, fmt.Errorf("documents and vectors length mismatch: %d != %d", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO hr_embeddings (id, kind, content, embedding, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for i, doc := range docs {
		batch.Queue(query,
			doc.ID,
			doc.Kind,
			doc.Content,
			pgvector.NewVector(vectors[i]),
			doc.Metadata,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range docs {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert embedding %s: %w", docs[i].ID, err)
		}
	}

	return len(docs), nil
}

// Search returns the topK nearest entries by cosine distance. A nil kind
// filter matches every entity kind.
func (r *embeddingRepository) Search(ctx context.Context, vector []float32, topK int, kinds ...string) ([]models.SemanticMatch, error) {
	if topK <= 0 {
		topK = 10
	}

	query := `
		SELECT id, content, metadata, embedding <=> $1 AS distance
		FROM hr_embeddings
		WHERE $2::text[] IS NULL OR kind = ANY($2::text[])
		ORDER BY embedding <=> $1
		LIMIT $3`

	var kindFilter []string
	if len(kinds) > 0 {
		kindFilter = kinds
	}

	rows, err := r.db.Query(ctx, query, pgvector.NewVector(vector), kindFilter, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}
	defer rows.Close()

	var matches []models.SemanticMatch
	for rows.Next() {
		var m models.SemanticMatch
		if err := rows.Scan(&m.ID, &m.Content, &m.Metadata, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan embedding match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embedding matches: %w", err)
	}
	return matches, nil
}

// Count returns the number of stored index entries.
func (r *embeddingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM hr_embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

var _ EmbeddingRepository = (*embeddingRepository)(nil)
