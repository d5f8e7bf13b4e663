// Package kb is the pgvector-backed knowledge base: historical incidents
// and investigation playbooks, searched by embedding similarity.
package kb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/llm"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/models"
)

// Collection names. Incidents and playbooks are searched separately.
const (
	CollectionIncidents = "incidents"
	CollectionPlaybooks = "playbooks"
)

// DistanceThreshold is the cosine distance above which a hit is flagged
// low confidence.
const DistanceThreshold = 0.35

// DefaultEmbeddingModel matches the dimension of the kb_documents
// embedding column.
const DefaultEmbeddingModel = "text-embedding-3-large"

// Document is one knowledge base entry ready for embedding and storage.
type Document struct {
	ID       string
	Document string
	Metadata map[string]string
}

// Store provides semantic search over the knowledge base tables.
type Store struct {
	pool           *pgxpool.Pool
	embedder       llm.Embedder
	embeddingModel string
	logger         *zap.Logger
}

// StoreConfig holds dependencies for creating a Store.
type StoreConfig struct {
	Pool           *pgxpool.Pool
	Embedder       llm.Embedder
	EmbeddingModel string // defaults to DefaultEmbeddingModel
	Logger         *zap.Logger
}

// NewStore creates a Store.
func NewStore(cfg *StoreConfig) *Store {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Store{
		pool:           cfg.Pool,
		embedder:       cfg.Embedder,
		embeddingModel: model,
		logger:         cfg.Logger.Named("kb"),
	}
}

// UpsertIncidents stores incident documents. Returns the count upserted.
func (s *Store) UpsertIncidents(ctx context.Context, docs []Document) (int, error) {
	return s.upsert(ctx, CollectionIncidents, docs)
}

// UpsertPlaybooks stores playbook chunks. Returns the count upserted.
func (s *Store) UpsertPlaybooks(ctx context.Context, docs []Document) (int, error) {
	return s.upsert(ctx, CollectionPlaybooks, docs)
}

func (s *Store) upsert(ctx context.Context, collection string, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO kb_documents (collection, id, document, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection, id)
		DO UPDATE SET
			document = EXCLUDED.document,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`

	for _, doc := range docs {
		vec, err := s.embedder.CreateEmbedding(ctx, doc.Document, s.embeddingModel)
		if err != nil {
			return 0, fmt.Errorf("embed document %s: %w", doc.ID, err)
		}
		if _, err := s.pool.Exec(ctx, query,
			collection, doc.ID, doc.Document, doc.Metadata, pgvector.NewVector(vec),
		); err != nil {
			return 0, fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}

	s.logger.Info("Upserted knowledge base documents",
		zap.String("collection", collection),
		zap.Int("count", len(docs)))
	return len(docs), nil
}

// SearchSimilarIncidents searches the historical incident collection.
func (s *Store) SearchSimilarIncidents(ctx context.Context, query string, limit int) (*models.SearchResult, error) {
	return s.search(ctx, CollectionIncidents, models.SearchTypeSimilarIncidents, query, limit)
}

// SearchPlaybooks searches the playbook collection.
func (s *Store) SearchPlaybooks(ctx context.Context, query string, limit int) (*models.SearchResult, error) {
	return s.search(ctx, CollectionPlaybooks, models.SearchTypePlaybooks, query, limit)
}

// hit is one raw search row before confidence bucketing.
type hit struct {
	document string
	metadata map[string]string
	distance float64
}

func (s *Store) search(ctx context.Context, collection, resultType, query string, limit int) (*models.SearchResult, error) {
	if limit <= 0 {
		limit = 3
	}

	vec, err := s.embedder.CreateEmbedding(ctx, query, s.embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sql := `
		SELECT document, metadata, embedding <=> $1 AS distance
		FROM kb_documents
		WHERE collection = $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(vec), collection, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	defer rows.Close()

	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.document, &h.metadata, &h.distance); err != nil {
			return nil, fmt.Errorf("scan %s hit: %w", collection, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	return formatResult(resultType, hits), nil
}

// formatResult applies confidence bucketing. Distance itself is dropped
// from the output; the warning fires only when every hit is low
// confidence.
func formatResult(resultType string, hits []hit) *models.SearchResult {
	items := make([]models.SearchItem, 0, len(hits))
	allLow := true
	for _, h := range hits {
		confidence := models.ConfidenceNormal
		if h.distance > DistanceThreshold {
			confidence = models.ConfidenceLow
		} else {
			allLow = false
		}
		items = append(items, models.SearchItem{
			Document:   h.document,
			Metadata:   h.metadata,
			Confidence: confidence,
		})
	}

	return &models.SearchResult{
		Type:                 resultType,
		Results:              items,
		LowConfidenceWarning: allLow && len(items) > 0,
		Total:                len(items),
	}
}

// Counts returns the document count per collection.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT collection, COUNT(*) FROM kb_documents GROUP BY collection`)
	if err != nil {
		return nil, fmt.Errorf("count kb documents: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		CollectionIncidents: 0,
		CollectionPlaybooks: 0,
	}
	for rows.Next() {
		var collection string
		var n int
		if err := rows.Scan(&collection, &n); err != nil {
			return nil, fmt.Errorf("scan kb count: %w", err)
		}
		counts[collection] = n
	}
	return counts, rows.Err()
}
