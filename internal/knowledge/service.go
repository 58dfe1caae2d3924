package knowledge

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sitewire_backend/platform/config"
	"sitewire_backend/platform/logger"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher runs a similarity search scoped to a company.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, companyID string, limit int) ([]SearchResult, error)
}

// Service answers knowledge-base queries: embed the query, search the
// vector store, and return the matched document snippets.
type Service struct {
	embedder Embedder
	store    VectorSearcher
	log      *logger.Logger
}

func NewService(embedder Embedder, store VectorSearcher, log *logger.Logger) *Service {
	return &Service{embedder: embedder, store: store, log: log}
}

// NewServiceFromConfig wires the service from configuration, or returns nil
// when the knowledge base is not configured.
func NewServiceFromConfig(cfg config.KnowledgeConfig, log *logger.Logger) *Service {
	if !cfg.IsKnowledgeEnabled() {
		return nil
	}
	embedder := NewEmbeddingClient(cfg.GetEmbeddingAPIURL(), cfg.GetEmbeddingAPIKey())
	store := NewVectorStoreClient(cfg.GetVectorStoreURL(), cfg.GetVectorStoreAPIKey(), cfg.GetVectorStoreCollection())
	return NewService(embedder, store, log)
}

// Search returns the text snippets most relevant to the query.
func (s *Service) Search(ctx context.Context, companyID uuid.UUID, query string, limit int) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("knowledge base not configured")
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.store.Search(ctx, vector, companyID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	snippets := make([]string, 0, len(results))
	for _, r := range results {
		if text, ok := r.Payload["text"].(string); ok && text != "" {
			snippets = append(snippets, text)
		}
	}

	s.log.Info("knowledge search completed", "query_len", len(query), "results", len(snippets))
	return snippets, nil
}
