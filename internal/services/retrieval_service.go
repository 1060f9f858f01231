package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/core/cache"
	"github.com/chatq/assist-backend/internal/models"
)

// RetrievalService runs the dual similarity search over FAQ entries and
// document chunks for one tenant. Results are cached per tenant and query
// vector; both searches share the same distance cutoff so an empty result
// means the knowledge base has nothing close enough.
type RetrievalService struct {
	db          core.DbClient
	cache       cache.Cache[models.RetrievalResult]
	maxFaqs     int
	maxChunks   int
	maxDistance float64
	log         *slog.Logger
}

func NewRetrievalService(db core.DbClient, c cache.Cache[models.RetrievalResult], maxFaqs, maxChunks int, maxDistance float64, logger *slog.Logger) *RetrievalService {
	return &RetrievalService{
		db:          db,
		cache:       c,
		maxFaqs:     maxFaqs,
		maxChunks:   maxChunks,
		maxDistance: maxDistance,
		log:         logger,
	}
}

// Retrieve returns the FAQ entries and document chunks closest to vec,
// each list ordered by ascending distance and cut off at the configured
// threshold. A zero-length vector yields an empty result without touching
// the store.
func (s *RetrievalService) Retrieve(ctx context.Context, tenantID string, vec []float32) (models.RetrievalResult, error) {
	if len(vec) == 0 {
		return models.RetrievalResult{}, nil
	}

	key := vectorKey(tenantID, vec)
	if res, ok := s.cache.Get(key); ok {
		return res, nil
	}

	faqs, err := s.db.SearchSimilarFaqs(ctx, tenantID, vec, s.maxFaqs, s.maxDistance)
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("search faqs: %w", err)
	}

	chunks, err := s.db.SearchSimilarChunks(ctx, tenantID, vec, s.maxChunks, s.maxDistance)
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("search chunks: %w", err)
	}

	res := models.RetrievalResult{Faqs: faqs, Chunks: chunks}
	s.log.Debug("retrieval", "tenant_id", tenantID, "faqs", len(faqs), "chunks", len(chunks))

	s.cache.Set(key, res)
	return res, nil
}
