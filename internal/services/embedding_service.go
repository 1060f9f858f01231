package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"strings"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/core/cache"
)

// EmbeddingService adapts the embedding provider for the pipeline: blank
// input short-circuits to a zero-length vector without a provider call,
// and identical text is served from the cache (the provider is
// deterministic for identical input). Provider vectors are checked
// against the configured dimension before anything downstream sees them;
// the store's vector columns are fixed-width, so a wrong-sized vector
// would otherwise surface later as an insert error.
type EmbeddingService struct {
	provider core.EmbeddingProvider
	cache    cache.Cache[[]float32]
	dim      int
	log      *slog.Logger
}

// NewEmbeddingService wraps provider. dim is the expected vector length;
// zero disables the check.
func NewEmbeddingService(provider core.EmbeddingProvider, c cache.Cache[[]float32], dim int, logger *slog.Logger) *EmbeddingService {
	return &EmbeddingService{provider: provider, cache: c, dim: dim, log: logger}
}

// EmbedText returns the embedding vector for text.
func (s *EmbeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		s.log.Warn("embedding requested for blank text")
		return []float32{}, nil
	}

	key := textKey(text)
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}

	vecs, err := s.provider.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%w: provider returned no vector", core.ErrProvider)
	}
	if err := s.checkDim(vecs[0]); err != nil {
		return nil, err
	}

	s.cache.Set(key, vecs[0])
	return vecs[0], nil
}

// EmbedTexts embeds a batch in one provider round trip, bypassing the
// cache. Used by ingestion where inputs are unique chunks.
func (s *EmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := s.provider.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	for _, vec := range vecs {
		if err := s.checkDim(vec); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (s *EmbeddingService) checkDim(vec []float32) error {
	if s.dim > 0 && len(vec) != s.dim {
		return fmt.Errorf("%w: provider returned %d-dimensional vector, expected %d", core.ErrProvider, len(vec), s.dim)
	}
	return nil
}

// EmbedFaq embeds the combined question, answer and tags of a FAQ entry
// for a richer semantic representation than the question alone.
func (s *EmbeddingService) EmbedFaq(ctx context.Context, question, answer string, tags []string) ([]float32, error) {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\nAnswer: ")
	b.WriteString(answer)
	if len(tags) > 0 {
		b.WriteString("\nTags: ")
		b.WriteString(strings.Join(tags, ", "))
	}
	return s.EmbedText(ctx, b.String())
}

func textKey(text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return fmt.Sprintf("emb:%x", h.Sum64())
}

// vectorKey hashes a query vector under its tenant for the retrieval
// cache. Identical questions reproduce identical embeddings, so the hash
// is stable per question.
func vectorKey(tenantID string, vec []float32) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tenantID))
	var buf [4]byte
	for _, f := range vec {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		_, _ = h.Write(buf[:])
	}
	return fmt.Sprintf("ret:%s:%x", tenantID, h.Sum64())
}
