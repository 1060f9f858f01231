package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

// FaqInput carries the authorable fields of a FAQ entry.
type FaqInput struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	Tags         []string `json:"tags,omitempty"`
	IsActive     *bool    `json:"isActive,omitempty"`
	DisplayOrder int      `json:"displayOrder,omitempty"`
}

// FaqService manages authored FAQ entries. Every create or content update
// regenerates the entry's embedding so retrieval always matches against
// the current text.
type FaqService struct {
	db       core.DbClient
	embedder *EmbeddingService
	log      *slog.Logger
}

func NewFaqService(db core.DbClient, embedder *EmbeddingService, logger *slog.Logger) *FaqService {
	return &FaqService{db: db, embedder: embedder, log: logger}
}

func (s *FaqService) CreateFaq(ctx context.Context, tenantID string, in FaqInput) (*models.FaqEntry, error) {
	if err := validateFaqInput(in); err != nil {
		return nil, err
	}

	vec, err := s.embedder.EmbedFaq(ctx, in.Question, in.Answer, in.Tags)
	if err != nil {
		return nil, err
	}

	entry := &models.FaqEntry{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Question:     strings.TrimSpace(in.Question),
		Answer:       strings.TrimSpace(in.Answer),
		Tags:         in.Tags,
		IsActive:     true,
		DisplayOrder: in.DisplayOrder,
		Embedding:    vec,
	}
	if in.IsActive != nil {
		entry.IsActive = *in.IsActive
	}

	if err := s.db.CreateFaq(ctx, entry); err != nil {
		return nil, fmt.Errorf("create faq: %w", err)
	}
	s.log.Info("faq created", "tenant_id", tenantID, "faq_id", entry.ID)
	return entry, nil
}

// CreateFaqsBatch creates entries one by one and fails on the first bad
// input, leaving earlier entries in place.
func (s *FaqService) CreateFaqsBatch(ctx context.Context, tenantID string, inputs []FaqInput) ([]models.FaqEntry, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", core.ErrValidation)
	}

	out := make([]models.FaqEntry, 0, len(inputs))
	for i, in := range inputs {
		entry, err := s.CreateFaq(ctx, tenantID, in)
		if err != nil {
			return out, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, *entry)
	}
	return out, nil
}

func (s *FaqService) UpdateFaq(ctx context.Context, tenantID, id string, in FaqInput) (*models.FaqEntry, error) {
	if err := validateFaqInput(in); err != nil {
		return nil, err
	}

	entry, err := s.db.GetFaqByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load faq: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: faq %s", core.ErrNotFound, id)
	}

	entry.Question = strings.TrimSpace(in.Question)
	entry.Answer = strings.TrimSpace(in.Answer)
	entry.Tags = in.Tags
	entry.DisplayOrder = in.DisplayOrder
	if in.IsActive != nil {
		entry.IsActive = *in.IsActive
	}

	vec, err := s.embedder.EmbedFaq(ctx, entry.Question, entry.Answer, entry.Tags)
	if err != nil {
		return nil, err
	}
	entry.Embedding = vec

	if err := s.db.UpdateFaq(ctx, entry); err != nil {
		return nil, fmt.Errorf("update faq: %w", err)
	}
	return entry, nil
}

func (s *FaqService) DeleteFaq(ctx context.Context, tenantID, id string) error {
	entry, err := s.db.GetFaqByID(ctx, tenantID, id)
	if err != nil {
		return fmt.Errorf("load faq: %w", err)
	}
	if entry == nil {
		return fmt.Errorf("%w: faq %s", core.ErrNotFound, id)
	}
	if err := s.db.DeleteFaq(ctx, tenantID, id); err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	return nil
}

func (s *FaqService) GetFaq(ctx context.Context, tenantID, id string) (*models.FaqEntry, error) {
	entry, err := s.db.GetFaqByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load faq: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: faq %s", core.ErrNotFound, id)
	}
	return entry, nil
}

func (s *FaqService) ListFaqs(ctx context.Context, tenantID string) ([]models.FaqEntry, error) {
	entries, err := s.db.ListFaqs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	return entries, nil
}

func validateFaqInput(in FaqInput) error {
	if strings.TrimSpace(in.Question) == "" {
		return fmt.Errorf("%w: question must not be empty", core.ErrValidation)
	}
	if strings.TrimSpace(in.Answer) == "" {
		return fmt.Errorf("%w: answer must not be empty", core.ErrValidation)
	}
	return nil
}
