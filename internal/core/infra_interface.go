package core

import (
	"context"
	"io"

	"github.com/chatq/assist-backend/internal/models"
)

// DbClient defines every persistence operation the services need. It
// abstracts Postgres/pgvector so higher layers never depend on a specific
// store; tests swap in an in-memory implementation. All reads and writes
// are tenant-scoped where a tenant id parameter appears. Get methods
// return (nil, nil) when the row does not exist.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateFaq(ctx context.Context, faq *models.FaqEntry) error
	UpdateFaq(ctx context.Context, faq *models.FaqEntry) error
	DeleteFaq(ctx context.Context, tenantID, id string) error
	ListFaqs(ctx context.Context, tenantID string) ([]models.FaqEntry, error)
	GetFaqByID(ctx context.Context, tenantID, id string) (*models.FaqEntry, error)
	IncrementFaqUsage(ctx context.Context, id string) error
	// SearchSimilarFaqs returns active FAQ entries of the tenant ordered by
	// ascending cosine distance, excluding matches at or beyond maxDistance.
	SearchSimilarFaqs(ctx context.Context, tenantID string, vec []float32, k int, maxDistance float64) ([]models.FaqMatch, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, tenantID string) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id, status, errorMessage string) error
	// CompleteDocument sets chunk count and COMPLETED status in one write so
	// no partial-COMPLETED state is ever observable.
	CompleteDocument(ctx context.Context, id string, chunkCount int) error
	DeleteDocument(ctx context.Context, tenantID, id string) error
	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	// SearchSimilarChunks returns chunks of the tenant's COMPLETED documents
	// ordered by ascending cosine distance, excluding matches at or beyond
	// maxDistance. The completed-documents filter runs in the store so
	// orphaned chunks of failed ingestions are never served.
	SearchSimilarChunks(ctx context.Context, tenantID string, vec []float32, k int, maxDistance float64) ([]models.ChunkMatch, error)

	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversationBySession(ctx context.Context, tenantID, sessionID string) (*models.Conversation, error)
	UpdateConversationStatus(ctx context.Context, id, status string) error
	TouchConversation(ctx context.Context, id string) error
	AddMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)

	CreateSupportTicket(ctx context.Context, ticket *models.SupportTicket) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
