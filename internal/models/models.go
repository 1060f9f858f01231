package models

import (
	"time"
)

// Conversation status values.
const (
	ConversationActive    = "ACTIVE"
	ConversationHandedOff = "HANDED_OFF"
	ConversationClosed    = "CLOSED"
)

// Document status values. A document never leaves COMPLETED or FAILED on
// its own; re-ingestion is a fresh document.
const (
	DocumentPending    = "PENDING"
	DocumentProcessing = "PROCESSING"
	DocumentCompleted  = "COMPLETED"
	DocumentFailed     = "FAILED"
)

// Document source types.
const (
	DocTypePDF  = "PDF"
	DocTypeDOCX = "DOCX"
	DocTypeTXT  = "TXT"
	DocTypeURL  = "URL"
)

// Message roles.
const (
	RoleUser      = "USER"
	RoleAssistant = "ASSISTANT"
)

// Admin user roles.
const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleTenantAdmin = "TENANT_ADMIN"
	RoleTenantUser  = "TENANT_USER"
)

// Support ticket status and priority.
const (
	TicketOpen       = "OPEN"
	TicketInProgress = "IN_PROGRESS"
	TicketResolved   = "RESOLVED"

	PriorityMedium = "MEDIUM"
)

// User is an admin-side account scoped to a tenant.
type User struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FaqEntry is an authored question/answer pair with its embedding.
// The embedding is regenerated whenever question, answer or tags change.
type FaqEntry struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	Question     string    `db:"question" json:"question"`
	Answer       string    `db:"answer" json:"answer"`
	Tags         []string  `db:"tags" json:"tags"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	UsageCount   int64     `db:"usage_count" json:"usage_count"`
	Embedding    []float32 `db:"embedding" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document is an ingested knowledge source (uploaded file or URL).
type Document struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	Title        string    `db:"title" json:"title"`
	SourceURL    string    `db:"source_url" json:"source_url,omitempty"`
	DocumentType string    `db:"document_type" json:"document_type"`
	Status       string    `db:"status" json:"status"`
	StorageURL   string    `db:"storage_url" json:"-"`
	FileSize     int64     `db:"file_size" json:"file_size,omitempty"`
	MimeType     string    `db:"mime_type" json:"mime_type,omitempty"`
	ChunkCount   int       `db:"chunk_count" json:"chunk_count"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentChunk is one embedded slice of a document's text.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	TenantID   string    `db:"tenant_id" json:"tenant_id"`
	ChunkIndex int       `db:"chunk_index" json:"chunk_index"`
	Content    string    `db:"content" json:"content"`
	TokenCount int       `db:"token_count" json:"token_count"`
	Embedding  []float32 `db:"embedding" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Conversation is a tenant-scoped chat session identified by an opaque
// session id supplied by (or minted for) the widget.
type Conversation struct {
	ID             string    `db:"id" json:"id"`
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	UserEmail      string    `db:"user_email" json:"user_email,omitempty"`
	Status         string    `db:"status" json:"status"`
	LastActivityAt time.Time `db:"last_activity_at" json:"last_activity_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Message is one conversation turn. Immutable once created.
type Message struct {
	ID              string    `db:"id" json:"id"`
	ConversationID  string    `db:"conversation_id" json:"-"`
	TenantID        string    `db:"tenant_id" json:"-"`
	Role            string    `db:"role" json:"role"`
	Content         string    `db:"content" json:"content"`
	ConfidenceScore *float64  `db:"confidence_score" json:"confidence_score,omitempty"`
	FaqEntryID      *string   `db:"faq_entry_id" json:"faq_entry_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// SupportTicket records a human handoff request. It references its
// conversation by id only; the conversation does not point back.
type SupportTicket struct {
	ID               string    `db:"id" json:"id"`
	TenantID         string    `db:"tenant_id" json:"tenant_id"`
	ConversationID   string    `db:"conversation_id" json:"conversation_id,omitempty"`
	CustomerName     string    `db:"customer_name" json:"customer_name,omitempty"`
	CustomerEmail    string    `db:"customer_email" json:"customer_email"`
	CustomerQuestion string    `db:"customer_question" json:"customer_question,omitempty"`
	Status           string    `db:"status" json:"status"`
	Priority         string    `db:"priority" json:"priority"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// FaqMatch is a FAQ entry together with its cosine distance to a query
// vector. Derived per request, never persisted.
type FaqMatch struct {
	Entry    FaqEntry
	Distance float64
}

// ChunkMatch is a document chunk plus its cosine distance and the owning
// document's title and source URL for source attribution.
type ChunkMatch struct {
	Chunk         DocumentChunk
	DocumentTitle string
	DocumentURL   string
	Distance      float64
}

// RetrievalResult carries both match lists for one query vector.
type RetrievalResult struct {
	Faqs   []FaqMatch
	Chunks []ChunkMatch
}

// Empty reports whether retrieval found nothing under the cutoff, which
// routes the request to human handoff.
func (r RetrievalResult) Empty() bool {
	return len(r.Faqs) == 0 && len(r.Chunks) == 0
}
