package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/chatq/assist-backend/internal/config"
	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Pool settings sized for an API service.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, tenant_id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.TenantID, user.Email, user.PasswordHash, user.Role)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, tenant_id, email, password_hash, role, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FAQ entries

func (c *DatabaseClient) CreateFaq(ctx context.Context, faq *models.FaqEntry) error {
	if faq == nil {
		return errors.New("nil faq")
	}
	const q = `
		INSERT INTO faq_entries
			(id, tenant_id, question, answer, tags, is_active, display_order, usage_count, embedding, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, string_to_array(NULLIF($5, ''), ','), $6, $7, $8, $9, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		faq.ID, faq.TenantID, faq.Question, faq.Answer, strings.Join(faq.Tags, ","),
		faq.IsActive, faq.DisplayOrder, faq.UsageCount, pgvector.NewVector(faq.Embedding))
	return err
}

func (c *DatabaseClient) UpdateFaq(ctx context.Context, faq *models.FaqEntry) error {
	if faq == nil {
		return errors.New("nil faq")
	}
	const q = `
		UPDATE faq_entries
		SET question = $3, answer = $4, tags = string_to_array(NULLIF($5, ''), ','),
		    is_active = $6, display_order = $7, embedding = $8, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`
	res, err := c.db.ExecContext(ctx, q,
		faq.ID, faq.TenantID, faq.Question, faq.Answer, strings.Join(faq.Tags, ","),
		faq.IsActive, faq.DisplayOrder, pgvector.NewVector(faq.Embedding))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("faq not found: %s", faq.ID)
	}
	return nil
}

func (c *DatabaseClient) DeleteFaq(ctx context.Context, tenantID, id string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM faq_entries WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("faq not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) ListFaqs(ctx context.Context, tenantID string) ([]models.FaqEntry, error) {
	const q = `
		SELECT id, tenant_id, question, answer, array_to_string(tags, ','), is_active, display_order, usage_count, created_at, updated_at
		FROM faq_entries
		WHERE tenant_id = $1
		ORDER BY display_order ASC, created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FaqEntry
	for rows.Next() {
		f, err := scanFaq(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetFaqByID(ctx context.Context, tenantID, id string) (*models.FaqEntry, error) {
	const q = `
		SELECT id, tenant_id, question, answer, array_to_string(tags, ','), is_active, display_order, usage_count, created_at, updated_at
		FROM faq_entries
		WHERE id = $1 AND tenant_id = $2
	`
	row := c.db.QueryRowContext(ctx, q, id, tenantID)
	f, err := scanFaq(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (c *DatabaseClient) IncrementFaqUsage(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE faq_entries SET usage_count = usage_count + 1 WHERE id = $1`, id)
	return err
}

// SearchSimilarFaqs runs the cosine nearest-neighbor query with the tenant
// scope, active filter and distance cutoff applied in SQL so the result
// set stays bounded at k.
func (c *DatabaseClient) SearchSimilarFaqs(ctx context.Context, tenantID string, vec []float32, k int, maxDistance float64) ([]models.FaqMatch, error) {
	const q = `
		SELECT id, tenant_id, question, answer, array_to_string(tags, ','), is_active, display_order, usage_count, created_at, updated_at,
		       embedding <=> $2 AS distance
		FROM faq_entries
		WHERE tenant_id = $1
		  AND is_active = TRUE
		  AND embedding IS NOT NULL
		  AND embedding <=> $2 < $4
		ORDER BY embedding <=> $2 ASC
		LIMIT $3
	`
	rows, err := c.db.QueryContext(ctx, q, tenantID, pgvector.NewVector(vec), k, maxDistance)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FaqMatch
	for rows.Next() {
		var (
			f    models.FaqEntry
			tags sql.NullString
			dist float64
		)
		if err := rows.Scan(
			&f.ID, &f.TenantID, &f.Question, &f.Answer, &tags, &f.IsActive,
			&f.DisplayOrder, &f.UsageCount, &f.CreatedAt, &f.UpdatedAt, &dist,
		); err != nil {
			return nil, err
		}
		f.Tags = splitTags(tags.String)
		out = append(out, models.FaqMatch{Entry: f, Distance: dist})
	}
	return out, rows.Err()
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, tenant_id, title, source_url, document_type, status, storage_url, file_size, mime_type, chunk_count, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.TenantID, doc.Title, doc.SourceURL, doc.DocumentType,
		doc.Status, doc.StorageURL, doc.FileSize, doc.MimeType)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, tenant_id, title, COALESCE(source_url, ''), document_type, status,
		       COALESCE(storage_url, ''), COALESCE(file_size, 0), COALESCE(mime_type, ''),
		       chunk_count, COALESCE(error_message, ''), created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.TenantID, &d.Title, &d.SourceURL, &d.DocumentType, &d.Status,
		&d.StorageURL, &d.FileSize, &d.MimeType, &d.ChunkCount, &d.ErrorMessage,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocuments(ctx context.Context, tenantID string) ([]models.Document, error) {
	const q = `
		SELECT id, tenant_id, title, COALESCE(source_url, ''), document_type, status,
		       COALESCE(storage_url, ''), COALESCE(file_size, 0), COALESCE(mime_type, ''),
		       chunk_count, COALESCE(error_message, ''), created_at, updated_at
		FROM documents
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.TenantID, &d.Title, &d.SourceURL, &d.DocumentType, &d.Status,
			&d.StorageURL, &d.FileSize, &d.MimeType, &d.ChunkCount, &d.ErrorMessage,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id, status, errorMessage string) error {
	const q = `
		UPDATE documents
		SET status = $2, error_message = NULLIF($3, ''), updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status, errorMessage)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) CompleteDocument(ctx context.Context, id string, chunkCount int) error {
	const q = `
		UPDATE documents
		SET status = $2, chunk_count = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, models.DocumentCompleted, chunkCount)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, tenantID, id string) error {
	// Chunks go with the document via ON DELETE CASCADE.
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// InsertDocumentChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, tenant_id, chunk_index, content, token_count, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.TenantID, ch.ChunkIndex, ch.Content,
			ch.TokenCount, pgvector.NewVector(ch.Embedding),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SearchSimilarChunks joins on documents so only chunks of COMPLETED
// documents are candidates; orphans under FAILED documents never surface.
func (c *DatabaseClient) SearchSimilarChunks(ctx context.Context, tenantID string, vec []float32, k int, maxDistance float64) ([]models.ChunkMatch, error) {
	const q = `
		SELECT dc.id, dc.document_id, dc.tenant_id, dc.chunk_index, dc.content, dc.token_count, dc.created_at,
		       d.title, COALESCE(d.source_url, ''), dc.embedding <=> $2 AS distance
		FROM document_chunks dc
		JOIN documents d ON d.id = dc.document_id
		WHERE dc.tenant_id = $1
		  AND d.status = 'COMPLETED'
		  AND dc.embedding IS NOT NULL
		  AND dc.embedding <=> $2 < $4
		ORDER BY dc.embedding <=> $2 ASC
		LIMIT $3
	`
	rows, err := c.db.QueryContext(ctx, q, tenantID, pgvector.NewVector(vec), k, maxDistance)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChunkMatch
	for rows.Next() {
		var (
			ch     models.DocumentChunk
			title  string
			srcURL string
			dist   float64
		)
		if err := rows.Scan(
			&ch.ID, &ch.DocumentID, &ch.TenantID, &ch.ChunkIndex, &ch.Content,
			&ch.TokenCount, &ch.CreatedAt, &title, &srcURL, &dist,
		); err != nil {
			return nil, err
		}
		out = append(out, models.ChunkMatch{Chunk: ch, DocumentTitle: title, DocumentURL: srcURL, Distance: dist})
	}
	return out, rows.Err()
}

// Conversations

func (c *DatabaseClient) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv == nil {
		return errors.New("nil conversation")
	}
	const q = `
		INSERT INTO conversations (id, tenant_id, session_id, user_email, status, last_activity_at, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		conv.ID, conv.TenantID, conv.SessionID, conv.UserEmail, conv.Status)
	return err
}

func (c *DatabaseClient) GetConversationBySession(ctx context.Context, tenantID, sessionID string) (*models.Conversation, error) {
	const q = `
		SELECT id, tenant_id, session_id, COALESCE(user_email, ''), status, last_activity_at, created_at
		FROM conversations
		WHERE tenant_id = $1 AND session_id = $2
	`
	var conv models.Conversation
	err := c.db.QueryRowContext(ctx, q, tenantID, sessionID).Scan(
		&conv.ID, &conv.TenantID, &conv.SessionID, &conv.UserEmail,
		&conv.Status, &conv.LastActivityAt, &conv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *DatabaseClient) UpdateConversationStatus(ctx context.Context, id, status string) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE conversations SET status = $2, last_activity_at = now() WHERE id = $1`, id, status)
	return err
}

func (c *DatabaseClient) TouchConversation(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE conversations SET last_activity_at = now() WHERE id = $1`, id)
	return err
}

func (c *DatabaseClient) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	const q = `
		INSERT INTO messages (id, conversation_id, tenant_id, role, content, confidence_score, faq_entry_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`
	_, err := c.db.ExecContext(ctx, q,
		msg.ID, msg.ConversationID, msg.TenantID, msg.Role, msg.Content,
		msg.ConfidenceScore, msg.FaqEntryID)
	return err
}

func (c *DatabaseClient) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	const q = `
		SELECT id, conversation_id, tenant_id, role, content, confidence_score, faq_entry_id, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.TenantID, &m.Role, &m.Content,
			&m.ConfidenceScore, &m.FaqEntryID, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Tickets

func (c *DatabaseClient) CreateSupportTicket(ctx context.Context, ticket *models.SupportTicket) error {
	if ticket == nil {
		return errors.New("nil ticket")
	}
	const q = `
		INSERT INTO support_tickets
			(id, tenant_id, conversation_id, customer_name, customer_email, customer_question, status, priority, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		ticket.ID, ticket.TenantID, ticket.ConversationID, ticket.CustomerName,
		ticket.CustomerEmail, ticket.CustomerQuestion, ticket.Status, ticket.Priority)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFaq(row rowScanner) (*models.FaqEntry, error) {
	var (
		f    models.FaqEntry
		tags sql.NullString
	)
	if err := row.Scan(
		&f.ID, &f.TenantID, &f.Question, &f.Answer, &tags, &f.IsActive,
		&f.DisplayOrder, &f.UsageCount, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	f.Tags = splitTags(tags.String)
	return &f, nil
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

var _ core.DbClient = (*DatabaseClient)(nil)
