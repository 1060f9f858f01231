package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/chatq/assist-backend/internal/core"
	ingest "github.com/chatq/assist-backend/internal/core/ingestion_engine"
	"github.com/chatq/assist-backend/internal/models"
)

// DocumentService owns the knowledge document lifecycle: store the
// upload, create the PENDING record, hand the id to the background
// ingestor. The request returns as soon as the record exists.
type DocumentService struct {
	db       core.DbClient
	storage  core.ObjectClient
	ingestor ingest.Ingestor
	bucket   string
	log      *slog.Logger
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, ingestor ingest.Ingestor, bucket string, logger *slog.Logger) *DocumentService {
	return &DocumentService{db: db, storage: storage, ingestor: ingestor, bucket: bucket, log: logger}
}

// UploadDocument stores the file and schedules it for ingestion.
func (s *DocumentService) UploadDocument(ctx context.Context, tenantID, title, documentType, filename, contentType string, data io.Reader, size int64) (*models.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", core.ErrValidation)
	}
	switch documentType {
	case models.DocTypePDF, models.DocTypeDOCX, models.DocTypeTXT:
	default:
		return nil, fmt.Errorf("%w: unsupported document type %q", core.ErrValidation, documentType)
	}

	docID := uuid.NewString()
	key := fmt.Sprintf("documents/%s/%s/%s", tenantID, docID, path.Base(filename))

	storageURL, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	doc := &models.Document{
		ID:           docID,
		TenantID:     tenantID,
		Title:        title,
		DocumentType: documentType,
		Status:       models.DocumentPending,
		StorageURL:   storageURL,
		FileSize:     size,
		MimeType:     contentType,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		// Orphaned object; ingestion never sees it. Clean up best effort.
		if delErr := s.storage.DeleteFile(ctx, s.bucket, key); delErr != nil {
			s.log.Error("could not remove orphaned upload", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.ingestor.Enqueue(docID)
	s.log.Info("document queued", "tenant_id", tenantID, "document_id", docID, "type", documentType)
	return doc, nil
}

// IngestFromURL registers a web page as a document and schedules it.
func (s *DocumentService) IngestFromURL(ctx context.Context, tenantID, sourceURL, title string) (*models.Document, error) {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", core.ErrValidation, sourceURL)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = u.Host
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Title:        title,
		SourceURL:    u.String(),
		DocumentType: models.DocTypeURL,
		Status:       models.DocumentPending,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.ingestor.Enqueue(doc.ID)
	s.log.Info("url queued", "tenant_id", tenantID, "document_id", doc.ID, "url", doc.SourceURL)
	return doc, nil
}

// GetDocument returns the document if it belongs to the tenant. A record
// owned by another tenant is reported as not found, never as forbidden.
func (s *DocumentService) GetDocument(ctx context.Context, tenantID, id string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil || doc.TenantID != tenantID {
		return nil, fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	return doc, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, tenantID string) ([]models.Document, error) {
	docs, err := s.db.ListDocuments(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes the record (chunks cascade) and the stored
// object if one exists. Object deletion failure does not block the
// record deletion.
func (s *DocumentService) DeleteDocument(ctx context.Context, tenantID, id string) error {
	doc, err := s.GetDocument(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if doc.StorageURL != "" {
		if key, ok := storageKey(doc.StorageURL); ok {
			if err := s.storage.DeleteFile(ctx, s.bucket, key); err != nil {
				s.log.Error("could not delete stored file", "document_id", id, "error", err)
			}
		}
	}

	if err := s.db.DeleteDocument(ctx, tenantID, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func storageKey(storageURL string) (string, bool) {
	u, err := url.Parse(storageURL)
	if err != nil || u.Path == "" {
		return "", false
	}
	return strings.TrimPrefix(u.Path, "/"), true
}
