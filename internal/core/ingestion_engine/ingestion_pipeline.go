// Package ingestion_engine runs the asynchronous document ingestion
// pipeline: extract text, split it into overlapping chunks, embed each
// chunk and persist it. The enqueuing request returns immediately with
// the document in PENDING; callers poll the document for progress.
package ingestion_engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

// IngestConfig tunes the pipeline.
//
// ChunkSize:    target characters per chunk (e.g. 1000).
// ChunkOverlap: characters shared between consecutive chunks (e.g. 200).
// BatchSize:    chunks embedded and written per provider round trip.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// Ingestor is the contract the document service enqueues against.
type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(docID string)
	ProcessOne(ctx context.Context, docID string) error
}

// DocumentIngestor coordinates the background pipeline. jobs is an
// in-memory queue of document IDs; a full queue blocks the enqueuer.
type DocumentIngestor struct {
	db        core.DbClient
	embedder  core.EmbeddingProvider
	extractor TextExtractor
	cfg       *IngestConfig
	jobs      chan string
	log       *slog.Logger
}

func NewDocumentIngestor(db core.DbClient, emb core.EmbeddingProvider, extractor TextExtractor, cfg *IngestConfig, logger *slog.Logger) *DocumentIngestor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	return &DocumentIngestor{
		db: db, embedder: emb, extractor: extractor, cfg: cfg,
		jobs: make(chan string, 64),
		log:  logger,
	}
}

// Start launches numWorkers goroutines reading from the job queue.
func (i *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					i.log.Info("ingestion worker shutting down", "worker", w)
					return
				case docID := <-i.jobs:
					if err := i.ProcessOne(ctx, docID); err != nil {
						i.log.Error("ingestion failed", "worker", w, "document_id", docID, "error", err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a document ID for ingestion.
func (i *DocumentIngestor) Enqueue(docID string) {
	i.jobs <- docID
}

// ProcessOne drives one document through PROCESSING to COMPLETED or
// FAILED. Failure is terminal for the document; chunks persisted before a
// failure stay in place and are suppressed in retrieval by the
// completed-documents filter.
func (i *DocumentIngestor) ProcessOne(ctx context.Context, docID string) error {
	proctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	doc, err := i.db.GetDocumentByID(proctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, docID)
	}

	if err := i.db.UpdateDocumentStatus(proctx, docID, models.DocumentProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	i.log.Info("processing document", "document_id", docID, "type", doc.DocumentType, "title", doc.Title)

	text, err := i.extractor.Extract(proctx, doc)
	if err != nil {
		return i.fail(proctx, docID, fmt.Errorf("%w: extraction: %v", core.ErrIngestion, err))
	}

	chunks := SplitIntoChunks(text, i.cfg.ChunkSize, i.cfg.ChunkOverlap)
	i.log.Info("split document", "document_id", docID, "chunks", len(chunks))

	if err := i.embedAndPersist(proctx, doc, chunks); err != nil {
		return i.fail(proctx, docID, err)
	}

	if err := i.db.CompleteDocument(proctx, docID, len(chunks)); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	i.log.Info("document completed", "document_id", docID, "chunks", len(chunks))
	return nil
}

// embedAndPersist runs the embed and write stages over batches of chunks.
// Batches flow through a channel; the first stage error cancels the rest.
func (i *DocumentIngestor) embedAndPersist(ctx context.Context, doc *models.Document, chunks []string) error {
	type batch struct {
		startIndex int
		texts      []string
	}

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan batch, 2)

	g.Go(func() error {
		defer close(batches)
		for start := 0; start < len(chunks); start += i.cfg.BatchSize {
			end := start + i.cfg.BatchSize
			if end > len(chunks) {
				end = len(chunks)
			}
			select {
			case batches <- batch{startIndex: start, texts: chunks[start:end]}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for b := range batches {
			vectors, err := i.embedder.EmbedTexts(gctx, b.texts)
			if err != nil {
				return fmt.Errorf("%w: embed chunks: %v", core.ErrIngestion, err)
			}
			if len(vectors) != len(b.texts) {
				return fmt.Errorf("%w: embed chunks: got %d vectors for %d texts", core.ErrIngestion, len(vectors), len(b.texts))
			}

			rows := make([]models.DocumentChunk, len(b.texts))
			for j, content := range b.texts {
				rows[j] = models.DocumentChunk{
					ID:         uuid.NewString(),
					DocumentID: doc.ID,
					TenantID:   doc.TenantID,
					ChunkIndex: b.startIndex + j,
					Content:    content,
					TokenCount: EstimateTokens(content),
					Embedding:  vectors[j],
				}
			}
			if err := i.db.InsertDocumentChunks(gctx, rows); err != nil {
				return fmt.Errorf("%w: persist chunks: %v", core.ErrIngestion, err)
			}
		}
		return nil
	})

	return g.Wait()
}

func (i *DocumentIngestor) fail(ctx context.Context, docID string, cause error) error {
	if err := i.db.UpdateDocumentStatus(ctx, docID, models.DocumentFailed, cause.Error()); err != nil {
		i.log.Error("could not record ingestion failure", "document_id", docID, "error", err)
	}
	return cause
}

var _ Ingestor = (*DocumentIngestor)(nil)
