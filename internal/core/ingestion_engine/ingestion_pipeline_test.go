package ingestion_engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

// stubDB implements only the DbClient methods the pipeline touches; the
// embedded interface panics on anything else.
type stubDB struct {
	core.DbClient

	mu       sync.Mutex
	doc      *models.Document
	statuses []string
	errMsg   string
	chunks   []models.DocumentChunk
	done     int
}

func (s *stubDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil || s.doc.ID != id {
		return nil, nil
	}
	cp := *s.doc
	return &cp, nil
}

func (s *stubDB) UpdateDocumentStatus(_ context.Context, _, status, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	s.errMsg = errorMessage
	return nil
}

func (s *stubDB) CompleteDocument(_ context.Context, _ string, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, models.DocumentCompleted)
	s.done = chunkCount
	return nil
}

func (s *stubDB) InsertDocumentChunks(_ context.Context, chunks []models.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return nil
}

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) Extract(context.Context, *models.Document) (string, error) {
	return s.text, s.err
}

type stubEmbedder struct {
	mu        sync.Mutex
	callCount int
	failAfter int // fail on call N (1-based), 0 never
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callCount++
	if s.failAfter > 0 && s.callCount >= s.failAfter {
		return nil, errors.New("provider unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingDoc() *models.Document {
	return &models.Document{
		ID:           "doc-1",
		TenantID:     "tenant-a",
		Title:        "Versandbedingungen",
		DocumentType: models.DocTypeTXT,
		Status:       models.DocumentPending,
	}
}

func newTestIngestor(db *stubDB, emb *stubEmbedder, ext TextExtractor) *DocumentIngestor {
	return NewDocumentIngestor(db, emb, ext, &IngestConfig{
		ChunkSize:    100,
		ChunkOverlap: 20,
		BatchSize:    2,
	}, discard())
}

func TestProcessOne_Success(t *testing.T) {
	db := &stubDB{doc: pendingDoc()}
	text := strings.Repeat("Die Lieferung dauert drei Werktage. ", 20)
	ing := newTestIngestor(db, &stubEmbedder{}, &stubExtractor{text: text})

	err := ing.ProcessOne(context.Background(), "doc-1")
	require.NoError(t, err)

	require.NotEmpty(t, db.chunks)
	assert.Equal(t, len(db.chunks), db.done)

	// PROCESSING first, COMPLETED last.
	require.GreaterOrEqual(t, len(db.statuses), 2)
	assert.Equal(t, models.DocumentProcessing, db.statuses[0])
	assert.Equal(t, models.DocumentCompleted, db.statuses[len(db.statuses)-1])

	for i, c := range db.chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "tenant-a", c.TenantID)
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, []float32{1, 2, 3}, c.Embedding)
		assert.Positive(t, c.TokenCount)
	}
}

func TestProcessOne_ExtractionFailureIsTerminal(t *testing.T) {
	db := &stubDB{doc: pendingDoc()}
	ing := newTestIngestor(db, &stubEmbedder{}, &stubExtractor{err: errors.New("corrupt file")})

	err := ing.ProcessOne(context.Background(), "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIngestion)

	require.NotEmpty(t, db.statuses)
	assert.Equal(t, models.DocumentFailed, db.statuses[len(db.statuses)-1])
	assert.Contains(t, db.errMsg, "corrupt file")
	assert.Empty(t, db.chunks)
}

func TestProcessOne_EmbeddingFailureKeepsEarlierChunks(t *testing.T) {
	db := &stubDB{doc: pendingDoc()}
	text := strings.Repeat("Ein Satz mit etwas Inhalt hier. ", 30)
	// First batch embeds fine, second one fails.
	ing := newTestIngestor(db, &stubEmbedder{failAfter: 2}, &stubExtractor{text: text})

	err := ing.ProcessOne(context.Background(), "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIngestion)

	assert.Equal(t, models.DocumentFailed, db.statuses[len(db.statuses)-1])
	// Chunks written before the failure stay; the FAILED status keeps
	// retrieval from ever serving them.
	assert.NotEmpty(t, db.chunks)
	assert.Zero(t, db.done)
}

func TestProcessOne_UnknownDocument(t *testing.T) {
	db := &stubDB{}
	ing := newTestIngestor(db, &stubEmbedder{}, &stubExtractor{text: "x"})

	err := ing.ProcessOne(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, db.statuses)
}
