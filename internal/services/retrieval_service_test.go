package services

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/core/cache"
	"github.com/chatq/assist-backend/internal/models"
)

// countingDB wraps memDB to count similarity searches.
type countingDB struct {
	*memDB
	faqSearches   atomic.Int64
	chunkSearches atomic.Int64
}

func (c *countingDB) SearchSimilarFaqs(ctx context.Context, tenantID string, vec []float32, k int, maxDistance float64) ([]models.FaqMatch, error) {
	c.faqSearches.Add(1)
	return c.memDB.SearchSimilarFaqs(ctx, tenantID, vec, k, maxDistance)
}

func (c *countingDB) SearchSimilarChunks(ctx context.Context, tenantID string, vec []float32, k int, maxDistance float64) ([]models.ChunkMatch, error) {
	c.chunkSearches.Add(1)
	return c.memDB.SearchSimilarChunks(ctx, tenantID, vec, k, maxDistance)
}

func seedFaq(db *memDB, id, tenantID string, vec []float32, active bool) {
	_ = db.CreateFaq(context.Background(), &models.FaqEntry{
		ID:        id,
		TenantID:  tenantID,
		Question:  "Q " + id,
		Answer:    "A " + id,
		IsActive:  active,
		Embedding: vec,
	})
}

func seedChunk(db *memDB, docID, tenantID, status string, vec []float32) {
	_ = db.CreateDocument(context.Background(), &models.Document{
		ID: docID, TenantID: tenantID, Title: "Doc " + docID, Status: status,
	})
	_ = db.InsertDocumentChunks(context.Background(), []models.DocumentChunk{{
		ID: docID + "-c0", DocumentID: docID, TenantID: tenantID, Content: "chunk text", Embedding: vec,
	}})
}

func TestRetrieve_ThresholdAndOrder(t *testing.T) {
	db := newMemDB()
	// Query along the x axis: distances 0, ~0.29, 1.
	seedFaq(db, "exact", "t1", []float32{1, 0, 0}, true)
	seedFaq(db, "near", "t1", []float32{1, 1, 0}, true)
	seedFaq(db, "orthogonal", "t1", []float32{0, 1, 0}, true)

	svc := NewRetrievalService(db, cache.NewNop[models.RetrievalResult](), 3, 5, 0.75, testLogger())
	res, err := svc.Retrieve(context.Background(), "t1", []float32{1, 0, 0})
	require.NoError(t, err)

	require.Len(t, res.Faqs, 2)
	assert.Equal(t, "exact", res.Faqs[0].Entry.ID)
	assert.Equal(t, "near", res.Faqs[1].Entry.ID)
	assert.Less(t, res.Faqs[0].Distance, res.Faqs[1].Distance)
}

func TestRetrieve_TenantIsolation(t *testing.T) {
	db := newMemDB()
	seedFaq(db, "mine", "t1", []float32{1, 0, 0}, true)
	seedFaq(db, "theirs", "t2", []float32{1, 0, 0}, true)
	seedChunk(db, "doc-t2", "t2", models.DocumentCompleted, []float32{1, 0, 0})

	svc := NewRetrievalService(db, cache.NewNop[models.RetrievalResult](), 3, 5, 0.75, testLogger())
	res, err := svc.Retrieve(context.Background(), "t1", []float32{1, 0, 0})
	require.NoError(t, err)

	require.Len(t, res.Faqs, 1)
	assert.Equal(t, "mine", res.Faqs[0].Entry.ID)
	assert.Empty(t, res.Chunks)
}

func TestRetrieve_InactiveFaqExcluded(t *testing.T) {
	db := newMemDB()
	seedFaq(db, "inactive", "t1", []float32{1, 0, 0}, false)

	svc := NewRetrievalService(db, cache.NewNop[models.RetrievalResult](), 3, 5, 0.75, testLogger())
	res, err := svc.Retrieve(context.Background(), "t1", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestRetrieve_OnlyCompletedDocuments(t *testing.T) {
	db := newMemDB()
	seedChunk(db, "done", "t1", models.DocumentCompleted, []float32{1, 0, 0})
	seedChunk(db, "failed", "t1", models.DocumentFailed, []float32{1, 0, 0})
	seedChunk(db, "processing", "t1", models.DocumentProcessing, []float32{1, 0, 0})

	svc := NewRetrievalService(db, cache.NewNop[models.RetrievalResult](), 3, 5, 0.75, testLogger())
	res, err := svc.Retrieve(context.Background(), "t1", []float32{1, 0, 0})
	require.NoError(t, err)

	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "done", res.Chunks[0].Chunk.DocumentID)
	assert.Equal(t, "Doc done", res.Chunks[0].DocumentTitle)
}

func TestRetrieve_LimitsApplied(t *testing.T) {
	db := newMemDB()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		seedFaq(db, id, "t1", []float32{1, 0, 0}, true)
	}

	svc := NewRetrievalService(db, cache.NewNop[models.RetrievalResult](), 3, 5, 0.75, testLogger())
	res, err := svc.Retrieve(context.Background(), "t1", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Len(t, res.Faqs, 3)
}

func TestRetrieve_CacheHitSkipsStore(t *testing.T) {
	db := &countingDB{memDB: newMemDB()}
	seedFaq(db.memDB, "hit", "t1", []float32{1, 0, 0}, true)

	svc := NewRetrievalService(db, newMemCache[models.RetrievalResult](), 3, 5, 0.75, testLogger())

	vec := []float32{1, 0, 0}
	first, err := svc.Retrieve(context.Background(), "t1", vec)
	require.NoError(t, err)
	second, err := svc.Retrieve(context.Background(), "t1", vec)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, db.faqSearches.Load())
	assert.EqualValues(t, 1, db.chunkSearches.Load())

	// A different tenant with the same vector must not share the entry.
	_, err = svc.Retrieve(context.Background(), "t2", vec)
	require.NoError(t, err)
	assert.EqualValues(t, 2, db.faqSearches.Load())
}

func TestRetrieve_EmptyVector(t *testing.T) {
	db := &countingDB{memDB: newMemDB()}
	svc := NewRetrievalService(db, cache.NewNop[models.RetrievalResult](), 3, 5, 0.75, testLogger())

	res, err := svc.Retrieve(context.Background(), "t1", nil)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Zero(t, db.faqSearches.Load())
}

func TestRetrieve_StoreErrorPropagates(t *testing.T) {
	db := newMemDB()
	db.failSearch = context.DeadlineExceeded

	svc := NewRetrievalService(db, cache.NewNop[models.RetrievalResult](), 3, 5, 0.75, testLogger())
	_, err := svc.Retrieve(context.Background(), "t1", []float32{1, 0, 0})
	require.Error(t, err)
}

var _ core.DbClient = (*countingDB)(nil)
