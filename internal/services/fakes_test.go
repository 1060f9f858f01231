package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

// memDB is an in-memory DbClient for package tests. Similarity search is
// exact cosine distance over the stored vectors, so tests control match
// distances by choosing vectors.
type memDB struct {
	mu            sync.Mutex
	users         map[string]*models.User
	faqs          map[string]*models.FaqEntry
	documents     map[string]*models.Document
	chunks        []models.DocumentChunk
	conversations map[string]*models.Conversation
	messages      []models.Message
	tickets       []models.SupportTicket

	failSearch error
}

func newMemDB() *memDB {
	return &memDB{
		users:         make(map[string]*models.User),
		faqs:          make(map[string]*models.FaqEntry),
		documents:     make(map[string]*models.Document),
		conversations: make(map[string]*models.Conversation),
	}
}

func (m *memDB) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	cp.CreatedAt = time.Now()
	m.users[user.ID] = &cp
	return nil
}

func (m *memDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDB) CreateFaq(_ context.Context, faq *models.FaqEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *faq
	cp.CreatedAt = time.Now()
	m.faqs[faq.ID] = &cp
	return nil
}

func (m *memDB) UpdateFaq(_ context.Context, faq *models.FaqEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.faqs[faq.ID]
	if !ok {
		return fmt.Errorf("faq %s not found", faq.ID)
	}
	cp := *faq
	cp.UsageCount = existing.UsageCount
	m.faqs[faq.ID] = &cp
	return nil
}

func (m *memDB) DeleteFaq(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.faqs[id]; ok && f.TenantID == tenantID {
		delete(m.faqs, id)
	}
	return nil
}

func (m *memDB) ListFaqs(_ context.Context, tenantID string) ([]models.FaqEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FaqEntry
	for _, f := range m.faqs {
		if f.TenantID == tenantID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (m *memDB) GetFaqByID(_ context.Context, tenantID, id string) (*models.FaqEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.faqs[id]
	if !ok || f.TenantID != tenantID {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (m *memDB) IncrementFaqUsage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.faqs[id]; ok {
		f.UsageCount++
	}
	return nil
}

func (m *memDB) SearchSimilarFaqs(_ context.Context, tenantID string, vec []float32, k int, maxDistance float64) ([]models.FaqMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSearch != nil {
		return nil, m.failSearch
	}
	var out []models.FaqMatch
	for _, f := range m.faqs {
		if f.TenantID != tenantID || !f.IsActive || len(f.Embedding) == 0 {
			continue
		}
		d := cosineDistance(vec, f.Embedding)
		if d < maxDistance {
			out = append(out, models.FaqMatch{Entry: *f, Distance: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *memDB) CreateDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	cp.CreatedAt = time.Now()
	m.documents[doc.ID] = &cp
	return nil
}

func (m *memDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memDB) ListDocuments(_ context.Context, tenantID string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Document
	for _, d := range m.documents {
		if d.TenantID == tenantID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memDB) UpdateDocumentStatus(_ context.Context, id, status, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	d.Status = status
	d.ErrorMessage = errorMessage
	return nil
}

func (m *memDB) CompleteDocument(_ context.Context, id string, chunkCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	d.Status = models.DocumentCompleted
	d.ChunkCount = chunkCount
	d.ErrorMessage = ""
	return nil
}

func (m *memDB) DeleteDocument(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.documents[id]; ok && d.TenantID == tenantID {
		delete(m.documents, id)
		kept := m.chunks[:0]
		for _, c := range m.chunks {
			if c.DocumentID != id {
				kept = append(kept, c)
			}
		}
		m.chunks = kept
	}
	return nil
}

func (m *memDB) InsertDocumentChunks(_ context.Context, chunks []models.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *memDB) SearchSimilarChunks(_ context.Context, tenantID string, vec []float32, k int, maxDistance float64) ([]models.ChunkMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSearch != nil {
		return nil, m.failSearch
	}
	var out []models.ChunkMatch
	for _, c := range m.chunks {
		if c.TenantID != tenantID || len(c.Embedding) == 0 {
			continue
		}
		doc, ok := m.documents[c.DocumentID]
		if !ok || doc.Status != models.DocumentCompleted {
			continue
		}
		d := cosineDistance(vec, c.Embedding)
		if d < maxDistance {
			out = append(out, models.ChunkMatch{Chunk: c, DocumentTitle: doc.Title, DocumentURL: doc.SourceURL, Distance: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *memDB) CreateConversation(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *conv
	now := time.Now()
	cp.CreatedAt = now
	cp.LastActivityAt = now
	m.conversations[conv.ID] = &cp
	return nil
}

func (m *memDB) GetConversationBySession(_ context.Context, tenantID, sessionID string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.TenantID == tenantID && c.SessionID == sessionID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDB) UpdateConversationStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s not found", id)
	}
	c.Status = status
	return nil
}

func (m *memDB) TouchConversation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conversations[id]; ok {
		c.LastActivityAt = time.Now()
	}
	return nil
}

func (m *memDB) AddMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	cp.CreatedAt = time.Now()
	m.messages = append(m.messages, cp)
	return nil
}

func (m *memDB) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memDB) CreateSupportTicket(_ context.Context, ticket *models.SupportTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ticket
	cp.CreatedAt = time.Now()
	m.tickets = append(m.tickets, cp)
	return nil
}

func (m *memDB) Close() error { return nil }

var _ core.DbClient = (*memDB)(nil)

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// fakeEmbedder maps known texts to fixed vectors and counts calls. Texts
// without a mapping get a default vector.
type fakeEmbedder struct {
	mu        sync.Mutex
	vectors   map[string][]float32
	def       []float32
	calls     int
	lastTexts []string
	err       error
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors: make(map[string][]float32),
		def:     []float32{1, 0, 0},
	}
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastTexts = texts
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = f.def
		}
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*fakeEmbedder)(nil)

// fakeLLM returns a canned answer and records prompts. Streaming splits
// the answer into word deltas.
type fakeLLM struct {
	mu            sync.Mutex
	answer        string
	err           error
	generateCalls int
	lastSystem    string
	lastPrompt    string
}

func (f *fakeLLM) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	f.lastSystem = systemPrompt
	f.lastPrompt = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeLLM) GenerateStream(_ context.Context, systemPrompt, userPrompt string) (<-chan core.StreamDelta, error) {
	f.mu.Lock()
	f.generateCalls++
	f.lastSystem = systemPrompt
	f.lastPrompt = userPrompt
	err := f.err
	answer := f.answer
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	out := make(chan core.StreamDelta)
	go func() {
		defer close(out)
		words := strings.SplitAfter(answer, " ")
		for _, w := range words {
			if w == "" {
				continue
			}
			out <- core.StreamDelta{Text: w}
		}
	}()
	return out, nil
}

var _ core.LLMProvider = (*fakeLLM)(nil)

// memCache is a deterministic map-backed cache for tests; the production
// ristretto cache admits entries asynchronously.
type memCache[V any] struct {
	mu sync.Mutex
	m  map[string]V
}

func newMemCache[V any]() *memCache[V] {
	return &memCache[V]{m: make(map[string]V)}
}

func (c *memCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *memCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

func (c *memCache[V]) Close() {}

// fakeObjStore keeps uploaded objects in a map keyed bucket/key.
type fakeObjStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeObjStore() *fakeObjStore {
	return &fakeObjStore{objects: make(map[string][]byte)}
}

func (f *fakeObjStore) UploadFile(_ context.Context, bucket, key string, data io.Reader, _ string) (string, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = body
	return fmt.Sprintf("https://%s.s3.eu-central-1.amazonaws.com/%s", bucket, key), nil
}

func (f *fakeObjStore) DeleteFile(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjStore) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return body, nil
}

var _ core.ObjectClient = (*fakeObjStore)(nil)

// fakeIngestor records enqueued document ids.
type fakeIngestor struct {
	mu       sync.Mutex
	enqueued []string
}

func (f *fakeIngestor) Start(context.Context, int) {}

func (f *fakeIngestor) Enqueue(docID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, docID)
}

func (f *fakeIngestor) ProcessOne(context.Context, string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
