package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatq/assist-backend/internal/config"
	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/core/cache"
	db "github.com/chatq/assist-backend/internal/core/database"
	ingest "github.com/chatq/assist-backend/internal/core/ingestion_engine"
	"github.com/chatq/assist-backend/internal/core/llm"
	objectclient "github.com/chatq/assist-backend/internal/core/object-client"
	"github.com/chatq/assist-backend/internal/models"
	"github.com/chatq/assist-backend/internal/services"
)

// App owns every long-lived component and wires them together.
type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Ingestor     ingest.Ingestor
	Server       *Server

	embedCache     cache.Cache[[]float32]
	retrievalCache cache.Cache[models.RetrievalResult]
}

func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	logger.Info("database ready")

	objClient, err := objectclient.NewS3Client(initCtx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	embedder, err := llm.NewGeminiEmbedder(initCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	generator, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}

	embedCache, err := cache.New[[]float32](cfg.CacheMaxEntries, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	retrievalCache, err := cache.New[models.RetrievalResult](cfg.CacheMaxEntries, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("init retrieval cache: %w", err)
	}

	// The embedding service fronts the raw embedder everywhere, so the
	// chat path and ingestion get the same dimension check.
	embeddingSvc := services.NewEmbeddingService(embedder, embedCache, cfg.EmbedDim, logger)

	extractor := ingest.NewSourceExtractor(objClient, cfg.BucketName)
	ingestor := ingest.NewDocumentIngestor(dbClient, embeddingSvc, extractor, &ingest.IngestConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, logger)
	ingestor.Start(ctx, cfg.IngestWorkers)

	retrievalSvc := services.NewRetrievalService(dbClient, retrievalCache, cfg.MaxSimilarFaqs, cfg.MaxSimilarChunks, cfg.MaxDistance, logger)
	synthesizer := services.NewSynthesizer(generator, cfg.HistoryLimit, logger)
	chatSvc := services.NewChatService(dbClient, embeddingSvc, retrievalSvc, synthesizer, cfg.HistoryLimit, cfg.StreamTimeout, logger)
	faqSvc := services.NewFaqService(dbClient, embeddingSvc, logger)
	docSvc := services.NewDocumentService(dbClient, objClient, ingestor, cfg.BucketName, logger)
	ticketSvc := services.NewTicketService(dbClient, logger)
	userSvc := services.NewUserService(dbClient, cfg.JWTSecret, cfg.TokenTTL, logger)

	server := NewServer(cfg, logger, &Handlers{
		Chat:      chatSvc,
		Faqs:      faqSvc,
		Documents: docSvc,
		Tickets:   ticketSvc,
		Users:     userSvc,
	})

	return &App{
		DBClient:       dbClient,
		ObjectClient:   objClient,
		Ingestor:       ingestor,
		Server:         server,
		embedCache:     embedCache,
		retrievalCache: retrievalCache,
	}, nil
}

func (a *App) Close() {
	if a.embedCache != nil {
		a.embedCache.Close()
	}
	if a.retrievalCache != nil {
		a.retrievalCache.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
