package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docquery/internal/config"
	db "docquery/internal/core/database"
	"docquery/internal/core/extract"
	"docquery/internal/core/fetch"
	"docquery/internal/core/ingest"
	"docquery/internal/core/llm"
	"docquery/internal/core/pipeline"
	"docquery/internal/core/retrieval"
	"docquery/internal/core/vectorstore"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	DBClient *db.DatabaseClient
	Embedder *llm.GeminiEmbedder
	LLM      *llm.GeminiLLM
	Facade   *pipeline.Facade
	Server   *Server
	logger   *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	logger.Info("database initialized and ready")

	vectors, err := vectorstore.NewPgVectorStore(dbClient.DB(), cfg.EmbedDim, logger)
	if err != nil {
		return nil, err
	}
	if err := vectors.EnsureCollection(appCtx); err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.GeminiAPIKeys, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.GeminiAPIKeys, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	logger.Info("gemini clients ready", zap.Int("credentials", len(cfg.GeminiAPIKeys)))

	fetcher := fetch.NewHTTPFetcher(logger)
	extractor := extract.NewPDFExtractor()
	batcher := ingest.NewBatcher(embedder, len(cfg.GeminiAPIKeys), logger)
	orchestrator := ingest.NewOrchestrator(
		dbClient, vectors, fetcher, extractor, batcher, len(cfg.GeminiAPIKeys), logger)
	ranker := retrieval.NewRanker(vectors, batcher, logger)

	facade, err := pipeline.NewFacade(
		dbClient, fetcher, extractor, orchestrator, ranker, llmProvider,
		cfg.QuestionWorkers, logger)
	if err != nil {
		return nil, err
	}

	server := NewServer(cfg, dbClient, facade, logger)

	return &App{
		DBClient: dbClient,
		Embedder: embedder,
		LLM:      llmProvider,
		Facade:   facade,
		Server:   server,
		logger:   logger,
	}, nil
}

func (a *App) Close() {
	if a.Facade != nil {
		a.Facade.Close()
	}
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
