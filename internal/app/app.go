package app

import (
	"context"
	"fmt"
	"time"

	"github.com/knova-io/knova/internal/config"
	"github.com/knova-io/knova/internal/core"
	db "github.com/knova-io/knova/internal/core/database"
	"github.com/knova-io/knova/internal/core/ingest"
	"github.com/knova-io/knova/internal/core/llm"
	objectclient "github.com/knova-io/knova/internal/core/object-client"
	"github.com/knova-io/knova/internal/core/retrieval"
	"github.com/knova-io/knova/internal/core/settings"
	"github.com/knova-io/knova/internal/logger"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Ingestor     *ingest.DocumentIngestor
	Engine       *retrieval.Engine
	Server       *Server

	embedder *llm.GeminiEmbedder
	llm      *llm.GeminiLLM
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database initialized")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}

	settingsCache := settings.NewCache(dbClient, settings.DefaultTTL)

	ingestor := ingest.NewDocumentIngestor(
		dbClient, objClient, embedder, llmProvider,
		settingsCache, cfg.BucketName, cfg.CrawlTimeout,
	)
	ingestor.Start(ctx, cfg.NumWorkers)

	rewriter := retrieval.NewRewriter(llmProvider)
	engine := retrieval.NewEngine(dbClient, embedder, rewriter, settingsCache)

	server := NewServer(cfg, dbClient, objClient, embedder, llmProvider, ingestor, engine)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Ingestor:     ingestor,
		Engine:       engine,
		Server:       server,
		embedder:     embedder,
		llm:          llmProvider,
	}, nil
}

func (a *App) Close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
