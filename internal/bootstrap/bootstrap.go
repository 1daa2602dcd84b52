package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonzo97/mchp-fpga-mcp/internal/config"
	"github.com/jonzo97/mchp-fpga-mcp/internal/core/ports"
	"github.com/jonzo97/mchp-fpga-mcp/internal/core/usecase"
	artifactsfs "github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/artifacts/localfs"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/chunking"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/cleaning"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/embedding/ollama"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/extractor/pdffile"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/indexing"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/queue/nats"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/repository/postgres"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/resilience"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/source/localdir"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/tokenizer/tiktoken"
	"github.com/jonzo97/mchp-fpga-mcp/internal/infrastructure/vector/qdrant"
	"github.com/jonzo97/mchp-fpga-mcp/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Repo      ports.ManifestRepository
	StageUC   ports.DocumentStager
	ProcessUC ports.DocumentProcessor

	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewManifestRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	catalog, err := localdir.New(cfg.IncomingDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init source catalog: %w", err)
	}

	artifacts, err := artifactsfs.New(cfg.ContentDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init artifact store: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Logger:             logger,
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	tokenizer, err := tiktoken.New(cfg.TokenizerEncoding)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}

	chunker, err := chunking.NewChunker(tokenizer, cfg.MaxTokensPerChunk, cfg.OverlapTokens)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	workerMetrics := metrics.NewWorkerMetrics(service)

	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)
	vectorStore := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	indexer := indexing.NewGateway(embedder, vectorStore, logger, indexing.Options{
		BatchSize:   cfg.IndexBatchSize,
		Parallelism: cfg.IndexParallelism,
		Service:     service,
		Metrics:     workerMetrics,
	})

	stageUC := usecase.NewStageDocumentsUseCase(repo, catalog, queue, logger)
	processUC := usecase.NewProcessDocumentUseCase(
		repo,
		catalog,
		pdffile.New(),
		artifacts,
		cleaning.NewReducer(),
		chunker,
		indexer,
		logger,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Repo:      repo,
		StageUC:   stageUC,
		ProcessUC: processUC,

		WorkerMetrics: workerMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
