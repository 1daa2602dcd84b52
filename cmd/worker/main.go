package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonzo97/mchp-fpga-mcp/internal/bootstrap"
	"github.com/jonzo97/mchp-fpga-mcp/internal/config"
	"github.com/jonzo97/mchp-fpga-mcp/internal/observability/logging"
)

const serviceName = "ingest-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", app.WorkerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// Sweep rows left over from a previous run before taking new work:
	// staged and queued rows whose message was lost, and indexing rows
	// that resume from their page artifacts.
	if err := app.ProcessUC.ProcessAllPending(ctx); err != nil {
		logger.Warn("pending_sweep_failed", "error", err)
	}

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentStaged(ctx, func(handlerCtx context.Context, checksum string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 15*time.Minute)
		defer cancel()

		if entry, lookupErr := app.Repo.GetByChecksum(processCtx, checksum); lookupErr == nil {
			app.WorkerMetrics.ObserveQueueLag(serviceName, time.Since(entry.UpdatedAt))
		}

		app.WorkerMetrics.StartDocument()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByChecksum(processCtx, checksum)
		app.WorkerMetrics.FinishDocument(serviceName, time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
