package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonzo97/mchp-fpga-mcp/internal/bootstrap"
	"github.com/jonzo97/mchp-fpga-mcp/internal/config"
	"github.com/jonzo97/mchp-fpga-mcp/internal/observability/logging"
)

const serviceName = "manifest-scanner"

// The scanner runs one scan of the incoming directory and exits; cron
// or a systemd timer owns the schedule.
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

	entries, err := app.StageUC.StageAll(ctx)
	if err != nil {
		logger.Error("stage_scan_failed", "error", err)
		os.Exit(1)
	}

	logger.Info("stage_scan_complete", "dir", cfg.IncomingDir, "entries", len(entries))
}
