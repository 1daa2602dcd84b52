package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
	"github.com/jonzo97/mchp-fpga-mcp/internal/core/ports"
)

// StageDocumentsUseCase discovers source files, registers them in the
// manifest by content checksum, and hands new work to the queue.
type StageDocumentsUseCase struct {
	repo    ports.ManifestRepository
	catalog ports.SourceCatalog
	queue   ports.MessageQueue
	logger  *slog.Logger
}

func NewStageDocumentsUseCase(
	repo ports.ManifestRepository,
	catalog ports.SourceCatalog,
	queue ports.MessageQueue,
	logger *slog.Logger,
) *StageDocumentsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &StageDocumentsUseCase{
		repo:    repo,
		catalog: catalog,
		queue:   queue,
		logger:  logger,
	}
}

// StageAll scans the catalog once. Byte-identical content maps onto the
// existing manifest row regardless of filename; a failure on one file
// never aborts the rest of the scan.
func (uc *StageDocumentsUseCase) StageAll(ctx context.Context) ([]domain.ManifestEntry, error) {
	files, err := uc.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", err)
	}

	staged := make([]domain.ManifestEntry, 0, len(files))
	for _, file := range files {
		entry, err := uc.stageOne(ctx, file)
		if err != nil {
			uc.logger.Warn("stage_file_failed", "path", file.Path, "error", err)
			continue
		}
		staged = append(staged, entry)
	}
	return staged, nil
}

func (uc *StageDocumentsUseCase) stageOne(ctx context.Context, file ports.SourceFile) (domain.ManifestEntry, error) {
	checksum, err := uc.catalog.Checksum(ctx, file.Path)
	if err != nil {
		return domain.ManifestEntry{}, fmt.Errorf("compute checksum: %w", err)
	}

	committed, err := uc.repo.Upsert(ctx, domain.ManifestEntry{
		DocID:     file.DocID,
		Version:   file.Version,
		Checksum:  checksum,
		SizeBytes: file.SizeBytes,
		Status:    domain.StatusStaged,
	})
	if err != nil {
		return domain.ManifestEntry{}, fmt.Errorf("upsert manifest entry: %w", err)
	}

	// Rows already queued or further along are an idempotent no-op here;
	// only freshly staged work is published.
	if committed.Status != domain.StatusStaged {
		uc.logger.Debug("stage_noop",
			"doc_id", committed.DocID,
			"checksum", checksum,
			"status", string(committed.Status),
		)
		return committed, nil
	}

	if err := uc.queue.PublishDocumentStaged(ctx, checksum); err != nil {
		// Row stays STAGED and is retried on the next scan.
		return committed, fmt.Errorf("publish staged document: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, checksum, domain.StatusQueued, "queued for extraction"); err != nil {
		return committed, fmt.Errorf("set status=queued: %w", err)
	}
	committed.Status = domain.StatusQueued

	uc.logger.Info("document_staged",
		"doc_id", committed.DocID,
		"version", committed.Version,
		"checksum", checksum,
		"size_bytes", committed.SizeBytes,
	)
	return committed, nil
}
