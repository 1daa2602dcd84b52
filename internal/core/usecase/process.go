package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
	"github.com/jonzo97/mchp-fpga-mcp/internal/core/ports"
)

// ProcessDocumentUseCase drives one manifest row through extraction,
// noise reduction, chunking, and indexing. The manifest owns every
// transition; failures on one document never leak into another.
type ProcessDocumentUseCase struct {
	repo      ports.ManifestRepository
	catalog   ports.SourceCatalog
	extractor ports.PageExtractor
	artifacts ports.ArtifactStore
	reducer   ports.NoiseReducer
	chunker   ports.Chunker
	indexer   ports.ChunkIndexer
	logger    *slog.Logger
}

func NewProcessDocumentUseCase(
	repo ports.ManifestRepository,
	catalog ports.SourceCatalog,
	extractor ports.PageExtractor,
	artifacts ports.ArtifactStore,
	reducer ports.NoiseReducer,
	chunker ports.Chunker,
	indexer ports.ChunkIndexer,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		repo:      repo,
		catalog:   catalog,
		extractor: extractor,
		artifacts: artifacts,
		reducer:   reducer,
		chunker:   chunker,
		indexer:   indexer,
		logger:    logger,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByChecksum(ctx context.Context, checksum string) error {
	entry, err := uc.repo.GetByChecksum(ctx, checksum)
	if err != nil {
		return fmt.Errorf("fetch manifest entry: %w", err)
	}

	switch entry.Status {
	case domain.StatusReady:
		return nil
	case domain.StatusFailed:
		// Requires an explicit restage; automatic retry would loop on the
		// same failure.
		uc.logger.Info("skip_failed_entry", "doc_id", entry.DocID, "checksum", checksum, "notes", entry.Notes)
		return nil
	}

	pages, err := uc.obtainPages(ctx, entry)
	if err != nil {
		return err
	}

	if err := uc.indexPages(ctx, entry, pages); err != nil {
		return err
	}
	return nil
}

// ProcessAllPending sweeps rows eligible for work: staged and queued rows
// go through extraction, indexing rows resume from their page artifacts.
func (uc *ProcessDocumentUseCase) ProcessAllPending(ctx context.Context) error {
	for _, status := range []domain.ManifestStatus{
		domain.StatusStaged,
		domain.StatusQueued,
		domain.StatusIndexing,
	} {
		entries, err := uc.repo.ListByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("list %s entries: %w", status, err)
		}
		for _, entry := range entries {
			if err := uc.ProcessByChecksum(ctx, entry.Checksum); err != nil {
				uc.logger.Warn("process_document_failed",
					"doc_id", entry.DocID,
					"version", entry.Version,
					"checksum", entry.Checksum,
					"error", err,
				)
			}
		}
	}
	return nil
}

// obtainPages replays persisted page artifacts when the row already
// reached INDEXING, otherwise runs the extraction step.
func (uc *ProcessDocumentUseCase) obtainPages(ctx context.Context, entry *domain.ManifestEntry) ([]domain.PageRecord, error) {
	if entry.Status == domain.StatusIndexing && uc.artifacts.HasPages(entry.DocID, entry.Version) {
		pages, err := uc.artifacts.ReadPages(ctx, entry.DocID, entry.Version)
		if err != nil {
			return nil, fmt.Errorf("replay page artifacts: %w", err)
		}
		return pages, nil
	}
	return uc.extract(ctx, entry)
}

func (uc *ProcessDocumentUseCase) extract(ctx context.Context, entry *domain.ManifestEntry) ([]domain.PageRecord, error) {
	source, err := uc.catalog.Resolve(ctx, entry.DocID, entry.Version)
	if err != nil {
		if domain.IsKind(err, domain.ErrMissingSource) {
			// Operational input problem: leave the row for the next scan.
			uc.logger.Warn("source_file_missing",
				"doc_id", entry.DocID,
				"version", entry.Version,
				"checksum", entry.Checksum,
			)
			return nil, err
		}
		return nil, fmt.Errorf("resolve source file: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, entry.Checksum, domain.StatusExtracting, ""); err != nil {
		return nil, fmt.Errorf("set status=extracting: %w", err)
	}

	pages, err := uc.extractor.Extract(ctx, source.Path)
	if err != nil {
		wrapped := domain.WrapError(domain.ErrExtraction, "extract pages", err)
		if failErr := uc.markFailed(ctx, entry.Checksum, wrapped); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", wrapped, failErr)
		}
		return nil, wrapped
	}

	totalChars := 0
	for _, page := range pages {
		totalChars += page.CharCount
	}

	if err := uc.artifacts.WritePages(ctx, domain.ExtractedDocument{
		DocID:      entry.DocID,
		Version:    entry.Version,
		Checksum:   entry.Checksum,
		SourceFile: source.Path,
		Pages:      pages,
		TotalChars: totalChars,
	}); err != nil {
		wrapped := domain.WrapError(domain.ErrExtraction, "persist page artifacts", err)
		if failErr := uc.markFailed(ctx, entry.Checksum, wrapped); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", wrapped, failErr)
		}
		return nil, wrapped
	}

	pageCount := len(pages)
	entry.PageCount = &pageCount
	if _, err := uc.repo.Upsert(ctx, *entry); err != nil {
		return nil, fmt.Errorf("record page count: %w", err)
	}

	notes := fmt.Sprintf("extracted %d pages, %d chars", len(pages), totalChars)
	if err := uc.repo.UpdateStatus(ctx, entry.Checksum, domain.StatusIndexing, notes); err != nil {
		return nil, fmt.Errorf("set status=indexing: %w", err)
	}
	entry.Status = domain.StatusIndexing

	uc.logger.Info("document_extracted",
		"doc_id", entry.DocID,
		"version", entry.Version,
		"pages", len(pages),
		"chars", totalChars,
	)
	return pages, nil
}

func (uc *ProcessDocumentUseCase) indexPages(ctx context.Context, entry *domain.ManifestEntry, pages []domain.PageRecord) error {
	cleaned := uc.reducer.Clean(pages)

	chunks, err := uc.chunker.Chunk(entry.DocID, entry.Version, cleaned)
	if err != nil {
		wrapped := fmt.Errorf("chunk document: %w", err)
		if failErr := uc.markFailed(ctx, entry.Checksum, wrapped); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", wrapped, failErr)
		}
		return wrapped
	}

	report, err := uc.indexer.IndexChunks(ctx, chunks)
	if err != nil {
		wrapped := fmt.Errorf("index chunks: %w", err)
		if failErr := uc.markFailed(ctx, entry.Checksum, wrapped); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", wrapped, failErr)
		}
		return wrapped
	}

	if report.Attempted > 0 && report.Committed == 0 {
		wrapped := fmt.Errorf("all %d index batches failed", report.FailedBatches)
		if failErr := uc.markFailed(ctx, entry.Checksum, wrapped); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", wrapped, failErr)
		}
		return wrapped
	}

	notes := fmt.Sprintf("indexed %d/%d chunks", report.Committed, report.Attempted)
	if err := uc.repo.UpdateStatus(ctx, entry.Checksum, domain.StatusReady, notes); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	uc.logger.Info("document_indexed",
		"doc_id", entry.DocID,
		"version", entry.Version,
		"chunks_committed", report.Committed,
		"chunks_attempted", report.Attempted,
		"failed_batches", report.FailedBatches,
	)
	return nil
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, checksum string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, checksum, domain.StatusFailed, processErr.Error())
}
