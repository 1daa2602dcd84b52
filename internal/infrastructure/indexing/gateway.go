package indexing

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
	"github.com/jonzo97/mchp-fpga-mcp/internal/core/ports"
	"github.com/jonzo97/mchp-fpga-mcp/internal/observability/metrics"
)

const (
	DefaultBatchSize   = 100
	DefaultParallelism = 2
)

type Options struct {
	BatchSize   int
	Parallelism int
	Service     string
	Metrics     *metrics.WorkerMetrics
}

// Gateway embeds and upserts chunks in fixed-size batches. A failing
// batch is logged, counted, and dropped; the remaining batches still
// commit, so one bad batch never voids a whole document.
type Gateway struct {
	embedder ports.Embedder
	store    ports.VectorStore
	logger   *slog.Logger
	opts     Options
}

func NewGateway(embedder ports.Embedder, store ports.VectorStore, logger *slog.Logger, opts Options) *Gateway {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = DefaultParallelism
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		embedder: embedder,
		store:    store,
		logger:   logger,
		opts:     opts,
	}
}

func (g *Gateway) IndexChunks(ctx context.Context, chunks []domain.Chunk) (ports.IndexReport, error) {
	unique := dedupeByContentHash(chunks)
	if dropped := len(chunks) - len(unique); dropped > 0 {
		g.logger.Info("duplicate_chunks_skipped", "count", dropped)
	}
	if len(unique) == 0 {
		return ports.IndexReport{}, nil
	}

	batches := splitBatches(unique, g.opts.BatchSize)

	var committed, failed atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.opts.Parallelism)

	for i, batch := range batches {
		i, batch := i, batch
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			if err := g.indexBatch(groupCtx, batch); err != nil {
				failed.Add(1)
				g.recordBatchFailure()
				g.logger.Warn("index_batch_failed",
					"batch", i,
					"batch_size", len(batch),
					"first_ordinal", batch[0].Ordinal,
					"error", err,
				)
				return nil
			}
			committed.Add(int64(len(batch)))
			g.recordBatchCommit(len(batch))
			return nil
		})
	}
	err := group.Wait()

	report := ports.IndexReport{
		Attempted:     len(unique),
		Committed:     int(committed.Load()),
		FailedBatches: int(failed.Load()),
	}
	return report, err
}

func (g *Gateway) indexBatch(ctx context.Context, batch []domain.Chunk) error {
	texts := make([]string, 0, len(batch))
	for _, chunk := range batch {
		texts = append(texts, chunk.Text)
	}

	vectors, err := g.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	return g.store.UpsertChunks(ctx, batch, vectors)
}

func (g *Gateway) recordBatchCommit(count int) {
	if g.opts.Metrics != nil {
		g.opts.Metrics.AddChunksCommitted(g.opts.Service, count)
	}
}

func (g *Gateway) recordBatchFailure() {
	if g.opts.Metrics != nil {
		g.opts.Metrics.AddIndexBatchFailure(g.opts.Service)
	}
}

// dedupeByContentHash keeps the first chunk per content hash, in input
// order. Repeated boilerplate that survived cleaning produces identical
// chunk bodies; embedding them again buys nothing.
func dedupeByContentHash(chunks []domain.Chunk) []domain.Chunk {
	seen := make(map[string]struct{}, len(chunks))
	unique := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.ContentHash]; ok {
			continue
		}
		seen[chunk.ContentHash] = struct{}{}
		unique = append(unique, chunk)
	}
	return unique
}

func splitBatches(chunks []domain.Chunk, size int) [][]domain.Chunk {
	var batches [][]domain.Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}
