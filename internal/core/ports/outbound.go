package ports

import (
	"context"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
)

// ManifestRepository persists document lifecycle state keyed by checksum.
// Upsert and UpdateStatus must be atomic per checksum: concurrent workers
// racing on the same checksum serialize, and no transition is lost to a
// stale read.
type ManifestRepository interface {
	// Upsert inserts a new entry as STAGED or updates the mutable fields
	// of an existing one. It never changes the status of an existing row.
	Upsert(ctx context.Context, entry domain.ManifestEntry) (domain.ManifestEntry, error)
	// UpdateStatus returns domain.ErrManifestNotFound for an unknown
	// checksum. Notes are replaced only when non-empty.
	UpdateStatus(ctx context.Context, checksum string, status domain.ManifestStatus, notes string) error
	GetByChecksum(ctx context.Context, checksum string) (*domain.ManifestEntry, error)
	// ListByStatus reads committed state at call time; callers re-list
	// instead of holding on to a snapshot.
	ListByStatus(ctx context.Context, status domain.ManifestStatus) ([]domain.ManifestEntry, error)
}

// SourceFile is a discovered candidate document with identity derived
// from its content and filename, never trusted from the path alone.
type SourceFile struct {
	Path      string
	DocID     string
	Version   string
	SizeBytes int64
}

// SourceCatalog discovers source documents and recomputes their identity.
type SourceCatalog interface {
	List(ctx context.Context) ([]SourceFile, error)
	Checksum(ctx context.Context, path string) (string, error)
	// Resolve locates a file whose derived identity matches; returns
	// domain.ErrMissingSource when none does.
	Resolve(ctx context.Context, docID, version string) (SourceFile, error)
}

// PageExtractor turns a source document into ordered raw page text.
type PageExtractor interface {
	Extract(ctx context.Context, path string) ([]domain.PageRecord, error)
}

// ArtifactStore persists one text file per page plus index and metadata
// summaries, so indexing can replay without re-extracting.
type ArtifactStore interface {
	WritePages(ctx context.Context, doc domain.ExtractedDocument) error
	ReadPages(ctx context.Context, docID, version string) ([]domain.PageRecord, error)
	HasPages(docID, version string) bool
}

// NoiseReducer strips boilerplate from a document's pages and drops
// pages that end up empty.
type NoiseReducer interface {
	Clean(pages []domain.PageRecord) []domain.PageRecord
}

// Chunker produces token-bounded, content-addressed chunks from cleaned
// pages. Identical input yields identical output.
type Chunker interface {
	Chunk(docID, version string, pages []domain.PageRecord) ([]domain.Chunk, error)
}

// Tokenizer is the embedding model's exact tokenizer. The chunker treats
// decode→re-encode as allowed to change token counts and re-verifies
// every sentence-boundary truncation against the budget.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Embedder builds vectors for chunk text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore upserts chunk batches by deterministic storage id.
type VectorStore interface {
	UpsertChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
}

// IndexReport is the at-least-partial-success signal from one gateway run.
type IndexReport struct {
	Attempted     int
	Committed     int
	FailedBatches int
}

// ChunkIndexer is the indexing gateway consumed by the processing
// pipeline: batched embedding and upserting with partial-failure
// isolation across batches.
type ChunkIndexer interface {
	IndexChunks(ctx context.Context, chunks []domain.Chunk) (IndexReport, error)
}

// MessageQueue hands staged checksums to extraction workers.
type MessageQueue interface {
	PublishDocumentStaged(ctx context.Context, checksum string) error
	SubscribeDocumentStaged(ctx context.Context, handler func(context.Context, string) error) error
}
