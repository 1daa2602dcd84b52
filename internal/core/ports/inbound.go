package ports

import (
	"context"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
)

// DocumentStager is the inbound contract for the staging scan.
type DocumentStager interface {
	StageAll(ctx context.Context) ([]domain.ManifestEntry, error)
}

// DocumentProcessor is the inbound contract for extraction and indexing.
type DocumentProcessor interface {
	ProcessByChecksum(ctx context.Context, checksum string) error
	ProcessAllPending(ctx context.Context) error
}
