package indexing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  func(texts []string) bool
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail != nil && f.fail(texts) {
		return nil, errors.New("embed backend unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i]))}
	}
	return vectors, nil
}

type fakeVectorStore struct {
	mu       sync.Mutex
	upserted []domain.Chunk
	fail     func(batch []domain.Chunk) bool
}

func (f *fakeVectorStore) UpsertChunks(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunk/vector mismatch")
	}
	if f.fail != nil && f.fail(chunks) {
		return errors.New("vector store rejected batch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func makeChunks(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, domain.Chunk{
			DocID:       "doc",
			Version:     "V1",
			Ordinal:     i,
			PageStart:   i + 1,
			PageEnd:     i + 1,
			Text:        fmt.Sprintf("chunk body %d", i),
			TokenCount:  3,
			ContentHash: fmt.Sprintf("hash-%04d", i),
		})
	}
	return chunks
}

func TestIndexChunksCommitsAllBatches(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeVectorStore{}
	gateway := NewGateway(embedder, store, nil, Options{BatchSize: 100})

	report, err := gateway.IndexChunks(context.Background(), makeChunks(250))
	if err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	if report.Attempted != 250 || report.Committed != 250 || report.FailedBatches != 0 {
		t.Fatalf("report = %+v", report)
	}
	if len(store.upserted) != 250 {
		t.Fatalf("upserted = %d, want 250", len(store.upserted))
	}
	if embedder.calls != 3 {
		t.Fatalf("embed calls = %d, want 3 batches", embedder.calls)
	}
}

func TestFailingBatchIsIsolated(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeVectorStore{
		// The middle batch starts at ordinal 100.
		fail: func(batch []domain.Chunk) bool { return batch[0].Ordinal == 100 },
	}
	gateway := NewGateway(embedder, store, nil, Options{BatchSize: 100})

	report, err := gateway.IndexChunks(context.Background(), makeChunks(250))
	if err != nil {
		t.Fatalf("IndexChunks() error = %v (batch failures must not abort)", err)
	}
	if report.Attempted != 250 {
		t.Fatalf("attempted = %d, want 250", report.Attempted)
	}
	if report.Committed != 150 {
		t.Fatalf("committed = %d, want 150 (batches 1 and 3)", report.Committed)
	}
	if report.FailedBatches != 1 {
		t.Fatalf("failed batches = %d, want 1", report.FailedBatches)
	}
	for _, chunk := range store.upserted {
		if chunk.Ordinal >= 100 && chunk.Ordinal < 200 {
			t.Fatalf("chunk %d from the failed batch was committed", chunk.Ordinal)
		}
	}
}

func TestAllBatchesFailingReportsZeroCommitted(t *testing.T) {
	embedder := &fakeEmbedder{fail: func([]string) bool { return true }}
	store := &fakeVectorStore{}
	gateway := NewGateway(embedder, store, nil, Options{BatchSize: 50})

	report, err := gateway.IndexChunks(context.Background(), makeChunks(120))
	if err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	if report.Committed != 0 || report.FailedBatches != 3 {
		t.Fatalf("report = %+v, want 0 committed across 3 failed batches", report)
	}
}

func TestDuplicateContentHashesAreSkipped(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeVectorStore{}
	gateway := NewGateway(embedder, store, nil, Options{BatchSize: 100})

	chunks := makeChunks(10)
	chunks[7].ContentHash = chunks[2].ContentHash
	chunks[9].ContentHash = chunks[2].ContentHash

	report, err := gateway.IndexChunks(context.Background(), chunks)
	if err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	if report.Attempted != 8 || report.Committed != 8 {
		t.Fatalf("report = %+v, want 8 unique chunks", report)
	}
	for _, chunk := range store.upserted {
		if chunk.Ordinal == 7 || chunk.Ordinal == 9 {
			t.Fatalf("duplicate chunk %d was indexed", chunk.Ordinal)
		}
	}
}

func TestEmptyInputYieldsEmptyReport(t *testing.T) {
	gateway := NewGateway(&fakeEmbedder{}, &fakeVectorStore{}, nil, Options{})
	report, err := gateway.IndexChunks(context.Background(), nil)
	if err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	if report.Attempted != 0 || report.Committed != 0 || report.FailedBatches != 0 {
		t.Fatalf("report = %+v, want zero values", report)
	}
}
