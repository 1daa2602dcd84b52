package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
	"github.com/jonzo97/mchp-fpga-mcp/internal/core/ports"
)

type fakeRepo struct {
	mu          sync.Mutex
	entries     map[string]*domain.ManifestEntry
	transitions []string

	upsertErr error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: make(map[string]*domain.ManifestEntry)}
}

func (r *fakeRepo) seed(entry domain.ManifestEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	r.entries[entry.Checksum] = &entry
}

func (r *fakeRepo) Upsert(_ context.Context, entry domain.ManifestEntry) (domain.ManifestEntry, error) {
	if r.upsertErr != nil {
		return domain.ManifestEntry{}, r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.entries[entry.Checksum]
	if !ok {
		entry.Status = domain.StatusStaged
		entry.CreatedAt = time.Now()
		entry.UpdatedAt = entry.CreatedAt
		r.entries[entry.Checksum] = &entry
		return entry, nil
	}

	// Conflict path: mutable fields only, status untouched.
	existing.DocID = entry.DocID
	existing.Version = entry.Version
	existing.SizeBytes = entry.SizeBytes
	if entry.PageCount != nil {
		existing.PageCount = entry.PageCount
	}
	existing.UpdatedAt = time.Now()
	return *existing, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, checksum string, status domain.ManifestStatus, notes string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[checksum]
	if !ok {
		return domain.ErrManifestNotFound
	}
	entry.Status = status
	if notes != "" {
		entry.Notes = notes
	}
	entry.UpdatedAt = time.Now()
	r.transitions = append(r.transitions, fmt.Sprintf("%s:%s", checksum, status))
	return nil
}

func (r *fakeRepo) GetByChecksum(_ context.Context, checksum string) (*domain.ManifestEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[checksum]
	if !ok {
		return nil, domain.ErrManifestNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *fakeRepo) ListByStatus(_ context.Context, status domain.ManifestStatus) ([]domain.ManifestEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ManifestEntry
	for _, entry := range r.entries {
		if entry.Status == status {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (r *fakeRepo) status(checksum string) domain.ManifestStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[checksum]; ok {
		return entry.Status
	}
	return ""
}

func (r *fakeRepo) notes(checksum string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[checksum]; ok {
		return entry.Notes
	}
	return ""
}

type fakeCatalog struct {
	files     []ports.SourceFile
	checksums map[string]string

	checksumErr map[string]error
}

func (c *fakeCatalog) List(context.Context) ([]ports.SourceFile, error) {
	return c.files, nil
}

func (c *fakeCatalog) Checksum(_ context.Context, path string) (string, error) {
	if err, ok := c.checksumErr[path]; ok {
		return "", err
	}
	sum, ok := c.checksums[path]
	if !ok {
		return "", fmt.Errorf("unknown path %s", path)
	}
	return sum, nil
}

func (c *fakeCatalog) Resolve(_ context.Context, docID, version string) (ports.SourceFile, error) {
	for _, file := range c.files {
		if file.DocID == docID && file.Version == version {
			return file, nil
		}
	}
	return ports.SourceFile{}, domain.WrapError(domain.ErrMissingSource, "resolve source", fmt.Errorf("%s %s not found", docID, version))
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (q *fakeQueue) PublishDocumentStaged(_ context.Context, checksum string) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, checksum)
	return nil
}

func (q *fakeQueue) SubscribeDocumentStaged(context.Context, func(context.Context, string) error) error {
	return errors.New("not used in tests")
}

type fakeExtractor struct {
	pages map[string][]domain.PageRecord
	err   error
	calls int
}

func (e *fakeExtractor) Extract(_ context.Context, path string) ([]domain.PageRecord, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	pages, ok := e.pages[path]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", path)
	}
	return pages, nil
}

type fakeArtifacts struct {
	stored   map[string][]domain.PageRecord
	writeErr error
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{stored: make(map[string][]domain.PageRecord)}
}

func artifactKey(docID, version string) string {
	return docID + "/" + version
}

func (a *fakeArtifacts) WritePages(_ context.Context, doc domain.ExtractedDocument) error {
	if a.writeErr != nil {
		return a.writeErr
	}
	a.stored[artifactKey(doc.DocID, doc.Version)] = doc.Pages
	return nil
}

func (a *fakeArtifacts) ReadPages(_ context.Context, docID, version string) ([]domain.PageRecord, error) {
	pages, ok := a.stored[artifactKey(docID, version)]
	if !ok {
		return nil, fmt.Errorf("no artifacts for %s %s", docID, version)
	}
	return pages, nil
}

func (a *fakeArtifacts) HasPages(docID, version string) bool {
	_, ok := a.stored[artifactKey(docID, version)]
	return ok
}

type passthroughReducer struct{}

func (passthroughReducer) Clean(pages []domain.PageRecord) []domain.PageRecord {
	return pages
}

type fakeChunker struct {
	err error
}

func (c *fakeChunker) Chunk(docID, version string, pages []domain.PageRecord) ([]domain.Chunk, error) {
	if c.err != nil {
		return nil, c.err
	}
	chunks := make([]domain.Chunk, 0, len(pages))
	for i, page := range pages {
		chunks = append(chunks, domain.Chunk{
			DocID:       docID,
			Version:     version,
			Ordinal:     i,
			PageStart:   page.PageNumber,
			PageEnd:     page.PageNumber,
			Text:        page.Text,
			TokenCount:  len(page.Text),
			ContentHash: fmt.Sprintf("hash-%d", i),
		})
	}
	return chunks, nil
}

type fakeIndexer struct {
	report  *ports.IndexReport
	err     error
	indexed []domain.Chunk
}

func (f *fakeIndexer) IndexChunks(_ context.Context, chunks []domain.Chunk) (ports.IndexReport, error) {
	if f.err != nil {
		return ports.IndexReport{}, f.err
	}
	f.indexed = append(f.indexed, chunks...)
	if f.report != nil {
		return *f.report, nil
	}
	return ports.IndexReport{Attempted: len(chunks), Committed: len(chunks)}, nil
}
