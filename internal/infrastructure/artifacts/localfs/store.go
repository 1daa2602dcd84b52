package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
)

// Store persists the extraction contract read by the noise reducer and
// chunker: one text file per page under content/{docID}/{version}/text,
// a JSON page index, and a JSON metadata summary.
type Store struct {
	baseDir string
}

type pageIndexEntry struct {
	Page  int    `json:"page"`
	Chars int    `json:"chars"`
	File  string `json:"file"`
}

type docMetadata struct {
	DocID      string `json:"doc_id"`
	Version    string `json:"version"`
	Checksum   string `json:"checksum"`
	PageCount  int    `json:"page_count"`
	TotalChars int    `json:"total_chars"`
	SourceFile string `json:"source_file"`
}

func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		baseDir = "./content"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) WritePages(_ context.Context, doc domain.ExtractedDocument) error {
	docDir := s.docDir(doc.DocID, doc.Version)
	textDir := filepath.Join(docDir, "text")
	if err := os.MkdirAll(textDir, 0o755); err != nil {
		return fmt.Errorf("create text dir: %w", err)
	}

	index := make([]pageIndexEntry, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		name := pageFileName(page.PageNumber)
		if err := os.WriteFile(filepath.Join(textDir, name), []byte(page.Text), 0o644); err != nil {
			return fmt.Errorf("write page %d: %w", page.PageNumber, err)
		}
		index = append(index, pageIndexEntry{
			Page:  page.PageNumber,
			Chars: page.CharCount,
			File:  filepath.Join("text", name),
		})
	}

	if err := writeJSON(filepath.Join(docDir, "page_index.json"), index); err != nil {
		return fmt.Errorf("write page index: %w", err)
	}
	meta := docMetadata{
		DocID:      doc.DocID,
		Version:    doc.Version,
		Checksum:   doc.Checksum,
		PageCount:  len(doc.Pages),
		TotalChars: doc.TotalChars,
		SourceFile: filepath.Base(doc.SourceFile),
	}
	if err := writeJSON(filepath.Join(docDir, "metadata.json"), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (s *Store) ReadPages(_ context.Context, docID, version string) ([]domain.PageRecord, error) {
	docDir := s.docDir(docID, version)

	raw, err := os.ReadFile(filepath.Join(docDir, "page_index.json"))
	if err != nil {
		return nil, fmt.Errorf("read page index: %w", err)
	}
	var index []pageIndexEntry
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("parse page index: %w", err)
	}

	pages := make([]domain.PageRecord, 0, len(index))
	for _, entry := range index {
		text, err := os.ReadFile(filepath.Join(docDir, entry.File))
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", entry.Page, err)
		}
		pages = append(pages, domain.PageRecord{
			PageNumber: entry.Page,
			Text:       string(text),
			CharCount:  len(text),
		})
	}
	return pages, nil
}

func (s *Store) HasPages(docID, version string) bool {
	_, err := os.Stat(filepath.Join(s.docDir(docID, version), "page_index.json"))
	return err == nil
}

func (s *Store) docDir(docID, version string) string {
	return filepath.Join(s.baseDir, docID, version)
}

func pageFileName(page int) string {
	return fmt.Sprintf("page_%04d.txt", page)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
