package domain

import "time"

type ManifestStatus string

const (
	StatusStaged     ManifestStatus = "staged"
	StatusQueued     ManifestStatus = "queued"
	StatusExtracting ManifestStatus = "extracting"
	StatusIndexing   ManifestStatus = "indexing"
	StatusReady      ManifestStatus = "ready"
	StatusFailed     ManifestStatus = "failed"
)

// ManifestEntry is one row per distinct document version. The checksum is
// the identity: restaging byte-identical content updates the existing row.
type ManifestEntry struct {
	DocID     string         `json:"doc_id"`
	Version   string         `json:"version"`
	Checksum  string         `json:"checksum"`
	SourceURL string         `json:"source_url,omitempty"`
	SizeBytes int64          `json:"size_bytes"`
	PageCount *int           `json:"page_count,omitempty"`
	Status    ManifestStatus `json:"status"`
	Notes     string         `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
