package domain

// PageRecord is the raw per-page text produced by the extractor. It only
// lives for the duration of one extraction run; the durable form is the
// page artifact written by the coordinator.
type PageRecord struct {
	PageNumber int    `json:"page"`
	Text       string `json:"-"`
	CharCount  int    `json:"chars"`
}

// ExtractedDocument bundles the pages of one fully extracted document
// version together with the totals recorded in the manifest notes.
type ExtractedDocument struct {
	DocID      string
	Version    string
	Checksum   string
	SourceFile string
	Pages      []PageRecord
	TotalChars int
}
