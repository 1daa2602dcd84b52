package domain

// SplitRef records where a chunk came from when Stage B had to split an
// oversized candidate: the candidate's ordinal and the window index.
type SplitRef struct {
	ParentOrdinal int `json:"parent_ordinal"`
	SplitIndex    int `json:"split_index"`
}

// Chunk is the durable output unit handed to the indexing gateway.
// Ordinals and content hashes are owned by the chunker and are stable
// for identical input.
type Chunk struct {
	DocID        string         `json:"doc_id"`
	Version      string         `json:"version"`
	Ordinal      int            `json:"chunk_ordinal"`
	PageStart    int            `json:"page_start"`
	PageEnd      int            `json:"page_end"`
	SectionLabel string         `json:"section_label,omitempty"`
	Text         string         `json:"text"`
	TokenCount   int            `json:"token_count"`
	ContentHash  string         `json:"content_hash"`
	SplitParent  *SplitRef      `json:"split_parent,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// FlatMetadata returns the chunk payload restricted to scalar values.
// The vector store rejects nested metadata, so lists and maps are dropped
// at this boundary rather than rejected upstream.
func (c Chunk) FlatMetadata() map[string]any {
	out := map[string]any{
		"doc_id":        c.DocID,
		"version":       c.Version,
		"chunk_ordinal": c.Ordinal,
		"page_start":    c.PageStart,
		"page_end":      c.PageEnd,
		"token_count":   c.TokenCount,
		"content_hash":  c.ContentHash,
	}
	if c.SectionLabel != "" {
		out["section_label"] = c.SectionLabel
	}
	if c.SplitParent != nil {
		out["split_parent_ordinal"] = c.SplitParent.ParentOrdinal
		out["split_index"] = c.SplitParent.SplitIndex
	}
	for k, v := range c.Metadata {
		switch v.(type) {
		case string, bool,
			int, int32, int64,
			float32, float64:
			out[k] = v
		}
	}
	return out
}
