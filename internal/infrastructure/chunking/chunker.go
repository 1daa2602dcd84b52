package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
	"github.com/jonzo97/mchp-fpga-mcp/internal/core/ports"
)

// English technical text runs at roughly four characters per token; the
// ratio only steers Stage A grouping, Stage B enforces the real budget.
const approxCharsPerToken = 4

// Sentence-terminal markers searched backward from a window's end,
// in preference order.
var sentenceMarkers = []string{". ", ".\n", "! ", "?\n"}

// Headings like "3.2.1 Clocking" on an early line of a page mark section
// boundaries for Stage A.
var sectionHeading = regexp.MustCompile(`^\d+(\.\d+)*\s+\S.*$`)

const headingScanLines = 5

// Chunker turns cleaned pages into token-budgeted, content-addressed
// chunks. Stage A groups pages into approximately sized candidates along
// page and section boundaries; Stage B slides an exact token window over
// oversized candidates; Stage C assigns ordinals and hashes. Identical
// input and configuration always produce byte-identical output.
type Chunker struct {
	tokenizer ports.Tokenizer
	maxTokens int
	overlap   int
}

func NewChunker(tokenizer ports.Tokenizer, maxTokens, overlapTokens int) (*Chunker, error) {
	if maxTokens < 1 {
		return nil, fmt.Errorf("max tokens must be >= 1, got %d", maxTokens)
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		return nil, fmt.Errorf("overlap tokens must be in [0, max tokens), got %d with max %d", overlapTokens, maxTokens)
	}
	return &Chunker{
		tokenizer: tokenizer,
		maxTokens: maxTokens,
		overlap:   overlapTokens,
	}, nil
}

type candidate struct {
	text      string
	pageStart int
	pageEnd   int
	section   string
}

type piece struct {
	text       string
	tokenCount int
}

func (c *Chunker) Chunk(docID, version string, pages []domain.PageRecord) ([]domain.Chunk, error) {
	candidates := c.groupPages(pages)

	var chunks []domain.Chunk
	ordinal := 0
	for parentOrdinal, cand := range candidates {
		pieces := c.enforceBudget(cand.text)
		for splitIndex, p := range pieces {
			chunk := domain.Chunk{
				DocID:        docID,
				Version:      version,
				Ordinal:      ordinal,
				PageStart:    cand.pageStart,
				PageEnd:      cand.pageEnd,
				SectionLabel: cand.section,
				Text:         p.text,
				TokenCount:   p.tokenCount,
				ContentHash:  contentHash(p.text),
			}
			if len(pieces) > 1 {
				chunk.SplitParent = &domain.SplitRef{
					ParentOrdinal: parentOrdinal,
					SplitIndex:    splitIndex,
				}
			}
			chunks = append(chunks, chunk)
			ordinal++
		}
	}
	return chunks, nil
}

// groupPages is Stage A: merge consecutive pages toward the approximate
// character target, closing candidates at page and section boundaries.
// The minimum avoids degenerate fragments; the maximum bounds Stage B's
// work. A single page larger than the maximum still becomes one
// candidate — Stage B splits it.
func (c *Chunker) groupPages(pages []domain.PageRecord) []candidate {
	targetChars := c.maxTokens * approxCharsPerToken
	minChars := targetChars / 3
	maxChars := targetChars * 2

	var candidates []candidate
	var current *candidate
	currentSection := ""

	flush := func() {
		if current != nil {
			candidates = append(candidates, *current)
			current = nil
		}
	}

	for _, page := range pages {
		if heading := detectHeading(page.Text); heading != "" {
			// A fresh section on an adequately sized candidate is a
			// better cut than the character target alone.
			if current != nil && len(current.text) >= minChars {
				flush()
			}
			currentSection = heading
		}

		if current == nil {
			current = &candidate{
				text:      page.Text,
				pageStart: page.PageNumber,
				pageEnd:   page.PageNumber,
				section:   currentSection,
			}
			continue
		}

		merged := len(current.text) + 2 + len(page.Text)
		if merged > maxChars || (merged > targetChars && len(current.text) >= minChars) {
			flush()
			current = &candidate{
				text:      page.Text,
				pageStart: page.PageNumber,
				pageEnd:   page.PageNumber,
				section:   currentSection,
			}
			continue
		}

		current.text += "\n\n" + page.Text
		current.pageEnd = page.PageNumber
	}
	flush()
	return candidates
}

// enforceBudget is Stage B: exact token accounting over one candidate.
// Windows prefer to end just after a sentence-terminal marker past the
// midpoint; a truncation is accepted only if re-tokenizing it stays
// within budget, because decode→re-encode is not length-stable. Without
// an acceptable boundary the window is hard-truncated at exactly
// maxTokens. The window start advances by emitted−overlap, which the
// constructor guarantees is positive.
func (c *Chunker) enforceBudget(text string) []piece {
	tokens := c.tokenizer.Encode(text)
	if len(tokens) <= c.maxTokens {
		return []piece{{text: strings.TrimSpace(text), tokenCount: len(tokens)}}
	}

	var pieces []piece
	start := 0
	for start < len(tokens) {
		end := start + c.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		accepted := tokens[start:end]
		acceptedText := c.tokenizer.Decode(accepted)

		if end < len(tokens) {
			if truncText, truncTokens, ok := c.truncateAtSentence(acceptedText); ok {
				acceptedText = truncText
				accepted = truncTokens
			}
		}

		// Re-encoding the decoded window can exceed the window length;
		// hard-truncate whenever the budget is breached.
		finalTokens := c.tokenizer.Encode(acceptedText)
		if len(finalTokens) > c.maxTokens {
			accepted = finalTokens[:c.maxTokens]
			acceptedText = c.tokenizer.Decode(accepted)
		}

		pieces = append(pieces, piece{
			text:       strings.TrimSpace(acceptedText),
			tokenCount: len(accepted),
		})

		if end >= len(tokens) {
			break
		}
		start += len(accepted) - c.overlap
	}
	return pieces
}

// truncateAtSentence looks backward from the window's end for the last
// sentence-terminal marker at or past the midpoint. The shortened text
// must still re-tokenize within budget and keep the window advancing.
func (c *Chunker) truncateAtSentence(windowText string) (string, []int, bool) {
	for _, marker := range sentenceMarkers {
		idx := strings.LastIndex(windowText, marker)
		if idx <= len(windowText)/2 {
			continue
		}
		truncated := windowText[:idx+len(marker)]
		truncTokens := c.tokenizer.Encode(truncated)
		if len(truncTokens) <= c.maxTokens && len(truncTokens) > c.overlap {
			return truncated, truncTokens, true
		}
	}
	return "", nil, false
}

func detectHeading(pageText string) string {
	lines := strings.Split(pageText, "\n")
	limit := headingScanLines
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if sectionHeading.MatchString(line) {
			return line
		}
	}
	return ""
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
