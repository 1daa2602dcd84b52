package cleaning

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
)

// Known-noise patterns for technical PDF manuals. These run on every
// document regardless of size; statistical detection below needs a
// corpus of pages to work with.
var noisePatterns = []*regexp.Regexp{
	// Document-number footers.
	regexp.MustCompile(`User Guide\s+DS\d+[A-Z]?\s*-\s*\d+`),
	regexp.MustCompile(`Data Sheet\s+DS\d+[A-Z]?\s*-\s*\d+`),
	regexp.MustCompile(`Application Note\s+AN\d+\s*-\s*\d+`),

	// Copyright notices.
	regexp.MustCompile(`©\s*\d{4}[^\n]*`),
	regexp.MustCompile(`Copyright\s*©?\s*\d{4}[^\n]*`),

	// Running document-title headers repeated at the top of pages.
	regexp.MustCompile(`(?m)^[^\n]*(User Guide|Data Sheet|Application Note)\s*$`),

	// Page markers.
	regexp.MustCompile(`Page \d+ of \d+`),
	regexp.MustCompile(`(?m)^\s*\d+\s*/\s*\d+\s*$`),

	// Standalone page numbers and trailing revision markers.
	regexp.MustCompile(`(?m)^\s*\d+\s*$`),
	regexp.MustCompile(`(?m)Rev\.\s*[A-Z]\s*$`),
}

var (
	blankRuns = regexp.MustCompile(`\n\n\n+`)
	spaceRuns = regexp.MustCompile(`  +`)
)

const (
	// Cross-page detection needs more pages than this to be meaningful.
	minPagesForRepeatDetection = 3
	// A line is boilerplate once it appears on min(fixedRepeatThreshold,
	// 0.7×pages) distinct pages. The 70% rule tolerates a title page
	// without the running header.
	fixedRepeatThreshold = 3

	minBoilerplateLineLen = 10
	maxBoilerplateLineLen = 100
)

// Reducer removes boilerplate from a document's pages: fixed patterns
// first, then lines repeating across enough pages, then whitespace
// normalization. Pages left empty are dropped, so the output may be
// shorter than the input.
type Reducer struct{}

func NewReducer() *Reducer {
	return &Reducer{}
}

func (r *Reducer) Clean(pages []domain.PageRecord) []domain.PageRecord {
	if len(pages) == 0 {
		return pages
	}

	var repeated []string
	if len(pages) > minPagesForRepeatDetection {
		repeated = repeatedLines(pages)
	}

	cleaned := make([]domain.PageRecord, 0, len(pages))
	for _, page := range pages {
		text := page.Text
		for _, pattern := range noisePatterns {
			text = pattern.ReplaceAllString(text, "")
		}
		for _, line := range repeated {
			text = strings.ReplaceAll(text, line, "")
		}
		text = normalizeWhitespace(text)
		if text == "" {
			continue
		}
		cleaned = append(cleaned, domain.PageRecord{
			PageNumber: page.PageNumber,
			Text:       text,
			CharCount:  len(text),
		})
	}
	return cleaned
}

// repeatedLines counts, per distinct line of plausible header/footer
// length, how many pages contain it. The result is sorted so removal
// order is deterministic.
func repeatedLines(pages []domain.PageRecord) []string {
	pageFrequency := make(map[string]int)
	for _, page := range pages {
		seen := make(map[string]struct{})
		for _, line := range strings.Split(page.Text, "\n") {
			line = strings.TrimSpace(line)
			if len(line) <= minBoilerplateLineLen || len(line) >= maxBoilerplateLineLen {
				continue
			}
			if _, ok := seen[line]; ok {
				continue
			}
			seen[line] = struct{}{}
			pageFrequency[line]++
		}
	}

	threshold := float64(fixedRepeatThreshold)
	if adaptive := 0.7 * float64(len(pages)); adaptive < threshold {
		threshold = adaptive
	}

	var repeated []string
	for line, count := range pageFrequency {
		if float64(count) >= threshold {
			repeated = append(repeated, line)
		}
	}
	sort.Strings(repeated)
	return repeated
}

func normalizeWhitespace(text string) string {
	text = blankRuns.ReplaceAllString(text, "\n\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
