package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

// Section is one labeled span of the source text, in source order.
type Section struct {
	Label string
	Text  string
}

// minChunkLen is the smallest chunk worth keeping; headers with no real
// content under them are dropped.
const minChunkLen = 30

// headerPatterns are tried in priority order. The family with the most
// matches wins; ties go to the earlier entry.
var headerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\n?\s*(\d+(?:\.\d+)*)\.\s+`),            // 1., 1.1., 2.3.4.
	regexp.MustCompile(`\n?\s*([A-Z])\.\s+`),                    // A., B.
	regexp.MustCompile(`\n?\s*([IVXLCDM]{1,7})\.\s+`),           // IV., IX.
	regexp.MustCompile(`(?i)\n?\s*(Clause\s+\d+)[:.]?\s+`),      // Clause 12
	regexp.MustCompile(`(?i)\n?\s*(Article\s+\d+)[:.]\s+`),      // Article 3:
}

var (
	newlineRuns    = regexp.MustCompile(`\n+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
)

// Segment splits extracted full text into ordered, labeled sections.
//
// It scans the text with each structural-header pattern and keeps the
// pattern that matched most often; every match opens a chunk that runs to
// the start of the next match or end of text. When no pattern matches at
// all it falls back to paragraph splitting on blank-line boundaries.
// Empty or whitespace-only input yields an empty list.
func Segment(fullText string) []Section {
	if strings.TrimSpace(fullText) == "" {
		return nil
	}

	var best [][]int
	for _, re := range headerPatterns {
		matches := re.FindAllStringSubmatchIndex(fullText, -1)
		if len(matches) > len(best) {
			best = matches
		}
	}

	if len(best) == 0 {
		return paragraphSections(fullText)
	}

	var sections []Section
	for i, m := range best {
		start := m[0]
		end := len(fullText)
		if i+1 < len(best) {
			end = best[i+1][0]
		}

		label := strings.TrimSpace(strings.Trim(fullText[m[2]:m[3]], ".:"))
		text := cleanChunkText(fullText[start:end])
		if len(text) < minChunkLen {
			continue
		}
		sections = append(sections, Section{Label: label, Text: text})
	}
	return sections
}

// paragraphSections is the fallback when no header family matched: split on
// blank lines and keep paragraphs long enough to be useful.
func paragraphSections(fullText string) []Section {
	var sections []Section
	for _, para := range paragraphSplit.Split(fullText, -1) {
		text := cleanChunkText(para)
		if len(text) < minChunkLen {
			continue
		}
		sections = append(sections, Section{
			Label: fmt.Sprintf("para_%d", len(sections)+1),
			Text:  text,
		})
	}
	return sections
}

// cleanChunkText collapses newline runs to one newline and then whitespace
// runs to a single space.
func cleanChunkText(s string) string {
	s = newlineRuns.ReplaceAllString(s, "\n")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
