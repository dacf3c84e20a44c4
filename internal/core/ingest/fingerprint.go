package ingest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// previewWordCount is how many leading tokens of cleaned text identify a
// document. It must stay stable: changing it re-fingerprints every document.
const previewWordCount = 20

var disallowedChars = regexp.MustCompile(`[^\w\s.,;:!?\-()]`)

// ContentHash derives the deduplication key for a document from its file
// name, byte size and preview words. Deterministic and side-effect free.
func ContentHash(fileName string, byteSize int64, previewWords string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%s", fileName, byteSize, previewWords)))
	return hex.EncodeToString(sum[:])
}

// PreviewWords extracts the first previewWordCount whitespace-delimited
// tokens of the cleaned text. Resubmitting the same document must produce
// the same preview, so this is the only preview derivation in the codebase.
func PreviewWords(text string) string {
	words := strings.Fields(CleanText(text))
	if len(words) > previewWordCount {
		words = words[:previewWordCount]
	}
	return strings.Join(words, " ")
}

// CleanText collapses whitespace and strips characters outside the word and
// basic-punctuation classes.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRuns.ReplaceAllString(text, " ")
	text = disallowedChars.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
