package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash("policy.pdf", 1024, "first twenty words of the document")
	b := ContentHash("policy.pdf", 1024, "first twenty words of the document")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestContentHashDistinguishesInputs(t *testing.T) {
	base := ContentHash("policy.pdf", 1024, "preview")
	assert.NotEqual(t, base, ContentHash("other.pdf", 1024, "preview"))
	assert.NotEqual(t, base, ContentHash("policy.pdf", 1025, "preview"))
	assert.NotEqual(t, base, ContentHash("policy.pdf", 1024, "different"))
}

func TestPreviewWordsTruncatesToTwenty(t *testing.T) {
	words := make([]string, 30)
	for i := range words {
		words[i] = "word"
	}
	preview := PreviewWords(strings.Join(words, " "))
	assert.Len(t, strings.Fields(preview), 20)
}

func TestPreviewWordsShortText(t *testing.T) {
	assert.Equal(t, "only three words", PreviewWords("only   three\nwords"))
	assert.Equal(t, "", PreviewWords(""))
}

func TestCleanTextStripsNoise(t *testing.T) {
	assert.Equal(t, "Hello world, 5 (five)", CleanText("Hello  world,\n5 (five)©"))
	assert.Equal(t, "", CleanText(""))
}
