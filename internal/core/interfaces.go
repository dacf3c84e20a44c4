package core

import (
	"context"

	"docquery/internal/models"
)

// DbClient defines all persistence operations the pipeline needs from the
// relational metadata store. It abstracts Postgres so higher layers never
// depend on a specific driver.
type DbClient interface {
	// ClaimDocument inserts the document row keyed by its content hash.
	// On a hash collision it returns the already-claimed document's id with
	// claimed=false, making concurrent ingestion of the same document
	// at-most-once.
	ClaimDocument(ctx context.Context, doc *models.Document) (id string, claimed bool, err error)
	FindDocumentByHash(ctx context.Context, contentHash string) (*models.Document, error)
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	SetDocumentTotalChunks(ctx context.Context, id string, totalChunks int) error
	DeleteDocument(ctx context.Context, id string) error

	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	DeleteChunksByDocument(ctx context.Context, documentID string) error

	GetDocumentStats(ctx context.Context) (*models.DocumentStats, error)
}

// VectorStore is the similarity index over chunk vectors. The collection
// has one fixed dimension; vectors of any other length are rejected before
// they reach the store.
type VectorStore interface {
	// EnsureCollection verifies the collection exists with the configured
	// dimension. A dimension mismatch on a non-empty collection is fatal
	// and never auto-resolved.
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []VectorPoint) error
	Search(ctx context.Context, vector []float32, documentID string, limit int) ([]models.RetrievedSection, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// VectorPoint is one entry bound for the similarity index.
type VectorPoint struct {
	DocumentID   string
	ChunkIndex   int
	SectionLabel string
	Text         string
	Vector       []float32
}

// EmbeddingProvider turns one text into a raw embedding. The return value is
// deliberately untyped: providers wrap vectors in different shapes and the
// batcher owns normalization to a flat []float32.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) (any, error)
}

// LLMProvider synthesizes prose from a prompt.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// PageExtractor yields a document's text one page at a time. The sequence
// may fail mid-stream; callers must tolerate a prefix of good pages followed
// by an error.
type PageExtractor interface {
	// Pages calls yield for each page of text in order. A false return from
	// yield stops extraction early without error. An error after one or
	// more successful yields means partial content is available.
	Pages(ctx context.Context, raw []byte, yield func(pageNumber int, text string) bool) error
}

// SourceFetcher resolves a remote document reference.
type SourceFetcher interface {
	// ProbeSize estimates the document's byte size without a full download.
	ProbeSize(ctx context.Context, url string) (int64, error)
	// Download retrieves the full document bytes.
	Download(ctx context.Context, url string) ([]byte, error)
	// FileName derives a clean file name from the reference URL.
	FileName(url string) string
}
