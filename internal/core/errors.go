package core

import (
	"errors"
	"fmt"
)

// ErrNoChunks is returned when segmentation produced nothing usable.
// It is always fatal for the ingestion.
var ErrNoChunks = errors.New("no chunks created from document")

// DownloadError means the source document could not be fetched at all.
// Fatal for the request.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ExtractionError reports a failed or partially failed text extraction.
// PagesExtracted > 0 means a usable prefix exists and the ingestion should
// continue with it; zero pages is fatal.
type ExtractionError struct {
	PagesExtracted int
	Err            error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed after %d pages: %v", e.PagesExtracted, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Recoverable reports whether partial content makes the error survivable.
func (e *ExtractionError) Recoverable() bool { return e.PagesExtracted > 0 }

// DimensionMismatchError means the similarity store and the embedder
// disagree on the vector dimension while the store holds data. Requires
// operator intervention; never auto-resolved.
type DimensionMismatchError struct {
	StoreDim  int
	ConfigDim int
	Points    int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: collection has %d (holding %d points), configured %d; manual intervention required",
		e.StoreDim, e.Points, e.ConfigDim)
}

// PersistenceError wraps a failed write to either store; it triggers
// rollback of the in-flight batch.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
