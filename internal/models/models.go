package models

import (
	"time"
)

// Document is the metadata row for one distinct ingested document.
// ContentHash is the deduplication key: exactly one row may exist per
// (file name, byte size, preview words) triple. The row is written once at
// claim time and mutated only by the one-time TotalChunks update during
// ingestion.
type Document struct {
	ID           string    `db:"id" json:"id"`
	FileName     string    `db:"file_name" json:"file_name"`
	ByteSize     int64     `db:"byte_size" json:"byte_size"`
	PreviewWords string    `db:"preview_words" json:"preview_words"`
	ContentHash  string    `db:"content_hash" json:"content_hash"`
	TotalChunks  int       `db:"total_chunks" json:"total_chunks"`
	ProcessedAt  time.Time `db:"processed_at" json:"processed_at"`
}

// Chunk is one labeled, contiguous span of a document's text.
// ChunkIndex is assigned in segmentation order and defines both ordering and
// the unit of idempotent re-insertion. Chunks are immutable once written.
type Chunk struct {
	ID           int64  `db:"id" json:"id"`
	DocumentID   string `db:"document_id" json:"document_id"`
	ChunkIndex   int    `db:"chunk_index" json:"chunk_index"`
	PageNumber   *int   `db:"page_number" json:"page_number,omitempty"`
	SectionLabel string `db:"section_label" json:"section_label"`
	Text         string `db:"text" json:"text"`
}

// RetrievedSection is a similarity-search candidate in canonical form:
// one text field, the identifiers needed to attribute it, and the score the
// ranker assigns. OrigIndex is the candidate's position in raw similarity
// order and is the tie-break during re-ranking.
type RetrievedSection struct {
	DocumentID   string  `json:"document_id"`
	ChunkIndex   int     `json:"chunk_index"`
	SectionLabel string  `json:"section_label"`
	Text         string  `json:"text"`
	Similarity   float64 `json:"similarity"`
	Score        int     `json:"score"`
	OrigIndex    int     `json:"-"`
}

// QuestionType is the closed enum of recognized question shapes.
type QuestionType string

const (
	QuestionWhat    QuestionType = "what"
	QuestionWhen    QuestionType = "when"
	QuestionHow     QuestionType = "how"
	QuestionYesNo   QuestionType = "yes_no"
	QuestionWhere   QuestionType = "where"
	QuestionWhy     QuestionType = "why"
	QuestionGeneral QuestionType = "general"
)

// QueryIntent is the transient, offline-derived summary of a question used
// to tune retrieval. It is never persisted.
type QueryIntent struct {
	MainTopic    string       `json:"main_topic"`
	QuestionType QuestionType `json:"question_type"`
	KeyEntities  []string     `json:"key_entities"`
	AnswerType   string       `json:"answer_type"`
}

// DocumentStats summarizes the processed corpus for the health endpoint.
type DocumentStats struct {
	TotalDocuments   int            `json:"total_documents"`
	TotalChunks      int            `json:"total_chunks"`
	AvgChunksPerDoc  float64        `json:"avg_chunks_per_doc"`
	SizeDistribution map[string]int `json:"size_distribution"`
}
