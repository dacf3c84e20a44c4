package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"docquery/internal/core"
	"docquery/internal/core/ingest"
	"docquery/internal/core/retrieval"
	"docquery/internal/models"
)

// Fixed user-visible fallbacks. The answering path never surfaces raw
// internal errors.
const (
	msgEmbeddingFailed  = "I'm sorry, I couldn't process your question due to an embedding error."
	msgNoSections       = "I couldn't find relevant information in the document to answer your question."
	msgGenerationFailed = "I found relevant information but couldn't generate a complete answer. Please try rephrasing your question."
	msgInternalError    = "I'm sorry, I encountered an error while processing your question. Please try again."
)

const (
	defaultTopK       = 15
	maxPromptSections = 5
)

const answerSystemPrompt = "You are an assistant answering questions about a document. " +
	"Answer based only on the given sections. If unsure, say you cannot find this in the document."

// Facade exposes the two pipeline entry points the request handler
// consumes: ingest-or-reuse for a document reference and answering
// questions against an ingested document.
type Facade struct {
	db           core.DbClient
	fetcher      core.SourceFetcher
	extractor    core.PageExtractor
	orchestrator *ingest.Orchestrator
	ranker       *retrieval.Ranker
	llm          core.LLMProvider
	pool         *ants.Pool
	logger       *zap.Logger
}

func NewFacade(
	db core.DbClient,
	fetcher core.SourceFetcher,
	extractor core.PageExtractor,
	orchestrator *ingest.Orchestrator,
	ranker *retrieval.Ranker,
	llmProvider core.LLMProvider,
	questionWorkers int,
	logger *zap.Logger,
) (*Facade, error) {
	if questionWorkers < 1 {
		questionWorkers = 1
	}
	pool, err := ants.NewPool(questionWorkers)
	if err != nil {
		return nil, err
	}
	return &Facade{
		db:           db,
		fetcher:      fetcher,
		extractor:    extractor,
		orchestrator: orchestrator,
		ranker:       ranker,
		llm:          llmProvider,
		pool:         pool,
		logger:       logger,
	}, nil
}

func (f *Facade) Close() {
	f.pool.Release()
}

// IngestOrReuse resolves a document reference to a document id, running the
// full ingestion pipeline at most once per distinct document. The persisted
// content_hash unique constraint is the sole source of truth: a fingerprint
// hit reuses the stored id, a miss claims the hash and ingests.
func (f *Facade) IngestOrReuse(ctx context.Context, documentURL string) (string, error) {
	fileName := f.fetcher.FileName(documentURL)

	byteSize, err := f.fetcher.ProbeSize(ctx, documentURL)
	if err != nil {
		return "", &core.DownloadError{URL: documentURL, Err: err}
	}

	preview := f.documentPreview(ctx, documentURL, byteSize, fileName)
	contentHash := ingest.ContentHash(fileName, byteSize, preview)

	if existing, err := f.db.FindDocumentByHash(ctx, contentHash); err == nil && existing != nil {
		f.logger.Info("document already processed, reusing",
			zap.String("document_id", existing.ID),
			zap.Int("total_chunks", existing.TotalChunks))
		return existing.ID, nil
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		FileName:     fileName,
		ByteSize:     byteSize,
		PreviewWords: preview,
		ContentHash:  contentHash,
	}
	id, claimed, err := f.db.ClaimDocument(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("claim document: %w", err)
	}
	if !claimed {
		// A concurrent request claimed the same hash first; reuse its id.
		f.logger.Info("lost ingestion claim, reusing", zap.String("document_id", id))
		return id, nil
	}

	f.logger.Info("new document claimed",
		zap.String("document_id", id),
		zap.String("file_name", fileName),
		zap.Int64("byte_size", byteSize),
		zap.String("content_hash", contentHash[:12]))

	return f.orchestrator.Ingest(ctx, ingest.DocumentRef{
		DocumentID:   id,
		URL:          documentURL,
		FileName:     fileName,
		ByteSize:     byteSize,
		PreviewWords: preview,
		ContentHash:  contentHash,
	})
}

// documentPreview extracts the first page's leading words. The preview must
// be derived identically on every call for a given document, so any failure
// degrades to a deterministic fallback built from size, URL and name.
func (f *Facade) documentPreview(ctx context.Context, documentURL string, byteSize int64, fileName string) string {
	preview, err := f.firstPageWords(ctx, documentURL)
	if err == nil && preview != "" {
		return preview
	}
	if err != nil {
		f.logger.Warn("document preview failed, using fallback", zap.Error(err))
	}
	urlHash := md5.Sum([]byte(documentURL))
	return fmt.Sprintf("large_file_%d_%s_%s", byteSize, hex.EncodeToString(urlHash[:])[:8], fileName)
}

func (f *Facade) firstPageWords(ctx context.Context, documentURL string) (string, error) {
	raw, err := f.fetcher.Download(ctx, documentURL)
	if err != nil {
		return "", err
	}
	var preview string
	err = f.extractor.Pages(ctx, raw, func(_ int, text string) bool {
		preview = ingest.PreviewWords(text)
		return false
	})
	if err != nil && preview == "" {
		return "", err
	}
	return preview, nil
}

// AnswerQuestion retrieves the best-matching sections for one question and
// synthesizes a prose answer. Every failure maps to a fixed user-facing
// message.
func (f *Facade) AnswerQuestion(ctx context.Context, question, documentID string) string {
	sections, err := f.ranker.Retrieve(ctx, question, documentID, defaultTopK)
	switch {
	case errors.Is(err, retrieval.ErrQueryEmbedding):
		return msgEmbeddingFailed
	case err != nil:
		f.logger.Error("retrieval failed", zap.String("document_id", documentID), zap.Error(err))
		return msgInternalError
	case len(sections) == 0:
		return msgNoSections
	}

	answer, err := f.llm.Generate(ctx, answerSystemPrompt, buildAnswerPrompt(question, sections))
	if err != nil {
		f.logger.Error("answer generation failed", zap.Error(err))
		return msgGenerationFailed
	}
	if len(strings.TrimSpace(answer)) < 10 {
		return msgGenerationFailed
	}
	return strings.TrimSpace(answer)
}

// AnswerAll answers every question concurrently over the bounded worker
// pool, returning answers in input order.
func (f *Facade) AnswerAll(ctx context.Context, questions []string, documentID string) []string {
	answers := make([]string, len(questions))
	var wg sync.WaitGroup
	for i, q := range questions {
		i, q := i, q
		wg.Add(1)
		if err := f.pool.Submit(func() {
			defer wg.Done()
			answers[i] = f.AnswerQuestion(ctx, q, documentID)
		}); err != nil {
			answers[i] = msgInternalError
			wg.Done()
		}
	}
	wg.Wait()
	return answers
}

// buildAnswerPrompt numbers the top sections and instructs the model to
// answer only from them.
func buildAnswerPrompt(question string, sections []models.RetrievedSection) string {
	var b strings.Builder
	b.WriteString("Based on the following sections, provide an accurate answer to the question. " +
		"The sections may not be exactly relevant, but use them to form your answer.\n\nRELEVANT SECTIONS:\n")
	for i, sec := range sections {
		if i >= maxPromptSections {
			break
		}
		fmt.Fprintf(&b, "\nSection %d:\n%s\n", i+1, sec.Text)
	}
	b.WriteString("\nQUESTION: " + question + "\n\n")
	b.WriteString("Answer based solely on the sections above. If specific conditions, amounts, " +
		"time periods or values are mentioned, include them. Reply in plain prose without " +
		"markdown formatting. State yes or no explicitly when the question requires it, and " +
		"answer with at least one full statement.\n\nANSWER:")
	return b.String()
}
