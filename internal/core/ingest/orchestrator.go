package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docquery/internal/core"
	"docquery/internal/models"
)

// ingestState names the pipeline step for logging. FAILED is reachable from
// every step.
type ingestState string

const (
	stateSizing    ingestState = "SIZING"
	stateExtract   ingestState = "EXTRACTING"
	stateSegment   ingestState = "SEGMENTING"
	stateEmbed     ingestState = "BATCH_EMBEDDING"
	statePersist   ingestState = "PERSISTING"
	stateDone      ingestState = "DONE"
	stateFailed    ingestState = "FAILED"
)

// DocumentRef carries everything the orchestrator needs about a claimed
// document: the facade resolves the URL, sizes it, derives the preview and
// claims the metadata row before Ingest runs.
type DocumentRef struct {
	DocumentID   string
	URL          string
	FileName     string
	ByteSize     int64
	PreviewWords string
	ContentHash  string
}

// Orchestrator drives the full pipeline for one document:
// size classification, extraction, segmentation, batched embedding and
// streaming persistence, with the per-tier partial-failure policy.
type Orchestrator struct {
	db             core.DbClient
	vectors        core.VectorStore
	fetcher        core.SourceFetcher
	extractor      core.PageExtractor
	batcher        *Batcher
	numCredentials int
	logger         *zap.Logger
}

func NewOrchestrator(
	db core.DbClient,
	vectors core.VectorStore,
	fetcher core.SourceFetcher,
	extractor core.PageExtractor,
	batcher *Batcher,
	numCredentials int,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		db:             db,
		vectors:        vectors,
		fetcher:        fetcher,
		extractor:      extractor,
		batcher:        batcher,
		numCredentials: numCredentials,
		logger:         logger,
	}
}

// Ingest processes a freshly claimed document end to end and returns its id.
// It is only ever invoked on a fingerprint miss; the claimed Document row
// already exists, so a concurrent dedup lookup sees a document whose chunk
// count is still rising.
func (o *Orchestrator) Ingest(ctx context.Context, ref DocumentRef) (string, error) {
	cfg := TierFor(ref.ByteSize, o.numCredentials)
	log := o.logger.With(
		zap.String("document_id", ref.DocumentID),
		zap.String("tier", string(cfg.Tier)))
	log.Info("ingestion started",
		zap.String("state", string(stateSizing)),
		zap.Int64("byte_size", ref.ByteSize),
		zap.Duration("timeout", cfg.Timeout),
		zap.Int("batch_size", cfg.BatchSize))

	// The tier budget bounds extraction and embedding wall-clock time.
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	fullText, pages, err := o.extractText(ctx, ref.URL, cfg, log)
	if err != nil {
		o.failAndCleanup(ref.DocumentID, stateExtract, err, log)
		return "", err
	}
	log.Info("extraction complete", zap.Int("pages", pages), zap.Int("chars", len(fullText)))

	sections := Segment(fullText)
	if len(sections) == 0 {
		o.failAndCleanup(ref.DocumentID, stateSegment, core.ErrNoChunks, log)
		return "", core.ErrNoChunks
	}
	log.Info("segmentation complete",
		zap.String("state", string(stateSegment)), zap.Int("chunks", len(sections)))

	// The one-time totalChunks write; callers treat it as eventually
	// consistent while batches are still persisting.
	if err := o.db.SetDocumentTotalChunks(ctx, ref.DocumentID, len(sections)); err != nil {
		perr := &core.PersistenceError{Op: "set total chunks", Err: err}
		o.failAndCleanup(ref.DocumentID, statePersist, perr, log)
		return "", perr
	}

	if err := o.embedAndPersist(ctx, ref, cfg, sections, log); err != nil {
		o.failAndCleanup(ref.DocumentID, stateEmbed, err, log)
		return "", err
	}

	log.Info("ingestion complete", zap.String("state", string(stateDone)))
	return ref.DocumentID, nil
}

// extractText downloads the source and accumulates page text. A mid-stream
// extraction failure with at least one good page degrades to the partial
// text; zero pages is fatal.
func (o *Orchestrator) extractText(ctx context.Context, url string, cfg TierConfig, log *zap.Logger) (string, int, error) {
	log.Info("extracting", zap.String("state", string(stateExtract)))

	raw, err := o.fetcher.Download(ctx, url)
	if err != nil {
		return "", 0, &core.DownloadError{URL: url, Err: err}
	}

	var (
		buf   []byte
		pages int
	)
	err = o.extractor.Pages(ctx, raw, func(pageNumber int, text string) bool {
		buf = append(buf, '\n')
		buf = append(buf, CleanText(text)...)
		pages++
		if cfg.Tier == TierXLarge && pages >= xlargePageCap {
			log.Warn("page cap reached, truncating extraction", zap.Int("cap", xlargePageCap))
			return false
		}
		return true
	})
	if err != nil {
		extErr := &core.ExtractionError{PagesExtracted: pages, Err: err}
		if !extErr.Recoverable() {
			return "", 0, extErr
		}
		log.Warn("partial extraction, continuing with available content",
			zap.Int("pages", pages), zap.Error(err))
	}
	return string(buf), pages, nil
}

// embedAndPersist splits the sections into sequential batch jobs of the
// tier's batch size and persists each job's chunks and vectors before the
// next job starts, so partial progress survives a later failure.
func (o *Orchestrator) embedAndPersist(ctx context.Context, ref DocumentRef, cfg TierConfig, sections []Section, log *zap.Logger) error {
	total := len(sections)
	totalBatches := (total + cfg.BatchSize - 1) / cfg.BatchSize
	log.Info("embedding",
		zap.String("state", string(stateEmbed)),
		zap.Int("chunks", total),
		zap.Int("batches", totalBatches))

	for start := 0; start < total; start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > total {
			end = total
		}
		batchIndex := start/cfg.BatchSize + 1

		if err := o.processBatchJob(ctx, ref, sections[start:end], start, log); err != nil {
			if cfg.SkipFailedBatches() {
				log.Warn("batch failed, continuing with remaining batches",
					zap.Int("batch", batchIndex), zap.Error(err))
				continue
			}
			return fmt.Errorf("batch %d/%d: %w", batchIndex, totalBatches, err)
		}
		log.Debug("batch persisted", zap.Int("batch", batchIndex), zap.Int("total_batches", totalBatches))
	}
	return nil
}

// processBatchJob embeds one contiguous slice of chunks and persists the
// successful items to both stores. Per-item embedding failures drop the
// item; only persistence failures fail the job.
func (o *Orchestrator) processBatchJob(ctx context.Context, ref DocumentRef, job []Section, startIdx int, log *zap.Logger) error {
	texts := make([]string, len(job))
	for i, s := range job {
		texts[i] = s.Text
	}

	vectors := o.batcher.EmbedBatch(ctx, texts)

	var (
		chunks []models.Chunk
		points []core.VectorPoint
	)
	for i, vec := range vectors {
		if vec == nil {
			log.Warn("dropping chunk without embedding", zap.Int("chunk_index", startIdx+i))
			continue
		}
		chunks = append(chunks, models.Chunk{
			DocumentID:   ref.DocumentID,
			ChunkIndex:   startIdx + i,
			SectionLabel: job[i].Label,
			Text:         job[i].Text,
		})
		points = append(points, core.VectorPoint{
			DocumentID:   ref.DocumentID,
			ChunkIndex:   startIdx + i,
			SectionLabel: job[i].Label,
			Text:         job[i].Text,
			Vector:       vec,
		})
	}
	if len(chunks) == 0 {
		log.Warn("no valid embeddings in batch", zap.Int("start_index", startIdx))
		return nil
	}

	// The two stores are independent; write them concurrently. A failure in
	// either fails the job and the caller's tier policy decides what happens.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := o.db.InsertChunks(gctx, chunks); err != nil {
			return &core.PersistenceError{Op: "insert chunks", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		if err := o.vectors.Upsert(gctx, points); err != nil {
			return &core.PersistenceError{Op: "upsert vectors", Err: err}
		}
		return nil
	})
	return g.Wait()
}

// failAndCleanup logs the terminal failure and removes any partial
// materialization so no document is left half-ingested yet discoverable.
// Cleanup is best-effort; its own failures are logged, never re-raised.
func (o *Orchestrator) failAndCleanup(documentID string, at ingestState, cause error, log *zap.Logger) {
	log.Error("ingestion failed",
		zap.String("state", string(stateFailed)),
		zap.String("failed_at", string(at)),
		zap.Error(cause))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := o.vectors.DeleteByDocument(ctx, documentID); err != nil {
		log.Warn("cleanup: delete vectors failed", zap.Error(err))
	}
	if err := o.db.DeleteChunksByDocument(ctx, documentID); err != nil {
		log.Warn("cleanup: delete chunks failed", zap.Error(err))
	}
	if err := o.db.DeleteDocument(ctx, documentID); err != nil {
		log.Warn("cleanup: delete document failed", zap.Error(err))
	}
}
