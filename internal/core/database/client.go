package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"docquery/internal/core"
	"docquery/internal/models"
)

// DatabaseClient is the Postgres-backed metadata store.
type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, databaseURL string) (*DatabaseClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DB exposes the underlying handle for collaborators sharing the pool.
func (c *DatabaseClient) DB() *sql.DB { return c.db }

// ClaimDocument inserts the row keyed by content_hash. On conflict it
// returns the existing document's id with claimed=false, so the unique
// constraint stays the sole source of truth for deduplication and two
// racing requests process a new document at most once.
func (c *DatabaseClient) ClaimDocument(ctx context.Context, doc *models.Document) (string, bool, error) {
	if doc == nil {
		return "", false, errors.New("nil document")
	}
	const q = `
		INSERT INTO documents (id, file_name, byte_size, preview_words, content_hash, total_chunks, processed_at)
		VALUES ($1, $2, $3, $4, $5, 0, now())
		ON CONFLICT (content_hash) DO NOTHING
		RETURNING id
	`
	var id string
	err := c.db.QueryRowContext(ctx, q,
		doc.ID, doc.FileName, doc.ByteSize, doc.PreviewWords, doc.ContentHash).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, err
	}

	// Lost the race: read the winner's id.
	existing, err := c.FindDocumentByHash(ctx, doc.ContentHash)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		return "", false, fmt.Errorf("claim conflict but no document for hash %s", doc.ContentHash)
	}
	return existing.ID, false, nil
}

func (c *DatabaseClient) FindDocumentByHash(ctx context.Context, contentHash string) (*models.Document, error) {
	const q = `
		SELECT id, file_name, byte_size, preview_words, content_hash, total_chunks, processed_at
		FROM documents WHERE content_hash = $1
	`
	return c.scanDocument(c.db.QueryRowContext(ctx, q, contentHash))
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, file_name, byte_size, preview_words, content_hash, total_chunks, processed_at
		FROM documents WHERE id = $1
	`
	return c.scanDocument(c.db.QueryRowContext(ctx, q, id))
}

func (c *DatabaseClient) scanDocument(row *sql.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.FileName, &d.ByteSize, &d.PreviewWords, &d.ContentHash, &d.TotalChunks, &d.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SetDocumentTotalChunks performs the one-time totalChunks write.
func (c *DatabaseClient) SetDocumentTotalChunks(ctx context.Context, id string, totalChunks int) error {
	const q = `UPDATE documents SET total_chunks = $2 WHERE id = $1`
	res, err := c.db.ExecContext(ctx, q, id, totalChunks)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

// InsertChunks writes one batch of chunks in a single transaction.
// chunk_index conflicts are ignored so re-insertion of a batch is
// idempotent.
func (c *DatabaseClient) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks (document_id, chunk_index, page_number, section_label, text)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document_id, chunk_index) DO NOTHING
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if _, err := stmt.ExecContext(ctx,
			ch.DocumentID, ch.ChunkIndex, ch.PageNumber, ch.SectionLabel, ch.Text,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	return err
}

// GetDocumentStats summarizes the processed corpus for the health endpoint.
func (c *DatabaseClient) GetDocumentStats(ctx context.Context) (*models.DocumentStats, error) {
	stats := &models.DocumentStats{SizeDistribution: map[string]int{}}

	err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&stats.TotalDocuments)
	if err != nil {
		return nil, err
	}
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM document_chunks`).Scan(&stats.TotalChunks); err != nil {
		return nil, err
	}
	if stats.TotalDocuments > 0 {
		stats.AvgChunksPerDoc = float64(stats.TotalChunks) / float64(stats.TotalDocuments)
	}

	const q = `
		SELECT
			count(*) FILTER (WHERE byte_size <= 10485760)                               AS small,
			count(*) FILTER (WHERE byte_size > 10485760  AND byte_size <= 52428800)    AS medium,
			count(*) FILTER (WHERE byte_size > 52428800  AND byte_size <= 209715200)   AS large,
			count(*) FILTER (WHERE byte_size > 209715200)                               AS xlarge
		FROM documents
	`
	var small, medium, large, xlarge int
	if err := c.db.QueryRowContext(ctx, q).Scan(&small, &medium, &large, &xlarge); err != nil {
		return nil, err
	}
	stats.SizeDistribution["small"] = small
	stats.SizeDistribution["medium"] = medium
	stats.SizeDistribution["large"] = large
	stats.SizeDistribution["xlarge"] = xlarge
	return stats, nil
}
