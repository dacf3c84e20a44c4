package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"docquery/internal/core"
	"docquery/internal/models"
)

// PgVectorStore is the similarity index over chunk vectors, backed by a
// pgvector table with cosine distance. The collection has one fixed
// dimension; every accepted vector has exactly that length.
type PgVectorStore struct {
	db     *sql.DB
	dim    int
	logger *zap.Logger
}

var _ core.VectorStore = (*PgVectorStore)(nil)

func NewPgVectorStore(db *sql.DB, dim int, logger *zap.Logger) (*PgVectorStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", dim)
	}
	return &PgVectorStore{db: db, dim: dim, logger: logger}, nil
}

// EnsureCollection creates the chunk_vectors table on first run and
// verifies its declared dimension afterwards. A mismatch on a non-empty
// collection requires operator intervention and is never auto-resolved; an
// empty collection is re-dimensioned in place.
func (s *PgVectorStore) EnsureCollection(ctx context.Context) error {
	storeDim, err := s.declaredDimension(ctx)
	if errors.Is(err, errNoCollection) {
		return s.createCollection(ctx)
	}
	if err != nil {
		return err
	}

	if storeDim == s.dim {
		s.logger.Info("vector collection ready", zap.Int("dimension", s.dim))
		return nil
	}

	var points int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM chunk_vectors`).Scan(&points); err != nil {
		return err
	}
	if points > 0 {
		return &core.DimensionMismatchError{StoreDim: storeDim, ConfigDim: s.dim, Points: points}
	}

	s.logger.Warn("empty collection with wrong dimension, re-dimensioning",
		zap.Int("store_dim", storeDim), zap.Int("config_dim", s.dim))
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`ALTER TABLE chunk_vectors ALTER COLUMN embedding TYPE vector(%d)`, s.dim))
	return err
}

var errNoCollection = errors.New("chunk_vectors does not exist")

// declaredDimension reads the embedding column's declared dimension from
// the catalog; pgvector stores it in the type modifier.
func (s *PgVectorStore) declaredDimension(ctx context.Context) (int, error) {
	const q = `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = to_regclass('chunk_vectors') AND attname = 'embedding'
	`
	var dim sql.NullInt32
	err := s.db.QueryRowContext(ctx, q).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !dim.Valid) {
		return 0, errNoCollection
	}
	if err != nil {
		return 0, err
	}
	return int(dim.Int32), nil
}

func (s *PgVectorStore) createCollection(ctx context.Context) error {
	s.logger.Info("creating vector collection", zap.Int("dimension", s.dim))
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS chunk_vectors (
			id            UUID PRIMARY KEY,
			document_id   UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index   INTEGER NOT NULL,
			section_label VARCHAR(500),
			chunk_text    TEXT NOT NULL,
			embedding     vector(%d) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chunk_vectors_doc ON chunk_vectors(document_id);
		CREATE INDEX IF NOT EXISTS idx_chunk_vectors_embedding ON chunk_vectors
			USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
	`, s.dim)
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// ValidateVector rejects anything that is not a flat vector of exactly the
// configured dimension. Nothing is ever truncated or padded.
func ValidateVector(vec []float32, dim int) error {
	if len(vec) == 0 {
		return errors.New("empty vector")
	}
	if len(vec) != dim {
		return fmt.Errorf("vector has dimension %d, collection expects %d", len(vec), dim)
	}
	return nil
}

// Upsert writes one batch of points in a transaction. Every vector is
// validated before anything is sent; a bad point fails the batch so the
// caller's rollback policy applies.
func (s *PgVectorStore) Upsert(ctx context.Context, points []core.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	for i := range points {
		if err := ValidateVector(points[i].Vector, s.dim); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO chunk_vectors (id, document_id, chunk_index, section_label, chunk_text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range points {
		p := &points[i]
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), p.DocumentID, p.ChunkIndex, p.SectionLabel, p.Text,
			pgvector.NewVector(p.Vector),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Search returns up to limit candidates for the query vector, restricted to
// one document, in cosine-similarity order.
func (s *PgVectorStore) Search(ctx context.Context, vector []float32, documentID string, limit int) ([]models.RetrievedSection, error) {
	if err := ValidateVector(vector, s.dim); err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}

	const q = `
		SELECT document_id, chunk_index, coalesce(section_label, ''), chunk_text,
		       1 - (embedding <=> $1) AS similarity
		FROM chunk_vectors
		WHERE document_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, q, pgvector.NewVector(vector), documentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RetrievedSection
	for rows.Next() {
		var sec models.RetrievedSection
		if err := rows.Scan(&sec.DocumentID, &sec.ChunkIndex, &sec.SectionLabel, &sec.Text, &sec.Similarity); err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *PgVectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE document_id = $1`, documentID)
	return err
}
