package retrieval

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"docquery/internal/core"
	"docquery/internal/core/ingest"
	"docquery/internal/models"
)

// ErrQueryEmbedding means the question itself could not be embedded; the
// caller substitutes its apologetic message rather than surfacing this.
var ErrQueryEmbedding = errors.New("could not embed query")

// Ranker retrieves and re-ranks candidate sections for a question.
type Ranker struct {
	vectors core.VectorStore
	batcher *ingest.Batcher
	logger  *zap.Logger
}

func NewRanker(vectors core.VectorStore, batcher *ingest.Batcher, logger *zap.Logger) *Ranker {
	return &Ranker{vectors: vectors, batcher: batcher, logger: logger}
}

// Retrieve derives intent offline, embeds the question, issues a filtered
// similarity query and returns the intent-weighted re-ranked top topK.
func (r *Ranker) Retrieve(ctx context.Context, question, documentID string, topK int) ([]models.RetrievedSection, error) {
	intent := ExtractIntent(question)

	vecs := r.batcher.EmbedBatch(ctx, []string{question})
	if len(vecs) == 0 || vecs[0] == nil {
		return nil, ErrQueryEmbedding
	}

	adjusted := AdjustTopK(intent, topK)
	candidates, err := r.vectors.Search(ctx, vecs[0], documentID, adjusted)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("similarity search",
		zap.String("document_id", documentID),
		zap.String("topic", intent.MainTopic),
		zap.String("question_type", string(intent.QuestionType)),
		zap.Int("top_k", adjusted),
		zap.Int("candidates", len(candidates)))

	ranked := Rerank(candidates, intent)
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}
