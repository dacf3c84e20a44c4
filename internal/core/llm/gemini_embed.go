package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"docquery/internal/core"
)

// GeminiEmbedder is the text -> vector collaborator, rotating across the
// configured credentials per call.
type GeminiEmbedder struct {
	ring      *keyRing
	modelName string
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)

func NewGeminiEmbedder(ctx context.Context, apiKeys []string, modelName string) (*GeminiEmbedder, error) {
	ring, err := newKeyRing(ctx, apiKeys)
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{ring: ring, modelName: modelName}, nil
}

func (g *GeminiEmbedder) Close() error {
	return g.ring.close()
}

// EmbedText embeds one text. The raw value slot of the provider contract is
// the flat float slice Gemini returns; the batcher owns normalization.
func (g *GeminiEmbedder) EmbedText(ctx context.Context, text string) (any, error) {
	cl, err := g.ring.acquire(ctx)
	if err != nil {
		return nil, err
	}

	em := cl.EmbeddingModel(g.modelName)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("gemini embed: empty response")
	}
	return resp.Embedding.Values, nil
}
