package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"docquery/internal/core"
)

// GeminiLLM is the prompt -> text collaborator used for answer synthesis.
type GeminiLLM struct {
	ring      *keyRing
	modelName string
}

var _ core.LLMProvider = (*GeminiLLM)(nil)

func NewGeminiLLM(ctx context.Context, apiKeys []string, modelName string) (*GeminiLLM, error) {
	ring, err := newKeyRing(ctx, apiKeys)
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash-lite"
	}
	return &GeminiLLM{ring: ring, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	return g.ring.close()
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	cl, err := g.ring.acquire(ctx)
	if err != nil {
		return "", err
	}

	m := cl.GenerativeModel(g.modelName)
	m.SetTemperature(0.1)
	m.SetTopP(0.8)
	m.SetTopK(40)
	m.SetMaxOutputTokens(1000)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String()), nil
}
