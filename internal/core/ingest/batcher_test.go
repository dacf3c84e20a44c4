package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedProvider returns whatever its script decides per call, counting
// calls across goroutines.
type scriptedProvider struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, text string) (any, error)
}

func (p *scriptedProvider) EmbedText(_ context.Context, text string) (any, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()
	return p.fn(call, text)
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestBatcher(p *scriptedProvider, numCredentials int) (*Batcher, *[]time.Duration) {
	b := NewBatcher(p, numCredentials, zap.NewNop())
	sleeps := &[]time.Duration{}
	var mu sync.Mutex
	b.sleep = func(_ context.Context, d time.Duration) {
		mu.Lock()
		*sleeps = append(*sleeps, d)
		mu.Unlock()
	}
	return b, sleeps
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	provider := &scriptedProvider{fn: func(_ int, text string) (any, error) {
		return []float32{float32(len(text))}, nil
	}}
	b, sleeps := newTestBatcher(provider, 1)
	require.Equal(t, 3, b.BatchSize())

	texts := []string{
		"first chunk",
		"second chunk text",
		"third chunk text here",
		"fourth",
		"fifth chunk",
		"sixth chunk text",
		"seventh chunk text here",
	}
	vectors := b.EmbedBatch(context.Background(), texts)

	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		require.NotNil(t, vectors[i], "vector %d", i)
		assert.Equal(t, float32(len(text)), vectors[i][0])
	}
	assert.Equal(t, len(texts), provider.callCount())
	// Two inter-batch pauses for three batches, each at the base delay.
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, *sleeps)
}

func TestEmbedBatchSkipsShortText(t *testing.T) {
	provider := &scriptedProvider{fn: func(_ int, _ string) (any, error) {
		return []float32{1}, nil
	}}
	b, _ := newTestBatcher(provider, 1)

	vectors := b.EmbedBatch(context.Background(), []string{"hi", "long enough text"})
	require.Len(t, vectors, 2)
	assert.Nil(t, vectors[0])
	assert.NotNil(t, vectors[1])
	assert.Equal(t, 1, provider.callCount())
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	b, _ := newTestBatcher(&scriptedProvider{}, 1)
	assert.Nil(t, b.EmbedBatch(context.Background(), nil))
}

func TestEmbedBatchRateLimitBacksOffExponentially(t *testing.T) {
	provider := &scriptedProvider{fn: func(call int, _ string) (any, error) {
		if call < 3 {
			return nil, errors.New("429 rate limit exceeded")
		}
		return []float32{42}, nil
	}}
	b, sleeps := newTestBatcher(provider, 1)

	vectors := b.EmbedBatch(context.Background(), []string{"a chunk of text"})
	require.NotNil(t, vectors[0])
	assert.Equal(t, 3, provider.callCount())
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *sleeps)
}

func TestEmbedBatchTransientRetriesExhausted(t *testing.T) {
	provider := &scriptedProvider{fn: func(_ int, _ string) (any, error) {
		return nil, errors.New("connection reset by peer")
	}}
	b, sleeps := newTestBatcher(provider, 1)

	vectors := b.EmbedBatch(context.Background(), []string{"a chunk of text"})
	assert.Nil(t, vectors[0])
	assert.Equal(t, maxEmbedAttempts, provider.callCount())
	// Linear backoff between transient attempts.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *sleeps)
}

func TestEmbedBatchFatalFailureDoesNotRetry(t *testing.T) {
	provider := &scriptedProvider{fn: func(_ int, _ string) (any, error) {
		return nil, errors.New("invalid argument")
	}}
	b, sleeps := newTestBatcher(provider, 1)

	vectors := b.EmbedBatch(context.Background(), []string{"a chunk of text"})
	assert.Nil(t, vectors[0])
	assert.Equal(t, 1, provider.callCount())
	assert.Empty(t, *sleeps)
}

func TestEmbedBatchItemFailureDoesNotAbortBatch(t *testing.T) {
	provider := &scriptedProvider{fn: func(_ int, text string) (any, error) {
		if text == "poison chunk" {
			return nil, errors.New("bad content")
		}
		return []float32{1}, nil
	}}
	b, _ := newTestBatcher(provider, 1)

	vectors := b.EmbedBatch(context.Background(), []string{"good chunk", "poison chunk", "other chunk"})
	assert.NotNil(t, vectors[0])
	assert.Nil(t, vectors[1])
	assert.NotNil(t, vectors[2])
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		msg  string
		want retryClass
	}{
		{"quota exceeded for project", retryRateLimit},
		{"Resource LIMIT reached", retryRateLimit},
		{"rate exceeded", retryRateLimit},
		{"dial tcp: connection refused", retryTransient},
		{"request timeout", retryTransient},
		{"invalid argument", retryNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyFailure(errors.New(tt.msg)), tt.msg)
	}
	assert.Equal(t, retryNone, classifyFailure(nil))
}

func TestNewBatcherDerivesPacingFromCredentials(t *testing.T) {
	b1 := NewBatcher(&scriptedProvider{}, 1, zap.NewNop())
	assert.Equal(t, 3, b1.batchSize)
	assert.Equal(t, 3*time.Second, b1.delay)

	b3 := NewBatcher(&scriptedProvider{}, 3, zap.NewNop())
	assert.Equal(t, 6, b3.batchSize)
	assert.Equal(t, 1*time.Second, b3.delay)

	// Many credentials clamp batch size at 10 and delay at the 500ms floor.
	b10 := NewBatcher(&scriptedProvider{}, 10, zap.NewNop())
	assert.Equal(t, 10, b10.batchSize)
	assert.Equal(t, 500*time.Millisecond, b10.delay)
}

func TestPacingDelayDoublesOnSlowBatch(t *testing.T) {
	b := NewBatcher(&scriptedProvider{}, 1, zap.NewNop())
	assert.Equal(t, 3*time.Second, b.pacingDelay(2*time.Second))
	assert.Equal(t, 6*time.Second, b.pacingDelay(11*time.Second))
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []float32
		ok   bool
	}{
		{"flat float32", []float32{1, 2}, []float32{1, 2}, true},
		{"flat float64", []float64{1.5, 2.5}, []float32{1.5, 2.5}, true},
		{"nested float32", [][]float32{{1, 2}}, []float32{1, 2}, true},
		{"nested float64 takes first", [][]float64{{1}, {2}}, []float32{1}, true},
		{"any numbers", []any{float64(1), 2, float32(3)}, []float32{1, 2, 3}, true},
		{"any nested once", []any{[]any{float64(7)}}, []float32{7}, true},
		{"map wrapper", map[string]any{"embedding": []float64{1, 2}}, []float32{1, 2}, true},
		{"map wrapper nested", map[string]any{"embedding": [][]float64{{7}}}, []float32{7}, true},
		{"nil", nil, nil, false},
		{"empty slice", []float32{}, nil, false},
		{"string", "not a vector", nil, false},
		{"any non-number", []any{"x"}, nil, false},
		{"too deep", []any{[]any{[]any{float64(1)}}}, nil, false},
		{"map without field", map[string]any{"values": []float64{1}}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeVector(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
