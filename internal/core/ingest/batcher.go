package ingest

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"docquery/internal/core"
)

const (
	// minEmbedLen is the shortest text worth submitting upstream; anything
	// shorter immediately yields a nil vector.
	minEmbedLen = 5

	maxEmbedAttempts = 3

	// slowBatchThreshold treats a slow batch as an implicit rate-limit
	// signal and doubles the following inter-batch delay.
	slowBatchThreshold = 10 * time.Second
)

// retryClass is the explicit classification of an embedding failure. It
// replaces exception-type inspection with a bounded, inspectable decision.
type retryClass int

const (
	retryNone retryClass = iota
	retryRateLimit
	retryTransient
)

// classifyFailure buckets an upstream error by its message: quota-like
// failures back off exponentially, connection-like failures back off
// linearly, everything else does not retry.
func classifyFailure(err error) retryClass {
	if err == nil {
		return retryNone
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"), strings.Contains(msg, "limit"), strings.Contains(msg, "rate"):
		return retryRateLimit
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection"):
		return retryTransient
	default:
		return retryNone
	}
}

// Batcher turns a list of texts into vectors with adaptive batch sizing,
// inter-batch pacing and per-item retry. Batch size and pacing derive from
// the number of upstream credentials: more parallel credentials permit
// larger batches and shorter delays.
type Batcher struct {
	provider  core.EmbeddingProvider
	logger    *zap.Logger
	batchSize int
	delay     time.Duration
	retryBase time.Duration

	// sleep is injectable so tests can observe pacing without waiting.
	sleep func(ctx context.Context, d time.Duration)
}

func NewBatcher(provider core.EmbeddingProvider, numCredentials int, logger *zap.Logger) *Batcher {
	k := numCredentials
	if k < 1 {
		k = 1
	}
	delay := time.Duration(float64(3*time.Second) / float64(k))
	if delay < 500*time.Millisecond {
		delay = 500 * time.Millisecond
	}
	return &Batcher{
		provider:  provider,
		logger:    logger,
		batchSize: clamp(k*2, 3, 10),
		delay:     delay,
		retryBase: time.Second,
		sleep:     sleepCtx,
	}
}

// BatchSize reports the computed per-batch concurrency.
func (b *Batcher) BatchSize() int { return b.batchSize }

// EmbedBatch embeds every text, returning one entry per input in input
// order. A nil entry marks an unrecoverable per-item failure; item failures
// never abort the batch.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}

	vectors := make([][]float32, len(texts))
	totalBatches := (len(texts) + b.batchSize - 1) / b.batchSize

	for i := 0; i < len(texts); i += b.batchSize {
		end := i + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batchNum := i/b.batchSize + 1

		started := time.Now()
		var wg sync.WaitGroup
		for j := i; j < end; j++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				vectors[idx] = b.embedOne(ctx, texts[idx], idx)
			}(j)
		}
		wg.Wait()
		elapsed := time.Since(started)

		ok := 0
		for j := i; j < end; j++ {
			if vectors[j] != nil {
				ok++
			}
		}
		b.logger.Debug("embedding batch done",
			zap.Int("batch", batchNum),
			zap.Int("total_batches", totalBatches),
			zap.Int("ok", ok),
			zap.Int("size", end-i),
			zap.Duration("elapsed", elapsed))

		if end < len(texts) {
			b.sleep(ctx, b.pacingDelay(elapsed))
		}
	}
	return vectors
}

// pacingDelay is the congestion-avoidance heuristic: a slow batch is read
// as an implicit rate-limit signal and doubles the next inter-batch delay.
func (b *Batcher) pacingDelay(elapsed time.Duration) time.Duration {
	if elapsed > slowBatchThreshold {
		b.logger.Warn("slow batch, doubling inter-batch delay",
			zap.Duration("elapsed", elapsed), zap.Duration("delay", b.delay*2))
		return b.delay * 2
	}
	return b.delay
}

// embedOne runs the bounded retry loop for a single text. The attempt count
// and failure class are carried explicitly; only rate-limit-like and
// transient-connection-like failures retry.
func (b *Batcher) embedOne(ctx context.Context, text string, idx int) []float32 {
	if len(strings.TrimSpace(text)) < minEmbedLen {
		b.logger.Debug("chunk too short to embed", zap.Int("chunk", idx))
		return nil
	}

	for attempt := 0; attempt < maxEmbedAttempts; attempt++ {
		raw, err := b.provider.EmbedText(ctx, text)
		if err == nil {
			vec, ok := normalizeVector(raw)
			if !ok {
				b.logger.Warn("could not normalize embedding", zap.Int("chunk", idx))
				return nil
			}
			return vec
		}

		class := classifyFailure(err)
		last := attempt == maxEmbedAttempts-1
		switch {
		case class == retryRateLimit && !last:
			backoff := b.retryBase * (1 << attempt)
			b.logger.Warn("rate limit on embedding, backing off",
				zap.Int("chunk", idx), zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff))
			b.sleep(ctx, backoff)
		case class == retryTransient && !last:
			backoff := b.retryBase * time.Duration(attempt+1)
			b.logger.Warn("transient failure on embedding, retrying",
				zap.Int("chunk", idx), zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff))
			b.sleep(ctx, backoff)
		default:
			b.logger.Error("embedding failed",
				zap.Int("chunk", idx), zap.Int("attempt", attempt+1), zap.Error(err))
			return nil
		}
	}
	return nil
}

// normalizeVector flattens a raw provider result to []float32. It accepts
// flat float slices, one level of list nesting, and map wrappers carrying an
// "embedding" field; anything else fails.
func normalizeVector(raw any) ([]float32, bool) {
	return normalizeVectorDepth(raw, 0)
}

func normalizeVectorDepth(raw any, depth int) ([]float32, bool) {
	if raw == nil || depth > 1 {
		return nil, false
	}
	switch v := raw.(type) {
	case []float32:
		if len(v) == 0 {
			return nil, false
		}
		return v, true
	case []float64:
		if len(v) == 0 {
			return nil, false
		}
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(x)
		}
		return out, true
	case [][]float32:
		if len(v) == 0 {
			return nil, false
		}
		return normalizeVectorDepth(v[0], depth+1)
	case [][]float64:
		if len(v) == 0 {
			return nil, false
		}
		return normalizeVectorDepth(v[0], depth+1)
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		if _, nested := v[0].([]any); nested {
			return normalizeVectorDepth(v[0], depth+1)
		}
		out := make([]float32, 0, len(v))
		for _, x := range v {
			switch n := x.(type) {
			case float64:
				out = append(out, float32(n))
			case float32:
				out = append(out, n)
			case int:
				out = append(out, float32(n))
			default:
				return nil, false
			}
		}
		return out, true
	case map[string]any:
		// Unwrapping the object wrapper does not consume the one allowed
		// level of list nesting.
		inner, ok := v["embedding"]
		if !ok {
			return nil, false
		}
		return normalizeVectorDepth(inner, depth)
	default:
		return nil, false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
