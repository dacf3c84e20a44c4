package ingest

import "time"

// Tier classifies a document by byte size. Larger tiers get longer timeout
// budgets and smaller embedding batches, bounding per-batch blast radius
// and memory.
type Tier string

const (
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
	TierXLarge Tier = "xlarge"
)

const (
	smallMaxBytes  = 10 << 20
	mediumMaxBytes = 50 << 20
	largeMaxBytes  = 200 << 20

	// xlargePageCap bounds extraction for documents beyond the large tier
	// instead of extracting unboundedly.
	xlargePageCap = 1000
)

// TierConfig is the per-tier processing budget.
type TierConfig struct {
	Tier      Tier
	Timeout   time.Duration
	BatchSize int
}

// TierFor classifies byteSize and derives the batch size from the number of
// available upstream credentials.
func TierFor(byteSize int64, numCredentials int) TierConfig {
	k := numCredentials
	if k < 1 {
		k = 1
	}
	switch {
	case byteSize <= smallMaxBytes:
		return TierConfig{Tier: TierSmall, Timeout: 30 * time.Second, BatchSize: clamp(k*3, 5, 15)}
	case byteSize <= mediumMaxBytes:
		return TierConfig{Tier: TierMedium, Timeout: 120 * time.Second, BatchSize: clamp(k*2, 5, 10)}
	case byteSize <= largeMaxBytes:
		return TierConfig{Tier: TierLarge, Timeout: 300 * time.Second, BatchSize: clamp(k, 3, 8)}
	default:
		return TierConfig{Tier: TierXLarge, Timeout: 600 * time.Second, BatchSize: clamp(k, 3, 8)}
	}
}

// SkipFailedBatches reports whether a failed batch job is logged and
// skipped rather than aborting the whole ingestion. Aborting a large
// document after expensive partial work is wasteful, so the big tiers run
// best-effort.
func (c TierConfig) SkipFailedBatches() bool {
	return c.Tier == TierLarge || c.Tier == TierXLarge
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
