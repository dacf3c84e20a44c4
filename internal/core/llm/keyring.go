package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// perKeyRatePerSecond is a conservative outbound pace per credential; the
// ring's aggregate rate scales with the number of keys.
const perKeyRatePerSecond = 2.0

// keyRing holds one Gemini client per API key and hands them out through an
// explicit rotating index. Rotation exists purely to raise achievable
// throughput across credentials, not for correctness.
type keyRing struct {
	mu      sync.Mutex
	clients []*genai.Client
	next    int
	limiter *rate.Limiter
}

func newKeyRing(ctx context.Context, apiKeys []string) (*keyRing, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("no API keys provided")
	}
	clients := make([]*genai.Client, 0, len(apiKeys))
	for _, key := range apiKeys {
		cl, err := genai.NewClient(ctx, option.WithAPIKey(key))
		if err != nil {
			for _, c := range clients {
				_ = c.Close()
			}
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		clients = append(clients, cl)
	}
	return &keyRing{
		clients: clients,
		limiter: rate.NewLimiter(rate.Limit(perKeyRatePerSecond*float64(len(apiKeys))), len(apiKeys)),
	}, nil
}

// acquire waits for rate-limit headroom and returns the next client in
// rotation.
func (r *keyRing) acquire(ctx context.Context) (*genai.Client, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	cl := r.clients[r.next]
	r.next = (r.next + 1) % len(r.clients)
	r.mu.Unlock()
	return cl, nil
}

func (r *keyRing) close() error {
	var firstErr error
	for _, cl := range r.clients {
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
