package gate

import (
	"context"
	"sync"
	"time"
)

// Gate is a check-and-set guard: TryAcquire returns true exactly once per
// key per ttl window, no matter how many callers race on it. Release ends a
// window early so the next TryAcquire on the key wins again.
type Gate interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type memoryGate struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryGate is the single-process fallback used when Redis is not
// configured. Windows are not shared across replicas.
func NewMemoryGate() Gate {
	return &memoryGate{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (g *memoryGate) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if until, ok := g.expires[key]; ok && now.Before(until) {
		return false, nil
	}
	g.expires[key] = now.Add(ttl)

	// Opportunistic sweep so long-lived processes do not accumulate keys.
	if len(g.expires) > 1024 {
		for k, until := range g.expires {
			if now.After(until) {
				delete(g.expires, k)
			}
		}
	}
	return true, nil
}

func (g *memoryGate) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.expires, key)
	return nil
}
