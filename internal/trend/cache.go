package trend

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheTTL matches the upstream trend data refresh cadence.
const DefaultCacheTTL = 24 * time.Hour

type cachedScore struct {
	score     float64
	fetchedAt time.Time
}

// CachedProvider wraps another Provider with an in-memory TTL cache.
// Failed lookups are not cached, so the next call retries the backend.
type CachedProvider struct {
	inner Provider
	ttl   time.Duration

	mu     sync.RWMutex
	scores map[string]cachedScore
	now    func() time.Time
}

// NewCachedProvider creates a caching wrapper. A non-positive ttl uses
// DefaultCacheTTL.
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{
		inner:  inner,
		ttl:    ttl,
		scores: make(map[string]cachedScore),
		now:    time.Now,
	}
}

// TrendScore returns the cached score when fresh, otherwise delegates to the
// wrapped provider and caches a successful result.
func (p *CachedProvider) TrendScore(ctx context.Context, designer, model string) (float64, error) {
	key := trendKey(designer, model)

	p.mu.RLock()
	entry, ok := p.scores[key]
	p.mu.RUnlock()

	if ok && p.now().Sub(entry.fetchedAt) < p.ttl {
		return entry.score, nil
	}

	score, err := p.inner.TrendScore(ctx, designer, model)
	if err != nil {
		return score, err
	}

	p.mu.Lock()
	p.scores[key] = cachedScore{score: score, fetchedAt: p.now()}
	p.mu.Unlock()

	return score, nil
}

// Ensure CachedProvider implements Provider.
var _ Provider = (*CachedProvider)(nil)
