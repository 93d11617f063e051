package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
)

type entry struct {
	body jx.Raw
	ttl  time.Duration
}

// Memory is an in-memory cache implementation using otter. Each entry expires
// a fixed time after creation, the time being looked up from the tier table.
type Memory struct {
	cache   *otter.Cache[string, entry]
	ttls    map[Tier]time.Duration
	counter *stats.Counter
}

// NewMemory creates a cache bounded to maxSize entries. ttls must contain a
// positive TierDefault; other tiers fall back to it when absent.
func NewMemory(ttls map[Tier]time.Duration, maxSize int) (*Memory, error) {
	if ttls[TierDefault] <= 0 {
		return nil, errors.New("cache: default TTL must be positive")
	}
	if maxSize <= 0 {
		return nil, errors.Errorf("cache: maximum size must be positive, got %d", maxSize)
	}

	table := make(map[Tier]time.Duration, len(ttls))
	for tier, ttl := range ttls {
		if ttl > 0 {
			table[tier] = ttl
		}
	}

	counter := stats.NewCounter()
	c := otter.Must(&otter.Options[string, entry]{
		MaximumSize:   maxSize,
		StatsRecorder: counter,
		ExpiryCalculator: otter.ExpiryCreatingFunc(func(e otter.Entry[string, entry]) time.Duration {
			return e.Value.ttl
		}),
	})

	return &Memory{
		cache:   c,
		ttls:    table,
		counter: counter,
	}, nil
}

// Get retrieves a body from the cache.
func (m *Memory) Get(ctx context.Context, key string) (jx.Raw, bool, error) {
	e, ok := m.cache.GetIfPresent(key)
	if !ok {
		return nil, false, nil
	}
	return e.body, true, nil
}

// Set stores a body in the cache.
func (m *Memory) Set(ctx context.Context, key string, tier Tier, value jx.Raw) error {
	m.cache.Set(key, entry{body: value, ttl: m.TTL(tier)})
	return nil
}

// InvalidateAll removes every entry.
func (m *Memory) InvalidateAll(ctx context.Context) error {
	m.cache.InvalidateAll()
	return nil
}

// TTL returns the time-to-live applied to entries of tier.
func (m *Memory) TTL(tier Tier) time.Duration {
	if ttl, ok := m.ttls[tier]; ok {
		return ttl
	}
	return m.ttls[TierDefault]
}

// Stats returns hit and miss counts since creation.
func (m *Memory) Stats() (hits, misses uint64) {
	s := m.counter.Snapshot()
	return s.Hits, s.Misses
}
