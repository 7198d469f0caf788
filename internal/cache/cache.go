// Package cache stores encoded chart outcomes keyed by a hash of the
// normalised interaction. Two backends exist: a bounded in-process map and
// Redis for deployments running several dashboard replicas.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/banshee-data/mortality.report/internal/timeutil"
)

// Cache is a byte-value cache. A miss is reported with ok=false and a nil
// error; errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte) error
}

// Memory is a bounded in-process cache. When full, the oldest entry is
// evicted.
type Memory struct {
	mu      sync.Mutex
	max     int
	ttl     time.Duration
	clock   timeutil.Clock
	entries map[string]memEntry
	order   []string
}

type memEntry struct {
	val    []byte
	stored time.Time
}

// NewMemory returns a cache holding at most max entries (default 256).
// Entries never expire unless WithTTL is set.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 256
	}
	return &Memory{max: max, clock: timeutil.RealClock{}, entries: make(map[string]memEntry, max)}
}

// WithTTL expires entries ttl after they were stored, as measured by clock.
// A nil clock uses the wall clock.
func (m *Memory) WithTTL(ttl time.Duration, clock timeutil.Clock) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttl = ttl
	if clock != nil {
		m.clock = clock
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.ttl > 0 && m.clock.Since(e.stored) >= m.ttl {
		// Stale entries stay in order and are reclaimed by eviction.
		return nil, false, nil
	}
	return e.val, true, nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		for len(m.order) >= m.max {
			delete(m.entries, m.order[0])
			m.order = m.order[1:]
		}
		m.order = append(m.order, key)
	}
	m.entries[key] = memEntry{val: val, stored: m.clock.Now()}
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Redis stores entries under a key prefix with a TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// OpenRedis connects to addr. It returns nil when addr is empty so callers
// can fall back to the memory cache.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewRedis wraps client. A non-positive ttl defaults to one hour.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if prefix == "" {
		prefix = "mortality:chart:"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, val []byte) error {
	return r.client.Set(ctx, r.prefix+key, val, r.ttl).Err()
}

// Ping checks connectivity at startup.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
