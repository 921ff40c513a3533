// Package advisory caches AI-generated results in a flat key-value medium.
//
// Entries carry their own expiry because the medium has none. Refresh is lazy:
// a stale or unreadable entry is treated as a miss and overwritten on the next
// successful load.
package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/syncup/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

// Domain names a kind of cached advisory result.
type Domain string

const (
	// DomainWeeklySuggestions holds a member's suggested connections.
	DomainWeeklySuggestions Domain = "weekly-suggestions"
	// DomainStalledFollowUps holds a member's stalled-conversation nudges.
	DomainStalledFollowUps Domain = "stalled-followups"
)

// Default lifetimes per domain.
const (
	DefaultSuggestionsTTL = 72 * time.Hour
	DefaultFollowUpsTTL   = time.Hour
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "syncup",
		Subsystem: "advisory_cache",
		Name:      "lookups_total",
		Help:      "Advisory cache lookups by domain and result (hit, miss, stale).",
	}, []string{"domain", "result"})

	cacheStores = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "syncup",
		Subsystem: "advisory_cache",
		Name:      "stores_total",
		Help:      "Advisory cache entries written by domain.",
	}, []string{"domain"})
)

// Key identifies one cached result.
type Key struct {
	UID    string
	Domain Domain
}

// String returns the storage key.
func (k Key) String() string {
	return "advisory:" + string(k.Domain) + ":" + k.UID
}

// entry is the stored envelope.
type entry struct {
	Payload json.RawMessage `json:"payload"`
	Expiry  int64           `json:"expiry"` // unix millis
}

// Cache is a TTL cache over store.KV.
type Cache struct {
	kv     store.KV
	now    func() time.Time
	logger *slog.Logger
	group  singleflight.Group
}

// New creates a cache over kv. A nil clock uses time.Now.
func New(kv store.KV, now func() time.Time, logger *slog.Logger) *Cache {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{kv: kv, now: now, logger: logger}
}

// Get decodes the entry for key into dst if it exists and has not expired.
// Corrupt entries are reported as misses.
func (c *Cache) Get(ctx context.Context, key Key, dst any) (bool, error) {
	raw, ok, err := c.kv.Get(ctx, key.String())
	if err != nil {
		return false, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	if !ok {
		cacheLookups.WithLabelValues(string(key.Domain), "miss").Inc()
		return false, nil
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.logger.Warn("Discarding corrupt cache entry", "key", key.String(), "error", err)
		cacheLookups.WithLabelValues(string(key.Domain), "miss").Inc()
		return false, nil
	}
	if c.now().UnixMilli() >= e.Expiry {
		cacheLookups.WithLabelValues(string(key.Domain), "stale").Inc()
		return false, nil
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		c.logger.Warn("Discarding undecodable cache payload", "key", key.String(), "error", err)
		cacheLookups.WithLabelValues(string(key.Domain), "miss").Inc()
		return false, nil
	}
	cacheLookups.WithLabelValues(string(key.Domain), "hit").Inc()
	return true, nil
}

// Set stores value under key until now+ttl.
func (c *Cache) Set(ctx context.Context, key Key, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("cache ttl must be positive")
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache payload: %w", err)
	}
	data, err := json.Marshal(entry{
		Payload: payload,
		Expiry:  c.now().Add(ttl).UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.kv.Set(ctx, key.String(), string(data)); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	cacheStores.WithLabelValues(string(key.Domain)).Inc()
	return nil
}

// Load returns the cached value for key, or calls fn and stores its result.
// Concurrent misses on the same key share a single fn call. When fn fails its
// value is still returned alongside the error, but nothing is stored.
// Medium read/write failures degrade to an uncached call.
func Load[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var cached T
	hit, err := c.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("Advisory cache read failed", "key", key.String(), "error", err)
	}
	if hit {
		return cached, nil
	}

	type result struct {
		value T
		err   error
	}
	v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
		value, err := fn(ctx)
		if err != nil {
			return result{value: value, err: err}, nil
		}
		if err := c.Set(ctx, key, value, ttl); err != nil {
			c.logger.Warn("Advisory cache write failed", "key", key.String(), "error", err)
		}
		return result{value: value}, nil
	})
	r := v.(result)
	return r.value, r.err
}
