package advisory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/syncup/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func TestLoadServesFreshEntryAndReloadsStale(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}
	kv := store.NewMemoryKV()
	c := New(kv, clk.Now, nil)
	key := Key{UID: "u1", Domain: DomainWeeklySuggestions}

	calls := 0
	load := func(v string) func(context.Context) ([]string, error) {
		return func(context.Context) ([]string, error) {
			calls++
			return []string{v}, nil
		}
	}

	got, err := Load(ctx, c, key, DefaultSuggestionsTTL, load("first"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, got)
	assert.Equal(t, 1, calls)

	clk.Advance(24 * time.Hour)
	got, err = Load(ctx, c, key, DefaultSuggestionsTTL, load("second"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, got, "entry within its TTL is served without a call")
	assert.Equal(t, 1, calls)

	clk.Advance(3 * 24 * time.Hour)
	got, err = Load(ctx, c, key, DefaultSuggestionsTTL, load("third"))
	require.NoError(t, err)
	assert.Equal(t, []string{"third"}, got)
	assert.Equal(t, 2, calls)

	var stored []string
	hit, err := c.Get(ctx, key, &stored)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"third"}, stored, "stale entry is overwritten")
}

func TestExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}
	c := New(store.NewMemoryKV(), clk.Now, nil)
	key := Key{UID: "u1", Domain: DomainStalledFollowUps}

	require.NoError(t, c.Set(ctx, key, 42, time.Hour))

	clk.Advance(time.Hour - time.Millisecond)
	var v int
	hit, err := c.Get(ctx, key, &v)
	require.NoError(t, err)
	assert.True(t, hit)

	clk.Advance(time.Millisecond)
	hit, err = c.Get(ctx, key, &v)
	require.NoError(t, err)
	assert.False(t, hit, "entry is invalid once now reaches expiry")
}

func TestLoadErrorIsNotStored(t *testing.T) {
	ctx := context.Background()
	c := New(store.NewMemoryKV(), func() time.Time { return t0 }, nil)
	key := Key{UID: "u1", Domain: DomainWeeklySuggestions}

	boom := errors.New("boom")
	got, err := Load(ctx, c, key, time.Hour, func(context.Context) ([]string, error) {
		return []string{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, got)

	var stored []string
	hit, err := c.Get(ctx, key, &stored)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestKeysAreScopedByUserAndDomain(t *testing.T) {
	ctx := context.Background()
	c := New(store.NewMemoryKV(), func() time.Time { return t0 }, nil)

	require.NoError(t, c.Set(ctx, Key{UID: "u1", Domain: DomainWeeklySuggestions}, "a", time.Hour))

	var v string
	hit, _ := c.Get(ctx, Key{UID: "u2", Domain: DomainWeeklySuggestions}, &v)
	assert.False(t, hit)
	hit, _ = c.Get(ctx, Key{UID: "u1", Domain: DomainStalledFollowUps}, &v)
	assert.False(t, hit)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	c := New(kv, func() time.Time { return t0 }, nil)
	key := Key{UID: "u1", Domain: DomainWeeklySuggestions}
	require.NoError(t, kv.Set(ctx, key.String(), "{not json"))

	var v string
	hit, err := c.Get(ctx, key, &v)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestConcurrentMissesShareOneCall(t *testing.T) {
	ctx := context.Background()
	c := New(store.NewMemoryKV(), func() time.Time { return t0 }, nil)
	key := Key{UID: "u1", Domain: DomainWeeklySuggestions}

	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Load(ctx, c, key, time.Hour, func(context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 7, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestSetRejectsNonPositiveTTL(t *testing.T) {
	c := New(store.NewMemoryKV(), nil, nil)
	assert.Error(t, c.Set(context.Background(), Key{UID: "u", Domain: DomainWeeklySuggestions}, 1, 0))
}
