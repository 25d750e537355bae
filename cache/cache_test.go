package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/datasapiens/cachier"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	opts := DefaultCacheOptions()
	require.NoError(t, opts.Set("type=lru&max_keys=5"))
	require.Equal(t, ENGINE_LRU, opts.Type)
	require.Equal(t, 5, opts.MaxKeys)

	var fromJSON CacheOptions
	require.NoError(t, fromJSON.UnmarshalJSON([]byte(`{"type": "redis", "url": "redis://localhost:6379/1"}`)))
	require.Equal(t, "redis://localhost:6379/1", fromJSON.URL)

	_, err := NewEngine(CacheOptions{Type: ENGINE_REDIS})
	require.Error(t, err)
	_, err = NewEngine(CacheOptions{Type: "memcached"})
	require.Error(t, err)
} // end TestOptions()

func computeTwice(t *testing.T, c *cachier.Cache[any]) {
	calls := 0
	getter := func() (*any, error) {
		calls++
		var v any = []uint32{1, 2, 3}
		return &v, nil
	}
	ids, hit, err := GetOrComputeValueWithTTL[[]uint32](c, "catalog:gi", getter, time.Hour)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, []uint32{1, 2, 3}, *ids)

	ids, hit, err = GetOrComputeValueWithTTL[[]uint32](c, "catalog:gi", getter, time.Hour)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []uint32{1, 2, 3}, *ids)
	require.Equal(t, 1, calls)
} // end computeTwice()

func TestMemoryEngine(t *testing.T) {
	c, err := New(DefaultCacheOptions())
	require.NoError(t, err)
	computeTwice(t, c)
} // end TestMemoryEngine()

func TestLRUEngine(t *testing.T) {
	c, err := New(CacheOptions{Type: ENGINE_LRU, MaxKeys: 2})
	require.NoError(t, err)
	computeTwice(t, c)

	engine := NewLRUEngine(2, 0)
	require.NoError(t, engine.Set("a", 1))
	require.NoError(t, engine.Set("b", 2))
	require.NoError(t, engine.Set("c", 3))
	_, err = engine.Get("a")
	require.True(t, errors.Is(err, cachier.ErrNotFound))
	require.ElementsMatch(t, []string{"b", "c"}, mustKeys(t, engine))
	require.NoError(t, engine.Purge())
	require.Empty(t, mustKeys(t, engine))
} // end TestLRUEngine()

func mustKeys(t *testing.T, e *LRUEngine) []string {
	keys, err := e.Keys()
	require.NoError(t, err)
	return keys
} // end mustKeys()

func TestGetterError(t *testing.T) {
	c, err := New(CacheOptions{Type: ENGINE_LRU})
	require.NoError(t, err)
	boom := errors.New("offline")
	_, _, err = GetOrComputeValueWithTTL[[]uint32](c, "k", func() (*any, error) { return nil, boom }, time.Minute)
	require.ErrorContains(t, err, "offline")
} // end TestGetterError()
