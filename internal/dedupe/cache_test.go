// ABOUTME: Tests for the dedupe cache backing idempotent requests.
// ABOUTME: Validates TTL expiration, size limits, single computation, and goroutine cleanup.

package dedupe

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCache_GetPut(t *testing.T) {
	cache := New[uint64](5*time.Minute, 100)
	defer cache.Close()

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Put("alice:k1", 7)
	v, ok := cache.Get("alice:k1")
	assert.True(t, ok)
	assert.Equal(t, uint64(7), v)
}

func TestCache_Expired(t *testing.T) {
	cache := New[string](10*time.Millisecond, 100)
	defer cache.Close()

	cache.Put("k", "v")
	_, ok := cache.Get("k")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	cache := New[int](5*time.Minute, 3)
	defer cache.Close()

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)
	cache.Put("d", 4)

	assert.Equal(t, 3, cache.Len())
	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	v, ok := cache.Get("d")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestCache_PutRefreshesOrder(t *testing.T) {
	cache := New[int](5*time.Minute, 2)
	defer cache.Close()

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("a", 10) // a is now newest
	cache.Put("c", 3)  // evicts b

	_, ok := cache.Get("b")
	assert.False(t, ok)
	v, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestCache_GetOrCompute(t *testing.T) {
	cache := New[uint64](5*time.Minute, 100)
	defer cache.Close()

	calls := 0
	fn := func() (uint64, error) {
		calls++
		return 42, nil
	}

	v, loaded, err := cache.GetOrCompute("k", fn)
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, uint64(42), v)

	v, loaded, err = cache.GetOrCompute("k", fn)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, uint64(42), v)
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrCompute_ErrorNotStored(t *testing.T) {
	cache := New[uint64](5*time.Minute, 100)
	defer cache.Close()

	boom := errors.New("boom")
	_, _, err := cache.GetOrCompute("k", func() (uint64, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	_, ok := cache.Get("k")
	assert.False(t, ok)
}

func TestCache_GetOrCompute_ConcurrentSingleComputation(t *testing.T) {
	cache := New[int64](5*time.Minute, 100)
	defer cache.Close()

	var calls atomic.Int64
	var wg sync.WaitGroup
	results := make([]int64, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := cache.GetOrCompute("same", func() (int64, error) {
				return calls.Add(1), nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, int64(1), v)
	}
}

func TestCache_CheckAndMark(t *testing.T) {
	cache := New[struct{}](5*time.Minute, 100)
	defer cache.Close()

	assert.False(t, cache.CheckAndMark("nonce-1"), "first use")
	assert.True(t, cache.CheckAndMark("nonce-1"), "replay")
	assert.False(t, cache.CheckAndMark("nonce-2"))
}

func TestCache_RunCleanupRemovesExpired(t *testing.T) {
	cache := New[int](10*time.Millisecond, 100)
	defer cache.Close()

	cache.Put("a", 1)
	cache.Put("b", 2)
	time.Sleep(20 * time.Millisecond)
	cache.Put("c", 3)

	cache.runCleanup()
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 1, cache.order.Len())
}

func TestCache_CloseIdempotent(t *testing.T) {
	cache := New[int](time.Minute, 10)
	cache.Close()
	cache.Close()
}
