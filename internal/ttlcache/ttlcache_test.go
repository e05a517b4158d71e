package ttlcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := New[string](time.Hour)
	c.Set("k", "v")

	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)

	_, ok = c.Get("missing")
	require.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New[int](20 * time.Millisecond)
	c.Set("k", 1)

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("k")
	require.False(t, ok, "entry should expire after ttl")
	require.Equal(t, 0, c.Len())
}

func TestOverwriteResetsTimer(t *testing.T) {
	c := New[int](50 * time.Millisecond)
	c.Set("k", 1)
	time.Sleep(30 * time.Millisecond)
	c.Set("k", 2)
	time.Sleep(30 * time.Millisecond)

	got, ok := c.Get("k")
	require.True(t, ok, "overwrite should restart the ttl")
	require.Equal(t, 2, got)
}

func TestDeleteAndClear(t *testing.T) {
	c := New[int](time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	require.False(t, ok)

	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestGetOrSetSingleFlight(t *testing.T) {
	c := New[string](time.Hour)

	var calls int32
	release := make(chan struct{})
	producer := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "produced", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrSet("k", producer)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "producer must run once")
	require.Equal(t, "produced", results[0])
	require.Equal(t, "produced", results[1])
}

func TestGetOrSetFailureReleasesKey(t *testing.T) {
	c := New[string](time.Hour)

	_, err := c.GetOrSet("k", func() (string, error) {
		return "", errors.New("boom")
	})
	require.Error(t, err)

	_, ok := c.Get("k")
	require.False(t, ok, "failed production must not be memoized")

	v, err := c.GetOrSet("k", func() (string, error) {
		return "second", nil
	})
	require.NoError(t, err)
	require.Equal(t, "second", v)
}

func TestGetOrSetUsesCachedValue(t *testing.T) {
	c := New[string](time.Hour)
	c.Set("k", "cached")

	v, err := c.GetOrSet("k", func() (string, error) {
		t.Fatal("producer must not run for a cached key")
		return "", nil
	})
	require.NoError(t, err)
	require.Equal(t, "cached", v)
}
