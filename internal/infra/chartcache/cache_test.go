package chartcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheStoresCharts(t *testing.T) {
	cache, err := New(16, time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	_, found := cache.Get(42)
	require.False(t, found)

	cache.Set(42, "iVBORw0KGgo=")
	cache.Wait()

	chart, found := cache.Get(42)
	require.True(t, found)
	require.Equal(t, "iVBORw0KGgo=", chart)
}

func TestCacheWithoutTTL(t *testing.T) {
	cache, err := New(16, 0)
	require.NoError(t, err)
	defer cache.Close()

	cache.Set(7, "chart")
	cache.Wait()
	chart, found := cache.Get(7)
	require.True(t, found)
	require.Equal(t, "chart", chart)
}
