package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/careops/internal/infra/chartcache"
	"github.com/yanqian/careops/internal/infra/config"
	"github.com/yanqian/careops/pkg/metrics"
)

func TestProvideChartCacheCleanupClosesCache(t *testing.T) {
	cfg := &config.Config{}
	cfg.Forecast.ChartCache = config.ChartCacheConfig{Enabled: true, Size: 8, TTL: time.Minute}

	cache, cleanup := provideChartCache(cfg, newTestLogger())
	require.NotNil(t, cache)
	cache.Set(42, "aW1hZ2U=")
	cache.(*chartcache.Cache).Wait()
	chart, ok := cache.Get(42)
	require.True(t, ok)
	require.Equal(t, "aW1hZ2U=", chart)

	cleanup()
	_, ok = cache.Get(42)
	require.False(t, ok)
}

func TestProvideChartCacheDisabled(t *testing.T) {
	cache, cleanup := provideChartCache(&config.Config{}, newTestLogger())
	require.Nil(t, cache)
	require.NotPanics(t, cleanup)
}

func TestProvideMetricsCleanup(t *testing.T) {
	recorder, cleanup := provideMetrics(&config.Config{}, newTestLogger())
	require.Equal(t, metrics.Noop{}, recorder)
	require.NotPanics(t, cleanup)

	cfg := &config.Config{}
	cfg.Metrics = config.MetricsConfig{Enabled: true, Addr: "127.0.0.1:8125", Namespace: "careops.", SampleRate: 1}
	recorder, cleanup = provideMetrics(cfg, newTestLogger())
	require.IsType(t, &metrics.StatsdRecorder{}, recorder)
	recorder.Count("forecast.request", 1)
	require.NotPanics(t, cleanup)
}

func TestProvideStoresWithoutBackendsUseMemory(t *testing.T) {
	store, cleanup := provideFallbackStore(&config.Config{}, newTestLogger())
	require.NotNil(t, store)
	require.NotPanics(t, cleanup)

	repo, cleanup := provideAuditRepository(&config.Config{}, newTestLogger())
	require.NotNil(t, repo)
	require.NotPanics(t, cleanup)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
