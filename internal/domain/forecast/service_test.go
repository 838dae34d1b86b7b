package forecast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/careops/pkg/errors"
	"github.com/yanqian/careops/pkg/metrics"
)

func TestServiceForecastRendersAndCaches(t *testing.T) {
	renderer := &stubRenderer{image: "aW1hZ2U="}
	cache := newMapCache()
	svc := NewService(Config{LowThreshold: 10}, renderer, cache, metrics.Noop{}, newTestLogger())
	params := Parameters{CurrentStock: 20, UsagePerHour: 10, IncomingSupply: 50, SupplyArrivalTime: 2, ForecastDuration: 5}

	resp, err := svc.Forecast(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, []int{10, 0}, resp.StockLevels)
	require.Equal(t, 1, *resp.RunOutHour)
	require.Equal(t, 10, resp.LowThreshold)
	require.Equal(t, "aW1hZ2U=", resp.GraphBase64)
	require.Equal(t, []int{0, 1}, renderer.hours)
	require.Equal(t, 10, renderer.threshold)

	again, err := svc.Forecast(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, resp, again)
	require.Equal(t, 1, renderer.calls)
}

func TestServiceForecastRenderFailureKeepsSeries(t *testing.T) {
	renderer := &stubRenderer{err: errors.New("no fonts")}
	svc := NewService(Config{LowThreshold: 10}, renderer, nil, metrics.Noop{}, newTestLogger())

	resp, err := svc.Forecast(context.Background(), Parameters{CurrentStock: 100, ForecastDuration: 2, SupplyArrivalTime: 5})
	require.NoError(t, err)
	require.Equal(t, []int{100, 100, 100}, resp.StockLevels)
	require.Nil(t, resp.RunOutHour)
	require.Empty(t, resp.GraphBase64)
}

func TestServiceForecastValidation(t *testing.T) {
	svc := NewService(Config{LowThreshold: 10, MaxDuration: 48}, &stubRenderer{}, nil, metrics.Noop{}, newTestLogger())

	_, err := svc.Forecast(context.Background(), Parameters{CurrentStock: -5, ForecastDuration: 2})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Forecast(context.Background(), Parameters{CurrentStock: 5, ForecastDuration: 49})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	require.Contains(t, err.Error(), "48")
}

func TestServiceForecastDefaultsMaxDuration(t *testing.T) {
	svc := NewService(Config{LowThreshold: 10}, &stubRenderer{}, nil, metrics.Noop{}, newTestLogger())

	_, err := svc.Forecast(context.Background(), Parameters{CurrentStock: 5, UsagePerHour: 10, ForecastDuration: DefaultMaxDuration + 1})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	resp, err := svc.Forecast(context.Background(), Parameters{CurrentStock: 5, UsagePerHour: 10, ForecastDuration: DefaultMaxDuration})
	require.NoError(t, err)
	require.Equal(t, []int{0}, resp.StockLevels)
}

func TestCacheKeyDependsOnEveryInput(t *testing.T) {
	base := Parameters{CurrentStock: 1, UsagePerHour: 2, IncomingSupply: 3, SupplyArrivalTime: 4, ForecastDuration: 5}
	seen := map[uint64]struct{}{CacheKey(base, 10): {}}
	variants := []Parameters{
		{CurrentStock: 9, UsagePerHour: 2, IncomingSupply: 3, SupplyArrivalTime: 4, ForecastDuration: 5},
		{CurrentStock: 1, UsagePerHour: 9, IncomingSupply: 3, SupplyArrivalTime: 4, ForecastDuration: 5},
		{CurrentStock: 1, UsagePerHour: 2, IncomingSupply: 9, SupplyArrivalTime: 4, ForecastDuration: 5},
		{CurrentStock: 1, UsagePerHour: 2, IncomingSupply: 3, SupplyArrivalTime: 9, ForecastDuration: 5},
		{CurrentStock: 1, UsagePerHour: 2, IncomingSupply: 3, SupplyArrivalTime: 4, ForecastDuration: 9},
	}
	for _, v := range variants {
		seen[CacheKey(v, 10)] = struct{}{}
	}
	seen[CacheKey(base, 11)] = struct{}{}
	require.Len(t, seen, 7)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubRenderer struct {
	image     string
	err       error
	calls     int
	hours     []int
	threshold int
}

func (s *stubRenderer) Render(_ context.Context, hours, _ []int, lowThreshold int) (string, error) {
	s.calls++
	s.hours = hours
	s.threshold = lowThreshold
	return s.image, s.err
}

type mapCache struct {
	items map[uint64]string
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[uint64]string)}
}

func (m *mapCache) Get(key uint64) (string, bool) {
	v, ok := m.items[key]
	return v, ok
}

func (m *mapCache) Set(key uint64, image string) {
	m.items[key] = image
}
