package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"

	apperrors "github.com/yanqian/careops/pkg/errors"
	"github.com/yanqian/careops/pkg/metrics"
)

// Service exposes the resource stock forecast.
type Service interface {
	Forecast(ctx context.Context, params Parameters) (Response, error)
}

// ChartRenderer draws the stock series and returns an encoded image.
type ChartRenderer interface {
	Render(ctx context.Context, hours, stockLevels []int, lowThreshold int) (string, error)
}

// ChartCache memoizes rendered charts by parameter hash.
type ChartCache interface {
	Get(key uint64) (string, bool)
	Set(key uint64, image string)
}

type service struct {
	cfg      Config
	renderer ChartRenderer
	cache    ChartCache
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewService wires up the forecast domain.
func NewService(cfg Config, renderer ChartRenderer, cache ChartCache, recorder metrics.Recorder, logger *slog.Logger) Service {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	return &service{
		cfg:      cfg,
		renderer: renderer,
		cache:    cache,
		metrics:  recorder,
		logger:   logger.With("component", "forecast.service"),
	}
}

func (s *service) Forecast(ctx context.Context, params Parameters) (Response, error) {
	if params.ForecastDuration > s.cfg.MaxDuration {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("forecast_duration must not exceed %d hours", s.cfg.MaxDuration), nil)
	}
	result, err := Simulate(params, s.cfg.LowThreshold)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, verr.Error(), verr)
		}
		return Response{}, err
	}

	s.metrics.Count("forecast.run", 1)
	if result.RunOutHour != nil {
		s.metrics.Count("forecast.run_out", 1)
		s.logger.Info("stock runs out within forecast", "run_out_hour", *result.RunOutHour, "duration", params.ForecastDuration)
	}

	return Response{
		StockLevels:  result.StockLevels(),
		RunOutHour:   result.RunOutHour,
		Alerts:       result.Alerts(),
		LowThreshold: result.LowThreshold,
		GraphBase64:  s.chart(ctx, params, result),
	}, nil
}

// chart never fails the request; the numeric series is what callers depend on.
func (s *service) chart(ctx context.Context, params Parameters, result Result) string {
	if s.renderer == nil {
		return ""
	}
	key := CacheKey(params, result.LowThreshold)
	if s.cache != nil {
		if image, ok := s.cache.Get(key); ok {
			s.metrics.Count("forecast.chart_cache_hit", 1)
			return image
		}
	}
	start := time.Now()
	image, err := s.renderer.Render(ctx, result.Hours(), result.StockLevels(), result.LowThreshold)
	if err != nil {
		s.logger.Warn("chart render failed", "error", err)
		return ""
	}
	s.metrics.Timing("forecast.chart_render", time.Since(start))
	if s.cache != nil {
		s.cache.Set(key, image)
	}
	return image
}

// CacheKey identifies a rendered chart.
func CacheKey(p Parameters, lowThreshold int) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%d:%d:%d:%d:%d:%d",
		p.CurrentStock, p.UsagePerHour, p.IncomingSupply, p.SupplyArrivalTime, p.ForecastDuration, lowThreshold))
}
