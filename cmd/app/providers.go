package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/careops/internal/domain/auth"
	"github.com/yanqian/careops/internal/domain/forecast"
	"github.com/yanqian/careops/internal/domain/mortality"
	"github.com/yanqian/careops/internal/infra/artifact"
	"github.com/yanqian/careops/internal/infra/auditrepo"
	"github.com/yanqian/careops/internal/infra/chart"
	"github.com/yanqian/careops/internal/infra/chartcache"
	"github.com/yanqian/careops/internal/infra/classifier/forest"
	"github.com/yanqian/careops/internal/infra/classifier/remote"
	"github.com/yanqian/careops/internal/infra/config"
	"github.com/yanqian/careops/internal/infra/fallbackstore"
	apperrors "github.com/yanqian/careops/pkg/errors"
	"github.com/yanqian/careops/pkg/metrics"
)

const artifactLoadTimeout = 30 * time.Second

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:   cfg.HTTP.Auth.Secret,
		Issuer:   cfg.HTTP.Auth.Issuer,
		TokenTTL: cfg.HTTP.Auth.TokenTTL,
	}
}

func provideForecastConfig(cfg *config.Config) forecast.Config {
	return forecast.Config{
		LowThreshold: cfg.Forecast.LowThreshold,
		MaxDuration:  cfg.Forecast.MaxDuration,
	}
}

func noCleanup() {}

// provideMetrics returns a cleanup that flushes buffered statsd packets.
func provideMetrics(cfg *config.Config, logger *slog.Logger) (metrics.Recorder, func()) {
	if !cfg.Metrics.Enabled {
		logger.Info("metrics disabled, using noop recorder")
		return metrics.Noop{}, noCleanup
	}
	recorder, err := metrics.NewStatsd(cfg.Metrics.Addr, cfg.Metrics.Namespace, cfg.Metrics.Tags, cfg.Metrics.SampleRate, logger)
	if err != nil {
		logger.Error("failed to create statsd client, using noop recorder", "error", err)
		return metrics.Noop{}, noCleanup
	}
	logger.Info("statsd metrics enabled", "addr", cfg.Metrics.Addr)
	return recorder, func() {
		if err := recorder.Close(); err != nil {
			logger.Warn("statsd close failed", "error", err)
		}
	}
}

func provideArtifactLoader(cfg *config.Config, logger *slog.Logger) (*artifact.Loader, error) {
	var source artifact.Source
	switch cfg.Artifacts.Source {
	case "s3":
		s3, err := artifact.NewS3Source(
			cfg.Artifacts.S3.Endpoint,
			cfg.Artifacts.S3.AccessKey,
			cfg.Artifacts.S3.SecretKey,
			cfg.Artifacts.S3.Bucket,
			cfg.Artifacts.S3.Region,
			cfg.Artifacts.S3.Prefix,
			logger,
		)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfig, "artifact source", err)
		}
		source = s3
	default:
		source = artifact.NewFileSource(cfg.Artifacts.Dir)
	}
	names := artifact.Names{
		Model:    cfg.Artifacts.Model,
		Encoders: cfg.Artifacts.Encoders,
		Schema:   cfg.Artifacts.Schema,
	}
	return artifact.NewLoader(source, names, cfg.Artifacts.FallbackLabel, logger), nil
}

// providePreparer fails startup when the schema or encoder artifacts are unusable.
func providePreparer(loader *artifact.Loader) (*mortality.Preparer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), artifactLoadTimeout)
	defer cancel()
	preparer, err := loader.Preparer(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "load preprocessing artifacts", err)
	}
	return preparer, nil
}

func provideClassifier(cfg *config.Config, loader *artifact.Loader, preparer *mortality.Preparer, logger *slog.Logger) (mortality.Classifier, error) {
	if cfg.Classifier.Kind == "remote" {
		logger.Info("using remote classifier", "base_url", cfg.Classifier.BaseURL)
		return remote.NewClient(cfg.Classifier.BaseURL, cfg.Classifier.Timeout, cfg.Classifier.Retries, logger), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), artifactLoadTimeout)
	defer cancel()
	rc, err := loader.Source().Open(ctx, loader.ModelName())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "open model artifact", err)
	}
	defer rc.Close()
	model, err := forest.Decode(rc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "load model artifact", err)
	}
	clf, err := forest.New(model, logger)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "load model artifact", err)
	}
	if err := clf.CheckColumns(preparer.Columns()); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "model and schema disagree", err)
	}
	return clf, nil
}

func provideAuditRepository(cfg *config.Config, logger *slog.Logger) (mortality.AuditRepository, func()) {
	fallback := auditrepo.NewMemoryRepository(0)
	dsn := strings.TrimSpace(cfg.Audit.Postgres.DSN)
	if dsn == "" {
		logger.Info("audit postgres dsn not set, using memory repository")
		return fallback, noCleanup
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback, noCleanup
	}
	if cfg.Audit.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Audit.Postgres.MaxConns
	}
	if cfg.Audit.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Audit.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback, noCleanup
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback, noCleanup
	}
	logger.Info("audit postgres repository enabled")
	return auditrepo.NewPostgresRepository(pool), pool.Close
}

func provideFallbackStore(cfg *config.Config, logger *slog.Logger) (mortality.FallbackStore, func()) {
	if cfg.Fallbacks.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg.Fallbacks.Redis.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return fallbackstore.NewMemoryStore(), noCleanup
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return fallbackstore.NewMemoryStore(), noCleanup
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			client.Close()
		} else {
			logger.Info("fallback valkey store enabled", "addr", cfg.Fallbacks.Redis.Addr)
			return fallbackstore.NewValkeyStore(client, cfg.Fallbacks.Redis.Prefix), client.Close
		}
	}
	return fallbackstore.NewMemoryStore(), noCleanup
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	if strings.TrimSpace(addr) == "" {
		return valkey.ClientOption{}, fmt.Errorf("valkey address is empty")
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideChartRenderer(logger *slog.Logger) forecast.ChartRenderer {
	return chart.NewRenderer(logger)
}

func provideChartCache(cfg *config.Config, logger *slog.Logger) (forecast.ChartCache, func()) {
	if !cfg.Forecast.ChartCache.Enabled {
		return nil, noCleanup
	}
	cache, err := chartcache.New(cfg.Forecast.ChartCache.Size, cfg.Forecast.ChartCache.TTL)
	if err != nil {
		logger.Error("failed to create chart cache, rendering every request", "error", err)
		return nil, noCleanup
	}
	return cache, cache.Close
}
