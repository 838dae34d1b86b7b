package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Forecast   ForecastConfig   `yaml:"forecast"`
	Audit      AuditConfig      `yaml:"audit"`
	Fallbacks  FallbacksConfig  `yaml:"fallbacks"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
	CORS         CORSConfig      `yaml:"cors"`
	Auth         AuthConfig      `yaml:"auth"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowOrigins []string      `yaml:"allowOrigins"`
	MaxAge       time.Duration `yaml:"maxAge"`
}

// AuthConfig enables bearer token protection of the API routes.
type AuthConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"tokenTtl"`
}

// ArtifactsConfig locates the trained model, encoder tables and schema.
type ArtifactsConfig struct {
	Source        string   `yaml:"source"`
	Dir           string   `yaml:"dir"`
	S3            S3Config `yaml:"s3"`
	Model         string   `yaml:"model"`
	Encoders      string   `yaml:"encoders"`
	Schema        string   `yaml:"schema"`
	FallbackLabel string   `yaml:"fallbackLabel"`
}

// S3Config contains S3/R2 compatible bucket settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// ClassifierConfig selects the classifier implementation.
type ClassifierConfig struct {
	Kind    string        `yaml:"kind"`
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// ForecastConfig controls the resource forecast domain.
type ForecastConfig struct {
	LowThreshold int              `yaml:"lowThreshold"`
	MaxDuration  int              `yaml:"maxDuration"`
	ChartCache   ChartCacheConfig `yaml:"chartCache"`
}

// ChartCacheConfig sizes the rendered chart cache.
type ChartCacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int64         `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// AuditConfig configures where prediction audit records go.
type AuditConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
}

// FallbacksConfig configures the fallback counter store.
type FallbacksConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains connection information for the valkey store.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// MetricsConfig points at the statsd agent.
type MetricsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Addr       string   `yaml:"addr"`
	Namespace  string   `yaml:"namespace"`
	Tags       []string `yaml:"tags"`
	SampleRate float64  `yaml:"sampleRate"`
}

// Load reads configuration from a YAML file, an optional .env file and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORS.AllowOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_AUTH_ENABLED"); v != "" {
		cfg.HTTP.Auth.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_AUTH_SECRET"); v != "" {
		cfg.HTTP.Auth.Secret = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("ARTIFACTS_SOURCE"); v != "" {
		cfg.Artifacts.Source = v
	}
	if v := os.Getenv("ARTIFACTS_DIR"); v != "" {
		cfg.Artifacts.Dir = v
	}
	if v := os.Getenv("ARTIFACTS_S3_ENDPOINT"); v != "" {
		cfg.Artifacts.S3.Endpoint = v
	}
	if v := os.Getenv("ARTIFACTS_S3_ACCESS_KEY"); v != "" {
		cfg.Artifacts.S3.AccessKey = v
	}
	if v := os.Getenv("ARTIFACTS_S3_SECRET_KEY"); v != "" {
		cfg.Artifacts.S3.SecretKey = v
	}
	if v := os.Getenv("ARTIFACTS_S3_BUCKET"); v != "" {
		cfg.Artifacts.S3.Bucket = v
	}
	if v := os.Getenv("ARTIFACTS_S3_REGION"); v != "" {
		cfg.Artifacts.S3.Region = v
	}
	if v := os.Getenv("CLASSIFIER_KIND"); v != "" {
		cfg.Classifier.Kind = v
	}
	if v := os.Getenv("CLASSIFIER_BASE_URL"); v != "" {
		cfg.Classifier.BaseURL = v
	}
	if v := os.Getenv("CLASSIFIER_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Classifier.Timeout = parsed
		}
	}
	if v := os.Getenv("FORECAST_LOW_THRESHOLD"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Forecast.LowThreshold = parsed
		}
	}
	if v := os.Getenv("FORECAST_MAX_DURATION"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Forecast.MaxDuration = parsed
		}
	}
	if v := os.Getenv("AUDIT_POSTGRES_DSN"); v != "" {
		cfg.Audit.Postgres.DSN = v
	}
	if v := os.Getenv("AUDIT_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Audit.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("FALLBACKS_REDIS_ENABLED"); v != "" {
		cfg.Fallbacks.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("FALLBACKS_REDIS_ADDR"); v != "" {
		cfg.Fallbacks.Redis.Addr = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":5000",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
			Retry: RetryConfig{
				Enabled:     false,
				MaxAttempts: 2,
				BaseBackoff: 100 * time.Millisecond,
				Exclude: []string{
					"/resourceforecast",
					"/api/v1/resources/forecast",
				},
			},
			CORS: CORSConfig{
				AllowOrigins: []string{"http://localhost:3001", "http://localhost:3002"},
				MaxAge:       12 * time.Hour,
			},
			Auth: AuthConfig{
				Enabled:  false,
				Issuer:   "careops",
				TokenTTL: 24 * time.Hour,
			},
		},
		Artifacts: ArtifactsConfig{
			Source:        "file",
			Dir:           "artifacts",
			Model:         "model.json",
			Encoders:      "encoders.json",
			Schema:        "",
			FallbackLabel: "Unknown",
		},
		Classifier: ClassifierConfig{
			Kind:    "forest",
			Timeout: 3 * time.Second,
			Retries: 2,
		},
		Forecast: ForecastConfig{
			LowThreshold: 10,
			MaxDuration:  24 * 365,
			ChartCache: ChartCacheConfig{
				Enabled: true,
				Size:    512,
				TTL:     10 * time.Minute,
			},
		},
		Audit: AuditConfig{
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Fallbacks: FallbacksConfig{
			Redis: RedisConfig{
				Prefix: "careops",
			},
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			Addr:       "127.0.0.1:8125",
			Namespace:  "careops.",
			SampleRate: 1,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if c.HTTP.Auth.Enabled && strings.TrimSpace(c.HTTP.Auth.Secret) == "" {
		return errors.New("http.auth.secret cannot be empty when auth is enabled")
	}
	switch c.Artifacts.Source {
	case "file":
		if strings.TrimSpace(c.Artifacts.Dir) == "" {
			return errors.New("artifacts.dir cannot be empty for file source")
		}
	case "s3":
		if strings.TrimSpace(c.Artifacts.S3.Endpoint) == "" || strings.TrimSpace(c.Artifacts.S3.Bucket) == "" {
			return errors.New("artifacts.s3.endpoint and artifacts.s3.bucket are required for s3 source")
		}
	default:
		return fmt.Errorf("artifacts.source %q must be file or s3", c.Artifacts.Source)
	}
	if strings.TrimSpace(c.Artifacts.Encoders) == "" {
		return errors.New("artifacts.encoders cannot be empty")
	}
	if strings.TrimSpace(c.Artifacts.FallbackLabel) == "" {
		return errors.New("artifacts.fallbackLabel cannot be empty")
	}
	switch c.Classifier.Kind {
	case "forest":
		if strings.TrimSpace(c.Artifacts.Model) == "" {
			return errors.New("artifacts.model cannot be empty for forest classifier")
		}
	case "remote":
		if strings.TrimSpace(c.Classifier.BaseURL) == "" {
			return errors.New("classifier.baseUrl cannot be empty for remote classifier")
		}
	default:
		return fmt.Errorf("classifier.kind %q must be forest or remote", c.Classifier.Kind)
	}
	if c.Forecast.LowThreshold < 0 {
		return errors.New("forecast.lowThreshold cannot be negative")
	}
	if c.Forecast.MaxDuration <= 0 {
		return errors.New("forecast.maxDuration must be positive")
	}
	if c.Forecast.ChartCache.Enabled && c.Forecast.ChartCache.Size <= 0 {
		return errors.New("forecast.chartCache.size must be positive when enabled")
	}
	if c.Fallbacks.Redis.Enabled && strings.TrimSpace(c.Fallbacks.Redis.Addr) == "" {
		return errors.New("fallbacks.redis.addr cannot be empty when redis is enabled")
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Addr) == "" {
		return errors.New("metrics.addr cannot be empty when metrics are enabled")
	}
	return nil
}
