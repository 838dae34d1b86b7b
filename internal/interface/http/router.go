package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/careops/internal/domain/auth"
	"github.com/yanqian/careops/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
// authSvc may be nil when bearer auth is disabled.
func NewRouter(cfg *config.Config, handler *Handler, authSvc auth.Service, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.CORS),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", handler.Healthz)

	protected := router.Group("/")
	protected.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, logger))
	if cfg.HTTP.Auth.Enabled && authSvc != nil {
		protected.Use(authMiddleware(authSvc))
	}
	{
		protected.POST("/predict", handler.Predict)
		protected.POST("/resourceforecast", handler.ResourceForecast)
	}

	api := protected.Group("/api/v1")
	{
		api.POST("/mortality/predict", handler.Predict)
		api.GET("/mortality/fallbacks", handler.FallbackStats)
		api.GET("/mortality/audits", handler.Audits)
		api.POST("/resources/forecast", handler.ResourceForecast)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
