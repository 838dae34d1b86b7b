package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/careops/internal/domain/forecast"
	"github.com/yanqian/careops/internal/domain/mortality"
)

const maxBodyBytes = 1 << 20

// Handler wires the HTTP transport to domain services.
type Handler struct {
	mortalitySvc mortality.Service
	forecastSvc  forecast.Service
	logger       *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(mortalitySvc mortality.Service, forecastSvc forecast.Service, logger *slog.Logger) *Handler {
	return &Handler{
		mortalitySvc: mortalitySvc,
		forecastSvc:  forecastSvc,
		logger:       logger.With("component", "http.handler"),
	}
}

// Predict scores one patient record.
func (h *Handler) Predict(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var record mortality.PatientRecord
	if err := decoder.Decode(&record); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "request body must be a JSON object", err))
		return
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "request body must contain a single JSON object", err))
		return
	}

	resp, err := h.mortalitySvc.Predict(c.Request.Context(), record)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ResourceForecast simulates stock levels hour by hour.
func (h *Handler) ResourceForecast(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	params, err := forecast.ParseParameters(body)
	if err != nil {
		var verr *forecast.ValidationError
		if errors.As(err, &verr) {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", verr.Error(), err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "request body must be a JSON object", err))
		return
	}

	resp, err := h.forecastSvc.Forecast(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// FallbackStats lists the most frequent unknown category labels.
func (h *Handler) FallbackStats(c *gin.Context) {
	limit, ok := queryLimit(c, 10)
	if !ok {
		return
	}
	stats, err := h.mortalitySvc.FallbackStats(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "fallback_stats_failed", "failed to load fallback statistics", err))
		return
	}
	if stats == nil {
		stats = []mortality.FallbackStat{}
	}
	c.JSON(http.StatusOK, gin.H{"fallbacks": stats})
}

// Audits lists recent prediction audit records.
func (h *Handler) Audits(c *gin.Context) {
	limit, ok := queryLimit(c, 50)
	if !ok {
		return
	}
	degradedOnly, _ := strconv.ParseBool(c.DefaultQuery("degraded", "false"))
	records, err := h.mortalitySvc.Audits(c.Request.Context(), limit, degradedOnly)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "audits_failed", "failed to load audit records", err))
		return
	}
	if records == nil {
		records = []mortality.AuditRecord{}
	}
	h.logger.Info("audit records viewed", "subject", subjectOf(c), "count", len(records), "degraded_only", degradedOnly)
	c.JSON(http.StatusOK, gin.H{"audits": records})
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, errors.New("request body is required")
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, errors.New("request body too large")
	}
	return body, nil
}

func queryLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 1000 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be between 1 and 1000", err))
		return 0, false
	}
	return limit, true
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
