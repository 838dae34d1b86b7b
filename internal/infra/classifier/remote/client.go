// Package remote calls a model server that hosts the trained classifier.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yanqian/careops/internal/domain/mortality"
)

const predictPath = "/predict_proba"

// Client posts feature rows to a model server.
type Client struct {
	httpClient *resty.Client
	logger     *slog.Logger
}

type predictRequest struct {
	Columns  []string  `json:"columns"`
	Features []float64 `json:"features"`
}

type predictResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient builds a model server client.
func NewClient(baseURL string, timeout time.Duration, retries int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(baseURL), "/")).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger.With("component", "classifier.remote"),
	}
}

// PredictProbability asks the model server for the class distribution of one row.
func (c *Client) PredictProbability(ctx context.Context, features mortality.FeatureVector) (mortality.ClassProbabilities, error) {
	var (
		result  predictResponse
		failure errorResponse
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(predictRequest{Columns: features.Columns, Features: features.Values}).
		SetResult(&result).
		SetError(&failure).
		Post(predictPath)
	if err != nil {
		return mortality.ClassProbabilities{}, fmt.Errorf("model server request failed: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("model server returned error", "status", resp.StatusCode(), "error", failure.Error)
		return mortality.ClassProbabilities{}, fmt.Errorf("model server error: status=%d body=%s", resp.StatusCode(), failure.Error)
	}
	if len(result.Probabilities) != 2 {
		return mortality.ClassProbabilities{}, fmt.Errorf("model server returned %d probabilities, want 2", len(result.Probabilities))
	}
	probs := mortality.ClassProbabilities{Negative: result.Probabilities[0], Positive: result.Probabilities[1]}
	if math.Abs(probs.Negative+probs.Positive-1) > 1e-6 {
		return mortality.ClassProbabilities{}, fmt.Errorf("model server probabilities sum to %f", probs.Negative+probs.Positive)
	}
	return probs, nil
}

var _ mortality.Classifier = (*Client)(nil)
