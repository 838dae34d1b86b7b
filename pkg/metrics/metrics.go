package metrics

import (
	"log/slog"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Recorder publishes counters and timings. Implementations must be safe for concurrent use.
type Recorder interface {
	Count(name string, value int64, tags ...string)
	Timing(name string, value time.Duration, tags ...string)
}

// StatsdRecorder ships metrics to a DogStatsD/Telegraf agent.
type StatsdRecorder struct {
	client *statsd.Client
	rate   float64
	logger *slog.Logger
}

// NewStatsd dials the agent at addr. The statsd client is UDP based so a missing agent is not an error here.
func NewStatsd(addr, namespace string, globalTags []string, sampleRate float64, logger *slog.Logger) (*StatsdRecorder, error) {
	opts := []statsd.Option{statsd.WithTags(globalTags)}
	if namespace != "" {
		opts = append(opts, statsd.WithNamespace(namespace))
	}
	client, err := statsd.New(addr, opts...)
	if err != nil {
		return nil, err
	}
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1
	}
	return &StatsdRecorder{client: client, rate: sampleRate, logger: logger.With("component", "metrics.statsd")}, nil
}

// Count increments a counter.
func (r *StatsdRecorder) Count(name string, value int64, tags ...string) {
	if err := r.client.Count(name, value, tags, r.rate); err != nil {
		r.logger.Warn("statsd count failed", "metric", name, "error", err)
	}
}

// Timing records a duration.
func (r *StatsdRecorder) Timing(name string, value time.Duration, tags ...string) {
	if err := r.client.Timing(name, value, tags, r.rate); err != nil {
		r.logger.Warn("statsd timing failed", "metric", name, "error", err)
	}
}

// Close flushes buffered metrics.
func (r *StatsdRecorder) Close() error {
	return r.client.Close()
}

// Noop discards everything. Used when metrics are disabled and in tests.
type Noop struct{}

func (Noop) Count(string, int64, ...string)          {}
func (Noop) Timing(string, time.Duration, ...string) {}

var (
	_ Recorder = (*StatsdRecorder)(nil)
	_ Recorder = Noop{}
)
