package metrics

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatsdRecorderSendsWithoutAgent(t *testing.T) {
	recorder, err := NewStatsd("127.0.0.1:8125", "careops.", []string{"env:test"}, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.Equal(t, 1.0, recorder.rate)

	recorder.Count("mortality.fallback", 1, "field:Disease")
	recorder.Timing("mortality.predict", 3*time.Millisecond)
	require.NoError(t, recorder.Close())
}

func TestNoopRecorder(t *testing.T) {
	var recorder Recorder = Noop{}
	recorder.Count("forecast.run", 1)
	recorder.Timing("forecast.chart_render", time.Second)
}
