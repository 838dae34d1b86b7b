package chart

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRenderer() *Renderer {
	return NewRenderer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRenderProducesPNG(t *testing.T) {
	encoded, err := newTestRenderer().Render(context.Background(), []int{0, 1, 2, 3}, []int{20, 60, 50, 5}, 10)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
}

func TestRenderRejectsBadInput(t *testing.T) {
	r := newTestRenderer()
	_, err := r.Render(context.Background(), nil, nil, 10)
	require.Error(t, err)

	_, err = r.Render(context.Background(), []int{0}, []int{1, 2}, 10)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, []int{0}, []int{1}, 10)
	require.Error(t, err)
}

func TestBarWidthIsBounded(t *testing.T) {
	require.Equal(t, barWidthFor(1), barWidthFor(2))
	require.Greater(t, float64(barWidthFor(10)), float64(barWidthFor(100)))
	require.Equal(t, barWidthFor(100000), barWidthFor(1000000))
}
