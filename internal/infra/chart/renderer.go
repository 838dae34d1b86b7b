// Package chart draws resource forecast bar charts.
package chart

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/color"
	"log/slog"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/yanqian/careops/internal/domain/forecast"
)

var (
	alertColor     = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	okColor        = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	thresholdColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

const (
	width  = 8 * vg.Inch
	height = 4 * vg.Inch
)

// Renderer produces base64 encoded PNG charts.
type Renderer struct {
	logger *slog.Logger
}

// NewRenderer constructs a PNG renderer.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger.With("component", "chart.renderer")}
}

// Render draws one bar per hour, red at or below the threshold and blue above,
// with a dashed threshold line.
func (r *Renderer) Render(ctx context.Context, hours, stockLevels []int, lowThreshold int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(stockLevels) == 0 {
		return "", errors.New("no stock levels to draw")
	}
	if len(hours) != len(stockLevels) {
		return "", fmt.Errorf("%d hours for %d stock levels", len(hours), len(stockLevels))
	}

	alerts := make(plotter.Values, len(stockLevels))
	healthy := make(plotter.Values, len(stockLevels))
	for i, level := range stockLevels {
		if level <= lowThreshold {
			alerts[i] = float64(level)
		} else {
			healthy[i] = float64(level)
		}
	}

	p := plot.New()
	p.Title.Text = "Resource Stock Forecast"
	p.X.Label.Text = "Hour"
	p.Y.Label.Text = "Stock Level"
	p.Y.Min = 0

	barWidth := barWidthFor(len(stockLevels))
	for _, series := range []struct {
		values plotter.Values
		color  color.Color
	}{
		{values: healthy, color: okColor},
		{values: alerts, color: alertColor},
	} {
		bars, err := plotter.NewBarChart(series.values, barWidth)
		if err != nil {
			return "", fmt.Errorf("build bars: %w", err)
		}
		bars.Color = series.color
		bars.LineStyle.Width = 0
		bars.XMin = float64(hours[0])
		p.Add(bars)
	}

	line, err := plotter.NewLine(plotter.XYs{
		{X: float64(hours[0]) - 0.5, Y: float64(lowThreshold)},
		{X: float64(hours[len(hours)-1]) + 0.5, Y: float64(lowThreshold)},
	})
	if err != nil {
		return "", fmt.Errorf("build threshold line: %w", err)
	}
	line.LineStyle.Color = thresholdColor
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(line)
	p.Legend.Add("Critical Threshold", line)
	p.Legend.Top = true

	writer, err := p.WriterTo(width, height, "png")
	if err != nil {
		return "", fmt.Errorf("prepare png: %w", err)
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	r.logger.Debug("chart rendered", "bars", len(stockLevels), "bytes", buf.Len())
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func barWidthFor(n int) vg.Length {
	w := (width * 3 / 4) / vg.Length(n)
	if w > vg.Points(20) {
		return vg.Points(20)
	}
	if w < vg.Points(0.5) {
		return vg.Points(0.5)
	}
	return w
}

var _ forecast.ChartRenderer = (*Renderer)(nil)
