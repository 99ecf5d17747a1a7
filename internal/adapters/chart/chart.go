// Package chart renders anomaly scores and raw telemetry to image files.
//
// The output format follows the file extension (png, svg, pdf, eps, jpg,
// tif, tex).
package chart

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/anomaly/internal/domain/telemetry"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	// canvas formats for draw.NewFormattedCanvas
	_ "gonum.org/v1/plot/vg/vgeps"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"
	_ "gonum.org/v1/plot/vg/vgtex"
)

const (
	scoreTitle  = "Isolation Forest Anomaly Score"
	scoreLegend = "Anomaly Score"
	tileGap     = 3 * vg.Millimeter
)

var (
	lineColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	markerColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Scores renders the score sequence as one line plot with a legend and grid.
func Scores(path string, scores []float64, opts ...Option) error {
	if len(scores) == 0 {
		return ErrNoData
	}
	o := newOptions(scoreTitle, opts)

	p := plot.New()
	p.Title.Text = o.title
	p.X.Label.Text = "row"
	p.Y.Label.Text = "score"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(series(scores))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	line.LineStyle.Color = lineColor
	p.Add(line)
	p.Legend.Add(scoreLegend, line)
	p.Legend.Top = true

	if len(o.markers) > 0 {
		pts := make(plotter.XYs, 0, len(o.markers))
		for _, i := range o.markers {
			if i >= 0 && i < len(scores) {
				pts = append(pts, plotter.XY{X: float64(i), Y: scores[i]})
			}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		sc.GlyphStyle.Color = markerColor
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add("anomalous", sc)
	}

	return render(path, o, func(dc draw.Canvas) { p.Draw(dc) })
}

// Telemetry renders every column of t as its own subplot, stacked
// vertically over a shared row axis.
func Telemetry(path string, t *telemetry.Table, opts ...Option) error {
	if t == nil || t.Rows() == 0 {
		return ErrNoData
	}
	o := newOptions("", opts)

	columns := t.Columns()
	plots := make([][]*plot.Plot, len(columns))
	for j, name := range columns {
		p := plot.New()
		p.Title.Text = name
		if j == 0 && o.title != "" {
			p.Title.Text = o.title + ": " + name
		}
		p.Add(plotter.NewGrid())
		line, err := plotter.NewLine(series(t.ColumnAt(j)))
		if err != nil {
			return fmt.Errorf("%w: column %s: %w", ErrRender, name, err)
		}
		line.LineStyle.Color = lineColor
		p.Add(line)
		if j == len(columns)-1 {
			p.X.Label.Text = "row"
		}
		plots[j] = []*plot.Plot{p}
	}

	tiles := draw.Tiles{
		Rows:      len(columns),
		Cols:      1,
		PadTop:    tileGap,
		PadBottom: tileGap,
		PadLeft:   tileGap,
		PadRight:  tileGap,
		PadY:      tileGap,
	}
	return render(path, o, func(dc draw.Canvas) {
		canvases := plot.Align(plots, tiles, dc)
		for j := range plots {
			plots[j][0].Draw(canvases[j][0])
		}
	})
}

func render(path string, o *options, paint func(draw.Canvas)) error {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	c, err := draw.NewFormattedCanvas(o.width, o.height, format)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, path, err)
	}
	paint(draw.New(c))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	if _, err := c.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write %s: %w", ErrRender, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrRender, path, err)
	}
	return nil
}

func series(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	return pts
}
