// Package plot exports the two time-aligned charts as a PNG image.
package plot

import (
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/penwyp/go-code-activity/internal/core/chart"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/util"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	sizeColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	deltaColor   = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	failureColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	successColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Options describes one export
type Options struct {
	Title      string
	Cumulative chart.Snapshot
	Delta      chart.Snapshot
	Width      vg.Length
	Height     vg.Length
}

// SavePNG writes the charts to path
func SavePNG(path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WritePNG(f, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WritePNG draws the cumulative chart above the delta chart with a shared
// time axis
func WritePNG(w io.Writer, opts Options) error {
	if opts.Width == 0 {
		opts.Width = 24 * vg.Centimeter
	}
	if opts.Height == 0 {
		opts.Height = 16 * vg.Centimeter
	}

	top, err := newPlot(opts.Cumulative, opts.Title)
	if err != nil {
		return err
	}
	bottom, err := newPlot(opts.Delta, "")
	if err != nil {
		return err
	}

	img := vgimg.New(opts.Width, opts.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	plots := [][]*gplot.Plot{{top}, {bottom}}
	canvases := gplot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func newPlot(snap chart.Snapshot, title string) (*gplot.Plot, error) {
	p := gplot.New()
	p.Title.Text = title
	p.X.Tick.Marker = gplot.TimeTicks{
		Format: "01-02 15:04",
		Time:   gplot.UnixTimeIn(util.GetTimeProvider().Location()),
	}
	p.Add(plotter.NewGrid())

	lineColor := sizeColor
	p.Y.Label.Text = "total bytes"
	if snap.ID == model.ChartDelta {
		lineColor = deltaColor
		p.Y.Label.Text = "change"
	}

	if snap.Viewport.Valid() {
		p.X.Min = unix(snap.Viewport.XMin)
		p.X.Max = unix(snap.Viewport.XMax)
	}
	if !snap.YRange.IsZero() {
		p.Y.Min, p.Y.Max = snap.YRange.Min, snap.YRange.Max
	}

	if !snap.HasData {
		p.X.Label.Text = "no data yet"
		return p, nil
	}

	pts := SeriesXYs(snap.Visible, snap.ID)
	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s line: %w", snap.ID, err)
		}
		line.StepStyle = plotter.PostStep
		line.LineStyle.Color = lineColor
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
	}

	baseline := snap.YRange.Min
	for _, group := range MarkerGroups(snap) {
		if len(group.Positions) == 0 {
			continue
		}
		marks := make(plotter.XYs, len(group.Positions))
		for i, at := range group.Positions {
			marks[i].X = at
			marks[i].Y = baseline
		}
		scatter, err := plotter.NewScatter(marks)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s markers: %w", group.Label, err)
		}
		scatter.GlyphStyle.Radius = vg.Points(3)
		scatter.GlyphStyle.Color = successColor
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		if group.Outcome == model.OutcomeFailure {
			scatter.GlyphStyle.Color = failureColor
			scatter.GlyphStyle.Shape = draw.CrossGlyph{}
		}
		if group.Kind == model.KindRun {
			scatter.GlyphStyle.Radius = vg.Points(4)
		}
		p.Add(scatter)
		p.Legend.Add(group.Label, scatter)
	}
	p.Legend.Top = true
	return p, nil
}
