package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/axis"
	"github.com/penwyp/go-code-activity/internal/core/chart"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func snapshots() (chart.Snapshot, chart.Snapshot) {
	series := model.Series{
		{Timestamp: start, TotalBytes: 100, Delta: 100},
		{Timestamp: start.Add(5 * time.Minute), TotalBytes: 900, Delta: 800},
		{Timestamp: start.Add(10 * time.Minute), TotalBytes: 600, Delta: -300},
	}
	vp := model.Viewport{XMin: start, XMax: start.Add(15 * time.Minute)}
	markers := []chart.Marker{
		{Position: start.Add(5 * time.Minute), Event: model.LogEvent{Kind: model.KindBuild, ExitCode: 1}},
		{Position: start.Add(10 * time.Minute), Event: model.LogEvent{Kind: model.KindRun, ExitCode: 0}},
		{Position: start.Add(time.Hour), Event: model.LogEvent{Kind: model.KindRun, ExitCode: 0}},
	}
	cum := chart.Snapshot{ID: model.ChartCumulative, Series: series, Visible: series, Viewport: vp,
		YRange: axis.Range{Min: 0, Max: 1000}, Markers: markers, HasData: true}
	delta := chart.Snapshot{ID: model.ChartDelta, Series: series, Visible: series, Viewport: vp,
		YRange: axis.Range{Min: -1000, Max: 1000}, Markers: markers, HasData: true}
	return cum, delta
}

func TestWritePNG(t *testing.T) {
	cum, delta := snapshots()

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, Options{Title: "alice / a1", Cumulative: cum, Delta: delta}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestWritePNGWithoutData(t *testing.T) {
	var buf bytes.Buffer
	err := WritePNG(&buf, Options{
		Cumulative: chart.Snapshot{ID: model.ChartCumulative},
		Delta:      chart.Snapshot{ID: model.ChartDelta},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestSavePNG(t *testing.T) {
	cum, delta := snapshots()
	path := filepath.Join(t.TempDir(), "activity.png")

	require.NoError(t, SavePNG(path, Options{Cumulative: cum, Delta: delta}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	assert.Error(t, SavePNG(filepath.Join(t.TempDir(), "missing", "x.png"), Options{}))
}

func TestSeriesXYs(t *testing.T) {
	cum, _ := snapshots()

	size := SeriesXYs(cum.Series, model.ChartCumulative)
	require.Len(t, size, 3)
	assert.Equal(t, float64(start.Unix()), size[0].X)
	assert.Equal(t, 900.0, size[1].Y)

	change := SeriesXYs(cum.Series, model.ChartDelta)
	assert.Equal(t, -300.0, change[2].Y)
}

func TestMarkerGroups(t *testing.T) {
	cum, _ := snapshots()
	groups := MarkerGroups(cum)
	require.Len(t, groups, 4)

	byLabel := map[string]int{}
	for _, g := range groups {
		byLabel[g.Label] = len(g.Positions)
	}
	assert.Equal(t, 1, byLabel["build failure"])
	assert.Equal(t, 0, byLabel["build success"])
	assert.Equal(t, 1, byLabel["run success"], "markers outside the viewport are dropped")
	assert.Equal(t, 0, byLabel["run failure"])
}
