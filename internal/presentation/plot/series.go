package plot

import (
	"fmt"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/chart"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"gonum.org/v1/plot/plotter"
)

// MarkerGroup holds marker positions of one kind and outcome as unix seconds
type MarkerGroup struct {
	Kind      model.EventKind
	Outcome   model.Outcome
	Label     string
	Positions []float64
}

// SeriesXYs converts samples to plot points: size for the cumulative chart,
// change for the delta chart
func SeriesXYs(series model.Series, id model.ChartID) plotter.XYs {
	pts := make(plotter.XYs, len(series))
	for i, s := range series {
		pts[i].X = unix(s.Timestamp)
		if id == model.ChartDelta {
			pts[i].Y = float64(s.Delta)
		} else {
			pts[i].Y = float64(s.TotalBytes)
		}
	}
	return pts
}

// MarkerGroups splits the visible markers into build/run by outcome
func MarkerGroups(snap chart.Snapshot) []MarkerGroup {
	var groups []MarkerGroup
	for _, kind := range []model.EventKind{model.KindBuild, model.KindRun} {
		for _, outcome := range []model.Outcome{model.OutcomeFailure, model.OutcomeSuccess} {
			g := MarkerGroup{Kind: kind, Outcome: outcome, Label: fmt.Sprintf("%s %s", kind, outcome)}
			for _, m := range snap.Markers {
				if m.Event.Kind != kind || m.Event.Outcome() != outcome {
					continue
				}
				if snap.Viewport.Valid() && !snap.Viewport.Contains(m.Position) {
					continue
				}
				g.Positions = append(g.Positions, unix(m.Position))
			}
			groups = append(groups, g)
		}
	}
	return groups
}

func unix(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
