package app

import (
	"fmt"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"els/sim"
)

// writePlot saves the desired, believed and physical positions over time
func writePlot(path string, samples []sim.Sample, cycle time.Duration) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to plot")
	}

	desired := make(plotter.XYs, len(samples))
	current := make(plotter.XYs, len(samples))
	motor := make(plotter.XYs, len(samples))
	for i, s := range samples {
		t := (time.Duration(s.Tick) * cycle).Seconds()
		desired[i] = plotter.XY{X: t, Y: float64(s.Desired)}
		current[i] = plotter.XY{X: t, Y: float64(s.Current)}
		motor[i] = plotter.XY{X: t, Y: float64(s.Motor)}
	}

	p := plot.New()
	p.Title.Text = "Leadscrew position"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "steps"
	if err := plotutil.AddLines(p,
		"desired", desired,
		"current", current,
		"motor", motor,
	); err != nil {
		return fmt.Errorf("failed to build plot: %w", err)
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
