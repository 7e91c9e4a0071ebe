package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zoobzio/phasr/curve"
	"github.com/zoobzio/phasr/repair"
)

type curveReport struct {
	Name       string             `json:"name"`
	Smoothed   []curve.PhasePoint `json:"smoothed"`
	Path       string             `json:"path"`
	Fill       string             `json:"fill"`
	Band       string             `json:"band,omitempty"`
	Peak       *curve.PhasePoint  `json:"peak,omitempty"`
	Trough     *curve.PhasePoint  `json:"trough,omitempty"`
	Divergence *curve.Divergence  `json:"divergence,omitempty"`
	Levels     map[string]string  `json:"levels,omitempty"`
}

func newCurveCmd() *cobra.Command {
	var (
		passes int
		vp     = curve.Viewport{Width: 800, Height: 300, MaxHour: 24, MaxValue: 100}
	)
	cmd := &cobra.Command{
		Use:   "curve [file]",
		Short: "Smooth and render the curves of a plan or a single curve document",
		Long: `curve reads either a plan with a "curves" array or a single curve object
and prints, per curve, the smoothed series, SVG paths and its extrema. Input
is repaired first, so raw model output works too.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			curves, err := decodeCurves(string(in))
			if err != nil {
				return err
			}

			reports := make([]curveReport, 0, len(curves))
			for _, c := range curves {
				reports = append(reports, buildReport(c, passes, vp))
			}
			out, err := json.MarshalIndent(reports, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().IntVar(&passes, "passes", 2, "Smoothing passes")
	cmd.Flags().Float64Var(&vp.Width, "width", vp.Width, "Viewport width in pixels")
	cmd.Flags().Float64Var(&vp.Height, "height", vp.Height, "Viewport height in pixels")
	cmd.Flags().Float64Var(&vp.MaxHour, "max-hour", vp.MaxHour, "Last hour on the x axis")
	cmd.Flags().Float64Var(&vp.MaxValue, "max-value", vp.MaxValue, "Top of the value axis")
	return cmd
}

func decodeCurves(text string) ([]curve.Curve, error) {
	var plan struct {
		Curves []curve.Curve `json:"curves"`
	}
	if _, err := repair.Unmarshal(text, &plan); err != nil {
		return nil, err
	}
	if len(plan.Curves) > 0 {
		return plan.Curves, nil
	}

	var single curve.Curve
	if _, err := repair.Unmarshal(text, &single); err != nil {
		return nil, err
	}
	if len(single.Baseline) == 0 {
		return nil, fmt.Errorf("no curves found in input")
	}
	return []curve.Curve{single}, nil
}

func buildReport(c curve.Curve, passes int, vp curve.Viewport) curveReport {
	smoothed := curve.Smooth(c.Baseline, passes)
	r := curveReport{
		Name:     c.Name,
		Smoothed: smoothed,
		Path:     curve.SmoothPath(smoothed, vp),
		Fill:     curve.FillPath(smoothed, vp, vp.MinValue),
		Levels:   levelLabels(c.Levels.Migrate()),
	}
	if p, ok := curve.Peak(c.Baseline); ok {
		r.Peak = &p
	}
	if t, ok := curve.Trough(c.Baseline); ok {
		r.Trough = &t
	}
	if len(c.Desired) > 0 {
		desired := curve.Smooth(c.Desired, passes)
		r.Band = curve.BandPath(desired, smoothed, vp)
		if d, ok := curve.MaxDivergence(smoothed, desired); ok {
			r.Divergence = &d
		}
	}
	return r
}

// levelLabels keys the descriptors by their formatted level, since JSON
// object keys cannot be floats.
func levelLabels(l curve.Levels) map[string]string {
	if l.IsZero() {
		return nil
	}
	out := make(map[string]string)
	for level, label := range l.Labels() {
		out[strconv.FormatFloat(level, 'f', -1, 64)] = label
	}
	return out
}
