package curve

import "slices"

// smoothingKernel is the 5-tap low-pass kernel centered on each interior point.
var smoothingKernel = [5]float64{0.08, 0.24, 0.36, 0.24, 0.08}

// Smooth applies the 5-tap low-pass kernel to the values of points for the given
// number of passes. The first two and last two points pass through unchanged on
// every pass (no reflective padding). Fewer than five points or passes <= 0
// returns an unchanged copy.
//
// The filter is an approximation chosen for visual smoothness; repeated passes
// flatten progressively but never reorder hours.
func Smooth(points []PhasePoint, passes int) []PhasePoint {
	out := slices.Clone(points)
	if len(points) < len(smoothingKernel) || passes <= 0 {
		return out
	}

	buf := make([]PhasePoint, len(points))
	for p := 0; p < passes; p++ {
		copy(buf, out)
		for i := 2; i < len(out)-2; i++ {
			var v float64
			for k, w := range smoothingKernel {
				v += w * buf[i+k-2].Value
			}
			out[i].Value = v
		}
	}
	return out
}
