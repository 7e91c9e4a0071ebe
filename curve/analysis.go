package curve

import "math"

// PeakSmoothingPasses is the number of smoothing passes applied before peak and
// trough detection, so single-sample spikes in authored curves do not win.
const PeakSmoothingPasses = 3

// Peak returns the point with the greatest smoothed value. Ties resolve to the
// first occurrence. ok is false for an empty sequence.
func Peak(points []PhasePoint) (PhasePoint, bool) {
	return extremum(points, func(candidate, best float64) bool { return candidate > best })
}

// Trough returns the point with the smallest smoothed value. Ties resolve to the
// first occurrence. ok is false for an empty sequence.
func Trough(points []PhasePoint) (PhasePoint, bool) {
	return extremum(points, func(candidate, best float64) bool { return candidate < best })
}

func extremum(points []PhasePoint, better func(candidate, best float64) bool) (PhasePoint, bool) {
	if len(points) == 0 {
		return PhasePoint{}, false
	}
	smoothed := Smooth(points, PeakSmoothingPasses)
	best := smoothed[0]
	for _, p := range smoothed[1:] {
		if better(p.Value, best.Value) {
			best = p
		}
	}
	return best, true
}

// Divergence describes the point where two curves differ the most.
type Divergence struct {
	Hour  float64 // hour of the divergent sample
	Value float64 // value of the target curve at that hour
	Delta float64 // target minus reference, signed
}

// MaxDivergence scans matching indices of reference and target (typically a
// smoothed baseline and a smoothed desired curve) and reports the sample with the
// greatest absolute difference. Only the common prefix is compared; ties resolve
// to the first index. ok is false when there is nothing to compare.
func MaxDivergence(reference, target []PhasePoint) (Divergence, bool) {
	n := min(len(reference), len(target))
	if n == 0 {
		return Divergence{}, false
	}

	var best Divergence
	bestAbs := -1.0
	for i := 0; i < n; i++ {
		delta := target[i].Value - reference[i].Value
		if abs := math.Abs(delta); abs > bestAbs {
			bestAbs = abs
			best = Divergence{Hour: target[i].Hour, Value: target[i].Value, Delta: delta}
		}
	}
	return best, true
}
