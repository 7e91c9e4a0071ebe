package curve

import "sort"

// InterpolateAt returns the value of points at hour. Outside the recorded domain
// the first or last value is returned (clamped); inside, the bracketing pair is
// interpolated linearly. Recorded hours return their exact value. An empty
// sequence yields 0.
func InterpolateAt(points []PhasePoint, hour float64) float64 {
	n := len(points)
	switch {
	case n == 0:
		return 0
	case hour <= points[0].Hour:
		return points[0].Value
	case hour >= points[n-1].Hour:
		return points[n-1].Value
	}

	// first index whose hour is >= the query
	j := sort.Search(n, func(i int) bool { return points[i].Hour >= hour })
	if j >= n {
		return points[n-1].Value
	}
	if points[j].Hour == hour || j == 0 {
		return points[j].Value
	}
	a, b := points[j-1], points[j]
	span := b.Hour - a.Hour
	if span <= 0 {
		return a.Value
	}
	return a.Value + (hour-a.Hour)/span*(b.Value-a.Value)
}

// MorphBlend blends desired into overlay around a moving cursor. Points at or
// before cursor-halfWidth keep the desired value exactly, points at or after
// cursor+halfWidth take the overlay value exactly, and points in between follow a
// smoothstep ramp (3t²−2t³), which is C¹-continuous at both ends.
//
// Only the common prefix of the two sequences is blended; hours are taken from
// desired. A non-positive halfWidth degenerates to a hard switch at the cursor.
func MorphBlend(desired, overlay []PhasePoint, cursor, halfWidth float64) []PhasePoint {
	n := min(len(desired), len(overlay))
	out := make([]PhasePoint, n)
	lo, hi := cursor-halfWidth, cursor+halfWidth

	for i := 0; i < n; i++ {
		h := desired[i].Hour
		out[i].Hour = h
		switch {
		case halfWidth <= 0:
			if h < cursor {
				out[i].Value = desired[i].Value
			} else {
				out[i].Value = overlay[i].Value
			}
		case h <= lo:
			out[i].Value = desired[i].Value
		case h >= hi:
			out[i].Value = overlay[i].Value
		default:
			w := 1 - smoothstep((h-lo)/(hi-lo))
			out[i].Value = w*desired[i].Value + (1-w)*overlay[i].Value
		}
	}
	return out
}

// smoothstep is the cubic Hermite ramp 3t²−2t³ for t in [0,1].
func smoothstep(t float64) float64 {
	t = max(0, min(1, t))
	return t * t * (3 - 2*t)
}
