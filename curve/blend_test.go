package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateAt(t *testing.T) {
	pts := []PhasePoint{{1, 0.1}, {2, 0.7}, {4, 0.3}, {8, 0.9}}

	for _, p := range pts {
		assert.Equal(t, p.Value, InterpolateAt(pts, p.Hour), "exact at recorded hour %v", p.Hour)
	}
	assert.Equal(t, 0.1, InterpolateAt(pts, 0))
	assert.Equal(t, 0.1, InterpolateAt(pts, -100))
	assert.Equal(t, 0.9, InterpolateAt(pts, 9))
	assert.InDelta(t, 0.4, InterpolateAt(pts, 1.5), 1e-12)
	assert.InDelta(t, 0.5, InterpolateAt(pts, 3), 1e-12)
	assert.InDelta(t, 0.6, InterpolateAt(pts, 6), 1e-12)

	assert.Equal(t, 0.0, InterpolateAt(nil, 3))
	assert.Equal(t, 5.0, InterpolateAt([]PhasePoint{{2, 5}}, 10))
}

func TestMorphBlend_ExactOutsideRamp(t *testing.T) {
	desired := []PhasePoint{{0, 10}, {1, 20}, {2, 30}, {3, 40}, {4, 50}, {5, 60}, {6, 70}}
	overlay := []PhasePoint{{0, -1}, {1, -2}, {2, -3}, {3, -4}, {4, -5}, {5, -6}, {6, -7}}
	const cursor, half = 3.0, 1.0

	out := MorphBlend(desired, overlay, cursor, half)
	require.Len(t, out, len(desired))
	for i, p := range out {
		switch {
		case p.Hour <= cursor-half:
			assert.Equal(t, desired[i].Value, p.Value, "hour %v", p.Hour)
		case p.Hour >= cursor+half:
			assert.Equal(t, overlay[i].Value, p.Value, "hour %v", p.Hour)
		}
		assert.Equal(t, desired[i].Hour, p.Hour)
	}

	// midway through the ramp the curves are weighted equally
	assert.InDelta(t, (desired[3].Value+overlay[3].Value)/2, out[3].Value, 1e-12)
}

func TestMorphBlend_EpsilonAroundBounds(t *testing.T) {
	const cursor, half, eps = 5.0, 2.0, 1e-6
	desired := []PhasePoint{{cursor - half - eps, 0.3}, {cursor + half + eps, 0.4}}
	overlay := []PhasePoint{{cursor - half - eps, 99.1}, {cursor + half + eps, 77.7}}

	out := MorphBlend(desired, overlay, cursor, half)
	assert.Equal(t, 0.3, out[0].Value)
	assert.Equal(t, 77.7, out[1].Value)
}

func TestMorphBlend_RampIsMonotoneAndSmooth(t *testing.T) {
	var desired, overlay []PhasePoint
	for h := 0.0; h <= 10; h += 0.01 {
		desired = append(desired, PhasePoint{Hour: h, Value: 1})
		overlay = append(overlay, PhasePoint{Hour: h, Value: 0})
	}
	out := MorphBlend(desired, overlay, 5, 2)

	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i].Value, out[i-1].Value)
		// C¹: no jumps in the weight
		assert.Less(t, out[i-1].Value-out[i].Value, 0.01)
	}
}

func TestMorphBlend_Degenerate(t *testing.T) {
	assert.Empty(t, MorphBlend(nil, []PhasePoint{{0, 1}}, 0, 1))

	desired := []PhasePoint{{0, 1}, {1, 1}, {2, 1}}
	overlay := []PhasePoint{{0, 0}, {1, 0}}
	out := MorphBlend(desired, overlay, 1, 0)
	assert.Equal(t, []PhasePoint{{0, 1}, {1, 0}}, out)
}
