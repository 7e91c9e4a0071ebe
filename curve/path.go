package curve

import (
	"strconv"
	"strings"
)

// Point is a projected display coordinate.
type Point struct {
	X float64
	Y float64
}

// Viewport maps the (hour, value) domain onto a pixel box. The value axis is
// inverted so that larger values are drawn higher.
type Viewport struct {
	Width    float64 // plot width in pixels
	Height   float64 // plot height in pixels
	PadLeft  float64 // left inset applied to every x
	PadTop   float64 // top inset applied to every y
	MinHour  float64
	MaxHour  float64
	MinValue float64
	MaxValue float64
}

// Project converts a PhasePoint into display coordinates. A degenerate domain
// (max == min) collapses onto the left or bottom edge.
func (v Viewport) Project(p PhasePoint) Point {
	x := v.PadLeft
	if span := v.MaxHour - v.MinHour; span != 0 {
		x += (p.Hour - v.MinHour) / span * v.Width
	}
	y := v.PadTop + v.Height
	if span := v.MaxValue - v.MinValue; span != 0 {
		y -= (p.Value - v.MinValue) / span * v.Height
	}
	return Point{X: x, Y: y}
}

// ProjectAll projects every point.
func (v Viewport) ProjectAll(points []PhasePoint) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = v.Project(p)
	}
	return out
}

// segment is one cubic Bézier span between two projected points.
type segment struct {
	from, c1, c2, to Point
}

// SmoothPath builds an SVG path through points. When the projected x values are
// strictly increasing the path is a monotone cubic Hermite spline (Fritsch–Carlson)
// emitted as Bézier segments, which never overshoots local extrema. Otherwise it
// falls back to a polyline through every point.
//
// Zero or one point yields "", two points yield a single line segment.
func SmoothPath(points []PhasePoint, vp Viewport) string {
	pts := vp.ProjectAll(points)
	if len(pts) < 2 {
		return ""
	}
	if len(pts) == 2 || !strictlyIncreasingX(pts) {
		return linearPath(pts)
	}

	var b strings.Builder
	b.WriteString("M ")
	writePoint(&b, pts[0])
	for _, s := range hermiteSegments(pts) {
		writeCurve(&b, s.c1, s.c2, s.to)
	}
	return b.String()
}

// FillPath closes the smooth path down to baseValue and back to the first x,
// producing an area-under-curve shape. Returns "" when no path can be drawn.
func FillPath(points []PhasePoint, vp Viewport, baseValue float64) string {
	line := SmoothPath(points, vp)
	if line == "" {
		return ""
	}
	first := vp.Project(points[0])
	last := vp.Project(points[len(points)-1])
	base := vp.Project(PhasePoint{Value: baseValue}).Y

	var b strings.Builder
	b.WriteString(line)
	b.WriteString(" L ")
	writePoint(&b, Point{X: last.X, Y: base})
	b.WriteString(" L ")
	writePoint(&b, Point{X: first.X, Y: base})
	b.WriteString(" Z")
	return b.String()
}

// BandPath traces upper left-to-right and lower right-to-left, closing the
// region between the two curves. Returns "" unless both curves have at least
// two points.
func BandPath(upper, lower []PhasePoint, vp Viewport) string {
	up := vp.ProjectAll(upper)
	lo := vp.ProjectAll(lower)
	if len(up) < 2 || len(lo) < 2 {
		return ""
	}

	var b strings.Builder
	b.WriteString("M ")
	writePoint(&b, up[0])
	for _, s := range pathSegments(up) {
		writeCurve(&b, s.c1, s.c2, s.to)
	}

	b.WriteString(" L ")
	writePoint(&b, lo[len(lo)-1])
	segs := pathSegments(lo)
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		writeCurve(&b, s.c2, s.c1, s.from)
	}
	b.WriteString(" Z")
	return b.String()
}

// pathSegments returns Hermite segments for monotone input and straight
// segments (control points on the chord) otherwise.
func pathSegments(pts []Point) []segment {
	if len(pts) > 2 && strictlyIncreasingX(pts) {
		return hermiteSegments(pts)
	}
	segs := make([]segment, 0, len(pts)-1)
	for i := 0; i < len(pts)-1; i++ {
		a, c := pts[i], pts[i+1]
		segs = append(segs, segment{
			from: a,
			c1:   Point{X: a.X + (c.X-a.X)/3, Y: a.Y + (c.Y-a.Y)/3},
			c2:   Point{X: c.X - (c.X-a.X)/3, Y: c.Y - (c.Y-a.Y)/3},
			to:   c,
		})
	}
	return segs
}

// hermiteSegments computes Fritsch–Carlson tangents and converts each interval
// to a cubic Bézier. Requires at least two points with strictly increasing x.
func hermiteSegments(pts []Point) []segment {
	n := len(pts)
	h := make([]float64, n-1)
	d := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = pts[i+1].X - pts[i].X
		d[i] = (pts[i+1].Y - pts[i].Y) / h[i]
	}

	m := make([]float64, n)
	m[0] = d[0]
	m[n-1] = d[n-2]
	for i := 1; i < n-1; i++ {
		if d[i-1] == 0 || d[i] == 0 || (d[i-1] > 0) != (d[i] > 0) {
			m[i] = 0
			continue
		}
		w1 := 2*h[i] + h[i-1]
		w2 := h[i] + 2*h[i-1]
		m[i] = (w1 + w2) / (w1/d[i-1] + w2/d[i])
	}

	segs := make([]segment, n-1)
	for i := 0; i < n-1; i++ {
		third := h[i] / 3
		a, c := pts[i], pts[i+1]
		segs[i] = segment{
			from: a,
			c1:   Point{X: a.X + third, Y: a.Y + m[i]*third},
			c2:   Point{X: c.X - third, Y: c.Y - m[i+1]*third},
			to:   c,
		}
	}
	return segs
}

func strictlyIncreasingX(pts []Point) bool {
	for i := 1; i < len(pts); i++ {
		if !(pts[i].X > pts[i-1].X) {
			return false
		}
	}
	return true
}

func linearPath(pts []Point) string {
	var b strings.Builder
	b.WriteString("M ")
	writePoint(&b, pts[0])
	for _, p := range pts[1:] {
		b.WriteString(" L ")
		writePoint(&b, p)
	}
	return b.String()
}

func writeCurve(b *strings.Builder, c1, c2, to Point) {
	b.WriteString(" C ")
	writePoint(b, c1)
	b.WriteString(", ")
	writePoint(b, c2)
	b.WriteString(", ")
	writePoint(b, to)
}

func writePoint(b *strings.Builder, p Point) {
	b.WriteString(formatCoord(p.X))
	b.WriteByte(' ')
	b.WriteString(formatCoord(p.Y))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
