package detection

import (
	"image"
	"math"
)

// ArcLength returns the perimeter of a polygon. When closed is true the
// segment from the last point back to the first is included.
func ArcLength(pts []image.Point, closed bool) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}
	var length float64
	for i := 0; i+1 < n; i++ {
		length += dist(pts[i], pts[i+1])
	}
	if closed {
		length += dist(pts[n-1], pts[0])
	}
	return length
}

// Moments holds the raw spatial moments of a closed polygon, computed with
// Green's theorem over its vertices.
type Moments struct {
	M00 float64 // signed area
	M10 float64
	M01 float64
}

// PolygonMoments returns the zeroth and first order moments of the closed
// polygon pts. M00 is positive for counter-clockwise vertex order in image
// coordinates and negative otherwise.
func PolygonMoments(pts []image.Point) Moments {
	var m Moments
	n := len(pts)
	if n < 3 {
		return m
	}
	for i := 0; i < n; i++ {
		a := pts[i]
		b := pts[(i+1)%n]
		cross := float64(a.X*b.Y - b.X*a.Y)
		m.M00 += cross
		m.M10 += float64(a.X+b.X) * cross
		m.M01 += float64(a.Y+b.Y) * cross
	}
	m.M00 /= 2
	m.M10 /= 6
	m.M01 /= 6
	return m
}

// Centroid returns the polygon centroid. ok is false when M00 is zero, in
// which case the centroid is undefined.
func (m Moments) Centroid() (image.Point, bool) {
	if m.M00 == 0 {
		return image.Point{}, false
	}
	return image.Pt(int(m.M10/m.M00), int(m.M01/m.M00)), true
}

// Area returns the absolute area enclosed by the closed polygon pts.
func Area(pts []image.Point) float64 {
	return math.Abs(PolygonMoments(pts).M00)
}

// ApproxPolygon simplifies a closed curve with the Douglas–Peucker algorithm.
// Every point of the input lies within epsilon of the returned polygon.
//
// The curve is split at its first point and the point farthest from it; each
// half is simplified as an open polyline and the halves are joined.
func ApproxPolygon(pts []image.Point, epsilon float64) []image.Point {
	n := len(pts)
	if n < 3 {
		return append([]image.Point(nil), pts...)
	}

	far, best := 0, -1.0
	for i := 1; i < n; i++ {
		if d := dist(pts[0], pts[i]); d > best {
			far, best = i, d
		}
	}
	if best == 0 {
		return []image.Point{pts[0]}
	}

	closing := make([]image.Point, 0, n-far+1)
	closing = append(closing, pts[far:]...)
	closing = append(closing, pts[0])

	left := simplify(pts[:far+1], epsilon)
	right := simplify(closing, epsilon)

	out := make([]image.Point, 0, len(left)+len(right)-2)
	out = append(out, left[:len(left)-1]...)
	out = append(out, right[:len(right)-1]...)
	return out
}

// simplify is Douglas–Peucker on an open polyline; both endpoints are kept.
func simplify(pts []image.Point, epsilon float64) []image.Point {
	n := len(pts)
	if n < 3 {
		return append([]image.Point(nil), pts...)
	}

	first, last := pts[0], pts[n-1]
	idx, maxDist := 0, -1.0
	for i := 1; i < n-1; i++ {
		if d := segmentDistance(pts[i], first, last); d > maxDist {
			idx, maxDist = i, d
		}
	}

	if maxDist <= epsilon {
		return []image.Point{first, last}
	}

	left := simplify(pts[:idx+1], epsilon)
	right := simplify(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// segmentDistance is the distance from p to the line through a and b, or to a
// when a and b coincide.
func segmentDistance(p, a, b image.Point) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return dist(p, a)
	}
	return math.Abs(dy*float64(p.X-a.X)-dx*float64(p.Y-a.Y)) / length
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}
