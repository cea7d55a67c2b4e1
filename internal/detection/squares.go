package detection

import (
	"image"

	qrimaging "github.com/mobilecoinofficial/qrhunt/internal/imaging"
)

// Qualification thresholds for a square-ish candidate.
const (
	// MinSquareArea is the area, in square pixels, a border must exceed.
	MinSquareArea = 400.0

	// SquareVertices is the vertex count the approximated polygon must have.
	SquareVertices = 4

	// ApproxTolerance is the polygon approximation epsilon as a fraction of
	// the border's closed perimeter.
	ApproxTolerance = 0.01
)

// Candidate is one border of the binarised image with its geometry.
type Candidate struct {
	// Contour is the traced border in pixel order.
	Contour []image.Point `json:"-"`

	// Approx is the Douglas–Peucker approximation of Contour.
	Approx []image.Point `json:"approx"`

	// Area is the absolute polygon area of Contour in square pixels.
	Area float64 `json:"area"`

	// Centroid is the contour centroid; only meaningful when HasCentroid.
	Centroid    image.Point `json:"centroid"`
	HasCentroid bool        `json:"has_centroid"`
}

// Vertices returns the vertex count of the approximated polygon.
func (c Candidate) Vertices() int {
	return len(c.Approx)
}

// Qualifies reports whether the candidate is square-ish: area above
// MinSquareArea and exactly SquareVertices approximated vertices.
func (c Candidate) Qualifies() bool {
	return c.Area > MinSquareArea && c.Vertices() == SquareVertices
}

// Squares is the outcome of the geometric fallback over one image.
type Squares struct {
	// Candidates holds every analysed border except the first, in scan order.
	Candidates []Candidate
}

// Flag reports whether any candidate qualifies. The first qualifying
// candidate decides; later ones cannot unset it.
func (s Squares) Flag() bool {
	for _, c := range s.Candidates {
		if c.Qualifies() {
			return true
		}
	}
	return false
}

// Qualifying returns every qualifying candidate, regardless of the flag, for
// annotation.
func (s Squares) Qualifying() []Candidate {
	out := make([]Candidate, 0)
	for _, c := range s.Candidates {
		if c.Qualifies() {
			out = append(out, c)
		}
	}
	return out
}

// FindSquares runs the geometric fallback on a grayscale, blurred image.
//
// This heuristic awards partial credit for code-shaped objects; it is not a
// precise detector.
//
// # Algorithm
//
//  1. Binarise at level 187 (strictly brighter pixels are foreground)
//  2. Extract all borders with Suzuki–Abe border following
//  3. Skip the first border, which outlines the whole frame
//  4. For each remaining border: approximate with epsilon = 1% of its closed
//     perimeter, compute moments (centroid only when m00 != 0) and area
//
// Use Squares.Flag for the sticky square-ish flag and Squares.Qualifying for
// the candidates to draw.
func FindSquares(gray image.Image) Squares {
	bin := qrimaging.Threshold(gray)
	borders := FindBorders(bin)

	candidates := make([]Candidate, 0, len(borders))
	for i, border := range borders {
		if i == 0 {
			continue
		}
		candidates = append(candidates, analyse(border))
	}

	return Squares{Candidates: candidates}
}

func analyse(border []image.Point) Candidate {
	approx := ApproxPolygon(border, ApproxTolerance*ArcLength(border, true))
	m := PolygonMoments(border)
	centroid, ok := m.Centroid()

	return Candidate{
		Contour:     border,
		Approx:      approx,
		Area:        Area(border),
		Centroid:    centroid,
		HasCentroid: ok,
	}
}
