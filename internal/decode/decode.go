package decode

import (
	"errors"
	"image"
)

// ErrEmptyImage is returned when a decoder is handed a nil or zero-sized image.
// A code that simply is not there is not an error; see Result.Found.
var ErrEmptyImage = errors.New("decode: empty image")

// Decoder attempts to read one code from an image.
//
// Implementations must be stateless between calls so a single instance can be
// reused for every submission.
type Decoder interface {
	// Name identifies the decoder in results, logs and annotations.
	Name() string

	// Decode makes a single attempt. Absence of a code is reported as a
	// Result with Found == false and a nil error.
	Decode(img image.Image) (Result, error)
}

// Result is the outcome of one decode attempt.
type Result struct {
	// Decoder is the Name of the decoder that produced this result.
	Decoder string `json:"decoder"`

	// Text is the decoded payload; empty when nothing was found.
	Text string `json:"text,omitempty"`

	// Found reports whether a code was decoded.
	Found bool `json:"found"`

	// Points is the ordered boundary geometry reported by the decoder.
	Points []image.Point `json:"points,omitempty"`
}

// Value returns the decoded text, or "" when nothing was found.
func (r Result) Value() string {
	if !r.Found {
		return ""
	}
	return r.Text
}

func notFound(name string) Result {
	return Result{Decoder: name}
}

func checkImage(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return ErrEmptyImage
	}
	return nil
}

// corners returns the axis-aligned bounding quadrilateral of pts, clockwise
// from the top-left corner.
func corners(pts []image.Point) []image.Point {
	if len(pts) == 0 {
		return nil
	}
	r := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return []image.Point{
		r.Min,
		{X: r.Max.X, Y: r.Min.Y},
		r.Max,
		{X: r.Min.X, Y: r.Max.Y},
	}
}
