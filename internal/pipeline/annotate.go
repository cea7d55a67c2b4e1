package pipeline

import (
	"fmt"
	"image"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/mobilecoinofficial/qrhunt/internal/decode"
	"github.com/mobilecoinofficial/qrhunt/internal/detection"
	qrimaging "github.com/mobilecoinofficial/qrhunt/internal/imaging"
)

// Annotation layout.
const (
	// MaxSymbolicPoints caps the symbolic decoder's drawn polyline.
	MaxSymbolicPoints = 5

	decoderLineThickness = 3
	contourThickness     = 5
	approxThickness      = 6
)

var (
	symbolicAt  = image.Pt(40, 40)
	geometricAt = image.Pt(80, 80)
	approxShift = image.Pt(100, 100)

	symbolicColor  = colorful.Color{R: 0, G: 1, B: 1} // cyan
	geometricColor = colorful.Color{R: 0, G: 0, B: 1} // blue
	contourColor   = colorful.Color{R: 1, G: 0, B: 0} // red
	approxColor    = colorful.Color{R: 0, G: 1, B: 0} // green
)

// decoderLabel is "<NAME>: <text>" or "<NAME>: <NAME>_ERROR" when nothing was
// decoded.
func decoderLabel(res decode.Result) string {
	name := strings.ToUpper(res.Decoder)
	if v := res.Value(); v != "" {
		return fmt.Sprintf("%s: %s", name, v)
	}
	return fmt.Sprintf("%s: %s_ERROR", name, name)
}

// annotate builds the overlay for one evaluation: both decoder labels and
// geometry, then the contour and approximated polygon of every qualifying
// square-ish candidate.
func annotate(symbolic, geometric decode.Result, squares detection.Squares) qrimaging.Overlay {
	var ov qrimaging.Overlay

	ov.Labels = append(ov.Labels,
		qrimaging.Label{Text: decoderLabel(symbolic), At: symbolicAt, Color: symbolicColor},
		qrimaging.Label{Text: decoderLabel(geometric), At: geometricAt, Color: geometricColor},
	)

	if symbolic.Found && len(symbolic.Points) > 1 {
		pts := symbolic.Points
		if len(pts) > MaxSymbolicPoints {
			pts = pts[:MaxSymbolicPoints]
		}
		ov.Paths = append(ov.Paths, qrimaging.Path{
			Points: pts, Color: symbolicColor, Thickness: decoderLineThickness,
		})
	}
	if geometric.Found && len(geometric.Points) > 1 {
		ov.Paths = append(ov.Paths, qrimaging.Path{
			Points: geometric.Points, Closed: true, Color: geometricColor, Thickness: decoderLineThickness,
		})
	}

	for _, c := range squares.Qualifying() {
		ov.Paths = append(ov.Paths,
			qrimaging.Path{Points: c.Contour, Closed: true, Color: contourColor, Thickness: contourThickness},
			qrimaging.Path{Points: c.Approx, Closed: true, Color: approxColor, Thickness: approxThickness},
		)
		if c.HasCentroid {
			ov.Labels = append(ov.Labels, qrimaging.Label{Text: "CONTOUR", At: c.Centroid, Color: contourColor})
		}
		ov.Labels = append(ov.Labels, qrimaging.Label{Text: "APPROX", At: c.Approx[0].Add(approxShift), Color: approxColor})
	}

	return ov
}
