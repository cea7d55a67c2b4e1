//go:build !(cgo && opencv)

package decode

import (
	"image"

	"github.com/makiuchi-d/gozxing"
)

// GeometricName is the Name of the geometric decoder.
const GeometricName = "zxing-hard"

// Geometric locates and reads a QR code, reporting the four corners of the
// located code.
//
// Without OpenCV this is the ZXing reader in try-harder mode; the corners are
// the bounding quadrilateral of the located pattern points. It shares its
// reader with Symbolic, so it is not an independent second opinion. Build
// with "-tags opencv" (and cgo) to use OpenCV's QR detector instead.
type Geometric struct{}

// NewGeometric returns the geometric decoder.
func NewGeometric() *Geometric {
	return &Geometric{}
}

// Name implements Decoder.
func (*Geometric) Name() string { return GeometricName }

// Decode implements Decoder.
func (g *Geometric) Decode(img image.Image) (Result, error) {
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	res, err := zxingDecode(g.Name(), img, hints)
	if err != nil || !res.Found {
		return res, err
	}
	res.Points = corners(res.Points)
	return res, nil
}
