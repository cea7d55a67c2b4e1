package decode

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// SymbolicName is the Name of the symbolic decoder.
const SymbolicName = "zxing"

// Symbolic reads QR codes with the ZXing reader and reports the finder (and
// alignment) pattern centres as its boundary points.
type Symbolic struct{}

// NewSymbolic returns the symbolic decoder.
func NewSymbolic() *Symbolic {
	return &Symbolic{}
}

// Name implements Decoder.
func (*Symbolic) Name() string { return SymbolicName }

// Decode implements Decoder.
func (s *Symbolic) Decode(img image.Image) (Result, error) {
	return zxingDecode(s.Name(), img, nil)
}

// zxingDecode runs a fresh QR reader over img. Reader exceptions (not found,
// bad format, failed checksum) all mean "no usable code" and are reported as
// a not-found Result.
func zxingDecode(name string, img image.Image, hints map[gozxing.DecodeHintType]interface{}) (Result, error) {
	if err := checkImage(img); err != nil {
		return Result{}, err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Result{}, fmt.Errorf("%s: failed to binarize image: %w", name, err)
	}

	res, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		var re gozxing.ReaderException
		if errors.As(err, &re) {
			return notFound(name), nil
		}
		return Result{}, fmt.Errorf("%s: decode failed: %w", name, err)
	}

	return Result{
		Decoder: name,
		Text:    res.GetText(),
		Found:   true,
		Points:  resultPoints(res.GetResultPoints()),
	}, nil
}

func resultPoints(rps []gozxing.ResultPoint) []image.Point {
	pts := make([]image.Point, 0, len(rps))
	for _, rp := range rps {
		if rp == nil {
			continue
		}
		pts = append(pts, image.Pt(int(math.Round(rp.GetX())), int(math.Round(rp.GetY()))))
	}
	return pts
}
