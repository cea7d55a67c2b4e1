//go:build cgo && opencv

package decode

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"gocv.io/x/gocv"
)

// GeometricName is the Name of the geometric decoder.
const GeometricName = "opencv"

// Geometric locates and reads a QR code with OpenCV's QR detector, reporting
// the four corners of the located code.
type Geometric struct{}

// NewGeometric returns the geometric decoder.
func NewGeometric() *Geometric {
	return &Geometric{}
}

// Name implements Decoder.
func (*Geometric) Name() string { return GeometricName }

// Decode implements Decoder.
func (g *Geometric) Decode(img image.Image) (Result, error) {
	if err := checkImage(img); err != nil {
		return Result{}, err
	}

	mat, err := gocv.ImageGrayToMatGray(toGray(img))
	if err != nil {
		return Result{}, fmt.Errorf("%s: failed to convert image: %w", g.Name(), err)
	}
	defer mat.Close()

	detector := gocv.NewQRCodeDetector()
	defer detector.Close()

	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	text := detector.DetectAndDecode(mat, &points, &straight)
	if text == "" || points.Empty() {
		return notFound(g.Name()), nil
	}

	pts := make([]image.Point, 0, 4)
	for i := 0; i < points.Cols() && len(pts) < 4; i++ {
		v := points.GetVecfAt(0, i)
		if len(v) < 2 {
			continue
		}
		pts = append(pts, image.Pt(
			int(math.Round(float64(v[0]))),
			int(math.Round(float64(v[1]))),
		))
	}

	return Result{Decoder: g.Name(), Text: text, Found: true, Points: pts}, nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
