package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// BlurRadius gives bild's Gaussian a 9x9 kernel (length = 2*radius + 1).
const BlurRadius = 4.0

// BinaryThreshold is the gray level a pixel must exceed to count as foreground.
const BinaryThreshold = 187

// Prepare converts img to grayscale and applies a 9x9 Gaussian blur. The
// result feeds both code decoders and the geometric fallback.
//
// The returned image is always *image.Gray.
func Prepare(img image.Image) *image.Gray {
	gray := effect.Grayscale(img)
	blurred := blur.Gaussian(gray, BlurRadius)
	return toGray(blurred)
}

// Threshold binarises a grayscale image: pixels strictly brighter than
// BinaryThreshold become 255, everything else 0.
//
// bild keeps pixels >= level, so level is BinaryThreshold+1.
func Threshold(gray image.Image) *image.Gray {
	return segment.Threshold(gray, BinaryThreshold+1)
}

// toGray copies the first channel of an RGBA image produced from gray input.
func toGray(src *image.RGBA) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		si := src.PixOffset(bounds.Min.X, y)
		di := dst.PixOffset(bounds.Min.X, y)
		for x := 0; x < bounds.Dx(); x++ {
			dst.Pix[di+x] = src.Pix[si+x*4]
		}
	}
	return dst
}
