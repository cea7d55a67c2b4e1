// Package fingerprint computes the perceptual hashes used to recognise
// resubmitted images.
//
// Two independent 64-bit hashes are produced from the original decoded image:
// a coarse average hash and a fine DCT perceptual hash. Both survive
// re-encoding and mild rescaling, so exact string equality is enough to flag
// "same-looking" images. No distance comparison is performed.
package fingerprint

import (
	"errors"
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// ErrEmptyImage is returned for nil or zero-area images.
var ErrEmptyImage = errors.New("image has no pixels")

// Pair holds both fingerprints of one image as 16 lowercase hex digits each.
type Pair struct {
	Coarse string `json:"coarse"` // average hash
	Fine   string `json:"fine"`   // perceptual (DCT) hash
}

// Compute returns the coarse and fine fingerprints of img.
//
// img must be the original decoded image, before any grayscale or blur
// preprocessing, so that re-encoded resubmissions still match.
func Compute(img image.Image) (Pair, error) {
	if img == nil || img.Bounds().Empty() {
		return Pair{}, ErrEmptyImage
	}

	avg, err := goimagehash.AverageHash(img)
	if err != nil {
		return Pair{}, fmt.Errorf("average hash: %w", err)
	}
	perc, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Pair{}, fmt.Errorf("perception hash: %w", err)
	}

	return Pair{
		Coarse: format(avg),
		Fine:   format(perc),
	}, nil
}

func format(h *goimagehash.ImageHash) string {
	return fmt.Sprintf("%016x", h.GetHash())
}
