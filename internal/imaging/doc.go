// Package imaging provides the image plumbing around submission evaluation:
// loading a submitted file, preparing the grayscale/blurred working copy,
// binarising it, and rendering the annotated artefact.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward.
//
// # Source Images
//
// Load reads a submission exactly once and never writes to it. Open and decode
// failures are reported as ErrUnreadable so the caller can treat the
// submission as malformed.
//
// # Preprocessing
//
// Prepare produces the working copy used by the detectors:
//
//  1. Grayscale conversion (bild effect.Grayscale)
//  2. 9x9 Gaussian blur (bild blur.Gaussian, radius 4)
//
// Threshold then binarises that copy at a fixed level of 187: only pixels
// strictly brighter than 187 become foreground.
//
// # Rendering
//
// Draw applies an Overlay (thick polylines and text labels) to a copy of the
// original image. Render does the same and writes the copy to a uniquely named
// "rendered*.png" file. Labels use the 7x13 basic bitmap font; coordinates are
// the baseline origin of the text.
package imaging
