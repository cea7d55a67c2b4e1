// Package detection implements the geometric fallback that flags square-ish,
// code-shaped objects when no code could be decoded.
//
// # Pipeline
//
// FindSquares follows the classic contour recipe:
//
//  1. Binarisation: threshold the grayscale, blurred image at 187
//  2. Border following: Suzuki–Abe tracing of every outer and hole border
//  3. Polygon approximation: closed Douglas–Peucker at 1% of the perimeter
//  4. Measurement: polygon area and moments (centroid when m00 != 0)
//  5. Qualification: area > 400 px² and exactly 4 approximated vertices
//
// The first border met in the raster scan outlines the whole frame and is
// skipped.
//
// # Flag and Annotation
//
// The square-ish flag and the set of shapes to draw are two separate passes
// over the same candidates: Squares.Flag stops at the first qualifying
// candidate, Squares.Qualifying returns all of them. Neither depends on the
// other.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Limitations
//
// The heuristic is deliberately crude. Any high-contrast quadrilateral (a
// window, a sticky note, a book) qualifies; it exists to award partial credit,
// not to locate codes precisely.
package detection
