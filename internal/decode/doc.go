// Package decode provides the two code readers run against every submission.
//
// Both readers implement Decoder and make exactly one attempt per image:
//
//   - Symbolic (ZXing) reports the decoded text and the pattern centres it
//     located, in the order the reader found them.
//   - Geometric reports the decoded text and the four corners of the code. It
//     uses OpenCV's QR detector when built with cgo and the "opencv" tag, and
//     a try-harder ZXing pass otherwise.
//
// Only the OpenCV build gives two independent readers. The default build runs
// ZXing twice with different hints, so an image ZXing cannot read usually
// fails both, and the two slots tend to score together.
//
// Absence of a code is data, not an error: Decode returns a Result with
// Found == false. Errors are reserved for input that cannot be processed at
// all, such as a nil or empty image.
package decode
