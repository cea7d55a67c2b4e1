package imaging

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// RenderPrefix starts the name of every rendered artefact.
const RenderPrefix = "rendered"

// Render draws the overlay on a copy of img and writes it as PNG to a newly
// created, uniquely named file in dir (the OS temp dir when empty).
//
// Returns the path of the new file. The caller owns it and is responsible for
// removing it. On failure no file is left behind.
func Render(img image.Image, ov Overlay, dir string) (string, error) {
	canvas := Draw(img, ov)

	f, err := os.CreateTemp(dir, RenderPrefix+"*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create artefact file: %w", err)
	}
	path := f.Name()

	if err := imaging.Encode(f, canvas, imaging.PNG); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode artefact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write artefact: %w", err)
	}

	return path, nil
}
