package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrUnreadable is returned when a source file cannot be opened or decoded.
var ErrUnreadable = errors.New("unreadable image")

// ErrSizeMismatch is returned by CheckAttachment when the file on disk does not
// have the size the attachment provider announced.
var ErrSizeMismatch = errors.New("attachment size mismatch")

// SourceInfo contains metadata about a loaded source image.
type SourceInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is derived from the file extension: "png", "jpeg", "gif" or "unknown".
	Format string `json:"format"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// Load reads and decodes the image at path.
//
// The file is read exactly once; the source is never modified. Any open or
// decode failure is wrapped in ErrUnreadable so callers can tell a malformed
// submission from an infrastructure failure.
//
// Supported formats are PNG, JPEG and GIF.
func Load(path string) (image.Image, *SourceInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, nil, fmt.Errorf("%w: image has no pixels", ErrUnreadable)
	}

	return img, &SourceInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        formatOf(path),
		FileSizeBytes: stat.Size(),
	}, nil
}

// CheckAttachment verifies that path is a regular file and, when size is
// positive, that it has exactly that many bytes. It is the contract check for
// files handed over by an attachment provider.
func CheckAttachment(path string, size int64) error {
	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat attachment: %w", err)
	}
	if !stat.Mode().IsRegular() {
		return fmt.Errorf("attachment %s is not a regular file", path)
	}
	if size > 0 && stat.Size() != size {
		return fmt.Errorf("%w: want %d bytes, have %d", ErrSizeMismatch, size, stat.Size())
	}
	return nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	default:
		return "unknown"
	}
}
