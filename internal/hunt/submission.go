package hunt

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	qrimaging "github.com/mobilecoinofficial/qrhunt/internal/imaging"
)

// ErrInvalidSubmission is returned by NewSubmission for attachments that are
// missing, not regular files or of the wrong size.
var ErrInvalidSubmission = errors.New("invalid submission")

// Submission is a validated image from one user. It is not modified after
// NewSubmission returns it.
type Submission struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// NewSubmission validates the attachment at path. A positive size must match
// the file on disk; zero skips the size check.
func NewSubmission(userID, path string, size int64) (Submission, error) {
	if userID == "" {
		return Submission{}, fmt.Errorf("%w: user id is required", ErrInvalidSubmission)
	}
	if err := qrimaging.CheckAttachment(path, size); err != nil {
		return Submission{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}

	return Submission{
		ID:         uuid.NewString(),
		UserID:     userID,
		Path:       path,
		Size:       size,
		UploadedAt: time.Now().UTC(),
	}, nil
}
