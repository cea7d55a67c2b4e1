package pipeline

import (
	"encoding/json"

	"github.com/mobilecoinofficial/qrhunt/internal/decode"
	"github.com/mobilecoinofficial/qrhunt/internal/fingerprint"
)

// Result is the evaluation of one submission. It is produced once by Run and
// never modified afterwards.
type Result struct {
	// SubmissionID correlates the result with the submission it describes.
	SubmissionID string `json:"submission_id"`

	// Square is the square-ish flag from the geometric fallback.
	Square bool `json:"square"`

	// Symbolic and Geometric are the two decoder outcomes.
	Symbolic  decode.Result `json:"symbolic"`
	Geometric decode.Result `json:"geometric"`

	// Hashes are the perceptual fingerprints of the original image.
	Hashes fingerprint.Pair `json:"hashes"`

	// ArtifactPath is the rendered annotation. The caller owns the file.
	ArtifactPath string `json:"artifact_path"`
}

// Slots returns which of the ordered scoring slots are non-empty: the
// square-ish flag, the symbolic value and the geometric value.
func (r *Result) Slots() [3]bool {
	return [3]bool{
		r.Square,
		r.Symbolic.Value() != "",
		r.Geometric.Value() != "",
	}
}

// Values returns the non-empty decoded values, symbolic first.
func (r *Result) Values() []string {
	var out []string
	for _, v := range []string{r.Symbolic.Value(), r.Geometric.Value()} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// summary is the user-facing debug view of a Result.
type summary struct {
	Square    bool   `json:"square"`
	Symbolic  string `json:"symbolic,omitempty"`
	Geometric string `json:"geometric,omitempty"`
	Coarse    string `json:"ahash"`
	Fine      string `json:"phash"`
}

// Summary renders the flag, decoded values and hashes as compact JSON.
func (r *Result) Summary() string {
	b, err := json.Marshal(summary{
		Square:    r.Square,
		Symbolic:  r.Symbolic.Value(),
		Geometric: r.Geometric.Value(),
		Coarse:    r.Hashes.Coarse,
		Fine:      r.Hashes.Fine,
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}
