package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/rs/zerolog"

	"github.com/mobilecoinofficial/qrhunt/internal/decode"
	"github.com/mobilecoinofficial/qrhunt/internal/detection"
	"github.com/mobilecoinofficial/qrhunt/internal/fingerprint"
	qrimaging "github.com/mobilecoinofficial/qrhunt/internal/imaging"
)

// ErrMalformedImage is returned when the source cannot be decoded as an image.
// No Result is produced.
var ErrMalformedImage = errors.New("malformed image")

// Options configures a Pipeline. Zero values select the defaults.
type Options struct {
	// Symbolic and Geometric are the two decoders. Defaults are
	// decode.NewSymbolic and decode.NewGeometric.
	Symbolic  decode.Decoder
	Geometric decode.Decoder

	// RenderDir receives rendered artefacts. Defaults to os.TempDir().
	RenderDir string

	Logger zerolog.Logger
}

// Pipeline composes fingerprinting, decoding, the geometric fallback and
// rendering into one Result per submission.
//
// A Pipeline holds no per-run state and may be shared, though the worker
// runs at most one at a time.
type Pipeline struct {
	symbolic  decode.Decoder
	geometric decode.Decoder
	renderDir string
	log       zerolog.Logger
}

// New returns a Pipeline configured by opts.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		symbolic:  opts.Symbolic,
		geometric: opts.Geometric,
		renderDir: opts.RenderDir,
		log:       opts.Logger.With().Str("component", "pipeline").Logger(),
	}
	if p.symbolic == nil {
		p.symbolic = decode.NewSymbolic()
	}
	if p.geometric == nil {
		p.geometric = decode.NewGeometric()
	}
	if p.renderDir == "" {
		p.renderDir = os.TempDir()
	}
	return p
}

// Run evaluates the image at path.
//
// The source is read once and never written. Exactly one artefact is written
// to the render directory; its path is in the Result and the caller owns it.
// ctx is checked between stages so an abandoned run stops early.
func (p *Pipeline) Run(ctx context.Context, submissionID, path string) (*Result, error) {
	log := p.log.With().Str("submission", submissionID).Logger()

	src, info, err := qrimaging.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedImage, err)
	}
	log.Debug().
		Int("width", info.Width).
		Int("height", info.Height).
		Str("format", info.Format).
		Msg("source loaded")

	hashes, err := fingerprint.Compute(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedImage, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray := qrimaging.Prepare(src)

	symbolic := p.decode(log, p.symbolic, gray)
	geometric := p.decode(log, p.geometric, gray)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	squares := detection.FindSquares(gray)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifact, err := qrimaging.Render(src, annotate(symbolic, geometric, squares), p.renderDir)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	res := &Result{
		SubmissionID: submissionID,
		Square:       squares.Flag(),
		Symbolic:     symbolic,
		Geometric:    geometric,
		Hashes:       hashes,
		ArtifactPath: artifact,
	}

	log.Debug().
		Bool("square", res.Square).
		Bool("symbolic", symbolic.Found).
		Bool("geometric", geometric.Found).
		Int("candidates", len(squares.Candidates)).
		Str("artifact", artifact).
		Msg("evaluation complete")

	return res, nil
}

// decode makes the decoder's single attempt. A decoder error on an image that
// already loaded is logged and recorded as not found.
func (p *Pipeline) decode(log zerolog.Logger, d decode.Decoder, img image.Image) decode.Result {
	res, err := d.Decode(img)
	if err != nil {
		log.Warn().Err(err).Str("decoder", d.Name()).Msg("decoder failed")
		return decode.Result{Decoder: d.Name()}
	}
	res.Decoder = d.Name()
	return res
}
