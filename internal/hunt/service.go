package hunt

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mobilecoinofficial/qrhunt/internal/ledger"
	"github.com/mobilecoinofficial/qrhunt/internal/metrics"
	"github.com/mobilecoinofficial/qrhunt/internal/pipeline"
	"github.com/mobilecoinofficial/qrhunt/internal/verify"
	"github.com/mobilecoinofficial/qrhunt/internal/worker"
)

// DefaultClaimLimit is the number of claims a user may make before having to
// unlock.
const DefaultClaimLimit = 100

// Messenger delivers a message to a user. Delivery is best effort.
type Messenger interface {
	Send(ctx context.Context, userID, text string, attachments ...string) error
}

// Verifier is the human-verification gate guarding the claim reset.
type Verifier interface {
	Challenge(ctx context.Context, user string) (question string, err error)
	Verify(ctx context.Context, user, answer string) (ok bool, err error)
}

// Runner evaluates a job in isolation with a timeout. *worker.Runner
// implements it.
type Runner interface {
	Run(ctx context.Context, job worker.Job) (*pipeline.Result, error)
}

// Options configures a Service.
type Options struct {
	// ClaimLimit is the claim ceiling. Defaults to DefaultClaimLimit.
	ClaimLimit int64

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Service is the submission-acceptance state machine. It is safe for
// concurrent use; all shared state lives in the ledgers.
type Service struct {
	runner     Runner
	dedup      *ledger.Dedup
	scores     *ledger.Scores
	messenger  Messenger
	verifier   Verifier
	claimLimit int64
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

// NewService wires the orchestrator to its collaborators.
func NewService(runner Runner, store ledger.Store, messenger Messenger, verifier Verifier, opts Options) *Service {
	s := &Service{
		runner:     runner,
		dedup:      ledger.NewDedup(store),
		scores:     ledger.NewScores(store),
		messenger:  messenger,
		verifier:   verifier,
		claimLimit: opts.ClaimLimit,
		log:        opts.Logger.With().Str("component", "hunt").Logger(),
		metrics:    opts.Metrics,
	}
	if s.claimLimit <= 0 {
		s.claimLimit = DefaultClaimLimit
	}
	return s
}

// Evaluate runs one submission through the state machine and reports its
// outcome. Duplicates, rate limiting and timeouts are outcomes, not errors.
// A malformed image or a ledger failure is returned as an error after the
// user has been sent an apology.
func (s *Service) Evaluate(ctx context.Context, sub Submission) (Outcome, error) {
	user := sub.UserID
	log := s.log.With().Str("submission", sub.ID).Str("user", user).Logger()

	s.send(ctx, log, user, MsgAcknowledge)

	// Not atomic with the increment below: two first submissions arriving
	// together may both be welcomed.
	_, known, err := s.scores.Get(ctx, ledger.Claims, user)
	if err != nil {
		return s.fail(ctx, log, user, fmt.Errorf("read claims: %w", err))
	}
	if !known {
		s.send(ctx, log, user, MsgWelcome)
	}

	// The claim is paid whatever happens next.
	claims, err := s.scores.Increment(ctx, ledger.Claims, user, 1)
	if err != nil {
		return s.fail(ctx, log, user, fmt.Errorf("count claim: %w", err))
	}
	if claims > s.claimLimit {
		log.Info().Int64("claims", claims).Msg("claim limit exceeded")
		s.send(ctx, log, user, MsgUnlockHint)
		return s.finish(Outcome{Status: ClaimLimitExceeded}), nil
	}

	res, err := s.runner.Run(ctx, worker.Job{SubmissionID: sub.ID, Path: sub.Path})
	switch {
	case err == nil:
	case errors.Is(err, worker.ErrTimeout), errors.Is(err, worker.ErrWorkerCrash):
		log.Warn().Err(err).Msg("evaluation abandoned")
		s.send(ctx, log, user, MsgNoLuck)
		return s.finish(Outcome{Status: TimedOut}), nil
	case errors.Is(err, pipeline.ErrMalformedImage):
		log.Info().Err(err).Msg("malformed image")
		s.send(ctx, log, user, MsgApology)
		return Outcome{}, err
	default:
		return s.fail(ctx, log, user, err)
	}

	s.send(ctx, log, user, debugMessage(res.Summary()), res.ArtifactPath)

	return s.settle(ctx, log, user, res)
}

// settle applies a completed evaluation to the ledgers. Both perceptual
// hashes are recorded for every completed run, and whichever record call
// stores a key first owns it, so concurrent submissions of the same image or
// value cannot both score.
func (s *Service) settle(ctx context.Context, log zerolog.Logger, user string, res *pipeline.Result) (Outcome, error) {
	seenImage, err := s.recordHashes(ctx, user, res)
	if err != nil {
		return s.fail(ctx, log, user, err)
	}

	familiar := false
	if !seenImage {
		if familiar, err = s.claimValue(ctx, user, res); err != nil {
			return s.fail(ctx, log, user, err)
		}
	}

	switch {
	case seenImage:
		s.send(ctx, log, user, MsgAlreadySeen)
		return s.finish(Outcome{Status: Duplicate}), nil
	case familiar:
		s.send(ctx, log, user, MsgFamiliar)
		return s.finish(Outcome{Status: Duplicate}), nil
	}

	points := Score(res.Slots())
	if points == 0 {
		s.send(ctx, log, user, MsgNotHelpful)
		return s.finish(Outcome{Status: NoSignal}), nil
	}

	total, err := s.scores.Increment(ctx, ledger.Points, user, points)
	if err != nil {
		return s.fail(ctx, log, user, fmt.Errorf("award points: %w", err))
	}
	s.metrics.RecordPoints(points)
	log.Info().Int64("points", points).Int64("total", total).Msg("points awarded")

	if points == 1 {
		s.send(ctx, log, user, MsgSquareish)
	} else {
		s.send(ctx, log, user, earnedMessage(points, total))
	}
	return s.finish(Outcome{Status: Scored, Points: points, Total: total}), nil
}

// recordHashes records both perceptual hashes for user. It reports whether
// either was already owned.
func (s *Service) recordHashes(ctx context.Context, user string, res *pipeline.Result) (bool, error) {
	fine, err := s.dedup.Record(ctx, ledger.FineHash, res.Hashes.Fine, user)
	if err != nil {
		return false, fmt.Errorf("record fine hash: %w", err)
	}
	coarse, err := s.dedup.Record(ctx, ledger.CoarseHash, res.Hashes.Coarse, user)
	if err != nil {
		return false, fmt.Errorf("record coarse hash: %w", err)
	}
	return !fine || !coarse, nil
}

// claimValue records the first decoded value for user. It reports whether
// the value was already owned.
func (s *Service) claimValue(ctx context.Context, user string, res *pipeline.Result) (bool, error) {
	values := res.Values()
	if len(values) == 0 {
		return false, nil
	}
	stored, err := s.dedup.Record(ctx, ledger.ValueHash, ledger.ValueKey(values[0]), user)
	if err != nil {
		return false, fmt.Errorf("record value: %w", err)
	}
	return !stored, nil
}

// Points returns the user's point total and tells the user.
func (s *Service) Points(ctx context.Context, user string) (int64, error) {
	points, _, err := s.scores.Get(ctx, ledger.Points, user)
	if err != nil {
		return 0, fmt.Errorf("read points: %w", err)
	}
	s.send(ctx, s.log, user, pointsMessage(points))
	return points, nil
}

// Challenge issues a human-verification question to the user.
func (s *Service) Challenge(ctx context.Context, user string) (string, error) {
	question, err := s.verifier.Challenge(ctx, user)
	if err != nil {
		return "", fmt.Errorf("issue challenge: %w", err)
	}
	s.send(ctx, s.log, user, challengeMessage(question))
	return question, nil
}

// Unlock checks answer against the user's pending challenge. On success the
// user's claims are added to their lifetime total and the claim counter is
// reset to zero.
func (s *Service) Unlock(ctx context.Context, user, answer string) (bool, error) {
	log := s.log.With().Str("user", user).Logger()

	ok, err := s.verifier.Verify(ctx, user, answer)
	if errors.Is(err, verify.ErrNoChallenge) {
		s.send(ctx, log, user, MsgNoChallenge)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify answer: %w", err)
	}
	if !ok {
		s.send(ctx, log, user, MsgUnlockFailed)
		return false, nil
	}

	claims, _, err := s.scores.Get(ctx, ledger.Claims, user)
	if err != nil {
		return false, fmt.Errorf("read claims: %w", err)
	}
	if _, err := s.scores.Increment(ctx, ledger.Lifetime, user, claims); err != nil {
		return false, fmt.Errorf("update lifetime: %w", err)
	}
	if err := s.scores.Set(ctx, ledger.Claims, user, 0); err != nil {
		return false, fmt.Errorf("reset claims: %w", err)
	}

	log.Info().Int64("claims", claims).Msg("claims reset")
	s.send(ctx, log, user, MsgUnlocked)
	return true, nil
}

// send delivers a message, logging failures. Delivery never changes an
// outcome.
func (s *Service) send(ctx context.Context, log zerolog.Logger, user, text string, attachments ...string) {
	if err := s.messenger.Send(ctx, user, text, attachments...); err != nil {
		log.Warn().Err(err).Msg("failed to deliver message")
	}
}

// fail surfaces an infrastructure error after apologising to the user.
func (s *Service) fail(ctx context.Context, log zerolog.Logger, user string, err error) (Outcome, error) {
	log.Error().Err(err).Msg("evaluation failed")
	s.send(ctx, log, user, MsgApology)
	return Outcome{}, err
}

func (s *Service) finish(o Outcome) Outcome {
	s.metrics.RecordEvaluation(o.Status.String())
	return o
}
