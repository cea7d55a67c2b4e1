package hunt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilecoinofficial/qrhunt/internal/decode"
	"github.com/mobilecoinofficial/qrhunt/internal/fingerprint"
	"github.com/mobilecoinofficial/qrhunt/internal/ledger"
	"github.com/mobilecoinofficial/qrhunt/internal/metrics"
	"github.com/mobilecoinofficial/qrhunt/internal/pipeline"
	"github.com/mobilecoinofficial/qrhunt/internal/verify"
	"github.com/mobilecoinofficial/qrhunt/internal/worker"
)

// fakeRunner returns queued results in order.
type fakeRunner struct {
	mu      sync.Mutex
	results []*pipeline.Result
	err     error
	calls   int
}

func (f *fakeRunner) Run(_ context.Context, job worker.Job) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := *f.results[0]
	f.results = f.results[1:]
	res.SubmissionID = job.SubmissionID
	return &res, nil
}

// inbox records every message sent.
type inbox struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

type sent struct {
	user, text  string
	attachments []string
}

func (b *inbox) Send(_ context.Context, user, text string, attachments ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, sent{user, text, attachments})
	return b.err
}

func (b *inbox) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.msgs))
	for i, m := range b.msgs {
		out[i] = m.text
	}
	return out
}

func (b *inbox) last() string {
	t := b.texts()
	return t[len(t)-1]
}

func (b *inbox) count(text string) int {
	n := 0
	for _, t := range b.texts() {
		if t == text {
			n++
		}
	}
	return n
}

// fakeVerifier accepts a fixed answer for one pending challenge per user.
type fakeVerifier struct {
	pending map[string]bool
}

func (v *fakeVerifier) Challenge(_ context.Context, user string) (string, error) {
	v.pending[user] = true
	return "What is 2 + 2?", nil
}

func (v *fakeVerifier) Verify(_ context.Context, user, answer string) (bool, error) {
	if !v.pending[user] {
		return false, verify.ErrNoChallenge
	}
	delete(v.pending, user)
	return answer == "4", nil
}

// brokenStore fails every operation.
type brokenStore struct{ ledger.MemoryStore }

var errDisk = fmt.Errorf("%w: disk I/O error", ledger.ErrStore)

func (brokenStore) Get(context.Context, string, string) (string, bool, error) { return "", false, errDisk }
func (brokenStore) GetInt(context.Context, string, string) (int64, bool, error) {
	return 0, false, errDisk
}
func (brokenStore) Increment(context.Context, string, string, int64) (int64, error) {
	return 0, errDisk
}
func (brokenStore) PutIfAbsent(context.Context, string, string, string) (bool, error) {
	return false, errDisk
}

// gatedRunner holds every result until n runs have finished, so the
// submissions settle together.
type gatedRunner struct {
	*fakeRunner
	arrived sync.WaitGroup
}

func newGatedRunner(n int, results ...*pipeline.Result) *gatedRunner {
	g := &gatedRunner{fakeRunner: &fakeRunner{results: results}}
	g.arrived.Add(n)
	return g
}

func (g *gatedRunner) Run(ctx context.Context, job worker.Job) (*pipeline.Result, error) {
	res, err := g.fakeRunner.Run(ctx, job)
	g.arrived.Done()
	g.arrived.Wait()
	return res, err
}

type fixture struct {
	svc      *Service
	runner   *fakeRunner
	inbox    *inbox
	store    ledger.Store
	scores   *ledger.Scores
	dedup    *ledger.Dedup
	metrics  *metrics.Metrics
	verifier *fakeVerifier
}

func newFixture(t *testing.T, results ...*pipeline.Result) *fixture {
	t.Helper()
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	f := &fixture{
		runner:   &fakeRunner{results: results},
		inbox:    &inbox{},
		store:    ledger.NewMemoryStore(),
		metrics:  m,
		verifier: &fakeVerifier{pending: map[string]bool{}},
	}
	f.scores = ledger.NewScores(f.store)
	f.dedup = ledger.NewDedup(f.store)
	f.svc = NewService(f.runner, f.store, f.inbox, f.verifier, Options{
		Logger:  zerolog.Nop(),
		Metrics: m,
	})
	return f
}

func (f *fixture) evaluate(t *testing.T, user string) Outcome {
	t.Helper()
	out, err := f.svc.Evaluate(context.Background(), Submission{ID: "sub", UserID: user, Path: "/tmp/img.png"})
	require.NoError(t, err)
	return out
}

func (f *fixture) counter(t *testing.T, c ledger.Counter, user string) int64 {
	t.Helper()
	v, _, err := f.scores.Get(context.Background(), c, user)
	require.NoError(t, err)
	return v
}

// result builds a pipeline result with unique hashes derived from tag.
func result(tag string, square bool, symbolic, geometric string) *pipeline.Result {
	return &pipeline.Result{
		Square:       square,
		Symbolic:     decode.Result{Decoder: "zxing", Text: symbolic, Found: symbolic != ""},
		Geometric:    decode.Result{Decoder: "opencv", Text: geometric, Found: geometric != ""},
		Hashes:       fingerprint.Pair{Coarse: "a-" + tag, Fine: "p-" + tag},
		ArtifactPath: "/tmp/rendered-" + tag + ".png",
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		slots [3]bool
		want  int64
	}{
		{[3]bool{false, false, false}, 0},
		{[3]bool{true, false, false}, 1},
		{[3]bool{false, true, false}, 2},
		{[3]bool{false, false, true}, 4},
		{[3]bool{true, true, false}, 3},
		{[3]bool{false, true, true}, 6},
		{[3]bool{true, true, true}, 7},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.slots), func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.slots))
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "SCORED", Scored.String())
	assert.Equal(t, "DUPLICATE", Duplicate.String())
	assert.Equal(t, "NO_SIGNAL", NoSignal.String())
	assert.Equal(t, "TIMED_OUT", TimedOut.String())
	assert.Equal(t, "CLAIM_LIMIT_EXCEEDED", ClaimLimitExceeded.String())
	assert.Equal(t, "Status(0)", Status(0).String())
}

func TestEvaluate_ScoredSymbolic(t *testing.T) {
	f := newFixture(t, result("1", false, "https://example.com", ""))

	out := f.evaluate(t, "alice")
	assert.Equal(t, Outcome{Status: Scored, Points: 2, Total: 2}, out)
	assert.Equal(t, int64(2), f.counter(t, ledger.Points, "alice"))
	assert.Equal(t, int64(1), f.counter(t, ledger.Claims, "alice"))
	assert.Equal(t, earnedMessage(2, 2), f.inbox.last())

	// The artefact goes out with the debug summary.
	var debug *sent
	for i, m := range f.inbox.msgs {
		if len(m.attachments) > 0 {
			debug = &f.inbox.msgs[i]
		}
	}
	require.NotNil(t, debug)
	assert.Contains(t, debug.text, "Check this out!\ndebug: ")
	assert.Equal(t, []string{"/tmp/rendered-1.png"}, debug.attachments)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EvaluationsTotal.WithLabelValues("SCORED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.PointsAwarded))
}

func TestEvaluate_Combinations(t *testing.T) {
	tests := []struct {
		name   string
		res    *pipeline.Result
		points int64
		msg    string
	}{
		{"square only", result("s", true, "", ""), 1, MsgSquareish},
		{"geometric only", result("g", false, "", "v"), 4, earnedMessage(4, 4)},
		{"everything", result("e", true, "v", "v"), 7, earnedMessage(7, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.res)
			out := f.evaluate(t, "bob")
			assert.Equal(t, Outcome{Status: Scored, Points: tt.points, Total: tt.points}, out)
			assert.Equal(t, tt.msg, f.inbox.last())
		})
	}
}

func TestEvaluate_PointsAccumulate(t *testing.T) {
	f := newFixture(t, result("1", false, "one", ""), result("2", true, "", ""))

	f.evaluate(t, "carol")
	out := f.evaluate(t, "carol")
	assert.Equal(t, Outcome{Status: Scored, Points: 1, Total: 3}, out)
}

func TestEvaluate_NoSignal(t *testing.T) {
	f := newFixture(t, result("n", false, "", ""), result("n", false, "", ""))

	out := f.evaluate(t, "dave")
	assert.Equal(t, Outcome{Status: NoSignal}, out)
	assert.Equal(t, MsgNotHelpful, f.inbox.last())
	assert.Zero(t, f.counter(t, ledger.Points, "dave"))

	// The hashes were still recorded.
	out = f.evaluate(t, "dave")
	assert.Equal(t, Duplicate, out.Status)
	assert.Equal(t, MsgAlreadySeen, f.inbox.last())
}

func TestEvaluate_WelcomeOnce(t *testing.T) {
	f := newFixture(t, result("1", false, "", ""), result("2", false, "", ""))

	f.evaluate(t, "erin")
	f.evaluate(t, "erin")

	assert.Equal(t, 1, f.inbox.count(MsgWelcome))
	assert.Equal(t, 2, f.inbox.count(MsgAcknowledge))
	assert.Equal(t, MsgAcknowledge, f.inbox.texts()[0])
	assert.Equal(t, MsgWelcome, f.inbox.texts()[1], "welcome precedes evaluation")
}

func TestEvaluate_DuplicateFineHashWithNovelValue(t *testing.T) {
	first := result("x", false, "first value", "")
	second := result("y", true, "novel value", "novel value")
	second.Hashes.Fine = first.Hashes.Fine

	f := newFixture(t, first, second)
	f.evaluate(t, "frank")
	before := f.counter(t, ledger.Points, "frank")

	out := f.evaluate(t, "frank")
	assert.Equal(t, Outcome{Status: Duplicate}, out)
	assert.Equal(t, MsgAlreadySeen, f.inbox.last())
	assert.Equal(t, before, f.counter(t, ledger.Points, "frank"), "no points for a duplicate")

	_, ok, err := f.dedup.Seen(context.Background(), ledger.ValueHash, ledger.ValueKey("novel value"))
	require.NoError(t, err)
	assert.False(t, ok, "the value of a duplicate image is not claimed")
}

func TestEvaluate_DuplicateCoarseHash(t *testing.T) {
	first := result("x", false, "", "")
	second := result("y", false, "v", "")
	second.Hashes.Coarse = first.Hashes.Coarse

	f := newFixture(t, first, second)
	f.evaluate(t, "gina")
	assert.Equal(t, Duplicate, f.evaluate(t, "gina").Status)
}

func TestEvaluate_FamiliarValue(t *testing.T) {
	f := newFixture(t, result("1", false, "same payload", ""), result("2", false, "", "same payload"))

	f.evaluate(t, "hank")
	out := f.evaluate(t, "ivy")
	assert.Equal(t, Outcome{Status: Duplicate}, out)
	assert.Equal(t, MsgFamiliar, f.inbox.last())
	assert.Zero(t, f.counter(t, ledger.Points, "ivy"))

	owner, ok, err := f.dedup.Seen(context.Background(), ledger.ValueHash, ledger.ValueKey("same payload"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hank", owner, "first owner is kept")
}

func TestEvaluate_ValueKeyUsesFirstValue(t *testing.T) {
	f := newFixture(t, result("1", false, "sym", "geo"))
	f.evaluate(t, "jack")

	_, ok, err := f.dedup.Seen(context.Background(), ledger.ValueHash, ledger.ValueKey("sym"))
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = f.dedup.Seen(context.Background(), ledger.ValueHash, ledger.ValueKey("geo"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_ClaimLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, result("1", true, "", ""))
	require.NoError(t, f.scores.Set(ctx, ledger.Claims, "kate", 99))

	// The 100th claim is evaluated.
	assert.Equal(t, Scored, f.evaluate(t, "kate").Status)
	assert.Equal(t, 1, f.runner.calls)

	// The 101st is refused without running the pipeline.
	out := f.evaluate(t, "kate")
	assert.Equal(t, Outcome{Status: ClaimLimitExceeded}, out)
	assert.Equal(t, MsgUnlockHint, f.inbox.last())
	assert.Equal(t, 1, f.runner.calls)
	assert.Equal(t, int64(101), f.counter(t, ledger.Claims, "kate"), "the refused claim is still counted")
}

func TestEvaluate_TimeoutCountsClaimOnce(t *testing.T) {
	f := newFixture(t)
	f.runner.err = fmt.Errorf("waiting: %w", worker.ErrTimeout)

	out := f.evaluate(t, "liam")
	assert.Equal(t, Outcome{Status: TimedOut}, out)
	assert.Equal(t, MsgNoLuck, f.inbox.last())
	assert.Equal(t, int64(1), f.counter(t, ledger.Claims, "liam"))
	assert.Zero(t, f.counter(t, ledger.Points, "liam"))
	assert.Equal(t, 1, f.runner.calls, "no retry")
}

func TestEvaluate_CrashIsLikeTimeout(t *testing.T) {
	f := newFixture(t)
	f.runner.err = worker.ErrWorkerCrash

	out := f.evaluate(t, "mia")
	assert.Equal(t, Outcome{Status: TimedOut}, out)
	assert.Equal(t, MsgNoLuck, f.inbox.last())
}

func TestEvaluate_MalformedImage(t *testing.T) {
	f := newFixture(t)
	f.runner.err = fmt.Errorf("%w: bad header", pipeline.ErrMalformedImage)

	_, err := f.svc.Evaluate(context.Background(), Submission{ID: "s", UserID: "noah"})
	assert.ErrorIs(t, err, pipeline.ErrMalformedImage)
	assert.Equal(t, MsgApology, f.inbox.last())
	assert.Equal(t, int64(1), f.counter(t, ledger.Claims, "noah"))
}

func TestEvaluate_LedgerFailureIsSurfaced(t *testing.T) {
	f := newFixture(t, result("1", true, "", ""))
	f.svc = NewService(f.runner, &brokenStore{}, f.inbox, f.verifier, Options{Logger: zerolog.Nop()})

	_, err := f.svc.Evaluate(context.Background(), Submission{ID: "s", UserID: "olga"})
	assert.ErrorIs(t, err, ledger.ErrStore)
	assert.Equal(t, MsgApology, f.inbox.last())
	assert.Zero(t, f.runner.calls)
}

func TestEvaluate_MessengerFailureDoesNotChangeOutcome(t *testing.T) {
	f := newFixture(t, result("1", false, "v", ""))
	f.inbox.err = errors.New("socket closed")

	out := f.evaluate(t, "pete")
	assert.Equal(t, Scored, out.Status)
}

func TestEvaluate_ConcurrentUsers(t *testing.T) {
	results := make([]*pipeline.Result, 20)
	for i := range results {
		results[i] = result(fmt.Sprint(i), true, "", "")
	}
	f := newFixture(t, results...)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Evaluate(context.Background(), Submission{ID: fmt.Sprint(i), UserID: "quinn"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), f.counter(t, ledger.Claims, "quinn"))
	assert.Equal(t, int64(20), f.counter(t, ledger.Points, "quinn"))
}

// settleTogether evaluates one submission per user with every result
// released at once, and returns the outcomes by user.
func settleTogether(t *testing.T, users []string, results ...*pipeline.Result) (*fixture, map[string]Outcome) {
	t.Helper()
	f := newFixture(t)
	runner := newGatedRunner(len(users), results...)
	f.svc = NewService(runner, f.store, f.inbox, f.verifier, Options{Logger: zerolog.Nop(), Metrics: f.metrics})

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = map[string]Outcome{}
	)
	for _, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := f.svc.Evaluate(context.Background(), Submission{ID: u, UserID: u})
			assert.NoError(t, err)
			mu.Lock()
			out[u] = o
			mu.Unlock()
		}()
	}
	wg.Wait()
	return f, out
}

func statuses(out map[string]Outcome) map[Status]int {
	n := map[Status]int{}
	for _, o := range out {
		n[o.Status]++
	}
	return n
}

func TestEvaluate_ConcurrentSameImageScoresOnce(t *testing.T) {
	users := []string{"uma", "vic", "wes", "xan", "yul", "zed"}
	same := make([]*pipeline.Result, len(users))
	for i := range same {
		same[i] = result("shared", true, "payload", "payload")
	}
	f, out := settleTogether(t, users, same...)

	assert.Equal(t, map[Status]int{Scored: 1, Duplicate: len(users) - 1}, statuses(out))

	var total int64
	for _, u := range users {
		total += f.counter(t, ledger.Points, u)
	}
	assert.Equal(t, int64(7), total, "the points are awarded once")
	assert.Equal(t, len(users)-1, f.inbox.count(MsgAlreadySeen))
}

func TestEvaluate_ConcurrentSameValueScoresOnce(t *testing.T) {
	users := []string{"amy", "bo", "cy", "di"}
	results := make([]*pipeline.Result, len(users))
	for i := range results {
		results[i] = result(fmt.Sprint(i), false, "same payload", "")
	}
	f, out := settleTogether(t, users, results...)

	assert.Equal(t, map[Status]int{Scored: 1, Duplicate: len(users) - 1}, statuses(out))
	assert.Equal(t, len(users)-1, f.inbox.count(MsgFamiliar))

	owner, ok, err := f.dedup.Seen(context.Background(), ledger.ValueHash, ledger.ValueKey("same payload"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Scored, out[owner].Status, "the value belongs to the submission that scored")
}

func TestPoints(t *testing.T) {
	f := newFixture(t, result("1", false, "", "v"))
	f.evaluate(t, "rose")

	n, err := f.svc.Points(context.Background(), "rose")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, "You have 4 points!", f.inbox.last())

	n, err = f.svc.Points(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "You have 0 points!", f.inbox.last())
}

func TestUnlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, result("1", true, "", ""))
	require.NoError(t, f.scores.Set(ctx, ledger.Claims, "sam", 101))

	q, err := f.svc.Challenge(ctx, "sam")
	require.NoError(t, err)
	assert.Equal(t, "What is 2 + 2?", q)
	assert.Contains(t, f.inbox.last(), q)

	ok, err := f.svc.Unlock(ctx, "sam", "4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, MsgUnlocked, f.inbox.last())
	assert.Zero(t, f.counter(t, ledger.Claims, "sam"))
	assert.Equal(t, int64(101), f.counter(t, ledger.Lifetime, "sam"))

	// Evaluation resumes, and the reset does not trigger a second welcome.
	assert.Equal(t, Scored, f.evaluate(t, "sam").Status)
	assert.Zero(t, f.inbox.count(MsgWelcome))
}

func TestUnlock_WrongAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.scores.Set(ctx, ledger.Claims, "tom", 101))

	_, err := f.svc.Challenge(ctx, "tom")
	require.NoError(t, err)
	ok, err := f.svc.Unlock(ctx, "tom", "5")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, MsgUnlockFailed, f.inbox.last())
	assert.Equal(t, int64(101), f.counter(t, ledger.Claims, "tom"))
}

func TestUnlock_WithoutChallenge(t *testing.T) {
	f := newFixture(t)
	ok, err := f.svc.Unlock(context.Background(), "uma", "4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, MsgNoChallenge, f.inbox.last())
}

func TestNewSubmission(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))

	sub, err := NewSubmission("vic", path, 5)
	require.NoError(t, err)
	assert.Equal(t, "vic", sub.UserID)
	assert.Equal(t, path, sub.Path)
	assert.NotEmpty(t, sub.ID)
	assert.False(t, sub.UploadedAt.IsZero())

	other, err := NewSubmission("vic", path, 0)
	require.NoError(t, err)
	assert.NotEqual(t, sub.ID, other.ID)

	_, err = NewSubmission("vic", path, 6)
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = NewSubmission("vic", filepath.Join(dir, "missing.png"), 0)
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = NewSubmission("vic", dir, 0)
	assert.ErrorIs(t, err, ErrInvalidSubmission, "directories are not attachments")

	_, err = NewSubmission("", path, 0)
	assert.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestStatus_TextRoundTrip(t *testing.T) {
	var s Status
	require.NoError(t, s.UnmarshalText([]byte("TIMED_OUT")))
	assert.Equal(t, TimedOut, s)
	assert.Error(t, s.UnmarshalText([]byte("LOST")))
}
