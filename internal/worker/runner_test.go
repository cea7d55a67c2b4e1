package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilecoinofficial/qrhunt/internal/metrics"
	"github.com/mobilecoinofficial/qrhunt/internal/pipeline"
)

// evalFunc adapts a function to Evaluator.
type evalFunc func(ctx context.Context, id, path string) (*pipeline.Result, error)

func (f evalFunc) Run(ctx context.Context, id, path string) (*pipeline.Result, error) {
	return f(ctx, id, path)
}

func instant(ctx context.Context, id, path string) (*pipeline.Result, error) {
	return &pipeline.Result{SubmissionID: id, ArtifactPath: path + ".png"}, nil
}

func newMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func newRunner(ev Evaluator, timeout, reclaim time.Duration, m *metrics.Metrics) *Runner {
	return NewRunner(NewGoroutineExecutor(ev), RunnerOptions{
		Timeout: timeout,
		Reclaim: reclaim,
		Logger:  zerolog.Nop(),
		Metrics: m,
	})
}

func faults(m *metrics.Metrics, kind string) float64 {
	return testutil.ToFloat64(m.WorkerFaults.WithLabelValues(kind))
}

func TestRunner_Success(t *testing.T) {
	m := newMetrics(t)
	r := newRunner(evalFunc(instant), time.Second, time.Second, m)

	res, err := r.Run(context.Background(), Job{SubmissionID: "s1", Path: "/tmp/a"})
	require.NoError(t, err)
	assert.Equal(t, "s1", res.SubmissionID)
	assert.Equal(t, "/tmp/a.png", res.ArtifactPath)
	assert.Equal(t, 1, testutil.CollectAndCount(m.PipelineDuration))
}

func TestRunner_Timeout(t *testing.T) {
	m := newMetrics(t)
	var calls atomic.Int32
	ev := evalFunc(func(ctx context.Context, id, path string) (*pipeline.Result, error) {
		calls.Add(1)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := newRunner(ev, 20*time.Millisecond, time.Second, m)

	res, err := r.Run(context.Background(), Job{SubmissionID: "slow"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int32(1), calls.Load(), "a timed out job is not retried")
	assert.Equal(t, 1.0, faults(m, metrics.FaultTimeout))
	r.Wait()
	assert.Zero(t, faults(m, metrics.FaultLingering), "a cooperative worker is reclaimed")
}

func TestRunner_LingeringWorkerIsNotFatal(t *testing.T) {
	m := newMetrics(t)
	release := make(chan struct{})
	exited := make(chan struct{})
	ev := evalFunc(func(ctx context.Context, id, path string) (*pipeline.Result, error) {
		if id != "stuck" {
			return instant(ctx, id, path)
		}
		defer close(exited)
		<-release
		return nil, nil
	})
	const reclaim = 300 * time.Millisecond
	r := newRunner(ev, 10*time.Millisecond, reclaim, m)

	start := time.Now()
	_, err := r.Run(context.Background(), Job{SubmissionID: "stuck"})
	elapsed := time.Since(start)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, reclaim, "the timeout is reported without waiting for the reclaim window")

	// The next job waits for the reclaim window, then runs even though the
	// stuck worker is still running.
	res, err := r.Run(context.Background(), Job{SubmissionID: "next"})
	require.NoError(t, err)
	assert.Equal(t, "next", res.SubmissionID)
	assert.GreaterOrEqual(t, time.Since(start), reclaim, "jobs never overlap an abandoned task")
	assert.Equal(t, 1.0, faults(m, metrics.FaultLingering))

	close(release)
	<-exited
	r.Wait()
}

func TestRunner_Crash(t *testing.T) {
	m := newMetrics(t)
	ev := evalFunc(func(ctx context.Context, id, path string) (*pipeline.Result, error) {
		panic("decoder exploded")
	})
	r := newRunner(ev, time.Second, time.Second, m)

	_, err := r.Run(context.Background(), Job{SubmissionID: "boom"})
	assert.ErrorIs(t, err, ErrWorkerCrash)
	assert.ErrorContains(t, err, "decoder exploded")
	assert.Equal(t, 1.0, faults(m, metrics.FaultCrash))
}

func TestRunner_MalformedIsNotACrash(t *testing.T) {
	m := newMetrics(t)
	ev := evalFunc(func(ctx context.Context, id, path string) (*pipeline.Result, error) {
		return nil, fmt.Errorf("%w: bad header", pipeline.ErrMalformedImage)
	})
	r := newRunner(ev, time.Second, time.Second, m)

	_, err := r.Run(context.Background(), Job{SubmissionID: "junk"})
	assert.ErrorIs(t, err, pipeline.ErrMalformedImage)
	assert.NotErrorIs(t, err, ErrWorkerCrash)
	assert.Zero(t, faults(m, metrics.FaultCrash))
}

func TestRunner_OtherPipelineErrorsAreCrashes(t *testing.T) {
	ev := evalFunc(func(ctx context.Context, id, path string) (*pipeline.Result, error) {
		return nil, fmt.Errorf("render: disk full")
	})
	r := newRunner(ev, time.Second, time.Second, nil)

	_, err := r.Run(context.Background(), Job{SubmissionID: "full"})
	assert.ErrorIs(t, err, ErrWorkerCrash)
}

func TestRunner_SingleFlightInArrivalOrder(t *testing.T) {
	gate := make(chan struct{})
	var (
		mu      sync.Mutex
		order   []string
		active  atomic.Int32
		maxSeen atomic.Int32
	)
	ev := evalFunc(func(ctx context.Context, id, path string) (*pipeline.Result, error) {
		n := active.Add(1)
		defer active.Add(-1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
		if id == "first" {
			<-gate
		}
		return &pipeline.Result{SubmissionID: id}, nil
	})
	r := newRunner(ev, 5*time.Second, time.Second, nil)

	ids := []string{"first", "second", "third", "fourth"}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Run(context.Background(), Job{SubmissionID: id})
			assert.NoError(t, err)
			if assert.NotNil(t, res) {
				assert.Equal(t, id, res.SubmissionID, "results never mix submissions")
			}
		}()
		// Let each caller queue before the next arrives.
		time.Sleep(20 * time.Millisecond)
	}
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load(), "only one pipeline runs at a time")
	assert.Equal(t, ids, order, "waiters are served in arrival order")
}

func TestRunner_CallerCancelledWhileQueued(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	ev := evalFunc(func(ctx context.Context, id, path string) (*pipeline.Result, error) {
		if id == "holder" {
			close(started)
			<-gate
		}
		return &pipeline.Result{SubmissionID: id}, nil
	})
	r := newRunner(ev, 5*time.Second, time.Second, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Run(context.Background(), Job{SubmissionID: "holder"})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Run(ctx, Job{SubmissionID: "impatient"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate)
	<-done
	r.Wait()
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(NewGoroutineExecutor(evalFunc(instant)), RunnerOptions{})
	assert.Equal(t, DefaultTimeout, r.timeout)
	assert.Equal(t, DefaultReclaim, r.reclaim)
}

func TestGoroutineExecutor_NoPipeline(t *testing.T) {
	_, err := (&GoroutineExecutor{}).Start(context.Background(), Job{})
	assert.Error(t, err)
}
