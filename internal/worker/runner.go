package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/mobilecoinofficial/qrhunt/internal/metrics"
	"github.com/mobilecoinofficial/qrhunt/internal/pipeline"
)

// Defaults for RunnerOptions.
const (
	DefaultTimeout = 30 * time.Second
	DefaultReclaim = 30 * time.Second
)

// RunnerOptions configures a Runner. Zero durations select the defaults.
type RunnerOptions struct {
	// Timeout bounds the wait for a task's result.
	Timeout time.Duration

	// Reclaim bounds the wait for a task to terminate after its result was
	// consumed (or after it timed out).
	Reclaim time.Duration

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Runner evaluates one job at a time. Callers queue in arrival order.
type Runner struct {
	exec    Executor
	sem     *semaphore.Weighted
	timeout time.Duration
	reclaim time.Duration
	log     zerolog.Logger
	metrics *metrics.Metrics

	wg sync.WaitGroup // background reclaims
}

// NewRunner returns a Runner starting jobs on exec.
func NewRunner(exec Executor, opts RunnerOptions) *Runner {
	r := &Runner{
		exec:    exec,
		sem:     semaphore.NewWeighted(1),
		timeout: opts.Timeout,
		reclaim: opts.Reclaim,
		log:     opts.Logger.With().Str("component", "worker").Logger(),
		metrics: opts.Metrics,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.reclaim <= 0 {
		r.reclaim = DefaultReclaim
	}
	return r
}

// Run evaluates job in an isolated execution context.
//
// It waits for the single worker slot, starts the task and waits up to the
// timeout for its result; on expiry it returns ErrTimeout at once and does
// not retry. After a result it waits up to the reclaim window for the task to
// terminate before freeing the slot. After a timeout that wait happens in the
// background and the slot stays taken until it ends. A task outliving the
// window is logged and counted, never killed.
func (r *Runner) Run(ctx context.Context, job Job) (*pipeline.Result, error) {
	log := r.log.With().Str("submission", job.SubmissionID).Logger()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for worker: %w", err)
	}

	taskCtx, cancel := context.WithCancel(ctx)

	start := time.Now()
	task, err := r.exec.Start(taskCtx, job)
	if err != nil {
		cancel()
		r.sem.Release(1)
		r.metrics.RecordWorkerFault(metrics.FaultCrash)
		return nil, fmt.Errorf("%w: %w", ErrWorkerCrash, err)
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	var rep Report
	select {
	case rep = <-task.Result():
	case <-timer.C:
		log.Warn().Dur("timeout", r.timeout).Msg("worker timed out")
		r.metrics.RecordWorkerFault(metrics.FaultTimeout)
		cancel()
		r.reclaimInBackground(log, task)
		return nil, ErrTimeout
	case <-ctx.Done():
		cancel()
		r.reclaimInBackground(log, task)
		return nil, ctx.Err()
	}

	r.reclaimTask(log, task)
	cancel()
	r.sem.Release(1)

	if rep.Err != nil {
		if errors.Is(rep.Err, ErrWorkerCrash) {
			log.Error().Err(rep.Err).Msg("worker crashed")
			r.metrics.RecordWorkerFault(metrics.FaultCrash)
		}
		return nil, rep.Err
	}

	r.metrics.RecordPipeline(time.Since(start))
	return rep.Result, nil
}

// reclaimInBackground waits for an abandoned task and then frees the worker
// slot, so the next job never overlaps it.
func (r *Runner) reclaimInBackground(log zerolog.Logger, task *Task) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.sem.Release(1)
		r.reclaimTask(log, task)
	}()
}

// Wait blocks until every background reclaim has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) reclaimTask(log zerolog.Logger, task *Task) {
	timer := time.NewTimer(r.reclaim)
	defer timer.Stop()

	select {
	case <-task.Done():
	case <-timer.C:
		log.Error().Dur("reclaim", r.reclaim).Msg("worker still running after reclaim window")
		r.metrics.RecordWorkerFault(metrics.FaultLingering)
	}
}
