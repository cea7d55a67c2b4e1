package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/mobilecoinofficial/qrhunt/internal/pipeline"
)

// GoroutineExecutor runs each job on its own goroutine. A panic in the
// pipeline is recovered and reported as ErrWorkerCrash.
type GoroutineExecutor struct {
	Pipeline Evaluator
}

// NewGoroutineExecutor returns an executor running ev in-process.
func NewGoroutineExecutor(ev Evaluator) *GoroutineExecutor {
	return &GoroutineExecutor{Pipeline: ev}
}

// Start implements Executor.
func (e *GoroutineExecutor) Start(ctx context.Context, job Job) (*Task, error) {
	if e.Pipeline == nil {
		return nil, errors.New("goroutine executor has no pipeline")
	}

	t := newTask()
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.result <- Report{Err: fmt.Errorf("%w: panic: %v", ErrWorkerCrash, r)}
			}
		}()

		res, err := e.Pipeline.Run(ctx, job.SubmissionID, job.Path)
		t.result <- Report{Result: res, Err: classify(err)}
	}()
	return t, nil
}

// classify keeps malformed-image errors as they are and folds every other
// pipeline failure into ErrWorkerCrash.
func classify(err error) error {
	if err == nil || errors.Is(err, pipeline.ErrMalformedImage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrWorkerCrash, err)
}
