package worker

import (
	"context"
	"errors"

	"github.com/mobilecoinofficial/qrhunt/internal/pipeline"
)

var (
	// ErrTimeout is returned when no result arrives within the hard timeout.
	ErrTimeout = errors.New("processing timed out")

	// ErrWorkerCrash is returned when the worker died or produced no usable
	// result. The orchestrator treats it like a timeout.
	ErrWorkerCrash = errors.New("worker crashed")
)

// Job identifies one submission to evaluate.
type Job struct {
	SubmissionID string `json:"submission_id"`
	Path         string `json:"path"`
}

// Report is the single value a Task delivers: a Result or an error.
type Report struct {
	Result *pipeline.Result
	Err    error
}

// Evaluator runs the detection pipeline. *pipeline.Pipeline implements it.
type Evaluator interface {
	Run(ctx context.Context, submissionID, path string) (*pipeline.Result, error)
}

// Executor starts a Job in an isolated execution context.
type Executor interface {
	// Start launches the job and returns immediately. ctx is handed to the
	// isolated context; cancelling it is a request to stop, not a kill.
	Start(ctx context.Context, job Job) (*Task, error)
}

// Task is a running job. Exactly one Report is delivered on Result, and Done
// is closed once the execution context has terminated.
type Task struct {
	result chan Report
	done   chan struct{}
}

func newTask() *Task {
	return &Task{
		// Buffered so the worker never blocks on an abandoned task.
		result: make(chan Report, 1),
		done:   make(chan struct{}),
	}
}

// Result delivers the task's only Report.
func (t *Task) Result() <-chan Report { return t.result }

// Done is closed when the execution context has terminated.
func (t *Task) Done() <-chan struct{} { return t.done }
