package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/mobilecoinofficial/qrhunt/internal/pipeline"
)

// WorkerCommand is the subcommand the child process is started with.
const WorkerCommand = "worker"

// Envelope kinds written by a child that could not produce a Result.
const (
	KindMalformed = "malformed"
	KindFailed    = "failed"
)

// Envelope is the JSON document a worker process writes to stdout.
type Envelope struct {
	Result *pipeline.Result `json:"result,omitempty"`
	Kind   string           `json:"kind,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Serve is the child side of ProcessExecutor: it evaluates job and writes
// exactly one Envelope to w. Evaluation failures are reported in the
// envelope; the returned error is only for a failed write.
func Serve(ctx context.Context, ev Evaluator, job Job, w io.Writer) error {
	res, err := ev.Run(ctx, job.SubmissionID, job.Path)

	env := Envelope{Result: res}
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrMalformedImage):
		env = Envelope{Kind: KindMalformed, Error: err.Error()}
	default:
		env = Envelope{Kind: KindFailed, Error: err.Error()}
	}

	if err := json.NewEncoder(w).Encode(env); err != nil {
		return fmt.Errorf("failed to write worker result: %w", err)
	}
	return nil
}

// ProcessExecutor runs each job in a child process: the same binary started
// as "<Args...> worker --id <submission> <path>". The child's stdout carries
// the Envelope and its stderr is passed through.
//
// Cancelling the job's context sends the child an interrupt; it is never
// killed.
type ProcessExecutor struct {
	// Path is the executable. Defaults to os.Executable().
	Path string

	// Args are inserted before the worker subcommand, e.g. config flags.
	Args []string

	// Stderr receives the child's stderr. Defaults to os.Stderr.
	Stderr io.Writer

	Logger zerolog.Logger
}

// Start implements Executor.
func (e *ProcessExecutor) Start(ctx context.Context, job Job) (*Task, error) {
	path := e.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate worker executable: %w", err)
		}
		path = exe
	}

	args := append(append([]string{}, e.Args...), WorkerCommand, "--id", job.SubmissionID, job.Path)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = e.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker process: %w", err)
	}
	e.Logger.Debug().
		Str("submission", job.SubmissionID).
		Int("pid", cmd.Process.Pid).
		Msg("worker process started")

	t := newTask()
	go func() {
		defer close(t.done)
		waitErr := cmd.Wait()
		t.result <- decodeEnvelope(stdout.Bytes(), waitErr)
	}()
	return t, nil
}

func decodeEnvelope(out []byte, waitErr error) Report {
	if waitErr != nil {
		return Report{Err: fmt.Errorf("%w: %w", ErrWorkerCrash, waitErr)}
	}

	var env Envelope
	if err := json.Unmarshal(out, &env); err != nil {
		return Report{Err: fmt.Errorf("%w: unreadable output: %w", ErrWorkerCrash, err)}
	}

	switch {
	case env.Kind == KindMalformed:
		return Report{Err: fmt.Errorf("%w: %s", pipeline.ErrMalformedImage, env.Error)}
	case env.Kind != "" || env.Result == nil:
		return Report{Err: fmt.Errorf("%w: %s", ErrWorkerCrash, env.Error)}
	}
	return Report{Result: env.Result}
}
