// Package worker runs the detection pipeline in an isolated execution context
// with a hard timeout and system-wide single-flight execution.
//
// An Executor starts a Job and returns a Task, a future delivering exactly one
// Report. Two executors are provided:
//
//   - GoroutineExecutor runs the pipeline on a fresh goroutine and recovers
//     panics.
//   - ProcessExecutor re-executes the binary as a worker subprocess and reads
//     an Envelope from its stdout (see Serve for the child side).
//
// Runner serialises jobs through a FIFO semaphore, waits for the result with
// a timeout and then waits a bounded time for the task to terminate. A
// timeout is reported immediately; the wait for the abandoned task continues
// in the background and keeps the slot taken. Tasks are never force-killed;
// a lingering task is logged as a fault.
package worker
