// Package hunt is the evaluation orchestrator of the scavenger hunt.
//
// Service.Evaluate takes a validated Submission through the acceptance state
// machine:
//
//  1. A user with no claim record is welcomed once.
//  2. The claim counter is incremented unconditionally; past the claim limit
//     the submission is refused with CLAIM_LIMIT_EXCEEDED.
//  3. The pipeline runs through the worker with its lock and timeout; a
//     timeout or crash ends in TIMED_OUT.
//  4. The rendered artefact and a debug summary are sent to the user.
//  5. A known perceptual hash or a known decoded value ends in DUPLICATE.
//  6. Otherwise the score (1 square-ish, 2 symbolic, 4 geometric) is added to
//     the user's points: SCORED, or NO_SIGNAL when the score is zero.
//
// Points, Challenge and Unlock serve the remaining user commands. Unlock moves
// the claim count into the lifetime total and resets it after the user passes
// the Verifier.
package hunt
