// Package task implements the task lifecycle state machine for the
// Writer/Validator review loop.
//
// A Task moves through an explicit, enumerated set of states:
//
//	created -> decomposing -> awaiting_submission -> awaiting_review
//	awaiting_review -> approved                    (terminal)
//	awaiting_review -> awaiting_submission         (rejected, under the cap)
//	awaiting_review -> failed_max_iterations       (rejected at the cap, terminal)
//
// The legal transition set lives in ValidTransitions so it can be tested
// exhaustively. Submissions and reviews accumulate as an audit trail; only
// the latest pair drives transitions. Tasks are held in memory only; the
// worklog package records events to disk for audit, but nothing is ever
// replayed back into a Task.
package task
