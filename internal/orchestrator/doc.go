// Package orchestrator exposes the operation surface driving the
// Writer/Validator review loop: start a task, submit code, submit a
// review, inspect status. It applies the task package's transition rules,
// delegates decomposition and alignment checking to the observer package,
// and records every event to the worklog audit trail.
//
// Each operation returns the next required actor action alongside its
// result, so the external chat agents driving the loop always know whose
// turn it is. Operations are idempotent through state-guarded
// preconditions, not deduplication tokens: a duplicate call for an
// already-resolved transition is rejected without mutating anything.
package orchestrator
