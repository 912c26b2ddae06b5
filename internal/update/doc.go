// Package update implements the record update workflow.
//
// A Workflow takes an existing record, an already-whitelisted attribute
// set and the acting user, and runs the same sequence for every kind of
// record: guard, snapshot, mutate, classify. Callers supply the policy
// (Authorizer) and the write (Persister); the workflow owns ordering,
// short-circuiting, hook regions and outcome reporting.
//
// ARCHITECTURE:
//
// Execution Flow:
//  1. Existence guard - absent or unloaded record -> NotFound. No hooks fire.
//  2. Outer region "update" (BeforeUpdate ... AfterUpdate)
//  3. Authorization guard - declined -> Forbidden, or NotFound when the
//     record is already invalid (validity dominates permission)
//  4. Snapshot of the attribute keys
//  5. Inner region "update_record" (BeforeUpdateRecord ... AfterUpdateRecord)
//     around the Persister call. Errors and panics from the Persister go
//     to OnUpdateRecordError, which escalates by default.
//  6. Classification - record.Valid() -> Success with changed attributes,
//     otherwise ValidationFailed with the record's errors verbatim.
//  7. Regions unwind LIFO, exactly once each, on every exit path.
//
// Two Error Channels:
//   - Outcome: expected results (Success, NotFound, Forbidden,
//     ValidationFailed). Never returned as error.
//   - error: defects. *ConfigurationError (missing Authorizer/Persister,
//     unknown persistence method) and *RecordError (escalated persistence
//     failure). An escalated call also carries Outcome PersistenceError so
//     after-hooks observe a terminal state.
//
// Thread-safety: a Workflow is immutable after New. Every Execute keeps
// its state in its own Call, so concurrent calls on independent records
// are safe. The workflow holds no locks and opens no transactions; the
// Persister owns any transactional boundary.
//
// INVARIANTS:
//   - The snapshot is taken before the Persister runs, never after
//   - Exactly one Outcome per call; once a non-Success Outcome is set no
//     further stage runs
//   - Success carries no error entries; every other Outcome carries at least one
//   - ChangedAttributes is empty unless the Outcome is Success
package update
