// Package harness runs update scenarios described in YAML against the
// real update workflow and a fresh in-memory store.
//
// # Scenario Format
//
//	name: update_success
//	description: "Authorized update of a valid record"
//	kinds: ../kinds
//	setup:
//	  - create: widget
//	    id: w1
//	    fields: { name: Old }
//	flow:
//	  - update: widget
//	    id: w1
//	    attrs: { name: New }
//	    actor: { user: alice, permissions: ["widget:update"] }
//	    expect:
//	      status: success
//	assertions:
//	  - type: regions
//	    step: 0
//	    regions: [before_update, before_update_record, after_update_record, after_update]
//	  - type: final_state
//	    kind: widget
//	    id: w1
//	    expect: { name: New }
//
// Attribute order in attrs is preserved; it is the order of the
// resulting changed attributes.
//
// A flow step may set fail to make the persistence strategy assign the
// attributes and then return an error with that message, and swallow to
// install SwallowRecordError instead of the default escalation.
//
// # Assertion Types
//
//   - regions: the exact hook regions entered by one flow step, in order
//   - final_state: stored field values (subset) and optionally the revision
//   - log_count: number of update log entries for a record
//
// # Deterministic Testing
//
// Call IDs, log IDs and log timestamps come from testutil sequence
// generators and a stepping clock, so a scenario's trace is stable and
// can be compared against testdata/golden/<name>.golden with
// RunWithGolden.
package harness
