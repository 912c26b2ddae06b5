package update

import (
	"context"

	"github.com/roach88/revise/internal/i18n"
	"github.com/roach88/revise/internal/record"
)

// Hook observes or influences a call at a region boundary. A before-hook
// may stop the enclosed stage with Call.Fail; after-hooks always run.
type Hook[R record.Record] func(ctx context.Context, c *Call[R])

// ErrorHook receives an unexpected persistence failure. Returning a
// non-nil error escalates it to the caller; returning nil swallows it
// and the call is classified by the record's validity.
type ErrorHook[R record.Record] func(ctx context.Context, c *Call[R], err error) error

// Hooks are the extension points of a workflow. The "update" region
// wraps authorization through classification; the "update_record"
// region wraps only the persistence call.
type Hooks[R record.Record] struct {
	BeforeUpdate       []Hook[R]
	AfterUpdate        []Hook[R]
	BeforeUpdateRecord []Hook[R]
	AfterUpdateRecord  []Hook[R]

	// OnUpdateRecordError defaults to EscalateRecordError.
	OnUpdateRecordError ErrorHook[R]
}

// EscalateRecordError wraps err in a *RecordError.
func EscalateRecordError[R record.Record](_ context.Context, c *Call[R], err error) error {
	return &RecordError{Kind: c.kind, RecordID: c.record.ID(), Err: err}
}

// SwallowRecordError drops err.
func SwallowRecordError[R record.Record](context.Context, *Call[R], error) error {
	return nil
}

// Call is the state of one Execute invocation. Hooks receive it to
// inspect progress and record failures.
type Call[R record.Record] struct {
	id       string
	kind     string
	record   R
	attrs    record.Attributes
	actor    Actor
	msgs     Messages
	state    State
	outcome  *Outcome
	snapshot record.Snapshot
	changes  []record.Change
}

// ID returns the call ID.
func (c *Call[R]) ID() string { return c.id }

// Kind returns the record kind the workflow was built for.
func (c *Call[R]) Kind() string { return c.kind }

// Record returns the record being updated. After persistence it is the
// mutated record.
func (c *Call[R]) Record() R { return c.record }

// Attributes returns the whitelisted attribute set.
func (c *Call[R]) Attributes() record.Attributes { return c.attrs }

// Actor returns the acting user.
func (c *Call[R]) Actor() Actor { return c.actor }

// State returns the current state.
func (c *Call[R]) State() State { return c.state }

// Snapshot returns the pre-mutation snapshot. It is empty before the
// authorization guard passes.
func (c *Call[R]) Snapshot() record.Snapshot { return c.snapshot }

// Outcome returns the terminal outcome, if one has been set.
func (c *Call[R]) Outcome() (Outcome, bool) {
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// Failed reports whether a non-Success outcome has been set.
func (c *Call[R]) Failed() bool {
	return c.outcome != nil && c.outcome.Status != StatusSuccess
}

// Fail records a non-Success outcome. Without entries the status's
// standard error key is used. Fail returns false and changes nothing if
// status is Success or an outcome is already set.
func (c *Call[R]) Fail(status Status, entries ...ErrorEntry) bool {
	if status == StatusSuccess || c.outcome != nil {
		return false
	}
	if len(entries) == 0 {
		entries = []ErrorEntry{c.entry(reasonFor(status))}
	}
	c.finish(status, StateHalted, entries)
	return true
}

// ChangedAttributes returns the diff of a successful call, else empty.
func (c *Call[R]) ChangedAttributes() []record.Change {
	if c.outcome == nil || c.outcome.Status != StatusSuccess {
		return []record.Change{}
	}
	out := make([]record.Change, len(c.changes))
	copy(out, c.changes)
	return out
}

func (c *Call[R]) finish(status Status, state State, entries []ErrorEntry) {
	c.outcome = &Outcome{Status: status, Errors: entries}
	c.state = state
}

func (c *Call[R]) entry(reason string) ErrorEntry {
	key := c.kind + "." + reason
	return ErrorEntry{Key: key, Message: c.msgs.Message(key)}
}

func (c *Call[R]) result() *Result {
	r := &Result{
		CallID:  c.id,
		Kind:    c.kind,
		State:   c.state,
		changes: c.changes,
	}
	if !isAbsent(c.record) {
		r.ID = c.record.ID()
	}
	if c.outcome != nil {
		r.Outcome = *c.outcome
	}
	return r
}

func reasonFor(status Status) string {
	switch status {
	case StatusNotFound:
		return i18n.ReasonNotFound
	case StatusForbidden:
		return i18n.ReasonCantUpdate
	case StatusPersistenceError:
		return i18n.ReasonRecordError
	default:
		return i18n.ReasonInvalid
	}
}
