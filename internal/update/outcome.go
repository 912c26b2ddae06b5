package update

import "github.com/roach88/revise/internal/record"

// Status is the terminal classification of an update call.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusNotFound         Status = "not_found"
	StatusForbidden        Status = "forbidden"
	StatusValidationFailed Status = "validation_failed"
	StatusPersistenceError Status = "persistence_error"
)

// ErrorEntry is one structured error: a stable key (an error key such as
// "widget.not_found", or a field name for validation errors) and a
// human-readable message.
type ErrorEntry struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Outcome is the single terminal result of an update call.
type Outcome struct {
	Status Status       `json:"status"`
	Errors []ErrorEntry `json:"errors,omitempty"`
}

// Succeeded reports whether the outcome is Success.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// ErrorMap returns the entries as key -> messages.
func (o Outcome) ErrorMap() map[string][]string {
	if len(o.Errors) == 0 {
		return nil
	}
	m := make(map[string][]string, len(o.Errors))
	for _, e := range o.Errors {
		m[e.Key] = append(m[e.Key], e.Message)
	}
	return m
}

// State tracks progress through one call.
type State string

const (
	StateStart             State = "start"
	StateNotFound          State = "not_found_guard_failed"
	StateForbidden         State = "forbidden_guard_failed"
	StateProceeding        State = "proceeding"
	StateMutationAttempted State = "mutation_attempted"
	StateSuccess           State = "success"
	StateValidationFailed  State = "validation_failed"
	StateErrorEscalated    State = "error_escalated"
	// StateHalted means a hook recorded a failure before classification.
	StateHalted State = "halted"
)

// Result is what Execute returns for a completed call.
type Result struct {
	CallID  string          `json:"call_id"`
	Kind    string          `json:"kind"`
	ID      string          `json:"id"`
	State   State           `json:"state"`
	Outcome Outcome         `json:"outcome"`
	changes []record.Change
}

// ChangedAttributes returns the (field, previous, current) triples of a
// successful call, in attribute-set order. It is empty for any other
// outcome.
func (r *Result) ChangedAttributes() []record.Change {
	if r == nil || !r.Outcome.Succeeded() {
		return []record.Change{}
	}
	out := make([]record.Change, len(r.changes))
	copy(out, r.changes)
	return out
}
