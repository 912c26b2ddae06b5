package harness

import (
	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/update"
)

// Trace event types.
const (
	EventSetup   = "setup"
	EventRegion  = "region"
	EventOutcome = "outcome"
)

// RegionOnError names the error hook in region traces.
const RegionOnError = "on_update_record_error"

// TraceEvent is one observable step of a scenario run.
type TraceEvent struct {
	Type string `json:"type"` // "setup", "region" or "outcome"
	Seq  int64  `json:"seq"`
	Step int    `json:"step"`

	// Setup events.
	Kind string `json:"kind,omitempty"`
	ID   string `json:"id,omitempty"`

	// Region events.
	Region string       `json:"region,omitempty"`
	State  update.State `json:"state,omitempty"`

	// Outcome events.
	CallID    string              `json:"call_id,omitempty"`
	Status    update.Status       `json:"status,omitempty"`
	Errors    []update.ErrorEntry `json:"errors,omitempty"`
	Changes   []record.Change     `json:"changes,omitempty"`
	Escalated bool                `json:"escalated,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains setup, region and outcome events in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Regions returns the regions entered by a flow step, in order.
func (r *Result) Regions(step int) []string {
	regions := []string{}
	for _, e := range r.Trace {
		if e.Type == EventRegion && e.Step == step {
			regions = append(regions, e.Region)
		}
	}
	return regions
}

// Outcome returns the outcome event of a flow step.
func (r *Result) Outcome(step int) (TraceEvent, bool) {
	for _, e := range r.Trace {
		if e.Type == EventOutcome && e.Step == step {
			return e, true
		}
	}
	return TraceEvent{}, false
}
