package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/revise/internal/schema"
	"github.com/roach88/revise/internal/store"
	"github.com/roach88/revise/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case EventRegion:
				fmt.Fprintf(&buf, "  [%d] step %d %s (%s)\n", event.Seq, event.Step, event.Region, event.State)
			case EventOutcome:
				fmt.Fprintf(&buf, "  [%d] step %d -> %s\n", event.Seq, event.Step, event.Status)
			}
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. An empty slice means all assertions held.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, st *store.Store, kinds *schema.Registry) []string {
	failures := []string{}
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRegions:
			err = assertRegions(result, a)
		case AssertFinalState:
			err = assertFinalState(ctx, st, kinds, a)
		case AssertLogCount:
			err = assertLogCount(ctx, st, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertRegions checks the exact hook regions entered by one step.
func assertRegions(result *Result, a Assertion) error {
	want := a.Regions
	if want == nil {
		want = []string{}
	}
	got := result.Regions(a.Step)
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertRegions,
		Expected: fmt.Sprintf("step %d regions %v", a.Step, want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    result.Trace,
	}
}

// assertFinalState loads a record and compares the expected fields
// (subset match) and revision.
func assertFinalState(ctx context.Context, st *store.Store, kinds *schema.Registry, a Assertion) error {
	kind, ok := kinds.Lookup(a.Kind)
	if !ok {
		return fmt.Errorf("unknown kind %q", a.Kind)
	}

	entity, err := st.LoadRecord(ctx, kind, a.ID)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record %s %s", a.Kind, a.ID),
			Actual:   fmt.Sprintf("load error: %v", err),
		}
	}

	if a.Revision != 0 && entity.Revision() != a.Revision {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s %s revision %d", a.Kind, a.ID, a.Revision),
			Actual:   fmt.Sprintf("revision %d", entity.Revision()),
		}
	}

	for _, field := range sortedKeys(a.Expect) {
		want, err := value.FromAny(a.Expect[field])
		if err != nil {
			return fmt.Errorf("expect.%s: %w", field, err)
		}
		got, ok := entity.Field(field)
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s %s has field %s", a.Kind, a.ID, field),
				Actual:   "field not declared",
			}
		}
		if !value.Equal(got, want) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s = %s", field, value.Format(want)),
				Actual:   fmt.Sprintf("%s = %s", field, value.Format(got)),
			}
		}
	}
	return nil
}

// assertLogCount checks the number of update log entries for a record.
func assertLogCount(ctx context.Context, st *store.Store, a Assertion) error {
	entries, err := st.ReadUpdateLog(ctx, a.Kind, a.ID)
	if err != nil {
		return fmt.Errorf("read update log: %w", err)
	}
	if len(entries) != a.Count {
		return &AssertionError{
			Type:     AssertLogCount,
			Expected: fmt.Sprintf("%d log entries for %s %s", a.Count, a.Kind, a.ID),
			Actual:   fmt.Sprintf("%d entries", len(entries)),
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
