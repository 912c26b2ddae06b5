package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/schema"
	"github.com/roach88/revise/internal/store"
	"github.com/roach88/revise/internal/value"
)

func seededStore(t *testing.T) (*store.Store, *schema.Registry) {
	t.Helper()
	kinds, err := schema.LoadDir(kindsDir(t))
	require.NoError(t, err)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	widget, _ := kinds.Lookup("widget")
	e := record.NewEntity(widget, st, "w1", value.Object{"name": value.String("Bolt"), "stock": value.Int(2)}, 0)
	require.NoError(t, st.InsertRecord(context.Background(), e))
	return st, kinds
}

func TestEvaluateAssertions(t *testing.T) {
	st, kinds := seededStore(t)
	result := NewResult()
	result.Trace = []TraceEvent{
		{Type: EventRegion, Seq: 1, Step: 0, Region: "before_update", State: "start"},
		{Type: EventRegion, Seq: 2, Step: 0, Region: "after_update", State: "forbidden_guard_failed"},
		{Type: EventOutcome, Seq: 3, Step: 0, Status: "forbidden"},
	}

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "regions match",
			assertion: Assertion{Type: AssertRegions, Step: 0, Regions: []string{"before_update", "after_update"}},
		},
		{
			name:      "regions mismatch",
			assertion: Assertion{Type: AssertRegions, Step: 0, Regions: []string{"before_update"}},
			wantErr:   "Expected: step 0 regions [before_update]",
		},
		{
			name:      "no regions for other step",
			assertion: Assertion{Type: AssertRegions, Step: 1},
		},
		{
			name:      "final state match",
			assertion: Assertion{Type: AssertFinalState, Kind: "widget", ID: "w1", Expect: map[string]any{"stock": 2}, Revision: 1},
		},
		{
			name:      "final state field mismatch",
			assertion: Assertion{Type: AssertFinalState, Kind: "widget", ID: "w1", Expect: map[string]any{"name": "Nut"}},
			wantErr:   `Actual: name = "Bolt"`,
		},
		{
			name:      "final state revision mismatch",
			assertion: Assertion{Type: AssertFinalState, Kind: "widget", ID: "w1", Revision: 3},
			wantErr:   "Actual: revision 1",
		},
		{
			name:      "final state undeclared field",
			assertion: Assertion{Type: AssertFinalState, Kind: "widget", ID: "w1", Expect: map[string]any{"weight": 1}},
			wantErr:   "field not declared",
		},
		{
			name:      "final state missing record",
			assertion: Assertion{Type: AssertFinalState, Kind: "widget", ID: "w9", Expect: map[string]any{"name": "x"}},
			wantErr:   "load error",
		},
		{
			name:      "log count",
			assertion: Assertion{Type: AssertLogCount, Kind: "widget", ID: "w1", Count: 0},
		},
		{
			name:      "log count mismatch",
			assertion: Assertion{Type: AssertLogCount, Kind: "widget", ID: "w1", Count: 2},
			wantErr:   "Actual: 0 entries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := EvaluateAssertions(context.Background(), result, []Assertion{tt.assertion}, st, kinds)
			if tt.wantErr == "" {
				assert.Empty(t, failures)
				return
			}
			require.Len(t, failures, 1)
			assert.Contains(t, failures[0], tt.wantErr)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertRegions,
		Expected: "a",
		Actual:   "b",
		Trace: []TraceEvent{
			{Type: EventRegion, Seq: 1, Step: 0, Region: "before_update", State: "start"},
			{Type: EventOutcome, Seq: 2, Step: 0, Status: "success"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: regions")
	assert.Contains(t, msg, "[1] step 0 before_update (start)")
	assert.Contains(t, msg, "[2] step 0 -> success")
}
