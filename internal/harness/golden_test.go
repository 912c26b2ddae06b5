package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/update"
	"github.com/roach88/revise/internal/value"
)

func TestTraceSnapshot_Canonical(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "snap",
		Trace: []TraceEvent{
			{Type: EventSetup, Seq: 1, Kind: "widget", ID: "w1"},
			{Type: EventRegion, Seq: 2, Region: "before_update", State: update.StateStart},
			{
				Type:    EventOutcome,
				Seq:     3,
				CallID:  "call-1",
				Status:  update.StatusSuccess,
				Changes: []record.Change{{Field: "name", Previous: value.String("<a>"), Current: value.String("b")}},
			},
		},
	}

	got, err := snapshot.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"snap","trace":[`+
		`{"id":"w1","kind":"widget","seq":1,"step":0,"type":"setup"},`+
		`{"region":"before_update","seq":2,"state":"start","step":0,"type":"region"},`+
		`{"call_id":"call-1","changes":[{"current":"b","field":"name","previous":"<a>"}],"errors":[],"seq":3,"status":"success","step":0,"type":"outcome"}`+
		`]}`, string(got))
}

func TestAssertGolden_RerunMatches(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/update_forbidden.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, scenario.Name, result))
}
