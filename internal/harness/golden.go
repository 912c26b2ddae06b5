package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/revise/internal/value"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toValue converts the snapshot to a value.Object so it can be written
// as canonical JSON. Empty fields are omitted.
func (s *TraceSnapshot) toValue() value.Object {
	events := make(value.Array, len(s.Trace))
	for i, event := range s.Trace {
		obj := value.Object{
			"type": value.String(event.Type),
			"seq":  value.Int(event.Seq),
			"step": value.Int(int64(event.Step)),
		}
		switch event.Type {
		case EventSetup:
			obj["kind"] = value.String(event.Kind)
			obj["id"] = value.String(event.ID)
		case EventRegion:
			obj["region"] = value.String(event.Region)
			obj["state"] = value.String(string(event.State))
		case EventOutcome:
			obj["call_id"] = value.String(event.CallID)
			obj["status"] = value.String(string(event.Status))
			errs := make(value.Array, len(event.Errors))
			for j, e := range event.Errors {
				errs[j] = value.Object{"key": value.String(e.Key), "message": value.String(e.Message)}
			}
			obj["errors"] = errs
			changes := make(value.Array, len(event.Changes))
			for j, c := range event.Changes {
				changes[j] = value.Object{"field": value.String(c.Field), "previous": c.Previous, "current": c.Current}
			}
			obj["changes"] = changes
			if event.Escalated {
				obj["escalated"] = value.Bool(true)
			}
		}
		events[i] = obj
	}

	return value.Object{
		"scenario_name": value.String(s.ScenarioName),
		"trace":         events,
	}
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *TraceSnapshot) MarshalCanonical() ([]byte, error) {
	return value.MarshalCanonical(s.toValue())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	traceJSON, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
