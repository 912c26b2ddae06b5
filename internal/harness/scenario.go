package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/update"
	"github.com/roach88/revise/internal/value"
)

// Scenario defines an update scenario: records to seed, updates to run
// and assertions on the resulting trace and store.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Kinds is a CUE file or directory declaring the record kinds.
	// Relative paths are resolved against the scenario file.
	Kinds string `yaml:"kinds"`

	// Setup inserts records before the flow. Setup steps must succeed.
	Setup []SetupStep `yaml:"setup,omitempty"`

	// Flow is the list of update calls, run in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trace and final store state.
	Assertions []Assertion `yaml:"assertions"`
}

// SetupStep inserts one record.
type SetupStep struct {
	Create string         `yaml:"create"`
	ID     string         `yaml:"id"`
	Fields map[string]any `yaml:"fields"`
}

// FlowStep runs one update call.
type FlowStep struct {
	// Update names the record kind.
	Update string `yaml:"update"`

	// ID is the record to load. A missing record is passed as absent.
	ID string `yaml:"id"`

	// Attrs are the raw attributes, in declaration order.
	Attrs Attrs `yaml:"attrs"`

	Actor ActorSpec `yaml:"actor"`

	// Fail makes persistence assign the attributes and then fail with
	// this message.
	Fail string `yaml:"fail,omitempty"`

	// Swallow installs SwallowRecordError as the error hook.
	Swallow bool `yaml:"swallow,omitempty"`

	// Expect specifies the expected outcome. If nil, any outcome passes.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ActorSpec is the YAML form of update.Actor.
type ActorSpec struct {
	User        string   `yaml:"user"`
	Tenant      string   `yaml:"tenant,omitempty"`
	Permissions []string `yaml:"permissions,omitempty"`
}

// Actor converts the scenario actor to an update.Actor.
func (a ActorSpec) Actor() update.Actor {
	return update.Actor{UserID: a.User, TenantID: a.Tenant, Permissions: a.Permissions}
}

// ExpectClause specifies the expected result of a flow step.
type ExpectClause struct {
	// Status is the expected outcome status (e.g. "success", "forbidden").
	Status update.Status `yaml:"status"`

	// Keys, if set, are the exact error keys of the outcome, in order.
	Keys []string `yaml:"keys,omitempty"`

	// Escalated expects Execute to return a persistence error.
	Escalated bool `yaml:"escalated,omitempty"`
}

// Attrs is an ordered attribute mapping decoded from YAML.
type Attrs struct {
	attrs record.Attributes
}

// UnmarshalYAML keeps the key order of the mapping node.
func (a *Attrs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: attrs must be a mapping", node.Line)
	}
	var attrs record.Attributes
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var raw any
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return fmt.Errorf("attrs.%s: %w", key, err)
		}
		v, err := value.FromAny(raw)
		if err != nil {
			return fmt.Errorf("attrs.%s: %w", key, err)
		}
		attrs.Set(key, v)
	}
	a.attrs = attrs
	return nil
}

// Attributes returns the decoded attribute set.
func (a Attrs) Attributes() record.Attributes {
	return a.attrs
}

// Assertion validates the trace or final store state.
type Assertion struct {
	// Type is one of "regions", "final_state", "log_count".
	Type string `yaml:"type"`

	// Step is the flow step index (used by regions).
	Step int `yaml:"step,omitempty"`

	// Regions is the expected region order (used by regions).
	Regions []string `yaml:"regions,omitempty"`

	// Kind and ID select a record (used by final_state, log_count).
	Kind string `yaml:"kind,omitempty"`
	ID   string `yaml:"id,omitempty"`

	// Expect holds expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Revision is the expected revision, if non-zero (used by final_state).
	Revision int64 `yaml:"revision,omitempty"`

	// Count is the expected number of log entries (used by log_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRegions    = "regions"
	AssertFinalState = "final_state"
	AssertLogCount   = "log_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Kinds != "" && !filepath.IsAbs(scenario.Kinds) {
		scenario.Kinds = filepath.Join(filepath.Dir(path), scenario.Kinds)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Kinds == "" {
		return fmt.Errorf("kinds is required")
	}
	if _, err := os.Stat(s.Kinds); os.IsNotExist(err) {
		return fmt.Errorf("kinds not found: %s", s.Kinds)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Create == "" || step.ID == "" {
			return fmt.Errorf("setup[%d]: create and id are required", i)
		}
	}

	for i, step := range s.Flow {
		if step.Update == "" || step.ID == "" {
			return fmt.Errorf("flow[%d]: update and id are required", i)
		}
		if step.Expect != nil && step.Expect.Status == "" {
			return fmt.Errorf("flow[%d].expect: status is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, len(s.Flow)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRegions:
		if a.Step < 0 || a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
		}
	case AssertFinalState:
		if a.Kind == "" || a.ID == "" {
			return fmt.Errorf("assertions[%d]: kind and id are required for final_state", index)
		}
		if len(a.Expect) == 0 && a.Revision == 0 {
			return fmt.Errorf("assertions[%d]: expect or revision is required for final_state", index)
		}
	case AssertLogCount:
		if a.Kind == "" || a.ID == "" {
			return fmt.Errorf("assertions[%d]: kind and id are required for log_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for log_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
