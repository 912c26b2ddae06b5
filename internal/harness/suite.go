package harness

import (
	"fmt"
	"path/filepath"
	"sort"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure describes one failed scenario.
type ScenarioFailure struct {
	ScenarioPath string   `json:"scenario_path"`
	Errors       []string `json:"errors"`
}

// FindScenarios returns the *.yaml files in dir, sorted by name.
func FindScenarios(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob scenarios: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// RunDir loads and runs every scenario in dir. A scenario that fails to
// load or execute is reported as a failure rather than aborting the run.
func RunDir(dir string) (*SuiteResult, error) {
	paths, err := FindScenarios(dir)
	if err != nil {
		return nil, err
	}

	suite := &SuiteResult{TotalScenarios: len(paths)}
	for _, path := range paths {
		errs := runOne(path)
		if len(errs) == 0 {
			suite.Passed++
			continue
		}
		suite.Failed++
		suite.Failures = append(suite.Failures, ScenarioFailure{ScenarioPath: path, Errors: errs})
	}
	return suite, nil
}

func runOne(path string) []string {
	scenario, err := LoadScenario(path)
	if err != nil {
		return []string{err.Error()}
	}
	result, err := Run(scenario)
	if err != nil {
		return []string{err.Error()}
	}
	return result.Errors
}
