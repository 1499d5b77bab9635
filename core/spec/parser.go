package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TaskSpec represents the YAML task request document
type TaskSpec struct {
	Task TaskSpecTask `yaml:"task"`
}

// TaskSpecTask represents the task section of the request
type TaskSpecTask struct {
	Name       string                 `yaml:"name"`
	Recipe     string                 `yaml:"recipe"`
	Parameters map[string]interface{} `yaml:"parameters"`
}

// ParseTaskSpec parses a YAML task request into its create arguments
func ParseTaskSpec(specYAML string) (*TaskSpecTask, error) {
	var spec TaskSpec
	if err := yaml.Unmarshal([]byte(specYAML), &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if spec.Task.Recipe == "" {
		return nil, fmt.Errorf("task spec is missing a recipe")
	}
	if spec.Task.Name == "" {
		spec.Task.Name = spec.Task.Recipe
	}

	return &spec.Task, nil
}
