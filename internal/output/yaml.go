package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/virtbuilder/internal/vm"
)

// YAMLFormatter formats results as YAML.
type YAMLFormatter struct{}

// FormatPlan formats a plan as YAML.
func (f *YAMLFormatter) FormatPlan(plan *vm.Plan) (string, error) {
	data, err := yaml.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan to YAML: %w", err)
	}

	return string(data), nil
}

// FormatStatus formats a domain status as YAML.
func (f *YAMLFormatter) FormatStatus(st *vm.DomainStatus) (string, error) {
	data, err := yaml.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("failed to marshal status to YAML: %w", err)
	}

	return string(data), nil
}
