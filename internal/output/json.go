package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/virtbuilder/internal/vm"
)

// JSONFormatter formats results as indented JSON.
type JSONFormatter struct{}

// FormatPlan formats a plan as JSON.
func (f *JSONFormatter) FormatPlan(plan *vm.Plan) (string, error) {
	return marshalJSON("plan", plan)
}

// FormatStatus formats a domain status as JSON.
func (f *JSONFormatter) FormatStatus(st *vm.DomainStatus) (string, error) {
	return marshalJSON("status", st)
}

func marshalJSON(what string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", what, err)
	}

	return string(data) + "\n", nil
}
