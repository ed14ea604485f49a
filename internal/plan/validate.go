package plan

import (
	"fmt"
	"strings"
)

type varKey struct {
	name     string
	dataType string
}

func keyOf(v Variable) varKey {
	return varKey{name: v.Name, dataType: v.DataType}
}

// Validate checks the dataflow of p and returns human-readable warnings.
// It never fails: warnings are advisory and do not stop execution.
func Validate(p Plan) []string {
	return validateFrom(p.Steps, nil, 1)
}

// ValidateContinuation checks steps that will run after completed. Outputs
// of completed steps count as available inputs, and step numbers continue
// after the completed history.
func ValidateContinuation(completed []CompletedStep, next []Step) []string {
	if len(completed) == 0 {
		return validateFrom(next, nil, 1)
	}

	available := make(map[varKey]bool)
	for _, c := range completed {
		for _, v := range c.Step.OutputVariables {
			available[keyOf(v)] = true
		}
	}
	return validateFrom(next, available, len(completed)+1)
}

// validateFrom numbers steps[0] as start. Without a seed the first step has
// nothing before it, so it is held to the "no inputs" rule instead.
func validateFrom(steps []Step, seed map[varKey]bool, start int) []string {
	if len(steps) == 0 {
		return nil
	}

	var warnings []string
	if seed == nil && len(steps[0].InputVariables) > 0 {
		names := make([]string, len(steps[0].InputVariables))
		for i, v := range steps[0].InputVariables {
			names[i] = v.Name
		}
		warnings = append(warnings, fmt.Sprintf(
			"First step has input variables: %s. First step should not require inputs.",
			strings.Join(names, ", ")))
	}

	produced := make(map[varKey]bool, len(seed))
	for k := range seed {
		produced[k] = true
	}
	for idx, step := range steps {
		if idx > 0 || seed != nil {
			for _, in := range step.InputVariables {
				if !produced[keyOf(in)] {
					warnings = append(warnings, fmt.Sprintf(
						"Step %d requires input '%s' (%s), but no previous step produces it.",
						start+idx, in.Name, in.DataType))
				}
			}
		}
		for _, out := range step.OutputVariables {
			produced[keyOf(out)] = true
		}
	}

	for idx := 0; idx < len(steps)-1; idx++ {
		for _, out := range steps[idx].OutputVariables {
			if !consumedAfter(steps, idx, keyOf(out)) {
				warnings = append(warnings, fmt.Sprintf(
					"Step %d outputs '%s' (%s), but it's not used by any subsequent step.",
					start+idx, out.Name, out.DataType))
			}
		}
	}
	return warnings
}

func consumedAfter(steps []Step, idx int, key varKey) bool {
	for _, later := range steps[idx+1:] {
		for _, in := range later.InputVariables {
			if keyOf(in) == key {
				return true
			}
		}
	}
	return false
}
