package plan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatCompleted renders the completed history for decision and replan prompts.
func FormatCompleted(completed []CompletedStep) string {
	var lines []string
	for i, c := range completed {
		lines = appendStepSummary(lines, i+1, c.Step)
		lines = append(lines, "  Result: "+c.Result, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \n\t")
}

// FormatRemaining renders steps that have not run yet, numbered from 1.
func FormatRemaining(steps []Step) string {
	var lines []string
	for i, s := range steps {
		lines = appendStepSummary(lines, i+1, s)
		lines = append(lines, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \n\t")
}

func appendStepSummary(lines []string, n int, s Step) []string {
	lines = append(lines, fmt.Sprintf("Step %d: %s", n, s.Description))
	if len(s.InputVariables) > 0 {
		lines = append(lines, "  Input variables: "+inline(s.InputVariables))
	}
	if len(s.OutputVariables) > 0 {
		lines = append(lines, "  Output variables: "+inline(s.OutputVariables))
	}
	return lines
}

func inline(vars []Variable) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = fmt.Sprintf("%s (%s)", v.Name, v.DataType)
	}
	return strings.Join(parts, ", ")
}

// FormatVariables renders one "  - name (type): description" line per
// variable, preceded by a newline, or "None" for an empty list.
func FormatVariables(vars []Variable) string {
	if len(vars) == 0 {
		return "None"
	}
	var sb strings.Builder
	for _, v := range vars {
		fmt.Fprintf(&sb, "\n  - %s (%s): %s", v.Name, v.DataType, v.Description)
	}
	return sb.String()
}

// FormatForLog renders steps for plan.txt, numbering from start.
func FormatForLog(steps []Step, start int) string {
	separator := strings.Repeat("-", 80)
	var lines []string
	for i, s := range steps {
		lines = append(lines,
			"\n"+separator,
			fmt.Sprintf("Step %d: %s", start+i, s.Description),
			separator,
			"input_variables: "+indentJSON(s.InputVariables),
			"output_variables: "+indentJSON(s.OutputVariables),
		)
	}
	return strings.Join(lines, "\n")
}

func indentJSON(vars []Variable) string {
	if vars == nil {
		vars = []Variable{}
	}
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(vars); err != nil {
		return "[]"
	}
	return strings.TrimRight(sb.String(), "\n")
}
