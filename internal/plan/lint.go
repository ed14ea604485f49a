package plan

import (
	"fmt"
	"unicode"

	"github.com/codefionn/planrunner/internal/typeexpr"
)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true,
	"async": true, "await": true, "break": true, "class": true, "continue": true,
	"def": true, "del": true, "elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true, "pass": true,
	"raise": true, "return": true, "try": true, "while": true, "with": true, "yield": true,
}

// Lint reports variables that cannot live in the execution state
// (non-identifiers, reserved words, duplicates within one list) and data
// types the output check cannot parse.
func Lint(p Plan) []string {
	return lintFrom(p.Steps, 1)
}

func lintFrom(steps []Step, start int) []string {
	var warnings []string
	for idx, step := range steps {
		warnings = append(warnings, lintVariables(start+idx, "input", step.InputVariables)...)
		warnings = append(warnings, lintVariables(start+idx, "output", step.OutputVariables)...)
	}
	return warnings
}

func lintVariables(stepNum int, kind string, vars []Variable) []string {
	var warnings []string
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		switch {
		case !isIdentifier(v.Name):
			warnings = append(warnings, fmt.Sprintf("Step %d %s variable '%s' is not a valid identifier.", stepNum, kind, v.Name))
		case pythonKeywords[v.Name]:
			warnings = append(warnings, fmt.Sprintf("Step %d %s variable '%s' is a reserved word.", stepNum, kind, v.Name))
		}
		if _, err := typeexpr.Parse(v.DataType); err != nil {
			warnings = append(warnings, fmt.Sprintf("Step %d %s variable '%s' has an unrecognized data type %q.", stepNum, kind, v.Name, v.DataType))
		}
		if seen[v.Name] {
			warnings = append(warnings, fmt.Sprintf("Step %d declares %s variable '%s' more than once.", stepNum, kind, v.Name))
		}
		seen[v.Name] = true
	}
	return warnings
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
