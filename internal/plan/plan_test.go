package plan

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/codefionn/planrunner/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v(name, dataType string) Variable {
	return Variable{Name: name, DataType: dataType, Description: name + " value"}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		plan     Plan
		expected []string
	}{
		{
			name:     "empty plan",
			plan:     Plan{},
			expected: nil,
		},
		{
			name: "consistent chain",
			plan: Plan{Steps: []Step{
				{Description: "fetch", OutputVariables: []Variable{v("rows", "list[int]")}},
				{Description: "sum", InputVariables: []Variable{v("rows", "list[int]")}, OutputVariables: []Variable{v("total", "int")}},
				{Description: "report", InputVariables: []Variable{v("total", "int")}},
			}},
			expected: nil,
		},
		{
			name: "first step with inputs",
			plan: Plan{Steps: []Step{
				{Description: "start", InputVariables: []Variable{v("a", "int"), v("b", "str")}},
			}},
			expected: []string{
				"First step has input variables: a, b. First step should not require inputs.",
			},
		},
		{
			name: "type mismatch counts as missing and unused",
			plan: Plan{Steps: []Step{
				{Description: "fetch", OutputVariables: []Variable{v("rows", "list[int]")}},
				{Description: "sum", InputVariables: []Variable{v("rows", "list[str]")}},
			}},
			expected: []string{
				"Step 2 requires input 'rows' (list[str]), but no previous step produces it.",
				"Step 1 outputs 'rows' (list[int]), but it's not used by any subsequent step.",
			},
		},
		{
			name: "last step outputs are final",
			plan: Plan{Steps: []Step{
				{Description: "one", OutputVariables: []Variable{v("x", "int")}},
				{Description: "two", InputVariables: []Variable{v("x", "int")}, OutputVariables: []Variable{v("y", "int")}},
			}},
			expected: nil,
		},
		{
			name: "ordering of rules",
			plan: Plan{Steps: []Step{
				{Description: "one", InputVariables: []Variable{v("seed", "int")}, OutputVariables: []Variable{v("x", "int")}},
				{Description: "two", InputVariables: []Variable{v("z", "float")}},
			}},
			expected: []string{
				"First step has input variables: seed. First step should not require inputs.",
				"Step 2 requires input 'z' (float), but no previous step produces it.",
				"Step 1 outputs 'x' (int), but it's not used by any subsequent step.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Validate(tt.plan))
		})
	}
}

func TestValidateNoPreviousStepWarningsWhenSatisfied(t *testing.T) {
	p := Plan{Steps: []Step{
		{OutputVariables: []Variable{v("a", "int"), v("b", "str")}},
		{InputVariables: []Variable{v("a", "int")}, OutputVariables: []Variable{v("c", "dict[str, int]")}},
		{InputVariables: []Variable{v("b", "str"), v("c", "dict[str, int]")}},
	}}

	for _, w := range Validate(p) {
		assert.NotContains(t, w, "no previous step produces it")
	}
}

func TestValidateContinuation(t *testing.T) {
	completed := []CompletedStep{
		{Step: Step{OutputVariables: []Variable{v("rows", "list[int]")}}, Result: "fetched"},
		{Step: Step{InputVariables: []Variable{v("rows", "list[int]")}, OutputVariables: []Variable{v("total", "int")}}, Result: "summed"},
	}
	next := []Step{
		{Description: "use history", InputVariables: []Variable{v("total", "int"), v("ghost", "str")}, OutputVariables: []Variable{v("text", "str")}},
		{Description: "report", InputVariables: []Variable{v("text", "str")}},
	}

	warnings := ValidateContinuation(completed, next)
	assert.Equal(t, []string{
		"Step 3 requires input 'ghost' (str), but no previous step produces it.",
	}, warnings)
}

func TestValidateContinuationWithoutHistory(t *testing.T) {
	next := []Step{{InputVariables: []Variable{v("a", "int")}}}
	assert.Equal(t, Validate(Plan{Steps: next}), ValidateContinuation(nil, next))
}

func TestLint(t *testing.T) {
	p := Plan{Steps: []Step{
		{OutputVariables: []Variable{v("ok_name", "int"), v("class", "int"), v("2fast", "int"), v("ok_name", "int"), v("grid", "list[int")}},
	}}

	assert.Equal(t, []string{
		"Step 1 output variable 'class' is a reserved word.",
		"Step 1 output variable '2fast' is not a valid identifier.",
		"Step 1 declares output variable 'ok_name' more than once.",
		"Step 1 output variable 'grid' has an unrecognized data type \"list[int\".",
	}, Lint(p))
}

func TestCheckLogs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWriter(logger.LevelDebug, &buf, "plan")

	warnings := Check(Plan{Steps: []Step{{InputVariables: []Variable{v("a", "int")}}}}, log)
	require.Len(t, warnings, 1)
	assert.Contains(t, buf.String(), "Plan validation warnings")
	assert.Contains(t, buf.String(), "First step has input variables: a.")
}

func TestFormatCompletedAndRemaining(t *testing.T) {
	step := Step{
		Description:     "sum rows",
		InputVariables:  []Variable{v("rows", "list[int]")},
		OutputVariables: []Variable{v("total", "int")},
	}

	assert.Equal(t,
		"Step 1: sum rows\n  Input variables: rows (list[int])\n  Output variables: total (int)\n  Result: 42",
		FormatCompleted([]CompletedStep{{Step: step, Result: "42"}}))

	assert.Equal(t,
		"Step 1: sum rows\n  Input variables: rows (list[int])\n  Output variables: total (int)\n\nStep 2: print",
		FormatRemaining([]Step{step, {Description: "print"}}))

	assert.Equal(t, "", FormatRemaining(nil))
}

func TestFormatVariables(t *testing.T) {
	assert.Equal(t, "None", FormatVariables(nil))
	assert.Equal(t, "\n  - total (int): sum of rows",
		FormatVariables([]Variable{{Name: "total", DataType: "int", Description: "sum of rows"}}))
}

func TestFormatForLog(t *testing.T) {
	out := FormatForLog([]Step{{Description: "report", OutputVariables: []Variable{v("x", "dict[str, list[int]]")}}}, 4)

	assert.Contains(t, out, "Step 4: report")
	assert.Contains(t, out, "input_variables: []")
	assert.Contains(t, out, `"variable_data_type": "dict[str, list[int]]"`)
	assert.True(t, strings.HasPrefix(out, "\n"+strings.Repeat("-", 80)))
}

func TestSchemas(t *testing.T) {
	ps := PlanSchema()
	_, hasRef := ps["$ref"]
	assert.False(t, hasRef)
	assert.Equal(t, "object", ps["type"])

	props, ok := ps["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "steps")

	ds := DecisionSchema()
	data, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.Contains(t, string(data), "replan_remaining_steps")
	assert.Contains(t, string(data), "task_continue_reason")
}

func TestDecisionDecode(t *testing.T) {
	var d Decision
	require.NoError(t, json.Unmarshal([]byte(`{"next_action":"abort","abort_reason":null}`), &d))
	assert.Equal(t, ActionAbort, d.NextAction)
	assert.Empty(t, d.AbortReason)
}
