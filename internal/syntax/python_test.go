package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzePython(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		statements int
		topLevel   []string
		assigns    bool
	}{
		{
			name:       "strict completion",
			code:       "step_status = 'completed'\nfinal_answer = \"counted 3 files\"\n",
			statements: 2,
			topLevel:   []string{"step_status", "final_answer"},
			assigns:    true,
		},
		{
			name:       "comments are not statements",
			code:       "# done\nstep_status = 'completed'\n# summary\nfinal_answer = 'ok'",
			statements: 2,
			topLevel:   []string{"step_status", "final_answer"},
			assigns:    true,
		},
		{
			name:       "tuple unpacking",
			code:       "step_status, final_answer = 'completed', 'ok'",
			statements: 1,
			topLevel:   []string{"step_status", "final_answer"},
			assigns:    true,
		},
		{
			name:       "three statements",
			code:       "total = sum(rows)\nstep_status = 'completed'\nfinal_answer = f'{total}'",
			statements: 3,
			topLevel:   []string{"total", "step_status", "final_answer"},
			assigns:    true,
		},
		{
			name:       "nested assignment",
			code:       "if ok:\n    final_answer = 'x'\nelse:\n    print('no')",
			statements: 1,
			topLevel:   nil,
			assigns:    true,
		},
		{
			name:       "no completion names",
			code:       "import os\nprint(os.listdir('.'))",
			statements: 2,
			topLevel:   nil,
			assigns:    false,
		},
		{
			name:       "comparison is not assignment",
			code:       "final_answer == 'x'",
			statements: 1,
			topLevel:   nil,
			assigns:    false,
		},
		{
			name:       "annotated assignments bind nothing",
			code:       "step_status: str = 'completed'\nfinal_answer: str = 'ok'",
			statements: 2,
			topLevel:   nil,
			assigns:    false,
		},
		{
			name:       "multiline call is one statement",
			code:       "rows = load(\n    path='data.csv',\n    sep=';',\n)\nprint(rows)",
			statements: 2,
			topLevel:   []string{"rows"},
			assigns:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := AnalyzePython(tt.code)
			require.NoError(t, err)
			require.True(t, a.Valid)

			assert.Equal(t, tt.statements, a.Statements)
			assert.Equal(t, tt.topLevel, a.TopLevelTargets)
			assert.Equal(t, tt.assigns, a.AssignsAny("step_status", "final_answer"))
		})
	}
}

func TestTopLevelAssignsAll(t *testing.T) {
	a, err := AnalyzePython("step_status = 'failed'\nprint('x')")
	require.NoError(t, err)
	assert.False(t, a.TopLevelAssignsAll("step_status", "final_answer"))
	assert.True(t, a.TopLevelAssignsAll("step_status"))
}

func TestAnalyzePythonUnbalanced(t *testing.T) {
	a, err := AnalyzePython("final_answer = call(\n")
	require.NoError(t, err)
	assert.False(t, a.Valid)
	assert.False(t, a.AssignsAny("final_answer"))
}
