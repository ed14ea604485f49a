//go:build cgo

package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzePythonTreeSitter(t *testing.T) {
	t.Run("chained and annotated", func(t *testing.T) {
		a, err := AnalyzePython("step_status = final_answer = 'x'\ntotal: int = 3")
		require.NoError(t, err)
		assert.Equal(t, 2, a.Statements)
		assert.Equal(t, []string{"step_status", "final_answer"}, a.TopLevelTargets)
		assert.NotContains(t, a.Assigned, "total")
	})

	t.Run("annotation without value binds nothing", func(t *testing.T) {
		a, err := AnalyzePython("final_answer: str")
		require.NoError(t, err)
		assert.False(t, a.AssignsAny("final_answer"))
	})

	t.Run("attribute targets are ignored", func(t *testing.T) {
		a, err := AnalyzePython("obj.final_answer = 'x'")
		require.NoError(t, err)
		assert.False(t, a.AssignsAny("final_answer"))
	})

	t.Run("semicolons separate statements", func(t *testing.T) {
		a, err := AnalyzePython("step_status = 'completed'; final_answer = 'ok'")
		require.NoError(t, err)
		assert.Equal(t, 2, a.Statements)
	})

	t.Run("syntax error", func(t *testing.T) {
		a, err := AnalyzePython("step_status = = 'x'")
		require.NoError(t, err)
		assert.False(t, a.Valid)
	})

	t.Run("function body", func(t *testing.T) {
		a, err := AnalyzePython("def f():\n    final_answer = 1\n    return final_answer\n")
		require.NoError(t, err)
		assert.Equal(t, 1, a.Statements)
		assert.True(t, a.AssignsAny("final_answer"))
		assert.Empty(t, a.TopLevelTargets)
	})
}
