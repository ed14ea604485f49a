package step

import (
	"fmt"
	"strings"

	"github.com/codefionn/planrunner/internal/llm"
	"github.com/codefionn/planrunner/internal/plan"
	"github.com/codefionn/planrunner/internal/sandbox"
	"github.com/codefionn/planrunner/internal/typeexpr"
)

// Fixed results returned in place of a model answer.
const (
	MaxIterationsResult = "Max iterations reached without a final answer."
)

const noCodeMessage = "No valid code to execute. Use \n```python\n...\n```\nor \n```bash\n...\n```\nblocks to write code.\n" +
	"If step is completed you should set python variables `step_status: str` - 'completed' or 'failed' and `final_answer: str` - description of results.\n"

func challengeMessage(current plan.Step) string {
	var sb strings.Builder
	sb.WriteString("Make sure that the step is completed correctly and you understand the result.\n")
	sb.WriteString("Analyze all the information above, facts and code execution results. You should base you descision on the information above.\n")
	fmt.Fprintf(&sb, "The current step target was: >>>%s<<<\n", current.Description)
	fmt.Fprintf(&sb, "The current step output variables (should be set if task is `completed`, `None` or empty containers ([], {} etc.) **is not allowed**):%s\n\n",
		plan.FormatVariables(current.OutputVariables))
	sb.WriteString("If you are sure you want to finilize step: use **exactly** two lines of code\n")
	sb.WriteString("\n```python\nstep_status = 'completed' OR 'failed'\nfinal_answer = ...result description...\n```\n")
	sb.WriteString("Do not include other codes blocks. Only one python code block with two assignments.")
	return sb.String()
}

// assistantTurn renders a code block as the assistant message that
// produced it, prefixed with the text that preceded it in the reply.
func assistantTurn(pendingText []string, b llm.Block) string {
	return strings.Join(pendingText, "") + fmt.Sprintf("```%s\n%s\n```", b.Type, strings.Trim(b.Text, "\n"))
}

func executionMessage(res sandbox.Result) string {
	var parts []string
	if res.Stdout != "" {
		parts = append(parts, "\n**STDOUT:**\n"+res.Stdout)
	}
	if res.Stderr != "" {
		parts = append(parts, "**STDERR:**\n"+res.Stderr)
	}
	if len(parts) == 0 {
		return "Code execution result: (no output)"
	}
	return "Code execution result:\n" + strings.Join(parts, "\n\n")
}

func missingVariable(name string) string {
	return fmt.Sprintf("Missing variable: %s\n", name)
}

// unrecognizedType blocks completion when the declared type itself cannot
// be read, so the model either reshapes the value or renames the type.
func unrecognizedType(name, dataType string, v typeexpr.Value, err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s is %s but expected literal python type: %s\n", name, v.TypeName(), dataType)
	fmt.Fprintf(&sb, "the declared type %q of %s is not recognised (%v).\n", dataType, name, err)
	sb.WriteString("Use python typing such as list[int], dict[str, float] or list[tuple[int, str]] when describing it.\n")
	return sb.String()
}

func typeMismatch(name, dataType string, v typeexpr.Value, mismatch *typeexpr.Mismatch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s is %s but expected literal python type: %s\n", name, v.TypeName(), dataType)
	if mismatch.Path != "" {
		fmt.Fprintf(&sb, "%s%s\n", name, mismatch.Error())
	}
	fmt.Fprintf(&sb, "make sure that the variable %s class exists verbatim in current python environment.\n", dataType)
	fmt.Fprintf(&sb, "name of the class should be verbatim %s, so re-import it if needed\n", dataType)
	sb.WriteString("examples of different imports: import pandas as pd VS import pandas; import numpy as np VS import numpy; etc\n")
	return sb.String()
}
