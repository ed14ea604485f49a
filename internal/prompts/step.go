package prompts

import (
	"time"

	"github.com/codefionn/planrunner/internal/plan"
)

const stepSystemTemplate = `{{define "step_system"}}
current date: {{.Date}}

You solve task by writing Python code snippets and bash code snippets.

# RULES:
1. You can write valid python code snippets. And I will execute them for you.
2. You can add comments alongside code to describe your thinking and logic.
3. Always check dtypes and other properties of input variables before using them.
4. Use print to see the code execution result. You should insert them in the code manually.
5. Solve task step by step. Make small code snippets and more iterations. Quick feedback loop is extremely important.
6. Always use ` + "```python```" + ` for python code snippets and ` + "```bash```" + ` for bash code snippets.
7. do exactly what is described in the current step description.
8. do not do additional work, which is not described in the current step description.
9. if step can not be completed, explain why in the final_answer variable.

# Example of code snippets:
` + "```python" + `
# your comments here
...
variable_name = value
result = function_call()
print(result)
...
` + "```" + `

` + "```bash" + `
pwd && ls -la
cat notes.md
grep "rabbit" notes.md
` + "```" + `

# Available tools:
- python code execution (variables persist between python snippets)
- bash shell (direct shell bash execution, any number of lines)
- Python package installation: use bash to run ` + "`python -m pip install package_name`" + `, the package is importable right after
- Each task runs in its own isolated working directory
- Current working directory (CWD) is set for every python and bash execution
- Use relative paths (.) or absolute paths to work with files in your task directory
- Internet access (via python requests/beautifulsoup4/lxml). BE CAREFUL. ONLY TRUSTED SOURCES!

# Step completion
After step is completed you should set python variables ` + "`step_status`" + ` to 'completed' or 'failed' and ` + "`final_answer`" + ` to the description of what was accomplished.
To finalize step: use **exactly** two lines of python code (one python block):
Examples:
` + "```python" + `
step_status = 'completed'
final_answer = "description of what was accomplished"
` + "```" + `
or
` + "```python" + `
step_status = 'failed'
final_answer = "description of why step is impossible to complete and we should abort the step"
` + "```" + `
If task is ` + "`completed`" + ` - you should set all output variables to the correct values and data types (you can not use ` + "`None`" + ` values).
If task is ` + "`failed`" + ` - output variables are not required to be set.
{{end}}`

const stepUserTemplate = `{{define "step_user"}}
## Global Task (only for general understanding of main goal. DO NOT TRY TO SOLVE THE TASK HERE!)

 {{.Task}}
{{if .Completed}}
## Previous Steps Completed
{{range $i, $c := .Completed}}
### Step {{inc $i}}
{{$c.Step.Description}}
**Result:** {{$c.Result}}
{{- end}}
{{end}}
## >>> CURRENT STEP (FOCUS HERE) <<<
This is the current step you need to execute. Focus on completing THIS step below:


 >>> {{.Current.Description}} <<<
{{if .Current.InputVariables}}
### Input variables available
{{- range .Current.InputVariables}}
- {{.Name}} ({{.DataType}}): {{.Description}}
{{- end}}
{{end}}
{{- if .Current.OutputVariables}}
### Output variables required
{{- range .Current.OutputVariables}}
- {{.Name}} ({{.DataType}}): {{.Description}}
{{- end}}
{{end}}
{{- end}}`

// StepUserData fills the first user message of a step.
type StepUserData struct {
	Task      string
	Current   plan.Step
	Completed []plan.CompletedStep
}

// StepSystem renders the system prompt of the step runner.
func StepSystem(now time.Time) string {
	return render("step_system", struct{ Date string }{today(now)})
}

// StepUser renders the opening user message for the current step.
func StepUser(task string, current plan.Step, completed []plan.CompletedStep) string {
	return render("step_user", StepUserData{Task: task, Current: current, Completed: completed})
}
