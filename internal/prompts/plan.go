package prompts

import "time"

const planTemplate = `{{define "plan"}}
current date: {{.Date}}

Create plan to achieve the following task:

## Task
{{.Task}}

# Planning instructions
- Break down the task into clear, actionable steps (1-10 steps approximately)
- for simple tasks you can schedule 1-2 steps. for complex difficult tasks you can schedule more steps, up to 10

# Input and Output variables
- Each step should contain description and step variables: input_variables and output_variables
- always provide the full explicit information in each step description. Technical details, links, paths, etc.
- input_variables - variables that are used in the step, must be ready before the step execution
- output_variables - variables that are created in the step, must be used in the next steps
- variables names and data types should strictly follow python syntax and types
- do not use ` + "`any`" + ` type in step_variables
- variables names should not conflict with python built-in variables and keywords
- variable_description should follow the variable_data_type in terms of data type
- use explicit full data types. if needed use nested types (list[tuple[int, str]]).
- e.g. pandas.DataFrame, numpy.ndarray, list[tuple[int, str]], dict[str, list[int]], etc.
- data types should be literal python types in string format.
- first step could not have input_variables (no previous steps to set variables)
- last step could not have output_variables (no next steps to use variables)
- all output variables should be used in the next steps. Do not create unused variables

# Steps could use the following tools:
- python code execution
- bash shell execution
- pip install package_name
- internet (curl, requests etc)
- files system, files read/write, CWD
{{end}}`

const decisionTemplate = `{{define "decision"}}
current date: {{.Date}}

You are evaluating the progress of a task execution and deciding what to do next.

## Original Task
{{.Task}}

## Completed Steps
{{.CompletedSteps}}

## Remaining Steps in Plan
{{.RemainingSteps}}

## Decision Options
- "continue": Move to the next planned step
- "abort": Task cannot be completed, explain why (abort_reason)
- "replan_remaining_steps": when the current plan is not optimal anymore, provide reasons_for_replan_remaining_steps.
- "task_completed": when the task is completed successfully, explain why (task_completed_reason)

Rules of replanning:
- when new unexpected information is discovered - ` + "`replan_remaining_steps`" + ` remaining steps.
- when the task turns out to be more complex than expected - ` + "`replan_remaining_steps`" + ` remaining steps.
- when step results are deviating from expected logic of general planning - ` + "`replan_remaining_steps`" + ` remaining steps.
- if the task is following correct logic in general - ` + "`continue`" + ` with the plan.
- if ` + "`continue`" + ` - you should provide ` + "`task_continue_reason`" + `, state shortly what was accomplished, and why this is inline with the initial plan.
- aborting is used when:
    critical information is absent and we cannot obtain it using adequate efforts
    critical functionality is absent and we cannot obtain it using adequate efforts
- "task_completed": when the task is completed successfully, explain why (task_completed_reason)
- task could be completed successfully without completing all steps, if the steps are not necessary for the task completion (early termination is possible)
{{end}}`

const replanTemplate = `{{define "replan"}}
current date: {{.Date}}

You are replanning the remaining steps of a task based on new information.

## Original Task
{{.Task}}

## Completed Steps
{{.CompletedSteps}}

## Old Remaining Steps in Plan (to be replaced)
{{.RemainingSteps}}

## Reasons for replanning remaining steps
{{.Reasons}}

## Replanning Rules
- you need to provide new remaining steps to complete the task, taking into account what we've learned.
- completed steps cannot be changed. Do not rewrite or copy them.
- when you change the remaining steps, you should take into account the output variables of the completed steps.
- so new steps could take only existing variables from completed steps or new variables that you create in the new steps.
- YOU CAN NOT USE VARIABLES AS INPUT, IF THIS VARIABLE IS NOT SET IN PREVIOUS STEPS.

Important:
- consider radical change in the plan approach, if needed.
- sometimes you need to completely re-think the plan.
{{end}}`

// PlanData fills the plan creation prompt.
type PlanData struct {
	Date string
	Task string
}

// DecisionData fills the after-step decision prompt. Step lists are
// already formatted.
type DecisionData struct {
	Date           string
	Task           string
	CompletedSteps string
	RemainingSteps string
}

// ReplanData fills the replan prompt.
type ReplanData struct {
	Date           string
	Task           string
	CompletedSteps string
	RemainingSteps string
	Reasons        string
}

// Plan renders the plan creation prompt for task.
func Plan(now time.Time, task string) string {
	return render("plan", PlanData{Date: today(now), Task: task})
}

// Decision renders the after-step decision prompt.
func Decision(now time.Time, task, completed, remaining string) string {
	return render("decision", DecisionData{
		Date:           today(now),
		Task:           task,
		CompletedSteps: completed,
		RemainingSteps: remaining,
	})
}

// Replan renders the prompt that replaces the remaining steps.
func Replan(now time.Time, task, completed, remaining, reasons string) string {
	return render("replan", ReplanData{
		Date:           today(now),
		Task:           task,
		CompletedSteps: completed,
		RemainingSteps: remaining,
		Reasons:        reasons,
	})
}
