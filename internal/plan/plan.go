// Package plan holds the plan data model produced by the planning model and
// the dataflow checks run over it.
package plan

// Variable is a named value a step consumes or produces in the execution state.
type Variable struct {
	Name        string `json:"variable_name" jsonschema_description:"Name of the python variable in global scope"`
	Description string `json:"variable_description" jsonschema_description:"Description of the python variable, in natural language"`
	DataType    string `json:"variable_data_type" jsonschema_description:"Python type of the variable (python typing). Allowed values: str, int, float, bool, list, dict, tuple, set. Use nested dtypes e.g. list[tuple[int, str]]. Do not use any type."`
}

// Step is one unit of work in a plan.
type Step struct {
	InputVariables  []Variable `json:"input_variables" jsonschema_description:"Input variables and their dtypes"`
	Description     string     `json:"step_description" jsonschema_description:"What this step should accomplish using input variables. The result of the step should be stored in output variables. Include all relevant information from the task, related to this step."`
	OutputVariables []Variable `json:"output_variables" jsonschema_description:"Output variables and their dtypes"`
}

// Plan is an ordered list of steps. It is replaced wholesale on replanning.
type Plan struct {
	Steps []Step `json:"steps" jsonschema_description:"List of steps to execute"`
}

// CompletedStep pairs an executed step with the result text it returned.
type CompletedStep struct {
	Step   Step
	Result string
}

// Action is the control loop's next move after a step.
type Action string

const (
	ActionContinue      Action = "continue"
	ActionAbort         Action = "abort"
	ActionReplan        Action = "replan_remaining_steps"
	ActionTaskCompleted Action = "task_completed"
)

// Decision is the model's verdict after a completed step.
type Decision struct {
	NextAction          Action `json:"next_action" jsonschema:"enum=continue,enum=abort,enum=replan_remaining_steps,enum=task_completed" jsonschema_description:"What to do next"`
	AbortReason         string `json:"abort_reason,omitempty" jsonschema_description:"Why task cannot be completed (for abort decision)"`
	ReplanReason        string `json:"reasons_for_replan_remaining_steps,omitempty" jsonschema_description:"Reason for replanning remaining steps (for replan_remaining_steps decision)"`
	TaskCompletedReason string `json:"task_completed_reason,omitempty" jsonschema_description:"Reason for task completion (for task_completed decision)"`
	TaskContinueReason  string `json:"task_continue_reason,omitempty" jsonschema_description:"Reason for continuing the task (for continue decision)"`
}
